package coupon

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/resource"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
)

// Application is the set of applied coupons keyed by scope. It is a value:
// every operation returns a new Application and leaves the receiver intact.
// An "all" entry never coexists with category entries.
type Application struct {
	entries map[Scope]string
}

// Removal records an entry dropped by Apply or Revalidate.
type Removal struct {
	Scope  Scope  `json:"scope"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// NewApplication builds an Application from raw entries, rejecting
// combinations that violate "all" exclusivity.
func NewApplication(entries map[Scope]string) (Application, error) {
	out := make(map[Scope]string, len(entries))
	for scope, code := range entries {
		if _, err := ParseScope(string(scope)); err != nil {
			return Application{}, err
		}
		code = normalizeCode(code)
		if code == "" {
			continue
		}
		out[scope] = code
	}
	if _, hasAll := out[ScopeAll]; hasAll && len(out) > 1 {
		return Application{}, apperror.NewValidationError("an all-stations coupon cannot be combined with category coupons")
	}
	return Application{entries: out}, nil
}

// Code returns the code applied to scope.
func (a Application) Code(scope Scope) (string, bool) {
	code, ok := a.entries[scope]
	return code, ok
}

func (a Application) Len() int      { return len(a.entries) }
func (a Application) IsEmpty() bool { return len(a.entries) == 0 }

// Entries returns a copy of the map.
func (a Application) Entries() map[Scope]string {
	out := make(map[Scope]string, len(a.entries))
	for k, v := range a.entries {
		out[k] = v
	}
	return out
}

// Scopes returns applied scopes: "all" first, then categories in display order.
func (a Application) Scopes() []Scope {
	out := make([]Scope, 0, len(a.entries))
	if _, ok := a.entries[ScopeAll]; ok {
		out = append(out, ScopeAll)
	}
	for _, c := range resource.Categories {
		if _, ok := a.entries[CategoryScope(c)]; ok {
			out = append(out, CategoryScope(c))
		}
	}
	return out
}

// String renders the persisted form "scope:code,scope:code".
func (a Application) String() string {
	parts := make([]string, 0, len(a.entries))
	for _, s := range a.Scopes() {
		parts = append(parts, string(s)+":"+a.entries[s])
	}
	return strings.Join(parts, ",")
}

// ParseApplication reads the persisted form produced by String.
func ParseApplication(s string) (Application, error) {
	entries := make(map[Scope]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		scope, code, ok := strings.Cut(part, ":")
		if !ok {
			return Application{}, apperror.NewValidationError(fmt.Sprintf("malformed coupon entry %q", part))
		}
		entries[Scope(strings.ToLower(scope))] = code
	}
	return NewApplication(entries)
}

func (a Application) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(a.entries))
	for k, v := range a.entries {
		m[string(k)] = v
	}
	return json.Marshal(m)
}

func (a *Application) UnmarshalJSON(b []byte) error {
	var m map[Scope]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	parsed, err := NewApplication(m)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Apply validates code against t and returns the resulting Application plus
// any entries it displaced. Attestation is requested only after the code is
// known to be eligible.
func (a Application) Apply(ctx context.Context, reg *Registry, code string, t Target, confirm Confirmer) (Application, []Removal, error) {
	rule, ok := reg.Lookup(code)
	if !ok {
		return a, nil, apperror.NewValidationError(
			fmt.Sprintf("coupon code %q is not valid", strings.TrimSpace(code))).
			WithDetail("reason", "unknown_code")
	}

	if err := rule.CheckEligibility(t); err != nil {
		return a, nil, err
	}

	if err := rule.attest(ctx, confirm); err != nil {
		return a, nil, err
	}

	var displaced []Removal
	next := make(map[Scope]string, len(a.entries)+1)

	if rule.Scope == ScopeAll {
		for _, s := range a.Scopes() {
			if a.entries[s] != rule.Code {
				displaced = append(displaced, Removal{Scope: s, Code: a.entries[s], Reason: rule.Code + " covers all stations"})
			}
		}
		next[ScopeAll] = rule.Code
		return Application{entries: next}, displaced, nil
	}

	for s, c := range a.entries {
		switch {
		case s == ScopeAll:
			displaced = append(displaced, Removal{Scope: s, Code: c, Reason: "replaced by category coupon " + rule.Code})
		case s == rule.Scope && c != rule.Code:
			displaced = append(displaced, Removal{Scope: s, Code: c, Reason: "only one coupon per category; replaced by " + rule.Code})
		case s != rule.Scope:
			next[s] = c
		}
	}
	next[rule.Scope] = rule.Code
	sortRemovals(displaced)
	return Application{entries: next}, displaced, nil
}

// Remove drops the entry for scope. Removing an absent scope is a no-op.
func (a Application) Remove(scope Scope) Application {
	next := make(map[Scope]string, len(a.entries))
	for s, c := range a.entries {
		if s != scope {
			next[s] = c
		}
	}
	return Application{entries: next}
}

// Attest asks confirm for every held code that requires attestation, in
// scope order. A nil confirm fails with AttestationRequired for the first such
// code. Applications arrive from clients, so codes are confirmed again before
// anything is booked at their price.
func (a Application) Attest(ctx context.Context, reg *Registry, confirm Confirmer) error {
	for _, s := range a.Scopes() {
		rule, ok := reg.Lookup(a.entries[s])
		if !ok {
			continue
		}
		if err := rule.attest(ctx, confirm); err != nil {
			return err
		}
	}
	return nil
}

// Revalidate silently drops entries whose time window no longer holds for t,
// entries whose code is no longer registered, and entries held under a scope
// other than the rule's own. Category entries whose category left the
// selection are kept; pricing treats them as zero.
func (a Application) Revalidate(reg *Registry, t Target) (Application, []Removal) {
	var removed []Removal
	next := make(map[Scope]string, len(a.entries))
	for s, c := range a.entries {
		rule, ok := reg.Lookup(c)
		switch {
		case !ok:
			removed = append(removed, Removal{Scope: s, Code: c, Reason: "no longer offered"})
		case rule.Scope != s:
			removed = append(removed, Removal{Scope: s, Code: c, Reason: "held under the wrong scope"})
		case !rule.InWindow(t):
			removed = append(removed, Removal{Scope: s, Code: c, Reason: "not valid for the selected date and time"})
		default:
			next[s] = c
		}
	}
	sortRemovals(removed)
	return Application{entries: next}, removed
}

func sortRemovals(r []Removal) {
	sort.Slice(r, func(i, j int) bool { return r[i].Scope < r[j].Scope })
}
