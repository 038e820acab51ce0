package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/resource"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		panic(err)
	}
	return loc
}()

// 2026-03-16 is a Monday.
func slotOn(day, hour int) (time.Time, time.Time) {
	start := time.Date(2026, 3, day, hour, 0, 0, 0, ist)
	return start, start.Add(time.Hour)
}

func target(categories ...resource.Category) Target {
	return Target{Categories: categories}
}

func withSlot(t Target, day, hour int) Target {
	t.SlotStart, t.SlotEnd = slotOn(day, hour)
	return t
}

var (
	accept  = ConfirmerFunc(func(context.Context, Rule) (bool, error) { return true, nil })
	decline = ConfirmerFunc(func(context.Context, Rule) (bool, error) { return false, nil })
)

func TestApply_UnknownCode(t *testing.T) {
	reg := DefaultRegistry()
	app := Application{}

	next, _, err := app.Apply(context.Background(), reg, "BOGUS", target(resource.CategoryPC), nil)

	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	assert.ErrorContains(t, err, `"BOGUS" is not valid`)
	assert.True(t, next.IsEmpty())
}

func TestApply_CaseInsensitive(t *testing.T) {
	next, _, err := Application{}.Apply(context.Background(), DefaultRegistry(), " pchalf ", target(resource.CategoryPC), nil)
	require.NoError(t, err)
	code, ok := next.Code(CategoryScope(resource.CategoryPC))
	assert.True(t, ok)
	assert.Equal(t, "PCHALF", code)
}

func TestApply_CategoryRequiresSelection(t *testing.T) {
	_, _, err := Application{}.Apply(context.Background(), DefaultRegistry(), "CONSOLE99", target(resource.CategoryPC), nil)
	require.Error(t, err)
	appErr, _ := apperror.As(err)
	assert.Equal(t, "category_not_selected", appErr.Details["reason"])
}

func TestApply_DistinctCategoriesCoexist(t *testing.T) {
	reg := DefaultRegistry()
	tg := target(resource.CategoryPC, resource.CategoryConsole)

	app, _, err := Application{}.Apply(context.Background(), reg, "PCHALF", tg, nil)
	require.NoError(t, err)
	app, removed, err := app.Apply(context.Background(), reg, "CONSOLE99", tg, nil)
	require.NoError(t, err)

	assert.Empty(t, removed)
	assert.Equal(t, 2, app.Len())
	assert.Equal(t, "pc:PCHALF,console:CONSOLE99", app.String())
}

func TestApply_SameCategoryReplaces(t *testing.T) {
	reg := MustRegistry(append(DefaultRules(), Rule{
		Code: "PCFLAT", Scope: CategoryScope(resource.CategoryPC), Strategy: UnitFloor{RatePerHour: 5000},
	})...)
	tg := target(resource.CategoryPC)

	app, _, err := Application{}.Apply(context.Background(), reg, "PCHALF", tg, nil)
	require.NoError(t, err)
	app, removed, err := app.Apply(context.Background(), reg, "PCFLAT", tg, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, app.Len())
	code, _ := app.Code(CategoryScope(resource.CategoryPC))
	assert.Equal(t, "PCFLAT", code)
	require.Len(t, removed, 1)
	assert.Equal(t, "PCHALF", removed[0].Code)
}

func TestApply_AllScopeIsExclusive(t *testing.T) {
	reg := DefaultRegistry()
	tg := target(resource.CategoryPC, resource.CategoryConsole)

	app, _, err := Application{}.Apply(context.Background(), reg, "PCHALF", tg, nil)
	require.NoError(t, err)
	app, _, err = app.Apply(context.Background(), reg, "CONSOLE99", tg, nil)
	require.NoError(t, err)

	app, removed, err := app.Apply(context.Background(), reg, "WELCOME20", tg, nil)
	require.NoError(t, err)
	assert.Equal(t, map[Scope]string{ScopeAll: "WELCOME20"}, app.Entries())
	assert.Len(t, removed, 2)

	// a category code afterwards displaces the all entry
	app, removed, err = app.Apply(context.Background(), reg, "PCHALF", tg, nil)
	require.NoError(t, err)
	_, hasAll := app.Code(ScopeAll)
	assert.False(t, hasAll)
	require.Len(t, removed, 1)
	assert.Equal(t, "WELCOME20", removed[0].Code)
}

func TestApply_DoesNotMutateReceiver(t *testing.T) {
	reg := DefaultRegistry()
	before, _, err := Application{}.Apply(context.Background(), reg, "PCHALF", target(resource.CategoryPC), nil)
	require.NoError(t, err)

	_, _, err = before.Apply(context.Background(), reg, "WELCOME20", target(resource.CategoryPC), nil)
	require.NoError(t, err)

	assert.Equal(t, "pc:PCHALF", before.String())
}

func TestApply_Attestation(t *testing.T) {
	reg := DefaultRegistry()
	tg := target(resource.CategoryPC)

	t.Run("no confirmer asks for attestation", func(t *testing.T) {
		_, _, err := Application{}.Apply(context.Background(), reg, "FREEPLAY", tg, nil)
		require.Error(t, err)
		appErr, _ := apperror.As(err)
		assert.Equal(t, apperror.KindAttestationRequired, appErr.Kind)
		assert.Contains(t, appErr.Message, "staff-approved")
	})

	t.Run("decline aborts", func(t *testing.T) {
		app, _, err := Application{}.Apply(context.Background(), reg, "FREEPLAY", tg, decline)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		assert.True(t, app.IsEmpty())
	})

	t.Run("accept applies", func(t *testing.T) {
		app, _, err := Application{}.Apply(context.Background(), reg, "FREEPLAY", tg, accept)
		require.NoError(t, err)
		assert.Equal(t, "all:FREEPLAY", app.String())
	})

	t.Run("confirmer error propagates", func(t *testing.T) {
		boom := errors.New("prompt closed")
		_, _, err := Application{}.Apply(context.Background(), reg, "STUDENT15", tg,
			ConfirmerFunc(func(context.Context, Rule) (bool, error) { return false, boom }))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("ineligible code never prompts", func(t *testing.T) {
		asked := false
		reg := MustRegistry(Rule{
			Code: "VRSTAFF", Scope: CategoryScope(resource.CategoryVR), Strategy: FullWaiver{},
			RequiresAttestation: true, AttestationPrompt: "staff?",
		})
		_, _, err := Application{}.Apply(context.Background(), reg, "VRSTAFF", tg,
			ConfirmerFunc(func(context.Context, Rule) (bool, error) { asked = true; return true, nil }))
		require.Error(t, err)
		assert.False(t, asked)
	})
}

func TestApply_TimeWindow(t *testing.T) {
	reg := DefaultRegistry()
	pc := target(resource.CategoryPC)

	cases := []struct {
		name   string
		tg     Target
		reason string
	}{
		{"no slot yet", pc, "slot_required"},
		{"monday afternoon", withSlot(pc, 16, 14), ""},
		{"last hour of window", withSlot(pc, 16, 16), ""},
		{"after window", withSlot(pc, 16, 17), "outside_window"},
		{"before window", withSlot(pc, 16, 11), "outside_window"},
		{"saturday", withSlot(pc, 21, 14), "outside_window"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app, _, err := Application{}.Apply(context.Background(), reg, "HAPPYHOUR", tc.tg, nil)
			if tc.reason == "" {
				require.NoError(t, err)
				assert.Equal(t, "all:HAPPYHOUR", app.String())
				return
			}
			require.Error(t, err)
			appErr, _ := apperror.As(err)
			assert.Equal(t, tc.reason, appErr.Details["reason"])
		})
	}
}

func TestRevalidate_DropsWindowCodesSilently(t *testing.T) {
	reg := DefaultRegistry()
	monday := withSlot(target(resource.CategoryPC), 16, 14)

	app, _, err := Application{}.Apply(context.Background(), reg, "HAPPYHOUR", monday, nil)
	require.NoError(t, err)

	still, removed := app.Revalidate(reg, withSlot(target(resource.CategoryPC), 17, 13))
	assert.Empty(t, removed)
	assert.Equal(t, app.Entries(), still.Entries())

	evening, removed := app.Revalidate(reg, withSlot(target(resource.CategoryPC), 16, 19))
	assert.True(t, evening.IsEmpty())
	require.Len(t, removed, 1)
	assert.Equal(t, "HAPPYHOUR", removed[0].Code)

	noSlot, removed := app.Revalidate(reg, target(resource.CategoryPC))
	assert.True(t, noSlot.IsEmpty())
	assert.Len(t, removed, 1)
}

func TestRevalidate_KeepsStaleCategoryEntries(t *testing.T) {
	reg := DefaultRegistry()
	app, _, err := Application{}.Apply(context.Background(), reg, "CONSOLE99", target(resource.CategoryConsole), nil)
	require.NoError(t, err)

	next, removed := app.Revalidate(reg, target(resource.CategoryPC))
	assert.Empty(t, removed)
	assert.Equal(t, "console:CONSOLE99", next.String())
}

func TestRevalidate_DropsUnregisteredCodes(t *testing.T) {
	app, err := NewApplication(map[Scope]string{ScopeAll: "RETIRED50"})
	require.NoError(t, err)

	next, removed := app.Revalidate(DefaultRegistry(), target(resource.CategoryPC))
	assert.True(t, next.IsEmpty())
	require.Len(t, removed, 1)
	assert.Equal(t, "no longer offered", removed[0].Reason)
}

func TestRevalidate_DropsCodesHeldUnderTheWrongScope(t *testing.T) {
	reg := DefaultRegistry()
	both := target(resource.CategoryPC, resource.CategoryConsole)

	for _, held := range []map[Scope]string{
		{ScopeAll: "PCHALF"},
		{CategoryScope(resource.CategoryConsole): "PCHALF"},
		{CategoryScope(resource.CategoryPC): "STUDENT15"},
	} {
		app, err := NewApplication(held)
		require.NoError(t, err)

		next, removed := app.Revalidate(reg, both)
		assert.True(t, next.IsEmpty(), app.String())
		require.Len(t, removed, 1)
		assert.Equal(t, "held under the wrong scope", removed[0].Reason)
	}
}

func TestAttest(t *testing.T) {
	reg := DefaultRegistry()
	app, err := NewApplication(map[Scope]string{ScopeAll: "FREEPLAY"})
	require.NoError(t, err)

	err = app.Attest(context.Background(), reg, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindAttestationRequired))

	err = app.Attest(context.Background(), reg, decline)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	assert.NoError(t, app.Attest(context.Background(), reg, accept))

	plain, err := NewApplication(map[Scope]string{CategoryScope(resource.CategoryPC): "PCHALF"})
	require.NoError(t, err)
	assert.NoError(t, plain.Attest(context.Background(), reg, nil), "codes without attestation never prompt")
}

func TestRemove_Idempotent(t *testing.T) {
	app, _, err := Application{}.Apply(context.Background(), DefaultRegistry(), "PCHALF", target(resource.CategoryPC), nil)
	require.NoError(t, err)

	once := app.Remove(CategoryScope(resource.CategoryPC))
	twice := once.Remove(CategoryScope(resource.CategoryPC))
	assert.True(t, once.IsEmpty())
	assert.True(t, twice.IsEmpty())
	assert.Equal(t, 1, app.Len(), "receiver unchanged")

	assert.Equal(t, app.Entries(), app.Remove(ScopeAll).Entries())
}

func TestNewApplication_RejectsAllWithCategory(t *testing.T) {
	_, err := NewApplication(map[Scope]string{ScopeAll: "WELCOME20", "pc": "PCHALF"})
	assert.Error(t, err)

	_, err = NewApplication(map[Scope]string{"arcade": "X"})
	assert.Error(t, err)
}

func TestParseApplication(t *testing.T) {
	app, err := ParseApplication("pc:PCHALF, console:CONSOLE99")
	require.NoError(t, err)
	assert.Equal(t, "pc:PCHALF,console:CONSOLE99", app.String())

	empty, err := ParseApplication("")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	_, err = ParseApplication("PCHALF")
	assert.Error(t, err)
}

func TestApplicationJSON(t *testing.T) {
	var app Application
	require.NoError(t, json.Unmarshal([]byte(`{"pc":"pchalf"}`), &app))
	code, _ := app.Code("pc")
	assert.Equal(t, "PCHALF", code)

	raw, err := json.Marshal(app)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pc":"PCHALF"}`, string(raw))

	assert.Error(t, json.Unmarshal([]byte(`{"all":"WELCOME20","vr":"VRNIGHT"}`), &app))
}
