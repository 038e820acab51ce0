package resource

import (
	"fmt"
	"strings"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/google/uuid"
)

// Category groups stations that share pricing and coupon scope.
type Category string

const (
	CategoryPC        Category = "pc"
	CategoryConsole   Category = "console"
	CategoryRacingSim Category = "racing_sim"
	CategoryVR        Category = "vr"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryPC, CategoryConsole, CategoryRacingSim, CategoryVR}

var categoryLabels = map[Category]string{
	CategoryPC:        "PC",
	CategoryConsole:   "Console",
	CategoryRacingSim: "Racing Sim",
	CategoryVR:        "VR",
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", apperror.NewValidationError(fmt.Sprintf("unknown station category %q", s))
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label is the human readable name.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Resource is a bookable gaming station.
type Resource struct {
	id              uuid.UUID
	name            string
	category        Category
	hourlyRateMinor int64
	active          bool
	createdAt       time.Time
	updatedAt       time.Time
}

// NewResource creates an active station.
func NewResource(name string, category Category, hourlyRateMinor int64) (*Resource, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.NewValidationError("station name is required")
	}
	if !category.Valid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("unknown station category %q", category))
	}
	if hourlyRateMinor < 0 {
		return nil, apperror.NewValidationError("hourly rate cannot be negative")
	}
	now := time.Now().UTC()
	return &Resource{
		id:              uuid.New(),
		name:            name,
		category:        category,
		hourlyRateMinor: hourlyRateMinor,
		active:          true,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

func (r *Resource) ID() uuid.UUID          { return r.id }
func (r *Resource) Name() string           { return r.name }
func (r *Resource) Category() Category     { return r.category }
func (r *Resource) HourlyRateMinor() int64 { return r.hourlyRateMinor }
func (r *Resource) Active() bool           { return r.active }
func (r *Resource) CreatedAt() time.Time   { return r.createdAt }
func (r *Resource) UpdatedAt() time.Time   { return r.updatedAt }

// PriceFor returns the price of holding this station for the given minutes.
func (r *Resource) PriceFor(minutes int64) int64 {
	return r.hourlyRateMinor * minutes / 60
}

// Reconstitute rebuilds a Resource from persisted data.
func Reconstitute(id uuid.UUID, name string, category Category, hourlyRateMinor int64, active bool, createdAt, updatedAt time.Time) *Resource {
	return &Resource{
		id:              id,
		name:            name,
		category:        category,
		hourlyRateMinor: hourlyRateMinor,
		active:          active,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// CategoriesOf returns the distinct categories present, in display order.
func CategoriesOf(resources []*Resource) []Category {
	present := make(map[Category]bool, len(resources))
	for _, r := range resources {
		present[r.category] = true
	}
	out := make([]Category, 0, len(present))
	for _, c := range Categories {
		if present[c] {
			out = append(out, c)
		}
	}
	return out
}
