package repository

import (
	"context"
	"time"

	resourceDomain "github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/resource"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResourceModel is the GORM persistence model for the resources table.
type ResourceModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name            string    `gorm:"type:varchar(100);not null"`
	Category        string    `gorm:"type:varchar(20);not null"`
	HourlyRateMinor int64     `gorm:"not null"`
	Active          bool      `gorm:"not null;default:true"`
	CreatedAt       time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (ResourceModel) TableName() string {
	return "resources"
}

// ResourceRepositoryImpl is the GORM-based station catalog.
type ResourceRepositoryImpl struct {
	db *gorm.DB
}

// NewResourceRepository creates a new GORM-based resource repository.
func NewResourceRepository(db *gorm.DB) *ResourceRepositoryImpl {
	return &ResourceRepositoryImpl{db: db}
}

// ListActive returns every bookable station.
func (r *ResourceRepositoryImpl) ListActive(ctx context.Context) ([]*resourceDomain.Resource, error) {
	var models []ResourceModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("category, name").
		Find(&models).Error; err != nil {
		return nil, apperror.NewPersistenceError("failed to list stations", err)
	}
	out := make([]*resourceDomain.Resource, len(models))
	for i := range models {
		out[i] = resourceToDomain(&models[i])
	}
	return out, nil
}

// FindByIDs returns the requested active stations in request order.
func (r *ResourceRepositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*resourceDomain.Resource, error) {
	if len(ids) == 0 {
		return nil, apperror.NewValidationError("select at least one station")
	}
	var models []ResourceModel
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND active = ?", ids, true).
		Find(&models).Error; err != nil {
		return nil, apperror.NewPersistenceError("failed to load stations", err)
	}

	byID := make(map[uuid.UUID]*ResourceModel, len(models))
	for i := range models {
		byID[models[i].ID] = &models[i]
	}
	out := make([]*resourceDomain.Resource, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		m, ok := byID[id]
		if !ok {
			return nil, apperror.NewNotFoundError("Station", id.String())
		}
		out = append(out, resourceToDomain(m))
	}
	return out, nil
}

func resourceToDomain(m *ResourceModel) *resourceDomain.Resource {
	return resourceDomain.Reconstitute(
		m.ID,
		m.Name,
		resourceDomain.Category(m.Category),
		m.HourlyRateMinor,
		m.Active,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
