package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/customer"
	reservationDomain "github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerModel is the GORM persistence model for the customers table.
type CustomerModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(120);not null"`
	Phone     string    `gorm:"type:varchar(20);uniqueIndex;not null"`
	Email     *string   `gorm:"type:varchar(255)"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (CustomerModel) TableName() string {
	return "customers"
}

// ReservationModel is the GORM persistence model for the reservations table.
type ReservationModel struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ResourceID         uuid.UUID  `gorm:"type:uuid;not null"`
	CustomerID         uuid.UUID  `gorm:"type:uuid;not null"`
	GroupID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	BookingDate        time.Time  `gorm:"type:date;not null"`
	StartsAt           time.Time  `gorm:"type:timestamptz;not null"`
	EndsAt             time.Time  `gorm:"type:timestamptz;not null"`
	DurationMinutes    int        `gorm:"not null"`
	Status             string     `gorm:"type:varchar(20);not null"`
	OriginalPriceMinor int64      `gorm:"not null"`
	DiscountPercentage float64    `gorm:"type:numeric(5,2);not null"`
	FinalPriceMinor    int64      `gorm:"not null"`
	CouponCode         string     `gorm:"type:varchar(255);not null"`
	PaymentMethod      string     `gorm:"type:varchar(10);not null"`
	OrderID            *string    `gorm:"type:varchar(100)"`
	StatusUpdatedAt    *time.Time `gorm:"type:timestamptz"`
	StatusUpdatedBy    *string    `gorm:"type:varchar(100)"`
	Version            int64      `gorm:"not null;default:1"`
	CreatedAt          time.Time  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (ReservationModel) TableName() string {
	return "reservations"
}

// MaterializationModel records which group a settled order produced.
type MaterializationModel struct {
	OrderID       string    `gorm:"type:varchar(100);primaryKey"`
	MerchantTxnID string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	GroupID       uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt     time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (MaterializationModel) TableName() string {
	return "payment_materializations"
}

// ReservationRepositoryImpl is the GORM-based implementation of reservation.Repository.
type ReservationRepositoryImpl struct {
	db *gorm.DB
}

// NewReservationRepository creates a new GORM-based reservation repository.
func NewReservationRepository(db *gorm.DB) *ReservationRepositoryImpl {
	return &ReservationRepositoryImpl{db: db}
}

// FindActiveInRange returns non-cancelled rows of the stations overlapping [from, to).
func (r *ReservationRepositoryImpl) FindActiveInRange(ctx context.Context, resourceIDs []uuid.UUID, from, to time.Time) ([]*reservationDomain.Reservation, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}
	var models []ReservationModel
	if err := r.db.WithContext(ctx).
		Where("resource_id IN ? AND status <> ? AND starts_at < ? AND ends_at > ?",
			resourceIDs, string(reservationDomain.StatusCancelled), to, from).
		Order("starts_at").
		Find(&models).Error; err != nil {
		return nil, apperror.NewPersistenceError("failed to load reservations", err)
	}
	return reservationsToDomain(models), nil
}

// FindByID retrieves one reservation.
func (r *ReservationRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*reservationDomain.Reservation, error) {
	var model ReservationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("Reservation", id.String())
		}
		return nil, apperror.NewPersistenceError("failed to load reservation", err)
	}
	return reservationToDomain(&model), nil
}

// FindByGroupID retrieves every row of a group.
func (r *ReservationRepositoryImpl) FindByGroupID(ctx context.Context, groupID uuid.UUID) ([]*reservationDomain.Reservation, error) {
	var models []ReservationModel
	if err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at, id").
		Find(&models).Error; err != nil {
		return nil, apperror.NewPersistenceError("failed to load booking", err)
	}
	if len(models) == 0 {
		return nil, apperror.NewNotFoundError("Booking", groupID.String())
	}
	return reservationsToDomain(models), nil
}

// FindGroup retrieves every row of a group with its customer.
func (r *ReservationRepositoryImpl) FindGroup(ctx context.Context, groupID uuid.UUID) (*reservationDomain.GroupResult, error) {
	return r.loadGroup(ctx, r.db, groupID)
}

// FindGroupByOrderID returns the group materialized for orderID, or nil when
// the order has not been materialized.
func (r *ReservationRepositoryImpl) FindGroupByOrderID(ctx context.Context, orderID string) (*reservationDomain.GroupResult, error) {
	var claim MaterializationModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&claim).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.NewPersistenceError("failed to look up materialized order", err)
	}
	return r.loadGroup(ctx, r.db, claim.GroupID)
}

// CreateGroup writes the customer, every reservation row and the order claim
// in a single transaction.
func (r *ReservationRepositoryImpl) CreateGroup(ctx context.Context, w reservationDomain.GroupWrite) (*reservationDomain.GroupResult, error) {
	if len(w.Reservations) == 0 {
		return nil, apperror.NewValidationError("a booking needs at least one station")
	}
	groupID := w.Reservations[0].GroupID()
	info := w.Customer.Normalize()

	var (
		existingGroup uuid.UUID
		profile       customer.Profile
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m := w.Materialization; m != nil {
			claim := MaterializationModel{OrderID: m.OrderID, MerchantTxnID: m.MerchantTxnID, GroupID: groupID}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				var prior MaterializationModel
				if err := tx.Where("order_id = ? OR merchant_txn_id = ?", m.OrderID, m.MerchantTxnID).
					First(&prior).Error; err != nil {
					return err
				}
				existingGroup = prior.GroupID
				return nil
			}
		}

		cm := CustomerModel{ID: uuid.New(), Name: info.Name, Phone: info.Phone, Email: nullableString(info.Email)}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "updated_at"}),
		}).Create(&cm).Error; err != nil {
			return err
		}
		var stored CustomerModel
		if err := tx.Where("phone = ?", info.Phone).First(&stored).Error; err != nil {
			return err
		}
		profile = customerToProfile(&stored)

		models := make([]ReservationModel, len(w.Reservations))
		for i, res := range w.Reservations {
			res.AttachCustomer(stored.ID)
			models[i] = *reservationToModel(res)
		}
		return tx.Create(&models).Error
	})
	if err != nil {
		return nil, classifyWriteError(err, "failed to save booking")
	}

	if existingGroup != uuid.Nil {
		result, err := r.loadGroup(ctx, r.db, existingGroup)
		if err != nil {
			return nil, err
		}
		result.Existing = true
		return result, nil
	}
	return &reservationDomain.GroupResult{
		GroupID:      groupID,
		Customer:     profile,
		Reservations: w.Reservations,
	}, nil
}

// Update persists a lifecycle change with optimistic locking.
func (r *ReservationRepositoryImpl) Update(ctx context.Context, res *reservationDomain.Reservation) error {
	previousVersion := res.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&ReservationModel{}).
		Where("id = ? AND version = ?", res.ID(), previousVersion).
		Updates(map[string]any{
			"status":            string(res.Status()),
			"status_updated_at": res.StatusUpdatedAt(),
			"status_updated_by": nullableString(res.StatusUpdatedBy()),
			"version":           res.Version(),
			"updated_at":        res.UpdatedAt(),
		})
	if result.Error != nil {
		return classifyWriteError(result.Error, "failed to update reservation")
	}
	if result.RowsAffected == 0 {
		return apperror.NewConflictError("reservation was modified by another transaction")
	}
	return nil
}

func (r *ReservationRepositoryImpl) loadGroup(ctx context.Context, db *gorm.DB, groupID uuid.UUID) (*reservationDomain.GroupResult, error) {
	rows, err := r.FindByGroupID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	var cm CustomerModel
	if err := db.WithContext(ctx).Where("id = ?", rows[0].CustomerID()).First(&cm).Error; err != nil {
		return nil, apperror.NewPersistenceError("failed to load booking customer", err)
	}
	return &reservationDomain.GroupResult{
		GroupID:      groupID,
		Customer:     customerToProfile(&cm),
		Reservations: rows,
	}, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func customerToProfile(m *CustomerModel) customer.Profile {
	return customer.Profile{ID: m.ID, Name: m.Name, Phone: m.Phone, Email: derefString(m.Email)}
}

func reservationsToDomain(models []ReservationModel) []*reservationDomain.Reservation {
	out := make([]*reservationDomain.Reservation, len(models))
	for i := range models {
		out[i] = reservationToDomain(&models[i])
	}
	return out
}

func reservationToDomain(m *ReservationModel) *reservationDomain.Reservation {
	return reservationDomain.Reconstitute(
		m.ID,
		m.ResourceID,
		m.CustomerID,
		m.GroupID,
		m.BookingDate,
		m.StartsAt,
		m.EndsAt,
		m.DurationMinutes,
		reservationDomain.Status(m.Status),
		m.OriginalPriceMinor,
		m.DiscountPercentage,
		m.FinalPriceMinor,
		m.CouponCode,
		reservationDomain.PaymentMethod(m.PaymentMethod),
		derefString(m.OrderID),
		m.StatusUpdatedAt,
		derefString(m.StatusUpdatedBy),
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func reservationToModel(r *reservationDomain.Reservation) *ReservationModel {
	return &ReservationModel{
		ID:                 r.ID(),
		ResourceID:         r.ResourceID(),
		CustomerID:         r.CustomerID(),
		GroupID:            r.GroupID(),
		BookingDate:        r.BookingDate(),
		StartsAt:           r.StartsAt(),
		EndsAt:             r.EndsAt(),
		DurationMinutes:    r.DurationMinutes(),
		Status:             string(r.Status()),
		OriginalPriceMinor: r.OriginalPriceMinor(),
		DiscountPercentage: r.DiscountPercentage(),
		FinalPriceMinor:    r.FinalPriceMinor(),
		CouponCode:         r.CouponCode(),
		PaymentMethod:      string(r.PaymentMethod()),
		OrderID:            nullableString(r.OrderID()),
		StatusUpdatedAt:    r.StatusUpdatedAt(),
		StatusUpdatedBy:    nullableString(r.StatusUpdatedBy()),
		Version:            r.Version(),
		CreatedAt:          r.CreatedAt(),
		UpdatedAt:          r.UpdatedAt(),
	}
}
