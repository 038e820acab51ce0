package repository

import (
	"context"
	"errors"
	"time"

	paymentDomain "github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/payment"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentAttemptModel is the GORM persistence model for the payment_attempts table.
type PaymentAttemptModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	MerchantTxnID string     `gorm:"type:varchar(64);uniqueIndex;not null"`
	OrderID       *string    `gorm:"type:varchar(100)"`
	Provider      string     `gorm:"type:varchar(20);not null"`
	AmountMinor   int64      `gorm:"not null"`
	Currency      string     `gorm:"type:varchar(3);not null;default:'INR'"`
	PayerPhone    string     `gorm:"type:varchar(20);not null"`
	State         string     `gorm:"type:varchar(20);not null"`
	RedirectURL   string     `gorm:"type:text"`
	FailureReason string     `gorm:"type:text"`
	GroupID       *uuid.UUID `gorm:"type:uuid"`
	NeedsFollowUp bool       `gorm:"not null;default:false"`
	LastCheckedAt *time.Time `gorm:"type:timestamptz"`
	Version       int64      `gorm:"not null;default:1"`
	CreatedAt     time.Time  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (PaymentAttemptModel) TableName() string {
	return "payment_attempts"
}

// PaymentAttemptRepositoryImpl is the GORM-based implementation of AttemptRepository.
type PaymentAttemptRepositoryImpl struct {
	db *gorm.DB
}

// NewPaymentAttemptRepository creates a new GORM-based attempt repository.
func NewPaymentAttemptRepository(db *gorm.DB) *PaymentAttemptRepositoryImpl {
	return &PaymentAttemptRepositoryImpl{db: db}
}

// FindByMerchantTxnID retrieves an attempt by its merchant transaction id.
func (r *PaymentAttemptRepositoryImpl) FindByMerchantTxnID(ctx context.Context, merchantTxnID string) (*paymentDomain.Attempt, error) {
	var model PaymentAttemptModel
	if err := r.db.WithContext(ctx).Where("merchant_txn_id = ?", merchantTxnID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("PaymentAttempt", merchantTxnID)
		}
		return nil, apperror.NewPersistenceError("failed to load payment attempt", err)
	}
	return attemptToDomain(&model), nil
}

// FindByOrderID retrieves an attempt by the provider order id.
func (r *PaymentAttemptRepositoryImpl) FindByOrderID(ctx context.Context, orderID string) (*paymentDomain.Attempt, error) {
	var model PaymentAttemptModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("PaymentAttempt", orderID)
		}
		return nil, apperror.NewPersistenceError("failed to load payment attempt", err)
	}
	return attemptToDomain(&model), nil
}

// ListAwaitingProvider returns INTENT_CREATED and PENDING attempts in the window.
func (r *PaymentAttemptRepositoryImpl) ListAwaitingProvider(ctx context.Context, createdAfter, createdBefore time.Time, limit int) ([]*paymentDomain.Attempt, error) {
	var models []PaymentAttemptModel
	if err := r.db.WithContext(ctx).
		Where("state IN ? AND created_at >= ? AND created_at <= ?",
			[]string{string(paymentDomain.StateIntentCreated), string(paymentDomain.StatePending)},
			createdAfter, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, apperror.NewPersistenceError("failed to list pending payment attempts", err)
	}
	out := make([]*paymentDomain.Attempt, len(models))
	for i := range models {
		out[i] = attemptToDomain(&models[i])
	}
	return out, nil
}

// Save persists a new attempt.
func (r *PaymentAttemptRepositoryImpl) Save(ctx context.Context, attempt *paymentDomain.Attempt) error {
	if err := r.db.WithContext(ctx).Create(attemptToModel(attempt)).Error; err != nil {
		return classifyWriteError(err, "failed to save payment attempt")
	}
	return nil
}

// Update persists changes to an existing attempt with optimistic locking.
func (r *PaymentAttemptRepositoryImpl) Update(ctx context.Context, attempt *paymentDomain.Attempt) error {
	model := attemptToModel(attempt)
	previousVersion := attempt.Version() - 1

	// Select("*") so cleared fields such as needs_follow_up=false are written.
	result := r.db.WithContext(ctx).
		Model(&PaymentAttemptModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(model)

	if result.Error != nil {
		return classifyWriteError(result.Error, "failed to update payment attempt")
	}
	if result.RowsAffected == 0 {
		return apperror.NewConflictError("payment attempt was modified by another transaction")
	}
	return nil
}

func attemptToDomain(m *PaymentAttemptModel) *paymentDomain.Attempt {
	var orderID string
	if m.OrderID != nil {
		orderID = *m.OrderID
	}
	return paymentDomain.Reconstitute(
		m.ID,
		m.MerchantTxnID,
		orderID,
		m.Provider,
		m.AmountMinor,
		m.Currency,
		m.PayerPhone,
		paymentDomain.AttemptState(m.State),
		m.RedirectURL,
		m.FailureReason,
		m.GroupID,
		m.NeedsFollowUp,
		m.LastCheckedAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func attemptToModel(a *paymentDomain.Attempt) *PaymentAttemptModel {
	var orderID *string
	if a.OrderID() != "" {
		o := a.OrderID()
		orderID = &o
	}
	return &PaymentAttemptModel{
		ID:            a.ID(),
		MerchantTxnID: a.MerchantTxnID(),
		OrderID:       orderID,
		Provider:      a.Provider(),
		AmountMinor:   a.AmountMinor(),
		Currency:      a.Currency(),
		PayerPhone:    a.PayerPhone(),
		State:         string(a.State()),
		RedirectURL:   a.RedirectURL(),
		FailureReason: a.FailureReason(),
		GroupID:       a.GroupID(),
		NeedsFollowUp: a.NeedsFollowUp(),
		LastCheckedAt: a.LastCheckedAt(),
		Version:       a.Version(),
		CreatedAt:     a.CreatedAt(),
		UpdatedAt:     a.UpdatedAt(),
	}
}
