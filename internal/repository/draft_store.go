package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paymentDomain "github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/payment"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/redis/go-redis/v9"
)

const draftKeyPrefix = "booking:draft:"

// RedisDraftStore keeps booking drafts in redis with a TTL.
type RedisDraftStore struct {
	rdb redis.UniversalClient
}

// NewRedisDraftStore creates a draft store over rdb.
func NewRedisDraftStore(rdb redis.UniversalClient) *RedisDraftStore {
	return &RedisDraftStore{rdb: rdb}
}

func draftKey(merchantTxnID string) string {
	return draftKeyPrefix + merchantTxnID
}

// Stage writes the draft, replacing any earlier draft with the same id.
func (s *RedisDraftStore) Stage(ctx context.Context, draft *paymentDomain.Draft, ttl time.Duration) error {
	if draft.MerchantTxnID == "" {
		return apperror.NewValidationError("draft has no merchant transaction id")
	}
	payload, err := json.Marshal(draft)
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, "failed to encode booking draft", err)
	}
	if err := s.rdb.Set(ctx, draftKey(draft.MerchantTxnID), payload, ttl).Err(); err != nil {
		return apperror.NewPersistenceError("failed to stage booking draft", err)
	}
	return nil
}

// Load reads a staged draft.
func (s *RedisDraftStore) Load(ctx context.Context, merchantTxnID string) (*paymentDomain.Draft, error) {
	payload, err := s.rdb.Get(ctx, draftKey(merchantTxnID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperror.NewNotFoundError("BookingDraft", merchantTxnID)
		}
		return nil, apperror.NewPersistenceError("failed to load booking draft", err)
	}
	var draft paymentDomain.Draft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, fmt.Sprintf("booking draft %s is corrupt", merchantTxnID), err)
	}
	return &draft, nil
}

// Discard removes a draft.
func (s *RedisDraftStore) Discard(ctx context.Context, merchantTxnID string) error {
	if err := s.rdb.Del(ctx, draftKey(merchantTxnID)).Err(); err != nil {
		return apperror.NewPersistenceError("failed to discard booking draft", err)
	}
	return nil
}
