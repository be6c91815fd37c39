package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ledgerPrefix = "notify:"

// DeliveryLedgerRepository records which (notification, recipient) pairs were already sent so a
// redelivered event does not mail the same person twice. Without Redis every claim succeeds.
type DeliveryLedgerRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeliveryLedgerRepository constructs the ledger.
func NewDeliveryLedgerRepository(client *redis.Client, ttl time.Duration) *DeliveryLedgerRepository {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &DeliveryLedgerRepository{client: client, ttl: ttl}
}

func ledgerKey(key, recipient string) string {
	return ledgerPrefix + key + ":" + recipient
}

// Claim reserves the pair. It returns false when an earlier delivery already holds it.
func (r *DeliveryLedgerRepository) Claim(ctx context.Context, key, recipient string) (bool, error) {
	if r.client == nil {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, ledgerKey(key, recipient), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", ledgerKey(key, recipient), err)
	}
	return ok, nil
}

// Release drops a claim after a failed send so a retry may deliver it.
func (r *DeliveryLedgerRepository) Release(ctx context.Context, key, recipient string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, ledgerKey(key, recipient)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", ledgerKey(key, recipient), err)
	}
	return nil
}
