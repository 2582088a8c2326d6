package billing

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const invoiceKeyPrefix = "billing:invoice:"

// InvoiceDedup remembers processed invoice ids in Redis so replayed webhook
// deliveries can be short-circuited before touching the profile store. It
// is a fast pre-check only: the conditional invoice-id guard in the profile
// update remains authoritative even if a key expires or Redis is down.
type InvoiceDedup struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewInvoiceDedup creates a dedup store with the given retention window.
// Panics on a nil client to fail fast during initialization.
func NewInvoiceDedup(client redis.UniversalClient, ttl time.Duration) *InvoiceDedup {
	if client == nil {
		panic("billing: redis client is required")
	}
	return &InvoiceDedup{client: client, ttl: ttl}
}

// Seen reports whether the invoice id was already processed.
func (d *InvoiceDedup) Seen(ctx context.Context, invoiceID string) (bool, error) {
	n, err := d.client.Exists(ctx, invoiceKeyPrefix+invoiceID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the invoice id as processed.
func (d *InvoiceDedup) Mark(ctx context.Context, invoiceID string) error {
	return d.client.Set(ctx, invoiceKeyPrefix+invoiceID, "1", d.ttl).Err()
}
