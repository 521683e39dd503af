package health

import (
	"context"
	"fmt"

	"github.com/wildlife-vision/speciesid/internal/seed"
)

// ObjectStoreChecker checks that the seed bucket can be listed.
type ObjectStoreChecker struct {
	store  seed.ObjectStore
	prefix string
}

// NewObjectStoreChecker checks store by listing prefix.
func NewObjectStoreChecker(store seed.ObjectStore, prefix string) *ObjectStoreChecker {
	return &ObjectStoreChecker{store: store, prefix: prefix}
}

// Name implements Checker.
func (o *ObjectStoreChecker) Name() string { return "seed_store" }

// HealthCheck lists the seed prefix. An empty listing is healthy.
func (o *ObjectStoreChecker) HealthCheck(ctx context.Context) error {
	if _, err := o.store.List(ctx, o.prefix); err != nil {
		return fmt.Errorf("list %q: %w", o.prefix, err)
	}
	return nil
}
