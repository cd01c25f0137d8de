package out

import (
	"context"

	"sales_server/core/domain"
)

// LLMGateway is the external language model.
//
// Complete may fail on network errors, timeouts or non-2xx responses;
// callers are expected to degrade instead of surfacing the failure.
type LLMGateway interface {
	Complete(ctx context.Context, messages []domain.PromptMessage) (string, error)
}

// CatalogCache stores resolved catalogs per business.
type CatalogCache interface {
	Get(ctx context.Context, businessID int64) ([]domain.Product, bool)
	Set(ctx context.Context, businessID int64, products []domain.Product)
	Invalidate(ctx context.Context, businessID int64)
}

// EventPublisher delivers chat events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}
