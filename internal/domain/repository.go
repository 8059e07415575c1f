package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching encoded payloads
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// OfferSearcher searches the external catalog for offers matching a product name
type OfferSearcher interface {
	SearchOffers(ctx context.Context, productName string) ([]CatalogOffer, error)
}

// LineItemRepository reads the current items of a shopping list
type LineItemRepository interface {
	GetLineItemsForList(ctx context.Context, listID string) ([]LineItem, error)
}

// ListWatcher notifies subscribers whenever the items of a list change.
// The returned cancel func must be called to release the subscription.
type ListWatcher interface {
	Subscribe(listID string) (<-chan struct{}, func())
}

// ShoppingListRepository is the full persistence surface for lists and their items
type ShoppingListRepository interface {
	LineItemRepository
	ListWatcher
	CreateList(ctx context.Context, list *ShoppingList) error
	GetList(ctx context.Context, listID string) (*ShoppingList, error)
	AddItem(ctx context.Context, item *LineItem) error
	DeleteItem(ctx context.Context, listID, itemID string) error
	Close() error
}

// MerchantDirectory resolves merchant identifiers to display names and logo URLs
type MerchantDirectory interface {
	DisplayName(merchantID string) string
	LogoURL(merchantID string) string
}
