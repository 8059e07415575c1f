package domain

import "time"

// ShoppingList is a named collection of line items
type ShoppingList struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// LineItem is one requested product in a shopping list.
// TotalPrice already has Quantity applied.
type LineItem struct {
	ID         string    `json:"id" yaml:"id"`
	ListID     string    `json:"listId" yaml:"listId"`
	Name       string    `json:"name" yaml:"name"`
	Quantity   float64   `json:"quantity" yaml:"quantity"`
	Unit       string    `json:"unit" yaml:"unit"`
	TotalPrice float64   `json:"totalPrice" yaml:"totalPrice"`
	ImageURL   string    `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt" yaml:"createdAt"`
}

// CreateListRequest is the body for creating a shopping list
type CreateListRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddItemRequest is the body for adding a line item to a list
type AddItemRequest struct {
	Name       string  `json:"name" binding:"required"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
	Unit       string  `json:"unit"`
	TotalPrice float64 `json:"totalPrice" binding:"gte=0"`
	ImageURL   string  `json:"imageUrl,omitempty"`
}
