package domain

import (
	"time"
)

// Product represents a product in the catalog. The record store is the source
// of truth for every field; the search index carries a derived projection.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Category    *string   `json:"category,omitempty"`
	Color       *string   `json:"color,omitempty"`
	Size        *string   `json:"size,omitempty"`
	SKU         *string   `json:"sku,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Stock       *int      `json:"stock,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
