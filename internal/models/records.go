package models

import "time"

// Order is the internal shape of a remote order after field mapping.
type Order struct {
	ExternalID string    `json:"external_id"`
	Number     string    `json:"number"`
	CustomerID string    `json:"customer_id"`
	Status     string    `json:"status"`
	Total      float64   `json:"total"`
	Currency   string    `json:"currency"`
	ItemsCount int       `json:"items_count"`
	PlacedAt   time.Time `json:"placed_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Customer is the internal shape of a remote customer after field mapping.
type Customer struct {
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Role       string    `json:"role"`
	City       string    `json:"city"`
	Country    string    `json:"country"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Product is the internal shape of a remote product after field mapping.
type Product struct {
	ExternalID string    `json:"external_id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Stock      int       `json:"stock"`
	Category   string    `json:"category"`
	UpdatedAt  time.Time `json:"updated_at"`
}
