package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"storemirror/internal/models"
)

// Field mapping from the platform's wire shapes into the internal schema.
// Mappers are pure: raw bytes in, a mapped record or an error out, no side
// effects. The rest of the subsystem only depends on that contract.

type orderWire struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	CustomerID  string `json:"customer_id"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
	Currency    string `json:"currency"`
	LineItems   []struct {
		Quantity int `json:"quantity"`
	} `json:"line_items"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type customerWire struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Billing   struct {
		City    string `json:"city"`
		Country string `json:"country"`
	} `json:"billing"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type productWire struct {
	ID        string `json:"id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Stock     int    `json:"stock_quantity"`
	Category  string `json:"category"`
	UpdatedAt string `json:"updated_at"`
}

func parseWireTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseWireAmount(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// MapOrder converts a raw platform order into the internal schema.
func MapOrder(raw json.RawMessage) (*models.Order, error) {
	var w orderWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("order has no id")
	}
	total, err := parseWireAmount(w.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("order %s total_amount: %w", w.ID, err)
	}

	items := 0
	for _, li := range w.LineItems {
		items += li.Quantity
	}

	return &models.Order{
		ExternalID: w.ID,
		Number:     w.OrderNumber,
		CustomerID: w.CustomerID,
		Status:     w.Status,
		Total:      total,
		Currency:   w.Currency,
		ItemsCount: items,
		PlacedAt:   parseWireTime(w.CreatedAt),
		UpdatedAt:  parseWireTime(w.UpdatedAt),
	}, nil
}

// MapCustomer converts a raw platform customer into the internal schema.
// Guest-role customers map to (nil, nil): they are filtered, not failed.
func MapCustomer(raw json.RawMessage) (*models.Customer, error) {
	var w customerWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("customer has no id")
	}
	if w.Role == models.GuestRole {
		return nil, nil
	}

	return &models.Customer{
		ExternalID: w.ID,
		Email:      w.Email,
		FirstName:  w.FirstName,
		LastName:   w.LastName,
		Role:       w.Role,
		City:       w.Billing.City,
		Country:    w.Billing.Country,
		CreatedAt:  parseWireTime(w.CreatedAt),
		UpdatedAt:  parseWireTime(w.UpdatedAt),
	}, nil
}

// MapProduct converts a raw platform product into the internal schema.
func MapProduct(raw json.RawMessage) (*models.Product, error) {
	var w productWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("product has no id")
	}
	price, err := parseWireAmount(w.Price)
	if err != nil {
		return nil, fmt.Errorf("product %s price: %w", w.ID, err)
	}

	return &models.Product{
		ExternalID: w.ID,
		SKU:        w.SKU,
		Name:       w.Name,
		Price:      price,
		Stock:      w.Stock,
		Category:   w.Category,
		UpdatedAt:  parseWireTime(w.UpdatedAt),
	}, nil
}
