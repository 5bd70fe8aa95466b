package models

import "time"

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	SyncTypeOrders    = "orders"
	SyncTypeCustomers = "customers"
	SyncTypeProducts  = "products"
)

// SyncTypes lists the collections the scheduler materializes tasks for,
// in the order they are synced.
var SyncTypes = []string{SyncTypeOrders, SyncTypeCustomers, SyncTypeProducts}

const (
	// PagesPerTask ограничивает диапазон страниц одной задачи
	PagesPerTask = 5

	// DefaultPageSize размер страницы при запросах к платформе
	DefaultPageSize = 50

	// BulkBatchSize размер пачки для bulk-апсерта при полном бэкфилле
	BulkBatchSize = 1000

	// TokenSafetyMargin запас до истечения токена, после которого кэш
	// считается протухшим
	TokenSafetyMargin = 60 * time.Second

	// DefaultFollowUpDelay задержка перед самовызовом пейджера
	DefaultFollowUpDelay = 10 * time.Second

	// DefaultStaleProcessing возраст processing-задачи, после которого
	// она считается брошенной
	DefaultStaleProcessing = 15 * time.Minute
)

// GuestRole marks customers created by checkout without an account; they are
// excluded from the customer mirror.
const GuestRole = "guest"

// ValidSyncType reports whether s names a known collection.
func ValidSyncType(s string) bool {
	for _, t := range SyncTypes {
		if t == s {
			return true
		}
	}
	return false
}
