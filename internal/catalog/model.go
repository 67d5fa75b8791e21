package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("product not found")
	ErrInvalidRecord = errors.New("invalid product record")
)

const (
	ImportQueue           = "catalog.import"
	NotificationsExchange = "catalog.notifications"

	UploadPrefix    = "uploaded/"
	UploadExtension = ".csv"
)

type Product struct {
	ID          string    `json:"id" example:"7f9c24e8-3b0a-4f32-9e41-6a1c2d8b5f90"`
	Title       string    `json:"title" example:"Gaming Keyboard"`
	Description string    `json:"description" example:"Mechanical, RGB backlight"`
	Price       int64     `json:"price" example:"7999"`
	CreatedAt   time.Time `json:"created_at" example:"2026-02-24T12:00:00Z"`
}

type Stock struct {
	ProductID string `json:"product_id"`
	Count     int64  `json:"count" example:"12"`
}

// Item is a product joined with its stock count, the unit the API and the
// notifier both work with.
type Item struct {
	Product
	Count int64 `json:"count" example:"12"`
}
