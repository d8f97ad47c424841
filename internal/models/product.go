package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"

	DefaultMinStock = 5
)

type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductCode  string             `bson:"productCode" json:"productCode"`
	Barcode      string             `bson:"barcode,omitempty" json:"barcode,omitempty"`
	BarcodeImage string             `bson:"barcodeImage,omitempty" json:"barcodeImage,omitempty"`
	Name         string             `bson:"name" json:"name"`
	Category     string             `bson:"category" json:"category"`
	Material     string             `bson:"material,omitempty" json:"material,omitempty"`
	Color        string             `bson:"color,omitempty" json:"color,omitempty"`
	Stock        int                `bson:"stock" json:"stock"`
	MinStock     int                `bson:"minStock" json:"minStock"`
	LowStock     bool               `bson:"-" json:"lowStock"`
	Price        float64            `bson:"price" json:"price"`
	CostPrice    float64            `bson:"costPrice,omitempty" json:"costPrice,omitempty"`
	Location     string             `bson:"location,omitempty" json:"location,omitempty"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Status       string             `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsLowStock reports stock at or below the reorder threshold.
func (p Product) IsLowStock() bool {
	return p.Stock <= p.MinStock
}

// ProductDraft is a product before it is provisioned. It carries no code,
// barcode or image; those are assigned on create. A nil MinStock takes
// DefaultMinStock.
type ProductDraft struct {
	Name        string
	Category    string
	Material    string
	Color       string
	Stock       int
	MinStock    *int
	Price       float64
	CostPrice   float64
	Location    string
	Description string
	Status      string
}

// ProductChanges carries the mutable fields of a product update. Nil fields
// are left untouched; code, barcode and image are not updatable here.
type ProductChanges struct {
	Name        *string
	Category    *string
	Material    *string
	Color       *string
	Stock       *int
	MinStock    *int
	Price       *float64
	CostPrice   *float64
	Location    *string
	Description *string
	Status      *string
}

func (c ProductChanges) IsEmpty() bool {
	return c.Name == nil && c.Category == nil && c.Material == nil && c.Color == nil &&
		c.Stock == nil && c.MinStock == nil && c.Price == nil && c.CostPrice == nil &&
		c.Location == nil && c.Description == nil && c.Status == nil
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Search string
	// Category matches case-insensitively on the whole value.
	Category string
	Status   string
	LowStock bool
	Page     int64
	Limit    int64
}
