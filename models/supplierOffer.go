package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SupplierOffer is a priced stock offer received from a supplier.
type SupplierOffer struct {
	ID           int                           `gorm:"primary_key" json:"id"`
	FileName     string                        `gorm:"size:255;uniqueIndex;not null" json:"file_name"`
	SupplierCode string                        `gorm:"size:50;index;not null" json:"supplier_code"`
	OfferDate    time.Time                     `gorm:"not null" json:"offer_date"`
	Notes        string                        `gorm:"type:text" json:"notes"`
	LineItems    datatypes.JSONSlice[LineItem] `json:"line_items"`
	CreatedBy    string                        `gorm:"size:100" json:"created_by"`
	UpdatedBy    string                        `gorm:"size:100" json:"updated_by"`
	DeletedBy    string                        `gorm:"size:100" json:"deleted_by"`
	CreatedAt    time.Time                     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                     `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt                `gorm:"index" json:"deleted_at"`
}
