package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CustomerExcess is an excess stock list received from a customer.
type CustomerExcess struct {
	ID           int                           `gorm:"primary_key" json:"id"`
	FileName     string                        `gorm:"size:255;uniqueIndex;not null" json:"file_name"`
	CustomerCode string                        `gorm:"size:50;index;not null" json:"customer_code"`
	ListDate     time.Time                     `gorm:"not null" json:"list_date"`
	Notes        string                        `gorm:"type:text" json:"notes"`
	LineItems    datatypes.JSONSlice[LineItem] `json:"line_items"`
	CreatedBy    string                        `gorm:"size:100" json:"created_by"`
	UpdatedBy    string                        `gorm:"size:100" json:"updated_by"`
	DeletedBy    string                        `gorm:"size:100" json:"deleted_by"`
	CreatedAt    time.Time                     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                     `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt                `gorm:"index" json:"deleted_at"`
}

func (CustomerExcess) TableName() string {
	return "customer_excesses"
}
