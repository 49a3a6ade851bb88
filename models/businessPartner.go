package models

import (
	"time"

	"gorm.io/gorm"
)

type BusinessPartner struct {
	ID            int            `gorm:"primary_key" json:"id"`
	CardCode      string         `gorm:"size:50;uniqueIndex;not null" json:"card_code"`
	CardName      string         `gorm:"size:200" json:"card_name"`
	CardType      CardType       `gorm:"size:1;index;not null" json:"card_type"`
	GroupCode     int            `gorm:"default:0" json:"group_code"`
	Phone1        string         `gorm:"size:30" json:"phone1"`
	Phone2        string         `gorm:"size:30" json:"phone2"`
	Cellular      string         `gorm:"size:30" json:"cellular"`
	Email         string         `gorm:"size:100" json:"email"`
	Website       string         `gorm:"size:200" json:"website"`
	Currency      string         `gorm:"size:10" json:"currency"`
	FederalTaxId  string         `gorm:"size:50" json:"federal_tax_id"`
	Address       string         `gorm:"type:text" json:"address"`
	City          string         `gorm:"size:100" json:"city"`
	ZipCode       string         `gorm:"size:20" json:"zip_code"`
	Country       string         `gorm:"size:3" json:"country"`
	Frozen        bool           `gorm:"not null;default:false" json:"frozen"`
	SapCreateDate *time.Time     `json:"sap_create_date"`
	SapUpdateDate *time.Time     `json:"sap_update_date"`
	Source        RecordSource   `gorm:"size:10;not null;default:'portal'" json:"source"`
	SyncStatus    SyncStatus     `gorm:"size:10;not null;default:'pending'" json:"sync_status"`
	CreatedBy     string         `gorm:"size:100" json:"created_by"`
	UpdatedBy     string         `gorm:"size:100" json:"updated_by"`
	DeletedBy     string         `gorm:"size:100" json:"deleted_by"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

func (bp BusinessPartner) NaturalKey() string { return bp.CardCode }

func (bp BusinessPartner) Origin() RecordSource { return bp.Source }
