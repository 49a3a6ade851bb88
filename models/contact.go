package models

import (
	"time"

	"gorm.io/gorm"
)

// Contact is a contact person of a business partner. ContactCode mirrors the
// SAP CntctCode for synced rows.
type Contact struct {
	ID            int            `gorm:"primary_key" json:"id"`
	ContactCode   string         `gorm:"size:50;uniqueIndex;not null" json:"contact_code"`
	CardCode      string         `gorm:"size:50;index;not null" json:"card_code"`
	Name          string         `gorm:"size:100" json:"name"`
	FirstName     string         `gorm:"size:100" json:"first_name"`
	LastName      string         `gorm:"size:100" json:"last_name"`
	Position      string         `gorm:"size:100" json:"position"`
	Phone         string         `gorm:"size:30" json:"phone"`
	Mobile        string         `gorm:"size:30" json:"mobile"`
	Email         string         `gorm:"size:100" json:"email"`
	Active        bool           `gorm:"not null" json:"active"`
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

func (c Contact) NaturalKey() string { return c.ContactCode }

func (c Contact) Origin() RecordSource { return c.Source }
