package models

import "gorm.io/gorm"

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&BusinessPartner{},
		&Contact{},
		&CustomerExcess{},
		&SupplierOffer{},
		&SyncWatermark{},
		&SyncRun{},
	)
}
