package models

import "gorm.io/gorm"

func AutoMigrateAll(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Room{},
		&Participant{},
		&GiftCatalogEntry{},
		&Gift{},
		&Agency{},
		&Host{},
		&MonthlyEarnings{},
		&MonthStatus{},
		&Payout{},
	)
	if err != nil {
		return err
	}
	return nil
}
