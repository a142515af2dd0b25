package config

import (
	"log"

	"secondcycle_go/models"

	"gorm.io/gorm"
)

// Migrate 迁移数据库结构
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.Listing{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderDetail{},
		&models.OrderAddress{},
		&models.Address{},
		&models.Payment{},
		&models.Notification{},
	)
	if err != nil {
		log.Printf("Failed to migrate database schema: %v", err)
		return err
	}

	log.Println("Database migrations completed successfully...")
	return nil
}
