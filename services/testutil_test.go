package services

import (
	"fmt"
	"testing"
	"time"

	"secondcycle_go/config"
	"secondcycle_go/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var userSeq int

// newTestDB 创建内存数据库并迁移表结构
// TranslateError 和生产配置保持一致，唯一键冲突才能映射到 ErrConflict
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, config.Migrate(db))

	config.DB = db
	return db
}

func createUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()

	userSeq++
	user := models.User{
		FullName: fmt.Sprintf("Test User %d", userSeq),
		Email:    fmt.Sprintf("user%d@example.com", userSeq),
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// createListing 创建车辆+发布，默认价格 8,000,000
func createListing(t *testing.T, db *gorm.DB, seller *models.User, status string) *models.Listing {
	t.Helper()
	return createListingWithVehicle(t, db, seller, status, &models.Vehicle{
		Brand: "Giant",
		Model: "Escape 3",
		Year:  2021,
		Price: 8000000,
	})
}

func createListingWithVehicle(t *testing.T, db *gorm.DB, seller *models.User, status string, vehicle *models.Vehicle) *models.Listing {
	t.Helper()

	vehicle.SellerID = seller.ID
	require.NoError(t, db.Create(vehicle).Error)

	listing := models.Listing{
		VehicleID: vehicle.ID,
		SellerID:  seller.ID,
		Status:    status,
	}
	require.NoError(t, db.Create(&listing).Error)

	listing.Vehicle = *vehicle
	return &listing
}

func setListingExpiry(t *testing.T, db *gorm.DB, listingID string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&models.Listing{}).
		Where("id = ?", listingID).
		Update("expires_at", expiresAt).Error)
}

func reloadListing(t *testing.T, db *gorm.DB, listingID string) *models.Listing {
	t.Helper()
	var listing models.Listing
	require.NoError(t, db.First(&listing, "id = ?", listingID).Error)
	return &listing
}

func reloadOrder(t *testing.T, db *gorm.DB, orderID string) *models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, db.First(&order, "id = ?", orderID).Error)
	return &order
}

func countNotifications(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ?", userID).Count(&count).Error)
	return count
}
