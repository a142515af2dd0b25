package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"secondcycle_go/config"
	"secondcycle_go/models"

	"gorm.io/gorm"
)

var redisCtx = context.Background()

// 卖家状态操作常量
const (
	ListingActionShow     = "SHOW"
	ListingActionHide     = "HIDE"
	ListingActionMarkSold = "MARK_SOLD"
)

// sellerManagedStatuses 卖家可以自助变更的起始状态
// PENDING_APPROVAL/REJECTED/SOLD 不在其中：审核结论和成交结果不允许卖家绕过
var sellerManagedStatuses = []string{
	models.ListingApproved,
	models.ListingActive,
	models.ListingHidden,
}

// ListingService 发布服务
type ListingService struct {
	db *gorm.DB
}

// NewListingService 创建发布服务实例
func NewListingService() *ListingService {
	return &ListingService{db: config.DB}
}

// CreateListingRequest 卖家提交发布请求
type CreateListingRequest struct {
	Brand       string  `json:"brand" binding:"required,max=100"`
	Model       string  `json:"model" binding:"required,max=100"`
	Year        int     `json:"year" binding:"omitempty,gte=1950"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Description string  `json:"description"`
	FrameSerial string  `json:"frame_serial" binding:"omitempty,max=100"`
	Condition   string  `json:"condition" binding:"omitempty,max=20"`
}

// ChangeStatusRequest 卖家状态变更请求
type ChangeStatusRequest struct {
	Action string `json:"action" binding:"required,oneof=SHOW HIDE MARK_SOLD"`
}

// CreateListing 卖家提交发布
// 车辆和发布在同一个事务里创建，发布初始状态 PENDING_APPROVAL 等待审核
func (ls *ListingService) CreateListing(sellerID string, req *CreateListingRequest) (*models.Listing, error) {
	var listing models.Listing

	err := ls.db.Transaction(func(tx *gorm.DB) error {
		// 1. 创建车辆
		vehicle := models.Vehicle{
			SellerID:    sellerID,
			Brand:       req.Brand,
			Model:       req.Model,
			Year:        req.Year,
			Price:       req.Price,
			Description: req.Description,
			FrameSerial: req.FrameSerial,
			Condition:   req.Condition,
		}
		if err := tx.Create(&vehicle).Error; err != nil {
			return err
		}

		// 2. 创建发布，等待审核
		listing = models.Listing{
			VehicleID: vehicle.ID,
			SellerID:  sellerID,
			Status:    models.ListingPendingApproval,
		}
		if err := tx.Create(&listing).Error; err != nil {
			return err
		}

		listing.Vehicle = vehicle
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &listing, nil
}

// ChangeStatus 卖家自助变更发布状态
// SHOW -> ACTIVE, HIDE -> HIDDEN, MARK_SOLD -> SOLD；
// 仅 APPROVED/ACTIVE/HIDDEN 可变更，条件更新兜住并发的审核/支付写入
func (ls *ListingService) ChangeStatus(listingID, sellerID, action string) (*models.Listing, error) {
	var target string
	switch action {
	case ListingActionShow:
		target = models.ListingActive
	case ListingActionHide:
		target = models.ListingHidden
	case ListingActionMarkSold:
		target = models.ListingSold
	default:
		return nil, ErrInvalidState
	}

	var listing models.Listing
	if err := ls.db.Preload("Vehicle").First(&listing, "id = ?", listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if listing.SellerID != sellerID {
		return nil, ErrForbidden
	}

	result := ls.db.Model(&models.Listing{}).
		Where("id = ? AND status IN ?", listingID, sellerManagedStatuses).
		Updates(map[string]interface{}{
			"status":     target,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrInvalidState
	}

	listing.Status = target

	// 异步清除缓存
	go ls.clearListingCaches(listingID)

	return &listing, nil
}

// GetListing 公开发布详情
func (ls *ListingService) GetListing(listingID string) (*models.Listing, error) {
	// 1. 尝试从Redis缓存获取
	cacheKey := fmt.Sprintf("listing:%s", listingID)
	if config.RedisClient != nil {
		cached, err := config.RedisClient.Get(redisCtx, cacheKey).Result()
		if err == nil {
			var listing models.Listing
			if json.Unmarshal([]byte(cached), &listing) == nil {
				return &listing, nil
			}
		}
	}

	// 2. 从数据库查询
	var listing models.Listing
	if err := ls.db.
		Preload("Vehicle").
		Preload("Seller").
		First(&listing, "id = ?", listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// 3. 异步缓存到Redis
	go func() {
		if config.RedisClient != nil {
			data, _ := json.Marshal(listing)
			config.RedisClient.Set(redisCtx, cacheKey, data, 10*time.Minute)
		}
	}()

	return &listing, nil
}

// GetListings 公开发布列表，只返回可购买的发布
func (ls *ListingService) GetListings(page, limit int, filters map[string]interface{}) ([]models.Listing, int64, error) {
	offset := (page - 1) * limit

	// 1. 构建缓存key
	cacheKey := fmt.Sprintf("listings:page:%d:limit:%d", page, limit)

	// 2. 尝试从Redis获取（带筛选条件的请求不走缓存）
	cacheable := len(filters) == 0
	if cacheable && config.RedisClient != nil {
		cached, err := config.RedisClient.Get(redisCtx, cacheKey).Result()
		if err == nil {
			var result struct {
				Listings []models.Listing `json:"listings"`
				Total    int64            `json:"total"`
			}
			if json.Unmarshal([]byte(cached), &result) == nil {
				return result.Listings, result.Total, nil
			}
		}
	}

	// 3. 构建查询
	query := ls.db.Model(&models.Listing{}).
		Where("listings.status IN ?", []string{models.ListingApproved, models.ListingActive})

	if brand, ok := filters["brand"].(string); ok && brand != "" {
		query = query.Joins("JOIN vehicles ON vehicles.id = listings.vehicle_id").
			Where("vehicles.brand LIKE ?", "%"+brand+"%")
	}
	if sellerID, ok := filters["seller_id"].(string); ok && sellerID != "" {
		query = query.Where("listings.seller_id = ?", sellerID)
	}

	// 4. 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	// 5. 获取数据
	var listings []models.Listing
	if err := query.
		Preload("Vehicle").
		Preload("Seller").
		Order("listings.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&listings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get listings: %w", err)
	}

	// 6. 异步缓存结果
	if cacheable {
		go func() {
			if config.RedisClient != nil {
				result := struct {
					Listings []models.Listing `json:"listings"`
					Total    int64            `json:"total"`
				}{listings, total}
				data, _ := json.Marshal(result)
				config.RedisClient.Set(redisCtx, cacheKey, data, 5*time.Minute)
			}
		}()
	}

	return listings, total, nil
}

// GetMyListings 卖家自己的发布列表，包含全部状态
func (ls *ListingService) GetMyListings(sellerID, status string) ([]models.Listing, error) {
	query := ls.db.Where("seller_id = ?", sellerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var listings []models.Listing
	if err := query.
		Preload("Vehicle").
		Order("created_at DESC").
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// clearListingCaches 清除发布相关缓存
func (ls *ListingService) clearListingCaches(listingID string) {
	if config.RedisClient == nil {
		return
	}

	config.RedisClient.Del(redisCtx, fmt.Sprintf("listing:%s", listingID))

	keys, _ := config.RedisClient.Keys(redisCtx, "listings:page:*").Result()
	for _, key := range keys {
		config.RedisClient.Del(redisCtx, key)
	}
}
