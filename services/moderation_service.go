package services

import (
	"errors"
	"strings"
	"time"

	"secondcycle_go/config"
	"secondcycle_go/models"

	"gorm.io/gorm"
)

// ModerationService 审核服务
// 负责 PENDING_APPROVAL -> APPROVED/REJECTED 的状态转换和违禁词扫描
type ModerationService struct {
	db             *gorm.DB
	bannedKeywords []string
}

// NewModerationService 创建审核服务实例
func NewModerationService() *ModerationService {
	return &ModerationService{
		db:             config.DB,
		bannedKeywords: DefaultBannedKeywords,
	}
}

// ApproveResult 审核通过结果
type ApproveResult struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// ApproveListing 管理员审核通过
// 审核前先做违禁词扫描，命中则自动驳回并返回 PolicyViolationError；
// 驳回写入必须保留，所以不能和通过路径放在同一个事务里
func (ms *ModerationService) ApproveListing(listingID, adminID, note string) (*ApproveResult, error) {
	// 1. 查询 listing 和车辆内容
	var listing models.Listing
	if err := ms.db.Preload("Vehicle").First(&listing, "id = ?", listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if listing.Status != models.ListingPendingApproval {
		return nil, ErrInvalidState
	}

	// 2. 违禁词扫描，命中则自动驳回
	if keyword := ms.detectBannedKeyword(&listing, note); keyword != "" {
		if err := ms.rejectPending(listingID, adminID, "Chứa từ cấm: \""+keyword+"\""); err != nil {
			return nil, err
		}
		return nil, &PolicyViolationError{Keyword: keyword}
	}

	// 3. 通过审核，有效期固定7天
	// 条件更新挂住状态前置条件，避免和并发审核产生先读后写竞争
	now := time.Now()
	expiresAt := now.AddDate(0, 0, 7)

	result := ms.db.Model(&models.Listing{}).
		Where("id = ? AND status = ?", listingID, models.ListingPendingApproval).
		Updates(map[string]interface{}{
			"status":        models.ListingApproved,
			"approved_by":   adminID,
			"approved_at":   now,
			"expires_at":    expiresAt,
			"approval_note": note,
			"updated_at":    now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// 并发操作已经改掉了状态
		return nil, ErrInvalidState
	}

	return &ApproveResult{ExpiresAt: expiresAt}, nil
}

// RejectListing 管理员手动驳回，驳回理由必填
func (ms *ModerationService) RejectListing(listingID, adminID, note string) error {
	if strings.TrimSpace(note) == "" {
		return errors.New("reject note is required")
	}

	var listing models.Listing
	if err := ms.db.First(&listing, "id = ?", listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if listing.Status != models.ListingPendingApproval {
		return ErrInvalidState
	}

	return ms.rejectPending(listingID, adminID, note)
}

// GetPendingListings 获取待审核的发布列表
func (ms *ModerationService) GetPendingListings(page, limit int) ([]models.Listing, int64, error) {
	offset := (page - 1) * limit

	query := ms.db.Model(&models.Listing{}).Where("status = ?", models.ListingPendingApproval)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var listings []models.Listing
	if err := query.
		Preload("Vehicle").
		Preload("Seller").
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&listings).Error; err != nil {
		return nil, 0, err
	}

	return listings, total, nil
}

// detectBannedKeyword 违禁词扫描，纯函数
// 扫描内容 = 车辆描述 + 车架号 + 审核备注，统一小写后做子串匹配
func (ms *ModerationService) detectBannedKeyword(listing *models.Listing, note string) string {
	content := strings.ToLower(
		listing.Vehicle.Description + "\n" +
			listing.Vehicle.FrameSerial + "\n" +
			listing.ApprovalNote + "\n" +
			note,
	)

	for _, keyword := range ms.bannedKeywords {
		if strings.Contains(content, strings.ToLower(keyword)) {
			return keyword
		}
	}
	return ""
}

// rejectPending 条件驳回，仅当仍处于待审核状态
func (ms *ModerationService) rejectPending(listingID, adminID, note string) error {
	now := time.Now()
	return ms.db.Model(&models.Listing{}).
		Where("id = ? AND status = ?", listingID, models.ListingPendingApproval).
		Updates(map[string]interface{}{
			"status":        models.ListingRejected,
			"approved_by":   adminID,
			"approved_at":   now,
			"approval_note": note,
			"updated_at":    now,
		}).Error
}
