package services

import (
	"errors"

	"secondcycle_go/config"
	"secondcycle_go/middleware"
	"secondcycle_go/models"
	"secondcycle_go/websocket"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 通知类型常量
const (
	NotificationTypeOrder   = "ORDER"
	NotificationTypeListing = "LISTING"
)

// NotificationService 通知服务
// 记录只追加；websocket 推送尽力而为，失败只记日志不影响主流程
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService 创建通知服务实例
func NewNotificationService() *NotificationService {
	return &NotificationService{db: config.DB}
}

// CreateTx 在调用方事务里追加一条通知记录
func (ns *NotificationService) CreateTx(tx *gorm.DB, userID, notifType, title, message string) (*models.Notification, error) {
	notification := models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
	}
	if err := tx.Create(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// Push 事务提交后向在线用户推送，失败只记日志
func (ns *NotificationService) Push(notification *models.Notification) {
	if notification == nil {
		return
	}
	if err := websocket.PushToUser(notification.UserID, notification); err != nil {
		middleware.ErrorLogger("notification push failed",
			zap.String("user_id", notification.UserID),
			zap.Error(err),
		)
	}
}

// GetMyNotifications 获取用户通知列表
func (ns *NotificationService) GetMyNotifications(userID string, page, limit int) ([]models.Notification, int64, error) {
	offset := (page - 1) * limit

	query := ns.db.Model(&models.Notification{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkAsRead 标记通知为已读，只能操作自己的通知
func (ns *NotificationService) MarkAsRead(userID, notificationID string) error {
	var notification models.Notification
	if err := ns.db.First(&notification, "id = ?", notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if notification.UserID != userID {
		return ErrForbidden
	}

	return ns.db.Model(&notification).Update("is_read", true).Error
}
