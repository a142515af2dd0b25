package controllers

import (
	"strconv"

	"secondcycle_go/services"
	"secondcycle_go/utils"

	"github.com/gin-gonic/gin"
)

// NotificationController 通知控制器
type NotificationController struct {
	notificationService *services.NotificationService
}

// NewNotificationController 创建通知控制器实例
func NewNotificationController() *NotificationController {
	return &NotificationController{
		notificationService: services.NewNotificationService(),
	}
}

// GetMyNotifications 获取通知列表
// @Summary 我的通知
// @Tags notifications
// @Produce json
// @Security Bearer
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Router /api/v1/notifications [get]
func (nc *NotificationController) GetMyNotifications(c *gin.Context) {
	userID := c.GetString("user_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	notifications, total, err := nc.notificationService.GetMyNotifications(userID, page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Paginate(c, notifications, total, page, limit)
}

// MarkAsRead 标记通知已读
// @Summary 标记已读
// @Tags notifications
// @Produce json
// @Security Bearer
// @Param id path string true "通知ID"
// @Router /api/v1/notifications/{id}/read [put]
func (nc *NotificationController) MarkAsRead(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := nc.notificationService.MarkAsRead(userID, c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "已标记为已读", nil)
}
