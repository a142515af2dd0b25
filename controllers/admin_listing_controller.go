package controllers

import (
	"errors"
	"strconv"

	"secondcycle_go/services"
	"secondcycle_go/utils"

	"github.com/gin-gonic/gin"
)

// AdminListingController 管理员审核控制器
type AdminListingController struct {
	moderationService *services.ModerationService
}

// NewAdminListingController 创建审核控制器实例
func NewAdminListingController() *AdminListingController {
	return &AdminListingController{
		moderationService: services.NewModerationService(),
	}
}

// ModerateRequest 审核请求
type ModerateRequest struct {
	Note string `json:"note" binding:"max=500"`
}

// GetPendingListings 获取待审核队列
// @Summary 待审核发布列表
// @Tags admin
// @Produce json
// @Security Bearer
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Router /api/v1/admin/listings/pending [get]
func (ac *AdminListingController) GetPendingListings(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	listings, total, err := ac.moderationService.GetPendingListings(page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Paginate(c, listings, total, page, limit)
}

// ApproveListing 审核通过
// @Summary 审核通过发布
// @Description 违禁词扫描通过后上架，有效期7天；扫描命中则自动驳回
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "发布ID"
// @Param request body ModerateRequest false "审核备注"
// @Router /api/v1/admin/listings/{id}/approve [put]
func (ac *AdminListingController) ApproveListing(c *gin.Context) {
	adminID := c.GetString("user_id")

	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.Error(c, utils.CodeValidationError, err.Error())
		return
	}

	result, err := ac.moderationService.ApproveListing(c.Param("id"), adminID, req.Note)
	if err != nil {
		// 违禁词命中：发布已被自动驳回，把命中的词返回给管理员
		var violation *services.PolicyViolationError
		if errors.As(err, &violation) {
			utils.ErrorWithData(c, utils.CodeError, "内容包含违禁词，已自动驳回", gin.H{
				"keyword": violation.Keyword,
			})
			return
		}
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "审核通过", result)
}

// RejectListing 手动驳回
// @Summary 驳回发布
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "发布ID"
// @Param request body ModerateRequest true "驳回理由"
// @Router /api/v1/admin/listings/{id}/reject [put]
func (ac *AdminListingController) RejectListing(c *gin.Context) {
	adminID := c.GetString("user_id")

	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.CodeValidationError, err.Error())
		return
	}

	if req.Note == "" {
		utils.Error(c, utils.CodeValidationError, "驳回理由不能为空")
		return
	}

	if err := ac.moderationService.RejectListing(c.Param("id"), adminID, req.Note); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "已驳回", nil)
}
