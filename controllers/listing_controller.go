package controllers

import (
	"strconv"

	"secondcycle_go/services"
	"secondcycle_go/utils"

	"github.com/gin-gonic/gin"
)

// ListingController 发布控制器
type ListingController struct {
	listingService *services.ListingService
}

// NewListingController 创建发布控制器实例
func NewListingController() *ListingController {
	return &ListingController{
		listingService: services.NewListingService(),
	}
}

// GetListings 获取发布列表
// @Summary 获取发布列表
// @Description 分页获取可购买的发布，支持按品牌筛选
// @Tags listings
// @Produce json
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Param brand query string false "品牌"
// @Router /api/v1/listings [get]
func (lc *ListingController) GetListings(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filters := make(map[string]interface{})
	if brand := c.Query("brand"); brand != "" {
		filters["brand"] = brand
	}
	if sellerID := c.Query("seller_id"); sellerID != "" {
		filters["seller_id"] = sellerID
	}

	listings, total, err := lc.listingService.GetListings(page, limit, filters)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Paginate(c, listings, total, page, limit)
}

// GetListing 获取发布详情
// @Summary 获取发布详情
// @Tags listings
// @Produce json
// @Param id path string true "发布ID"
// @Router /api/v1/listings/{id} [get]
func (lc *ListingController) GetListing(c *gin.Context) {
	listing, err := lc.listingService.GetListing(c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, listing)
}

// CreateListing 卖家提交发布
// @Summary 提交发布
// @Description 创建车辆和发布记录，进入待审核状态
// @Tags listings
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body services.CreateListingRequest true "发布信息"
// @Router /api/v1/listings [post]
func (lc *ListingController) CreateListing(c *gin.Context) {
	sellerID := c.GetString("user_id")

	var req services.CreateListingRequest
	if !bindRequest(c, &req) {
		return
	}

	listing, err := lc.listingService.CreateListing(sellerID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "发布已提交，等待审核", listing)
}

// ChangeStatus 卖家变更发布状态
// @Summary 变更发布状态
// @Description SHOW 上架 / HIDE 下架 / MARK_SOLD 标记已售
// @Tags listings
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "发布ID"
// @Param request body services.ChangeStatusRequest true "操作"
// @Router /api/v1/listings/{id}/status [put]
func (lc *ListingController) ChangeStatus(c *gin.Context) {
	sellerID := c.GetString("user_id")

	var req services.ChangeStatusRequest
	if !bindRequest(c, &req) {
		return
	}

	listing, err := lc.listingService.ChangeStatus(c.Param("id"), sellerID, req.Action)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, listing)
}

// GetMyListings 卖家自己的发布列表
// @Summary 我的发布
// @Tags listings
// @Produce json
// @Security Bearer
// @Param status query string false "状态筛选"
// @Router /api/v1/listings/my [get]
func (lc *ListingController) GetMyListings(c *gin.Context) {
	sellerID := c.GetString("user_id")

	listings, err := lc.listingService.GetMyListings(sellerID, c.Query("status"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, listings)
}
