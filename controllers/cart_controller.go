package controllers

import (
	"secondcycle_go/services"
	"secondcycle_go/utils"

	"github.com/gin-gonic/gin"
)

// CartController 购物车控制器
type CartController struct {
	cartService *services.CartService
}

// NewCartController 创建购物车控制器实例
func NewCartController() *CartController {
	return &CartController{
		cartService: services.NewCartService(),
	}
}

// AddToCartRequest 添加购物车请求
type AddToCartRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"omitempty,gt=0"`
}

// UpdateCartItemRequest 更新条目请求
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// AddToCart 添加发布到购物车
// @Summary 加入购物车
// @Tags cart
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body AddToCartRequest true "条目信息"
// @Router /api/v1/cart/items [post]
func (cc *CartController) AddToCart(c *gin.Context) {
	buyerID := c.GetString("user_id")

	var req AddToCartRequest
	if !bindRequest(c, &req) {
		return
	}

	item, err := cc.cartService.AddToCart(buyerID, req.ListingID, req.Quantity)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, item)
}

// GetMyCart 获取购物车
// @Summary 我的购物车
// @Tags cart
// @Produce json
// @Security Bearer
// @Router /api/v1/cart [get]
func (cc *CartController) GetMyCart(c *gin.Context) {
	buyerID := c.GetString("user_id")

	cart, total, err := cc.cartService.GetMyCart(buyerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, gin.H{
		"cart":         cart,
		"total_amount": total,
		"item_count":   len(cart.Items),
	})
}

// UpdateCartItem 更新条目数量
// @Summary 更新购物车条目
// @Tags cart
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "条目ID"
// @Param request body UpdateCartItemRequest true "数量"
// @Router /api/v1/cart/items/{id} [put]
func (cc *CartController) UpdateCartItem(c *gin.Context) {
	buyerID := c.GetString("user_id")

	var req UpdateCartItemRequest
	if !bindRequest(c, &req) {
		return
	}

	item, err := cc.cartService.UpdateCartItem(buyerID, c.Param("id"), req.Quantity)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, item)
}

// RemoveFromCart 删除条目
// @Summary 移出购物车
// @Tags cart
// @Produce json
// @Security Bearer
// @Param id path string true "条目ID"
// @Router /api/v1/cart/items/{id} [delete]
func (cc *CartController) RemoveFromCart(c *gin.Context) {
	buyerID := c.GetString("user_id")

	if err := cc.cartService.RemoveFromCart(buyerID, c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "已移除", nil)
}

// ClearCart 清空购物车
// @Summary 清空购物车
// @Tags cart
// @Produce json
// @Security Bearer
// @Router /api/v1/cart [delete]
func (cc *CartController) ClearCart(c *gin.Context) {
	buyerID := c.GetString("user_id")

	if err := cc.cartService.ClearCart(buyerID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "购物车已清空", nil)
}
