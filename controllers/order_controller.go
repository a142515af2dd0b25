package controllers

import (
	"errors"

	"secondcycle_go/services"
	"secondcycle_go/utils"

	"github.com/gin-gonic/gin"
)

// OrderController 订单控制器
type OrderController struct {
	orderService *services.OrderService
}

// NewOrderController 创建订单控制器实例
func NewOrderController() *OrderController {
	return &OrderController{
		orderService: services.NewOrderService(),
	}
}

// OrderActionRequest 订单操作请求（确认/取消附带备注或理由）
type OrderActionRequest struct {
	Note   string `json:"note" binding:"max=500"`
	Reason string `json:"reason" binding:"max=500"`
}

// CreateOrder 从单个发布下单
// @Summary 创建订单
// @Tags orders
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body services.CreateOrderRequest true "订单信息"
// @Router /api/v1/orders [post]
func (oc *OrderController) CreateOrder(c *gin.Context) {
	buyerID := c.GetString("user_id")

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.CodeValidationError, err.Error())
		return
	}

	order, err := oc.orderService.CreateOrder(buyerID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, order)
}

// Checkout 购物车结算
// @Summary 购物车结算
// @Description 按卖家分组生成订单，购物车清空与订单创建同一事务
// @Tags orders
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body services.CheckoutRequest false "结算信息"
// @Router /api/v1/orders/checkout [post]
func (oc *OrderController) Checkout(c *gin.Context) {
	buyerID := c.GetString("user_id")

	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.Error(c, utils.CodeValidationError, err.Error())
		return
	}

	orders, err := oc.orderService.CreateOrderFromCart(buyerID, &req)
	if err != nil {
		// 购物车里有不可购买的条目：整单失败，把名单返回给买家
		var invalid *services.CartInvalidError
		if errors.As(err, &invalid) {
			utils.ErrorWithData(c, utils.CodeError, "部分商品已不可购买", gin.H{
				"unavailable_items": invalid.Items,
			})
			return
		}
		handleServiceError(c, err)
		return
	}

	utils.Success(c, orders)
}

// GetMyOrders 买家订单列表
// @Summary 我的订单
// @Tags orders
// @Produce json
// @Security Bearer
// @Param status query string false "状态筛选"
// @Router /api/v1/orders/my [get]
func (oc *OrderController) GetMyOrders(c *gin.Context) {
	buyerID := c.GetString("user_id")

	orders, err := oc.orderService.GetMyOrders(buyerID, c.Query("status"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, orders)
}

// GetSellerOrders 卖家订单列表
// @Summary 卖家收到的订单
// @Tags orders
// @Produce json
// @Security Bearer
// @Param status query string false "状态筛选"
// @Router /api/v1/orders/seller [get]
func (oc *OrderController) GetSellerOrders(c *gin.Context) {
	sellerID := c.GetString("user_id")

	orders, err := oc.orderService.GetOrdersForSeller(sellerID, c.Query("status"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, orders)
}

// GetOrder 订单详情
// @Summary 订单详情
// @Tags orders
// @Produce json
// @Security Bearer
// @Param id path string true "订单ID"
// @Router /api/v1/orders/{id} [get]
func (oc *OrderController) GetOrder(c *gin.Context) {
	userID := c.GetString("user_id")

	order, err := oc.orderService.GetOrderByID(c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, order)
}

// ConfirmOrder 卖家确认订单
// @Summary 确认订单
// @Tags orders
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "订单ID"
// @Router /api/v1/orders/{id}/confirm [put]
func (oc *OrderController) ConfirmOrder(c *gin.Context) {
	sellerID := c.GetString("user_id")

	var req OrderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.Error(c, utils.CodeValidationError, err.Error())
		return
	}

	order, err := oc.orderService.ConfirmOrder(c.Param("id"), sellerID, req.Note)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, order)
}

// CancelOrder 买家取消订单
// @Summary 取消订单
// @Description 仅 PENDING/DEPOSITED 可取消，取消后发布恢复可售
// @Tags orders
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "订单ID"
// @Router /api/v1/orders/{id}/cancel [put]
func (oc *OrderController) CancelOrder(c *gin.Context) {
	buyerID := c.GetString("user_id")

	var req OrderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.Error(c, utils.CodeValidationError, err.Error())
		return
	}

	order, err := oc.orderService.CancelOrder(c.Param("id"), buyerID, req.Reason)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, order)
}

// CompleteOrder 卖家完成订单
// @Summary 完成订单
// @Tags orders
// @Produce json
// @Security Bearer
// @Param id path string true "订单ID"
// @Router /api/v1/orders/{id}/complete [put]
func (oc *OrderController) CompleteOrder(c *gin.Context) {
	sellerID := c.GetString("user_id")

	order, err := oc.orderService.CompleteOrder(c.Param("id"), sellerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, order)
}
