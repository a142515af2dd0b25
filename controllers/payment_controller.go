package controllers

import (
	"errors"
	"io"
	"strconv"
	"time"

	"secondcycle_go/middleware"
	"secondcycle_go/services"
	"secondcycle_go/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentController 支付控制器
type PaymentController struct {
	paymentService *services.PaymentService
}

// NewPaymentController 创建支付控制器实例
func NewPaymentController() *PaymentController {
	return &PaymentController{
		paymentService: services.NewPaymentService(),
	}
}

// CreateLinkRequest 创建支付链接请求
type CreateLinkRequest struct {
	ListingID string `json:"listing_id"`
	OrderID   string `json:"order_id"`
}

// CancelLinkRequest 取消支付链接请求
type CancelLinkRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// CreatePaymentLink 创建支付链接
// @Summary 创建支付链接
// @Description 传 listing_id 下单并创建链接；传 order_id 为已有 PENDING 订单重试
// @Tags payments
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CreateLinkRequest true "支付信息"
// @Router /api/v1/payments/link [post]
func (pc *PaymentController) CreatePaymentLink(c *gin.Context) {
	buyerID := c.GetString("user_id")

	// 防刷：每个买家每分钟最多10次创建请求
	if !utils.APIRateLimit(c, buyerID, 10, time.Minute) {
		utils.Error(c, utils.CodeError, "请求过于频繁，请稍后再试")
		return
	}

	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.CodeValidationError, err.Error())
		return
	}

	var result *services.PaymentLinkResult
	var err error
	switch {
	case req.OrderID != "":
		result, err = pc.paymentService.CreatePaymentLinkForOrder(req.OrderID, buyerID)
	case req.ListingID != "":
		result, err = pc.paymentService.CreatePaymentLinkForListing(req.ListingID, buyerID)
	default:
		utils.Error(c, utils.CodeValidationError, "listing_id 和 order_id 必须提供一个")
		return
	}

	if err != nil {
		// 网关调用失败：订单已保留，把订单号返回给客户端用于重试
		var processorErr *services.ProcessorError
		if errors.As(err, &processorErr) {
			middleware.ErrorLogger("payment link creation failed",
				zap.String("order_id", processorErr.OrderID),
				zap.Error(err))
			utils.ErrorWithData(c, utils.CodeUpstreamError, "支付网关暂时不可用，请稍后重试", gin.H{
				"order_id": processorErr.OrderID,
			})
			return
		}
		handleServiceError(c, err)
		return
	}

	utils.Success(c, result)
}

// HandleWebhook 支付网关回调
// @Summary 支付回调
// @Description 验签失败直接拒绝；验签通过后幂等地落到订单状态
// @Tags payments
// @Accept json
// @Produce json
// @Router /api/v1/payments/webhook [post]
func (pc *PaymentController) HandleWebhook(c *gin.Context) {
	// 验签要用原始报文，不能走结构体绑定
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.Error(c, utils.CodeValidationError, "无法读取请求体")
		return
	}

	payload, err := services.ParseWebhook(raw)
	if err != nil {
		utils.Error(c, utils.CodeValidationError, "回调报文格式错误")
		return
	}

	if err := pc.paymentService.VerifyWebhook(payload); err != nil {
		middleware.ErrorLogger("webhook signature verification failed",
			zap.String("ip", c.ClientIP()))
		utils.Unauthorized(c, "签名验证失败")
		return
	}

	result, err := pc.paymentService.HandleWebhook(payload)
	if err != nil {
		middleware.ErrorLogger("webhook processing failed", zap.Error(err))
		utils.InternalError(c, "")
		return
	}

	utils.Success(c, result)
}

// GetPaymentInfo 查询网关侧支付信息
// @Summary 查询支付信息
// @Tags payments
// @Produce json
// @Security Bearer
// @Param orderCode path int true "网关订单号"
// @Router /api/v1/payments/{orderCode} [get]
func (pc *PaymentController) GetPaymentInfo(c *gin.Context) {
	orderCode, err := strconv.ParseInt(c.Param("orderCode"), 10, 64)
	if err != nil {
		utils.Error(c, utils.CodeValidationError, "订单号格式错误")
		return
	}

	info, err := pc.paymentService.GetPaymentInfo(orderCode)
	if err != nil {
		utils.Error(c, utils.CodeUpstreamError, "")
		return
	}

	utils.Success(c, info)
}

// CancelPaymentLink 取消支付链接
// @Summary 取消支付链接
// @Tags payments
// @Accept json
// @Produce json
// @Security Bearer
// @Param orderCode path int true "网关订单号"
// @Param request body CancelLinkRequest false "取消理由"
// @Router /api/v1/payments/{orderCode}/cancel [post]
func (pc *PaymentController) CancelPaymentLink(c *gin.Context) {
	orderCode, err := strconv.ParseInt(c.Param("orderCode"), 10, 64)
	if err != nil {
		utils.Error(c, utils.CodeValidationError, "订单号格式错误")
		return
	}

	var req CancelLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.Error(c, utils.CodeValidationError, err.Error())
		return
	}

	if err := pc.paymentService.CancelPaymentLink(orderCode, req.Reason); err != nil {
		utils.Error(c, utils.CodeUpstreamError, "")
		return
	}

	utils.SuccessWithMessage(c, "支付链接已取消", nil)
}
