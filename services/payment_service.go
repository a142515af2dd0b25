package services

import (
	"bytes"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"secondcycle_go/config"
	"secondcycle_go/middleware"
	"secondcycle_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 网关测试回调的固定描述值
// PayOS 后台的测试推送和真实回调结构完全一样，只能靠这些哨兵值识别
var sandboxDescriptions = map[string]bool{
	"Ma giao dich thu nghiem": true,
	"VQRIO123":                true,
}

// 描述字段里嵌的订单号前缀，格式 "DH xxxxxxxx"（UUID 前8位）
// 银行可能在描述前后拼接其他内容，所以用正则抽取而不是全等
var orderRefPattern = regexp.MustCompile(`(?i)\bDH\s*([0-9a-f]{8})`)

// WebhookPayload 支付网关回调载荷
// Data 保持原始 map，验签要按原始字段拼串
type WebhookPayload struct {
	Code      string                 `json:"code"`
	Desc      string                 `json:"desc"`
	Success   bool                   `json:"success"`
	Data      map[string]interface{} `json:"data"`
	Signature string                 `json:"signature"`
}

// WebhookResult 回调处理结果
type WebhookResult struct {
	Handled bool   `json:"handled"`
	Reason  string `json:"reason,omitempty"`
	OrderID string `json:"order_id,omitempty"`
}

// PaymentLinkResult 创建支付链接结果
type PaymentLinkResult struct {
	OrderID       string  `json:"order_id"`
	ListingID     string  `json:"listing_id"`
	OrderCode     int64   `json:"order_code"`
	PaymentLinkID string  `json:"payment_link_id"`
	CheckoutURL   string  `json:"checkout_url"`
	QRCode        string  `json:"qr_code"`
	Amount        float64 `json:"amount"`
}

// PaymentService 支付对账服务
// 负责创建支付链接、验证回调真实性、把回调幂等地落到订单和发布状态上
type PaymentService struct {
	db        *gorm.DB
	cfg       *config.PayOSConfig
	processor PaymentProcessor
	orders    *OrderService
}

// NewPaymentService 创建支付服务实例
func NewPaymentService() *PaymentService {
	cfg := config.GetPayOSConfig()
	return &PaymentService{
		db:        config.DB,
		cfg:       cfg,
		processor: NewPayOSClient(cfg),
		orders:    NewOrderService(),
	}
}

// CreatePaymentLinkForListing 为发布创建支付链接
// 先落订单（PENDING）再调网关，失败时订单保留，
// 客户端拿着返回的订单号重试创建链接即可，不会产生重复订单
func (ps *PaymentService) CreatePaymentLinkForListing(listingID, buyerID string) (*PaymentLinkResult, error) {
	// 1. 创建订单，校验（可售、非本人、单飞）全部复用订单服务
	order, err := ps.orders.CreateOrder(buyerID, &CreateOrderRequest{ListingID: listingID})
	if err != nil {
		return nil, err
	}

	// 2. 创建支付记录并请求网关
	return ps.requestLink(order)
}

// CreatePaymentLinkForOrder 为已有订单重试创建支付链接
func (ps *PaymentService) CreatePaymentLinkForOrder(orderID, buyerID string) (*PaymentLinkResult, error) {
	var order models.Order
	if err := ps.db.Preload("Listing.Vehicle").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if order.BuyerID != buyerID {
		return nil, ErrForbidden
	}

	if order.Status != models.OrderPending {
		return nil, ErrInvalidState
	}

	return ps.requestLink(&order)
}

// requestLink 创建支付记录并向网关请求支付链接
func (ps *PaymentService) requestLink(order *models.Order) (*PaymentLinkResult, error) {
	// 网关订单号取毫秒时间戳后9位
	orderCode := time.Now().UnixMilli() % 1_000_000_000

	payment := models.Payment{
		OrderID:   order.ID,
		Method:    "PAYOS",
		Amount:    order.DepositAmount,
		Status:    models.PaymentPending,
		OrderCode: orderCode,
	}
	if err := ps.db.Create(&payment).Error; err != nil {
		return nil, err
	}

	// 描述里嵌订单ID前8位，回调靠它关联回订单
	description := "DH " + order.ID[:8]

	req := &ProcessorLinkRequest{
		OrderCode:   orderCode,
		Amount:      int64(order.DepositAmount),
		Description: description,
		ReturnURL:   fmt.Sprintf("%s/payment/success?orderId=%s&orderCode=%d", ps.cfg.FrontendURL, order.ID, orderCode),
		CancelURL:   fmt.Sprintf("%s/payment/cancel?orderId=%s", ps.cfg.FrontendURL, order.ID),
		Items: []ProcessorItem{
			{
				Name:     fmt.Sprintf("%s (%d)", order.Listing.Vehicle.DisplayName(), order.Listing.Vehicle.Year),
				Quantity: 1,
				Price:    int64(order.DepositAmount),
			},
		},
	}

	link, err := ps.processor.CreatePaymentLink(req)
	if err != nil {
		// 订单已经落库，标记这次支付尝试失败后把订单号带回给调用方
		if dbErr := ps.db.Model(&payment).Update("status", models.PaymentFailed).Error; dbErr != nil {
			middleware.ErrorLogger("failed to mark payment attempt failed",
				zap.String("order_id", order.ID), zap.Error(dbErr))
		}
		return nil, &ProcessorError{OrderID: order.ID, Err: err}
	}

	if err := ps.db.Model(&payment).Update("payment_link_id", link.PaymentLinkID).Error; err != nil {
		middleware.ErrorLogger("failed to store payment link id",
			zap.String("order_id", order.ID), zap.Error(err))
	}

	return &PaymentLinkResult{
		OrderID:       order.ID,
		ListingID:     order.ListingID,
		OrderCode:     orderCode,
		PaymentLinkID: link.PaymentLinkID,
		CheckoutURL:   link.CheckoutURL,
		QRCode:        link.QRCode,
		Amount:        order.DepositAmount,
	}, nil
}

// GetPaymentInfo 查询网关侧支付信息
func (ps *PaymentService) GetPaymentInfo(orderCode int64) (map[string]interface{}, error) {
	info, err := ps.processor.GetPaymentInfo(orderCode)
	if err != nil {
		return nil, &ProcessorError{Err: err}
	}
	return info, nil
}

// CancelPaymentLink 取消网关侧支付链接
func (ps *PaymentService) CancelPaymentLink(orderCode int64, reason string) error {
	if err := ps.processor.CancelPaymentLink(orderCode, reason); err != nil {
		return &ProcessorError{Err: err}
	}
	return nil
}

// ParseWebhook 解析回调原始报文
// 必须用 json.Number，否则数值被转成浮点后验签拼串会变形
func ParseWebhook(raw []byte) (*WebhookPayload, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var payload WebhookPayload
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	return &payload, nil
}

// VerifyWebhook 验证回调签名
// 任何不匹配一律拒绝（fail closed），验签通过之前不允许有任何状态变更
func (ps *PaymentService) VerifyWebhook(payload *WebhookPayload) error {
	if payload == nil || payload.Data == nil || payload.Signature == "" {
		return ErrInvalidSignature
	}

	expected := hmacSHA256Hex(ps.cfg.ChecksumKey, sortedQueryString(payload.Data))
	if !hmac.Equal([]byte(expected), []byte(payload.Signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// errWebhookNoop 回调无需处理（事务内用来触发回滚，对外不是错误）
var errWebhookNoop = errors.New("webhook no-op")

// HandleWebhook 把验签通过的回调落到订单状态上
// 幂等性边界：只匹配 status=PENDING 的订单，重复投递找不到 PENDING 订单就是空操作
func (ps *PaymentService) HandleWebhook(payload *WebhookPayload) (*WebhookResult, error) {
	description := webhookString(payload.Data, "description")

	// 1. 网关后台的测试回调直接确认，不动任何状态
	if isSandboxCallback(payload, description) {
		return &WebhookResult{Handled: false, Reason: "sandbox test callback"}, nil
	}

	// 2. 非成功码只是失败报告，不做变更
	dataCode := webhookString(payload.Data, "code")
	if payload.Code != "00" || (dataCode != "" && dataCode != "00") {
		middleware.InfoLogger("webhook reported non-success code",
			zap.String("code", payload.Code), zap.String("data_code", dataCode))
		return &WebhookResult{Handled: false, Reason: "processor reported failure"}, nil
	}

	// 3. 从描述里解析订单ID前缀
	prefix := extractOrderRef(description)
	if prefix == "" {
		middleware.InfoLogger("webhook without order reference",
			zap.String("description", description))
		return &WebhookResult{Handled: false, Reason: "no order reference in description"}, nil
	}

	amount := webhookFloat(payload.Data, "amount")
	orderCode := webhookInt64(payload.Data, "orderCode")
	paymentLinkID := webhookString(payload.Data, "paymentLinkId")

	var handled *models.Order
	var pushes []*models.Notification

	err := ps.db.Transaction(func(tx *gorm.DB) error {
		// 前缀匹配必须叠加 status=PENDING 过滤，
		// 否则可能撞上恰好同前缀的历史订单
		var order models.Order
		err := tx.Where("id LIKE ? AND status = ?", prefix+"%", models.OrderPending).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errWebhookNoop
		}
		if err != nil {
			return err
		}

		updated, notifications, err := ps.orders.UpdateOrderStatusTx(tx, order.ID, models.OrderDeposited, paymentLinkID)
		if err != nil {
			// 条件更新没命中说明并发回调已经处理过了
			if errors.Is(err, ErrInvalidState) {
				return errWebhookNoop
			}
			return err
		}

		// 成功的支付记录，金额以网关上报为准
		if err := tx.Create(&models.Payment{
			OrderID:       order.ID,
			Method:        "PAYOS",
			Amount:        amount,
			Status:        models.PaymentSuccess,
			OrderCode:     orderCode,
			PaymentLinkID: paymentLinkID,
		}).Error; err != nil {
			return err
		}

		handled = updated
		pushes = notifications
		return nil
	})

	if errors.Is(err, errWebhookNoop) {
		return &WebhookResult{Handled: false, Reason: "no matching pending order"}, nil
	}
	if err != nil {
		return nil, err
	}

	for _, n := range pushes {
		ps.orders.notifications.Push(n)
	}

	return &WebhookResult{Handled: true, OrderID: handled.ID}, nil
}

// isSandboxCallback 识别网关测试回调
func isSandboxCallback(payload *WebhookPayload, description string) bool {
	if sandboxDescriptions[description] {
		return true
	}
	// 网关文档里的固定测试订单号
	return webhookInt64(payload.Data, "orderCode") == 123
}

// extractOrderRef 从描述字段抽取订单ID前缀（小写）
func extractOrderRef(description string) string {
	matches := orderRefPattern.FindStringSubmatch(description)
	if len(matches) != 2 {
		return ""
	}
	return matches[1]
}

// webhookString 读取回调 data 里的字符串字段
func webhookString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

// webhookInt64 读取回调 data 里的整型字段
func webhookInt64(data map[string]interface{}, key string) int64 {
	switch v := data[key].(type) {
	case json.Number:
		n, _ := v.Int64()
		return n
	case float64:
		return int64(v)
	}
	return 0
}

// webhookFloat 读取回调 data 里的数值字段
func webhookFloat(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case json.Number:
		f, _ := v.Float64()
		return f
	case float64:
		return v
	}
	return 0
}
