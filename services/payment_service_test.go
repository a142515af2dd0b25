package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"secondcycle_go/config"
	"secondcycle_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testChecksumKey = "test-checksum-key"

// mockProcessor 测试用支付网关
type mockProcessor struct {
	linkErr  error
	requests []*ProcessorLinkRequest
}

func (m *mockProcessor) CreatePaymentLink(req *ProcessorLinkRequest) (*ProcessorLinkResponse, error) {
	m.requests = append(m.requests, req)
	if m.linkErr != nil {
		return nil, m.linkErr
	}
	return &ProcessorLinkResponse{
		PaymentLinkID: "plink-123",
		CheckoutURL:   "https://pay.example.com/plink-123",
		QRCode:        "qr-data",
	}, nil
}

func (m *mockProcessor) GetPaymentInfo(orderCode int64) (map[string]interface{}, error) {
	return map[string]interface{}{"status": "PAID"}, nil
}

func (m *mockProcessor) CancelPaymentLink(orderCode int64, reason string) error {
	return nil
}

func newTestPaymentService(db *gorm.DB, processor PaymentProcessor) *PaymentService {
	return &PaymentService{
		db: db,
		cfg: &config.PayOSConfig{
			ChecksumKey: testChecksumKey,
			FrontendURL: "http://localhost:3000",
		},
		processor: processor,
		orders:    NewOrderService(),
	}
}

// signedWebhook 构造一条验签通过的回调
func signedWebhook(t *testing.T, data map[string]interface{}) *WebhookPayload {
	t.Helper()

	raw, err := json.Marshal(map[string]interface{}{
		"code":    "00",
		"desc":    "success",
		"success": true,
		"data":    data,
	})
	require.NoError(t, err)

	payload, err := ParseWebhook(raw)
	require.NoError(t, err)

	payload.Signature = hmacSHA256Hex(testChecksumKey, sortedQueryString(payload.Data))
	return payload
}

func TestCreatePaymentLinkForListing(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingApproved)

	processor := &mockProcessor{}
	ps := newTestPaymentService(db, processor)

	result, err := ps.CreatePaymentLinkForListing(listing.ID, buyer.ID)
	require.NoError(t, err)

	assert.Equal(t, "plink-123", result.PaymentLinkID)
	assert.Equal(t, "https://pay.example.com/plink-123", result.CheckoutURL)
	assert.EqualValues(t, 8000000, result.Amount)
	assert.True(t, result.OrderCode > 0 && result.OrderCode < 1_000_000_000)

	// 描述嵌订单ID前8位
	require.Len(t, processor.requests, 1)
	assert.Equal(t, "DH "+result.OrderID[:8], processor.requests[0].Description)

	// 订单 PENDING，支付记录挂上链接ID
	assert.Equal(t, models.OrderPending, reloadOrder(t, db, result.OrderID).Status)

	var payment models.Payment
	require.NoError(t, db.First(&payment, "order_id = ?", result.OrderID).Error)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, "plink-123", payment.PaymentLinkID)
	assert.Equal(t, result.OrderCode, payment.OrderCode)
}

func TestCreatePaymentLinkProcessorFailureKeepsOrder(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingApproved)

	processor := &mockProcessor{linkErr: errors.New("gateway timeout")}
	ps := newTestPaymentService(db, processor)

	_, err := ps.CreatePaymentLinkForListing(listing.ID, buyer.ID)
	require.Error(t, err)

	// 错误带回订单ID，订单保留用于重试
	var processorErr *ProcessorError
	require.True(t, errors.As(err, &processorErr))
	require.NotEmpty(t, processorErr.OrderID)
	assert.Equal(t, models.OrderPending, reloadOrder(t, db, processorErr.OrderID).Status)

	// 本次支付尝试标记失败
	var payment models.Payment
	require.NoError(t, db.First(&payment, "order_id = ?", processorErr.OrderID).Error)
	assert.Equal(t, models.PaymentFailed, payment.Status)

	// 重试为同一订单创建链接，不产生新订单
	processor.linkErr = nil
	result, err := ps.CreatePaymentLinkForOrder(processorErr.OrderID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, processorErr.OrderID, result.OrderID)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.EqualValues(t, 1, orderCount)
}

func TestCreatePaymentLinkForOrderValidation(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	other := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingApproved)

	ps := newTestPaymentService(db, &mockProcessor{})

	result, err := ps.CreatePaymentLinkForListing(listing.ID, buyer.ID)
	require.NoError(t, err)

	_, err = ps.CreatePaymentLinkForOrder("missing-id", buyer.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ps.CreatePaymentLinkForOrder(result.OrderID, other.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// 非 PENDING 订单不可重试
	_, err = ps.orders.UpdateOrderStatus(result.OrderID, models.OrderDeposited, "plink-123")
	require.NoError(t, err)
	_, err = ps.CreatePaymentLinkForOrder(result.OrderID, buyer.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestVerifyWebhook(t *testing.T) {
	db := newTestDB(t)
	ps := newTestPaymentService(db, &mockProcessor{})

	payload := signedWebhook(t, map[string]interface{}{
		"orderCode":   123456789,
		"amount":      8000000,
		"description": "DH abcd1234",
		"code":        "00",
	})
	assert.NoError(t, ps.VerifyWebhook(payload))

	// 篡改任何字段后验签失败
	payload.Data["amount"] = json.Number("1")
	assert.ErrorIs(t, ps.VerifyWebhook(payload), ErrInvalidSignature)

	// 缺签名、缺数据一律拒绝
	assert.ErrorIs(t, ps.VerifyWebhook(&WebhookPayload{}), ErrInvalidSignature)
	assert.ErrorIs(t, ps.VerifyWebhook(nil), ErrInvalidSignature)
}

func TestSortedQueryStringPreservesNumericLiterals(t *testing.T) {
	// 大数值不能被浮点化，否则拼串结果和网关侧不一致
	raw := []byte(`{"code":"00","data":{"amount":8000000,"orderCode":997524123,"rate":1.5,"description":"DH abcd1234","ref":null}}`)
	payload, err := ParseWebhook(raw)
	require.NoError(t, err)

	assert.Equal(t,
		"amount=8000000&description=DH abcd1234&orderCode=997524123&rate=1.5&ref=",
		sortedQueryString(payload.Data))
}

func TestHandleWebhookDepositsOrder(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingApproved)

	ps := newTestPaymentService(db, &mockProcessor{})

	link, err := ps.CreatePaymentLinkForListing(listing.ID, buyer.ID)
	require.NoError(t, err)

	payload := signedWebhook(t, map[string]interface{}{
		"orderCode":     link.OrderCode,
		"amount":        8000000,
		"description":   fmt.Sprintf("CASSO DH %s chuyen khoan", link.OrderID[:8]),
		"code":          "00",
		"paymentLinkId": "plink-123",
	})

	result, err := ps.HandleWebhook(payload)
	require.NoError(t, err)
	assert.True(t, result.Handled)
	assert.Equal(t, link.OrderID, result.OrderID)

	// 订单 DEPOSITED，发布 SOLD
	order := reloadOrder(t, db, link.OrderID)
	assert.Equal(t, models.OrderDeposited, order.Status)
	require.NotNil(t, order.ConfirmedAt)
	assert.Equal(t, models.ListingSold, reloadListing(t, db, listing.ID).Status)

	// 成功支付记录，金额以回调为准
	var payment models.Payment
	require.NoError(t, db.First(&payment, "order_id = ? AND status = ?",
		link.OrderID, models.PaymentSuccess).Error)
	assert.EqualValues(t, 8000000, payment.Amount)
	assert.Equal(t, "plink-123", payment.PaymentLinkID)

	// 买卖双方各收到支付通知
	assert.EqualValues(t, 1, countNotifications(t, db, buyer.ID))
	assert.EqualValues(t, 2, countNotifications(t, db, seller.ID)) // 下单 + 已支付
}

func TestHandleWebhookIdempotent(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingApproved)

	ps := newTestPaymentService(db, &mockProcessor{})

	link, err := ps.CreatePaymentLinkForListing(listing.ID, buyer.ID)
	require.NoError(t, err)

	payload := signedWebhook(t, map[string]interface{}{
		"orderCode":   link.OrderCode,
		"amount":      8000000,
		"description": "DH " + link.OrderID[:8],
		"code":        "00",
	})

	first, err := ps.HandleWebhook(payload)
	require.NoError(t, err)
	assert.True(t, first.Handled)

	// 网关重复投递：找不到 PENDING 订单，空操作
	second, err := ps.HandleWebhook(payload)
	require.NoError(t, err)
	assert.False(t, second.Handled)

	// 成功支付记录只有一条
	var count int64
	require.NoError(t, db.Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", link.OrderID, models.PaymentSuccess).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestHandleWebhookNoops(t *testing.T) {
	db := newTestDB(t)
	ps := newTestPaymentService(db, &mockProcessor{})

	// 网关后台测试回调
	sandbox := signedWebhook(t, map[string]interface{}{
		"orderCode":   123,
		"amount":      10000,
		"description": "Ma giao dich thu nghiem",
		"code":        "00",
	})
	result, err := ps.HandleWebhook(sandbox)
	require.NoError(t, err)
	assert.False(t, result.Handled)

	// 失败回调只是报告，不做变更
	failed := signedWebhook(t, map[string]interface{}{
		"orderCode":   456,
		"amount":      10000,
		"description": "DH abcd1234",
		"code":        "01",
	})
	failed.Code = "01"
	result, err = ps.HandleWebhook(failed)
	require.NoError(t, err)
	assert.False(t, result.Handled)

	// 描述里没有订单引用
	noRef := signedWebhook(t, map[string]interface{}{
		"orderCode":   789,
		"amount":      10000,
		"description": "chuyen tien ca nhan",
		"code":        "00",
	})
	result, err = ps.HandleWebhook(noRef)
	require.NoError(t, err)
	assert.False(t, result.Handled)

	// 引用了不存在的订单
	unknown := signedWebhook(t, map[string]interface{}{
		"orderCode":   790,
		"amount":      10000,
		"description": "DH deadbeef",
		"code":        "00",
	})
	result, err = ps.HandleWebhook(unknown)
	require.NoError(t, err)
	assert.False(t, result.Handled)

	// 全部空操作，没有任何支付记录产生
	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestExtractOrderRef(t *testing.T) {
	cases := []struct {
		description string
		want        string
	}{
		{"DH abcd1234", "abcd1234"},
		{"DH  abcd1234", "abcd1234"},
		{"dh abcd1234", "abcd1234"},
		{"CASSO DH abcd1234 chuyen khoan", "abcd1234"},
		{"khong co ma", ""},
		{"DH xyz", ""},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, extractOrderRef(tc.description), "description %q", tc.description)
	}
}
