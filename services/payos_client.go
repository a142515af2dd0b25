package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"secondcycle_go/config"
)

// ProcessorItem 支付链接中的商品行
type ProcessorItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// ProcessorLinkRequest 创建支付链接请求
type ProcessorLinkRequest struct {
	OrderCode   int64           `json:"orderCode"`
	Amount      int64           `json:"amount"`
	Description string          `json:"description"`
	ReturnURL   string          `json:"returnUrl"`
	CancelURL   string          `json:"cancelUrl"`
	Items       []ProcessorItem `json:"items"`
	Signature   string          `json:"signature"`
}

// ProcessorLinkResponse 创建支付链接结果
type ProcessorLinkResponse struct {
	PaymentLinkID string `json:"paymentLinkId"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
}

// PaymentProcessor 支付网关能力接口
// 网关副作用收敛到这个窄接口后注入，测试时用 mock 替换
type PaymentProcessor interface {
	CreatePaymentLink(req *ProcessorLinkRequest) (*ProcessorLinkResponse, error)
	GetPaymentInfo(orderCode int64) (map[string]interface{}, error)
	CancelPaymentLink(orderCode int64, reason string) error
}

// PayOSClient PayOS HTTP 适配器
type PayOSClient struct {
	cfg  *config.PayOSConfig
	http *http.Client
}

// NewPayOSClient 创建 PayOS 客户端，对外请求带固定超时
func NewPayOSClient(cfg *config.PayOSConfig) *PayOSClient {
	return &PayOSClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// payosEnvelope PayOS 响应外层结构，code == "00" 表示成功
type payosEnvelope struct {
	Code string                 `json:"code"`
	Desc string                 `json:"desc"`
	Data map[string]interface{} `json:"data"`
}

// CreatePaymentLink 创建支付链接
func (pc *PayOSClient) CreatePaymentLink(req *ProcessorLinkRequest) (*ProcessorLinkResponse, error) {
	// 请求签名: amount&cancelUrl&description&orderCode&returnUrl 按字典序
	req.Signature = pc.signLinkRequest(req)

	data, err := pc.post("/v2/payment-requests", req)
	if err != nil {
		return nil, err
	}

	resp := &ProcessorLinkResponse{}
	if v, ok := data["paymentLinkId"].(string); ok {
		resp.PaymentLinkID = v
	}
	if v, ok := data["checkoutUrl"].(string); ok {
		resp.CheckoutURL = v
	}
	if v, ok := data["qrCode"].(string); ok {
		resp.QRCode = v
	}
	return resp, nil
}

// GetPaymentInfo 查询支付信息
func (pc *PayOSClient) GetPaymentInfo(orderCode int64) (map[string]interface{}, error) {
	return pc.get(fmt.Sprintf("/v2/payment-requests/%d", orderCode))
}

// CancelPaymentLink 取消支付链接
func (pc *PayOSClient) CancelPaymentLink(orderCode int64, reason string) error {
	body := map[string]string{}
	if reason != "" {
		body["cancellationReason"] = reason
	}
	_, err := pc.post(fmt.Sprintf("/v2/payment-requests/%d/cancel", orderCode), body)
	return err
}

// post 发送POST请求并解包响应
func (pc *PayOSClient) post(path string, body interface{}) (map[string]interface{}, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, pc.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return pc.do(req)
}

// get 发送GET请求并解包响应
func (pc *PayOSClient) get(path string) (map[string]interface{}, error) {
	req, err := http.NewRequest(http.MethodGet, pc.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return pc.do(req)
}

func (pc *PayOSClient) do(req *http.Request) (map[string]interface{}, error) {
	req.Header.Set("x-client-id", pc.cfg.ClientID)
	req.Header.Set("x-api-key", pc.cfg.APIKey)

	resp, err := pc.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope payosEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected processor response: %w", err)
	}

	if envelope.Code != "00" {
		return nil, fmt.Errorf("processor returned code %s: %s", envelope.Code, envelope.Desc)
	}

	return envelope.Data, nil
}

// signLinkRequest 计算创建支付链接的签名
func (pc *PayOSClient) signLinkRequest(req *ProcessorLinkRequest) string {
	raw := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		req.Amount, req.CancelURL, req.Description, req.OrderCode, req.ReturnURL)
	return hmacSHA256Hex(pc.cfg.ChecksumKey, raw)
}

// hmacSHA256Hex HMAC-SHA256 十六进制摘要
func hmacSHA256Hex(key, data string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// sortedQueryString 把 data 对象按 key 字典序拼成 key=value&... 形式
// webhook 验签用；数值必须保持原始字面量，所以上游解析时要用 json.Number
func sortedQueryString(data map[string]interface{}) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(stringifyValue(data[k]))
	}
	return buf.String()
}

// stringifyValue 把JSON值转成签名用的字符串表示
func stringifyValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		raw, _ := json.Marshal(val)
		return string(raw)
	}
}
