package services

import (
	"errors"
	"fmt"
	"strings"
)

// 业务错误，controller 层统一映射为响应码
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrInvalidOwnership = errors.New("cannot operate on your own listing")
	ErrForbidden        = errors.New("you do not have access to this resource")
	ErrConflict         = errors.New("conflicting operation in progress")
	ErrCartEmpty        = errors.New("cart is empty")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// PolicyViolationError 审核时命中违禁词
// listing 已被自动驳回，approve 调用本身返回该错误
type PolicyViolationError struct {
	Keyword string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("listing rejected: contains banned keyword %q", e.Keyword)
}

// CartInvalidError 购物车中存在不可购买的条目，结算是全有或全无
type CartInvalidError struct {
	Items []string
}

func (e *CartInvalidError) Error() string {
	return fmt.Sprintf("the following items are no longer available: %s", strings.Join(e.Items, ", "))
}

// ProcessorError 支付网关调用失败
// 订单已经落库，携带 OrderID 方便客户端对同一订单重试创建支付链接
type ProcessorError struct {
	OrderID string
	Err     error
}

func (e *ProcessorError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("payment processor error (order %s): %v", e.OrderID, e.Err)
	}
	return fmt.Sprintf("payment processor error: %v", e.Err)
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}
