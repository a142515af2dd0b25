package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 状态常量
const (
	PaymentPending = "PENDING"
	PaymentSuccess = "SUCCESS"
	PaymentFailed  = "FAILED"
)

// Payment 支付记录模型
// 只追加不修改，一个订单可能有多条（重试）；业务状态以 Order.status 为准
type Payment struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID       string    `gorm:"type:varchar(36);index;not null" json:"order_id"`
	Method        string    `gorm:"type:varchar(20);default:PAYOS;comment:支付方式" json:"method"`
	Amount        float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status        string    `gorm:"type:varchar(20);default:PENDING;comment:PENDING,SUCCESS,FAILED" json:"status"`
	OrderCode     int64     `gorm:"index;comment:支付网关订单号" json:"order_code,omitempty"`
	PaymentLinkID string    `gorm:"type:varchar(100);comment:支付链接ID" json:"payment_link_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}

// BeforeCreate 创建前钩子
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}
