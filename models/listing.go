package models

import (
	"time"

	"gorm.io/gorm"
)

// Listing 状态常量
// 状态机: PENDING_APPROVAL -> APPROVED/REJECTED; APPROVED -> ACTIVE/HIDDEN/SOLD
const (
	ListingPendingApproval = "PENDING_APPROVAL"
	ListingApproved        = "APPROVED"
	ListingActive          = "ACTIVE"
	ListingHidden          = "HIDDEN"
	ListingRejected        = "REJECTED"
	ListingSold            = "SOLD"
)

// Listing 交易发布模型
// status 是可售性的唯一变更入口，审核/过期任务/订单支付都只改这个字段
type Listing struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	VehicleID    string         `gorm:"type:varchar(36);index;not null" json:"vehicle_id"`
	SellerID     string         `gorm:"type:varchar(36);index;not null" json:"seller_id"`
	Status       string         `gorm:"type:varchar(20);default:PENDING_APPROVAL;index;comment:PENDING_APPROVAL,APPROVED,ACTIVE,HIDDEN,REJECTED,SOLD" json:"status"`
	ApprovedBy   string         `gorm:"type:varchar(36);comment:审核管理员ID" json:"approved_by,omitempty"`
	ApprovedAt   *time.Time     `gorm:"comment:审核时间" json:"approved_at,omitempty"`
	ExpiresAt    *time.Time     `gorm:"index;comment:过期时间" json:"expires_at,omitempty"`
	ApprovalNote string         `gorm:"type:text;comment:审核备注" json:"approval_note,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// 关联关系
	Vehicle Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Seller  User    `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Orders  []Order `gorm:"foreignKey:ListingID" json:"orders,omitempty"`
}

// TableName 指定表名
func (Listing) TableName() string {
	return "listings"
}

// IsAvailable 是否可购买（加购物车/下单的前置条件）
func (l *Listing) IsAvailable() bool {
	return l.Status == ListingApproved || l.Status == ListingActive
}

// BeforeCreate 创建前钩子
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}
