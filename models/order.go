package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 状态常量
// 状态机: PENDING -> DEPOSITED -> CONFIRMED -> COMPLETED; PENDING/DEPOSITED -> CANCELLED
const (
	OrderPending   = "PENDING"
	OrderDeposited = "DEPOSITED"
	OrderConfirmed = "CONFIRMED"
	OrderCompleted = "COMPLETED"
	OrderCancelled = "CANCELLED"
)

// Order 订单模型
// listing_id 是代表性 listing（购物车结算时取同一卖家分组的第一条）
// 不变式: 同一 listing 同时最多只有一个 PENDING/DEPOSITED 订单
type Order struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	BuyerID   string `gorm:"type:varchar(36);index;not null" json:"buyer_id"`
	ListingID string `gorm:"type:varchar(36);index;not null" json:"listing_id"`
	// ActiveListingID 在 PENDING/DEPOSITED 期间等于 ListingID，离开这两个状态置 NULL；
	// 唯一索引保证同一 listing 同时只有一个活跃订单（并发下单靠它而不是先查后插）
	ActiveListingID *string    `gorm:"type:varchar(36);uniqueIndex" json:"-"`
	DepositAmount   float64    `gorm:"type:decimal(12,2);not null;comment:定金金额" json:"deposit_amount"`
	Status      string     `gorm:"type:varchar(20);default:PENDING;index;comment:PENDING,DEPOSITED,CONFIRMED,COMPLETED,CANCELLED" json:"status"`
	Note        string     `gorm:"type:text" json:"note,omitempty"`
	ConfirmedAt *time.Time `gorm:"comment:确认时间" json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// 关联关系
	Buyer          User           `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Listing        Listing        `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	OrderDetails   []OrderDetail  `gorm:"foreignKey:OrderID" json:"order_details,omitempty"`
	OrderAddresses []OrderAddress `gorm:"foreignKey:OrderID" json:"order_addresses,omitempty"`
	Payments       []Payment      `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

// OrderDetail 订单明细，下单时的价格快照，创建后不再修改
type OrderDetail struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID    string    `gorm:"type:varchar(36);index;not null" json:"order_id"`
	ListingID  string    `gorm:"type:varchar(36);index;not null" json:"listing_id"`
	VehicleID  string    `gorm:"type:varchar(36);not null" json:"vehicle_id"`
	Quantity   int       `gorm:"default:1;not null" json:"quantity"`
	UnitPrice  float64   `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice float64   `gorm:"type:decimal(12,2);not null" json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`

	// 关联关系
	Order   Order   `gorm:"foreignKey:OrderID" json:"-"`
	Listing Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	Vehicle Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
}

// OrderAddress 订单收货地址关联
type OrderAddress struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID     string    `gorm:"type:varchar(36);index;not null" json:"order_id"`
	AddressID   string    `gorm:"type:varchar(36);not null" json:"address_id"`
	AddressType string    `gorm:"type:varchar(20);default:SHIPPING" json:"address_type"`
	CreatedAt   time.Time `json:"created_at"`

	// 关联关系
	Address Address `gorm:"foreignKey:AddressID" json:"address,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

func (OrderDetail) TableName() string {
	return "order_details"
}

func (OrderAddress) TableName() string {
	return "order_addresses"
}

// BeforeCreate 创建前钩子
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = generateUUID()
	}
	return nil
}

func (od *OrderDetail) BeforeCreate(tx *gorm.DB) error {
	if od.ID == "" {
		od.ID = generateUUID()
	}
	return nil
}

func (oa *OrderAddress) BeforeCreate(tx *gorm.DB) error {
	if oa.ID == "" {
		oa.ID = generateUUID()
	}
	return nil
}
