package models

import (
	"time"

	"gorm.io/gorm"
)

// Cart 购物车模型，每个买家一个
type Cart struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BuyerID   string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"buyer_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联关系
	Buyer User       `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Items []CartItem `gorm:"foreignKey:CartID" json:"items,omitempty"`
}

// CartItem 购物车条目
type CartItem struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CartID    string    `gorm:"type:varchar(36);index;not null" json:"cart_id"`
	ListingID string    `gorm:"type:varchar(36);index;not null" json:"listing_id"`
	Quantity  int       `gorm:"default:1;not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联关系
	Cart    Cart    `gorm:"foreignKey:CartID" json:"-"`
	Listing Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
}

// TableName 指定表名
func (Cart) TableName() string {
	return "carts"
}

func (CartItem) TableName() string {
	return "cart_items"
}

// BeforeCreate 创建前钩子
func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (ci *CartItem) BeforeCreate(tx *gorm.DB) error {
	if ci.ID == "" {
		ci.ID = generateUUID()
	}
	return nil
}
