package models

import (
	"time"

	"gorm.io/gorm"
)

// Vehicle 车辆模型
// 与 Listing 一对一，价格和描述字段在审核时参与违禁词扫描
type Vehicle struct {
	ID          string         `gorm:"type:varchar(36);primaryKey;comment:车辆ID (UUID)" json:"id"`
	SellerID    string         `gorm:"type:varchar(36);index;not null;comment:卖家ID" json:"seller_id"`
	Brand       string         `gorm:"type:varchar(100);not null;index;comment:品牌" json:"brand"`
	Model       string         `gorm:"type:varchar(100);not null;comment:型号" json:"model"`
	Year        int            `gorm:"comment:出厂年份" json:"year"`
	Price       float64        `gorm:"type:decimal(12,2);not null;comment:价格" json:"price"`
	Description string         `gorm:"type:text;comment:描述" json:"description,omitempty"`
	FrameSerial string         `gorm:"type:varchar(100);comment:车架号" json:"frame_serial,omitempty"`
	Condition   string         `gorm:"type:varchar(20);comment:车况" json:"condition,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// 关联关系
	Seller User `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

// TableName 指定表名
func (Vehicle) TableName() string {
	return "vehicles"
}

// DisplayName 返回“品牌 型号”，用于通知消息和购物车校验提示
func (v *Vehicle) DisplayName() string {
	return v.Brand + " " + v.Model
}

// BeforeCreate 创建前钩子
func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = generateUUID()
	}
	return nil
}
