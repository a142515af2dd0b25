package models

import (
	"time"

	"gorm.io/gorm"
)

// Address 收货地址模型（地址簿 CRUD 由外部模块负责，下单时只做归属校验）
type Address struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Line      string    `gorm:"type:varchar(255);not null;comment:详细地址" json:"line"`
	Ward      string    `gorm:"type:varchar(100)" json:"ward,omitempty"`
	District  string    `gorm:"type:varchar(100)" json:"district,omitempty"`
	City      string    `gorm:"type:varchar(100)" json:"city,omitempty"`
	IsDefault bool      `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Address) TableName() string {
	return "addresses"
}

// BeforeCreate 创建前钩子
func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = generateUUID()
	}
	return nil
}
