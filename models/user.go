package models

import (
	"time"

	"gorm.io/gorm"
)

// 用户角色常量
const (
	RoleBuyer  = "BUYER"
	RoleSeller = "SELLER"
	RoleAdmin  = "ADMIN"
)

// User 用户模型
// 注册/OTP/邮箱验证由认证服务负责，这里只保留交易链路需要的字段
type User struct {
	ID        string         `gorm:"type:varchar(36);primaryKey;comment:用户ID (UUID)" json:"id"`
	FullName  string         `gorm:"type:varchar(100);not null;comment:姓名" json:"full_name"`
	Email     string         `gorm:"type:varchar(100);uniqueIndex;not null;comment:邮箱" json:"email"`
	Phone     string         `gorm:"type:varchar(20);comment:手机号" json:"phone,omitempty"`
	Role      string         `gorm:"type:varchar(20);default:BUYER;comment:角色: BUYER,SELLER,ADMIN" json:"role"`
	Status    int            `gorm:"default:1;comment:状态: 1=正常, 0=禁用" json:"status"`
	CreatedAt time.Time      `gorm:"comment:创建时间" json:"created_at"`
	UpdatedAt time.Time      `gorm:"comment:更新时间" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间" json:"-"` // 软删除

	// 关联关系
	Listings      []Listing      `gorm:"foreignKey:SellerID" json:"listings,omitempty"`
	Orders        []Order        `gorm:"foreignKey:BuyerID" json:"orders,omitempty"`
	Addresses     []Address      `gorm:"foreignKey:UserID" json:"addresses,omitempty"`
	Notifications []Notification `gorm:"foreignKey:UserID" json:"notifications,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 创建前钩子
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}
