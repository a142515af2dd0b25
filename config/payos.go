package config

import (
	"time"
)

// PayOSConfig 支付网关配置结构
type PayOSConfig struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
	FrontendURL string
	Timeout     time.Duration
}

// GetPayOSConfig 从环境变量获取支付网关配置
func GetPayOSConfig() *PayOSConfig {
	return &PayOSConfig{
		BaseURL:     GetEnv("PAYOS_BASE_URL", "https://api-merchant.payos.vn"),
		ClientID:    GetEnv("PAYOS_CLIENT_ID", ""),
		APIKey:      GetEnv("PAYOS_API_KEY", ""),
		ChecksumKey: GetEnv("PAYOS_CHECKSUM_KEY", ""),
		FrontendURL: GetEnv("FRONTEND_URL", "http://localhost:3000"),
		// 对外请求必须有超时，超时按网关错误处理
		Timeout: GetEnvDuration("PAYOS_TIMEOUT", 10*time.Second),
	}
}
