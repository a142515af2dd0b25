package utils

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"secondcycle_go/config"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`            // 业务状态码
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据
	Error   string      `json:"error,omitempty"` // 错误信息
}

// PageResponse 分页响应结构
type PageResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"` // 总数
	Page    int         `json:"page"`  // 当前页
	Limit   int         `json:"limit"` // 每页数量
}

// 业务状态码常量
const (
	CodeSuccess             = 20000 // 成功
	CodeError               = 40000 // 错误
	CodeUnauthorized        = 40100 // 未授权
	CodeForbidden           = 40300 // 禁止访问
	CodeNotFound            = 40400 // 资源不存在
	CodeConflict            = 40900 // 资源冲突
	CodeValidationError     = 42200 // 验证错误
	CodeInternalServerError = 50000 // 内部错误
	CodeUpstreamError       = 50200 // 上游服务错误
)

// 业务状态码对应的消息
var codeMessages = map[int]string{
	CodeSuccess:             "操作成功",
	CodeError:               "操作失败",
	CodeUnauthorized:        "未授权，请重新登录",
	CodeForbidden:           "禁止访问",
	CodeNotFound:            "资源不存在",
	CodeConflict:            "资源已被占用",
	CodeValidationError:     "参数验证失败",
	CodeInternalServerError: "服务器内部错误",
	CodeUpstreamError:       "上游服务异常",
}

// GetCodeMessage 获取状态码对应的消息
func GetCodeMessage(code int) string {
	if msg, exists := codeMessages[code]; exists {
		return msg
	}
	return "未知错误"
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: GetCodeMessage(CodeSuccess),
		Data:    data,
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = GetCodeMessage(code)
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithData 带数据的错误响应
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	if message == "" {
		message = GetCodeMessage(code)
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = GetCodeMessage(CodeUnauthorized)
	}
	c.JSON(http.StatusUnauthorized, Response{
		Code:    CodeUnauthorized,
		Message: message,
	})
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = GetCodeMessage(CodeForbidden)
	}
	c.JSON(http.StatusForbidden, Response{
		Code:    CodeForbidden,
		Message: message,
	})
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = GetCodeMessage(CodeNotFound)
	}
	c.JSON(http.StatusNotFound, Response{
		Code:    CodeNotFound,
		Message: message,
	})
}

// InternalError 内部错误响应
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = GetCodeMessage(CodeInternalServerError)
	}
	c.JSON(http.StatusInternalServerError, Response{
		Code:    CodeInternalServerError,
		Message: message,
	})
}

// Paginate 分页响应
func Paginate(c *gin.Context, data interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, PageResponse{
		Code:    CodeSuccess,
		Message: GetCodeMessage(CodeSuccess),
		Data:    data,
		Total:   total,
		Page:    page,
		Limit:   limit,
	})
}

// APIRateLimit API限流（使用Redis）
func APIRateLimit(c *gin.Context, userID string, limit int, duration time.Duration) bool {
	if config.RedisClient == nil {
		return true // Redis不可用时，不限流
	}

	ctx := context.Background()
	key := fmt.Sprintf("ratelimit:api:%s", userID)

	// 使用Redis的INCR和EXPIRE实现限流
	count, err := config.RedisClient.Incr(ctx, key).Result()
	if err != nil {
		return true
	}

	// 如果是第一次请求，设置过期时间
	if count == 1 {
		config.RedisClient.Expire(ctx, key, duration)
	}

	return count <= int64(limit)
}
