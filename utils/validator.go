package utils

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validator 验证器结构
type Validator struct {
	validator *validator.Validate
}

// NewValidator 创建新的验证器实例
func NewValidator() *Validator {
	return &Validator{
		validator: validate,
	}
}

// Validate 验证结构体
func (v *Validator) Validate(obj interface{}) error {
	if err := v.validator.Struct(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// ValidationError 验证错误结构
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("Validation failed: %v", ve.Errors)
}

// formatValidationErrors 格式化验证错误信息
func formatValidationErrors(errs []validator.FieldError) error {
	errorMap := make(map[string]string)
	for _, err := range errs {
		errorMap[err.Field()] = getErrorMessage(err.Field(), err.Tag(), err.Param())
	}
	return &ValidationError{Errors: errorMap}
}

// getErrorMessage 获取错误消息
func getErrorMessage(field, tag, param string) string {
	// 中文错误消息映射
	errorMessages := map[string]string{
		"required": "%s不能为空",
		"min":      "%s长度不能小于%s",
		"max":      "%s长度不能大于%s",
		"gt":       "%s必须大于%s",
		"gte":      "%s必须大于或等于%s",
		"oneof":    "%s必须是以下值之一: %s",
		"numeric":  "%s必须是数字",
	}

	fieldNames := map[string]string{
		"brand":      "品牌",
		"model":      "型号",
		"year":       "出厂年份",
		"price":      "价格",
		"quantity":   "数量",
		"listing_id": "发布ID",
		"action":     "操作类型",
		"note":       "备注",
	}

	fieldName := fieldNames[field]
	if fieldName == "" {
		fieldName = field
	}

	template, exists := errorMessages[tag]
	if !exists {
		return fmt.Sprintf("%s验证失败", fieldName)
	}

	return fmt.Sprintf(template, fieldName, param)
}

// BindAndValidate 绑定并验证请求
func BindAndValidate(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return err
	}

	v := NewValidator()
	if err := v.Validate(obj); err != nil {
		return err
	}

	return nil
}
