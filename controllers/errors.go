package controllers

import (
	"errors"

	"secondcycle_go/middleware"
	"secondcycle_go/services"
	"secondcycle_go/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError 把服务层错误映射为统一响应
// 处理器只关心自己的特例（违禁词、购物车校验等），其余都走这里
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.NotFound(c, "")
	case errors.Is(err, services.ErrForbidden):
		utils.Forbidden(c, "")
	case errors.Is(err, services.ErrInvalidOwnership):
		utils.Error(c, utils.CodeError, "不能购买自己发布的商品")
	case errors.Is(err, services.ErrInvalidState):
		utils.Error(c, utils.CodeError, "当前状态不允许该操作")
	case errors.Is(err, services.ErrConflict):
		utils.Error(c, utils.CodeConflict, "该商品已有进行中的订单")
	case errors.Is(err, services.ErrCartEmpty):
		utils.Error(c, utils.CodeError, "购物车为空")
	default:
		middleware.ErrorLogger("unhandled service error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		utils.InternalError(c, "")
	}
}

// bindRequest 绑定并校验必填请求体，失败时直接写响应
// 返回false表示已经响应，处理器应当return
func bindRequest(c *gin.Context, obj interface{}) bool {
	if err := utils.BindAndValidate(c, obj); err != nil {
		var ve *utils.ValidationError
		if errors.As(err, &ve) {
			utils.ErrorWithData(c, utils.CodeValidationError, "参数验证失败", gin.H{
				"errors": ve.Errors,
			})
			return false
		}
		utils.Error(c, utils.CodeValidationError, err.Error())
		return false
	}
	return true
}
