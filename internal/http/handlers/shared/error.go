package shared

import (
	"github.com/phacogen-next/internal/http/response"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 按消息 key 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	respond(c, response.NewAppError(code, key, err))
}

// RespondErrorWithMsg 返回自定义消息错误响应。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	respond(c, response.WrapError(code, msg, err))
}

func respond(c *gin.Context, appErr *response.AppError) {
	if appErr.Err != nil {
		log := RequestLog(c).With("code", appErr.Code, "message", appErr.Message, "error", appErr.Err)
		if appErr.Internal() {
			log.Errorw("handler_error")
		} else {
			log.Warnw("handler_error")
		}
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondServiceError 将 service 层哨兵错误映射为响应码
// fallbackKey 用于无法识别的内部错误
func RespondServiceError(c *gin.Context, err error, fallbackKey string) {
	switch {
	case service.IsNotFound(err):
		RespondErrorWithMsg(c, response.CodeNotFound, err.Error(), err)
	case service.IsValidation(err):
		RespondErrorWithMsg(c, response.CodeBadRequest, err.Error(), err)
	case service.IsConflict(err):
		RespondError(c, response.CodeConflict, "error.order_conflict", err)
	default:
		RespondError(c, response.CodeInternal, fallbackKey, err)
	}
}
