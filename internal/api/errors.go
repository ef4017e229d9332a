package api

import (
	"fmt"
	"net/http"

	"accounts/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorBody 统一的错误响应结构；Error 与 Stack 只在开发模式下返回
type ErrorBody struct {
	Status  string     `json:"status"`
	Message string     `json:"message"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Stack   string     `json:"stack,omitempty"`
}

// ErrorInfo 开发模式下附带的原始错误信息
type ErrorInfo struct {
	Type        string `json:"type"`
	Kind        string `json:"kind"`
	StatusCode  int    `json:"statusCode"`
	Operational bool   `json:"operational"`
	Cause       string `json:"cause"`
}

// ErrorHandler 错误处理中间件：处理函数通过 c.Error 上报错误，这里统一写响应
func ErrorHandler(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		writeError(c, c.Errors.Last().Err, production)
	}
}

// RecoveryHandler 将 panic 交给统一的错误响应
func RecoveryHandler(production bool) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		err, ok := recovered.(error)
		if !ok {
			err = fmt.Errorf("panic: %v", recovered)
		}
		writeError(c, err, production)
		c.Abort()
	}
}

// NotFoundHandler 未匹配到路由时返回 404
func NotFoundHandler(c *gin.Context) {
	_ = c.Error(apperr.NotFound(fmt.Sprintf("Can't find %s on this server!", c.Request.URL.Path)))
}

func writeError(c *gin.Context, err error, production bool) {
	appErr := apperr.Normalize(err)
	body := ErrorBody{
		Status:  appErr.Status(),
		Message: appErr.Message,
	}

	entry := logrus.WithError(err).WithFields(logrus.Fields{
		"status":     appErr.StatusCode,
		"kind":       appErr.Kind,
		"path":       c.Request.URL.Path,
		"request_id": c.GetString(requestIDContextKey),
	})
	if appErr.StatusCode >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	if production {
		if !appErr.Operational {
			body.Status = apperr.StatusError
			body.Message = apperr.GenericMessage
		}
	} else {
		body.Error = &ErrorInfo{
			Type:        fmt.Sprintf("%T", appErr.Unwrap()),
			Kind:        string(appErr.Kind),
			StatusCode:  appErr.StatusCode,
			Operational: appErr.Operational,
			Cause:       err.Error(),
		}
		body.Stack = appErr.Stack()
	}

	c.AbortWithStatusJSON(appErr.StatusCode, body)
}
