package controllers

import (
	"net/http"
	"strings"

	"github.com/beego/beego/v2/server/web"

	apperrors "github.com/JeremiasMeza/IA-Rag/internal/errors"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError 按错误分类映射HTTP状态码
// 基础设施未就绪503，校验错误400，其余500
func (c *BaseController) JSONAppError(err error) {
	appErr := apperrors.GetAppError(err)
	c.JSON(appErr.HTTPCode, map[string]interface{}{
		"success": false,
		"error":   appErr.Message,
		"code":    appErr.Code,
	})
}

// getSessionID 获取请求的会话标识（租户ID）
// 依次尝试表单/查询参数、X-Session-Id头
func (c *BaseController) getSessionID() (string, bool) {
	if sessionID := strings.TrimSpace(c.GetString("session_id")); sessionID != "" {
		return sessionID, true
	}
	if sessionID := strings.TrimSpace(c.Ctx.Input.Header("X-Session-Id")); sessionID != "" {
		return sessionID, true
	}
	return "", false
}
