package controllers

import (
	"net/http"

	"github.com/JeremiasMeza/IA-Rag/app/bootstrap"
)

// SessionController 会话（租户）级别操作
type SessionController struct {
	BaseController
}

// DELETE /api/sessions/:session_id
func (c *SessionController) Delete() {
	sessionID := c.Ctx.Input.Param(":session_id")
	if sessionID == "" {
		c.JSONError(http.StatusBadRequest, "session_id is required")
		return
	}

	if err := bootstrap.GetApp().Manager().DeleteTenant(c.Ctx.Request.Context(), sessionID); err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]string{"session_id": sessionID, "status": "deleted"})
}
