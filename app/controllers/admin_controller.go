package controllers

import (
	"github.com/JeremiasMeza/IA-Rag/app/bootstrap"
)

// AdminController 运维接口
type AdminController struct {
	BaseController
}

// POST /api/admin/reset
// 清空索引、上传存储和查询缓存，仅用于测试和运维场景
func (c *AdminController) Reset() {
	if err := bootstrap.GetApp().Manager().ResetAll(c.Ctx.Request.Context()); err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]string{"status": "reset"})
}
