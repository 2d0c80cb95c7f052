package controllers

import (
	"github.com/JeremiasMeza/IA-Rag/app/bootstrap"
)

// RootController 根控制器
type RootController struct {
	BaseController
}

func (c *RootController) Index() {
	c.JSONSuccess(map[string]string{"message": "Document Retrieval Service API"})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
}

// Health 返回服务状态，索引降级或向量化后端未就绪也在这里暴露
func (c *HealthController) Health() {
	app := bootstrap.GetApp()
	manager := app.Manager()

	status := "healthy"
	if !manager.Ready() {
		status = "degraded"
	}

	queryCache := app.QueryCache()
	hits, misses := queryCache.Stats()

	c.JSONSuccess(map[string]interface{}{
		"status":         status,
		"index_state":    manager.State().String(),
		"embedder_ready": app.EmbedderReady(),
		"cache": map[string]interface{}{
			"enabled": queryCache.Enabled(),
			"hits":    hits,
			"misses":  misses,
		},
	})
}
