package router

import (
	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JeremiasMeza/IA-Rag/app/controllers"
)

// Init registers all routes. Must be called after bootstrap.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")

	documentController := &controllers.DocumentController{}
	web.Router("/api/documents", documentController, "get:List")
	web.Router("/api/documents/upload", documentController, "post:Upload")
	web.Router("/api/documents/query", documentController, "post:Query")
	web.Router("/api/documents/:filename", documentController, "delete:Delete")

	web.Router("/api/sessions/:session_id", &controllers.SessionController{}, "delete:Delete")
	web.Router("/api/admin/reset", &controllers.AdminController{}, "post:Reset")

	// Prometheus指标
	web.Handler("/metrics", promhttp.Handler())
}
