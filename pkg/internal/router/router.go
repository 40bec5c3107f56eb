// Package router 将 HTTP 路径绑定到 handle 包的处理器.
package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Register 在引擎上注册全部 API 路由，统一挂在 /api/v1 下.
// 下载与上传流路径跳过 gzip，分块内容通常已压缩过.
func Register(engine *gin.Engine) {
	api := engine.Group("/api/v1")
	api.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{`.*/download$`, `.*/upload/.*`})))

	RegisterFilesRoutes(api)
	RegisterFoldersRoutes(api)
	RegisterTrashRoutes(api)
	RegisterHealthCheckRoute(api)
}
