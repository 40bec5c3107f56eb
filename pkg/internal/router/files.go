package router

import (
	"github.com/gin-gonic/gin"

	"github.com/khaznati/chunkvault/pkg/internal/handle"
)

// RegisterFilesRoutes 注册文件操作相关路由.
func RegisterFilesRoutes(g *gin.RouterGroup) {
	filesRoutes := g.Group("/files")
	{
		// 列表
		filesRoutes.GET("", handle.ListFiles)

		// 两段式上传：先建会话，再推内容流
		uploadGroup := filesRoutes.Group("/upload")
		{
			uploadGroup.POST("", handle.InitUpload)
			uploadGroup.PUT("/:session", handle.StreamUpload)
		}

		// 单个文件操作
		singleGroup := filesRoutes.Group("/:id")
		{
			singleGroup.GET("", handle.GetFile)
			singleGroup.GET("/download", handle.Download)
			singleGroup.POST("/rename", handle.RenameFile)
			singleGroup.POST("/move", handle.MoveFile)
			singleGroup.POST("/trash", handle.TrashFile)
		}
	}

	// 配额与用量
	g.GET("/usage", handle.Usage)
}
