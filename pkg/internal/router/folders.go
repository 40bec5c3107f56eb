package router

import (
	"github.com/gin-gonic/gin"

	"github.com/khaznati/chunkvault/pkg/internal/handle"
)

// RegisterFoldersRoutes 注册文件夹相关路由.
func RegisterFoldersRoutes(g *gin.RouterGroup) {
	foldersRoutes := g.Group("/folders")
	{
		foldersRoutes.POST("", handle.CreateFolder)
		foldersRoutes.GET("", handle.ListRoot)

		singleGroup := foldersRoutes.Group("/:id")
		{
			singleGroup.GET("", handle.ListFolder)
			singleGroup.POST("/rename", handle.RenameFolder)
			singleGroup.POST("/move", handle.MoveFolder)
			singleGroup.DELETE("", handle.DeleteFolder)
		}
	}
}
