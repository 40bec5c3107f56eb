package router

import (
	"github.com/gin-gonic/gin"

	"github.com/khaznati/chunkvault/pkg/internal/handle"
)

// RegisterTrashRoutes 注册回收站相关路由.
func RegisterTrashRoutes(g *gin.RouterGroup) {
	trashRoutes := g.Group("/trash")
	{
		trashRoutes.GET("", handle.ListTrash)
		trashRoutes.DELETE("", handle.EmptyTrash)

		fileGroup := trashRoutes.Group("/:id")
		{
			fileGroup.POST("/restore", handle.RestoreFile)
			fileGroup.DELETE("", handle.DeletePermanently)
		}
	}
}
