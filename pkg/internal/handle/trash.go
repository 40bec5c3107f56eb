package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khaznati/chunkvault/pkg/internal/service"
)

// TrashFile 把文件移入回收站.
// POST /api/v1/files/:id/trash
func TrashFile(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	if err := svc.TrashFile(c.Request.Context(), user, c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListTrash 列出回收站内容.
// GET /api/v1/trash
func ListTrash(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	files, err := svc.ListTrash(c.Request.Context(), user)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// RestoreFile 从回收站恢复文件.
// POST /api/v1/trash/:id/restore
func RestoreFile(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.RestoreFile(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// DeletePermanently 永久删除回收站中的文件.
// DELETE /api/v1/trash/:id
func DeletePermanently(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	if err := svc.DeletePermanently(c.Request.Context(), user, c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// EmptyTrash 清空回收站.
// DELETE /api/v1/trash
func EmptyTrash(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	result, err := svc.EmptyTrash(c.Request.Context(), user)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
