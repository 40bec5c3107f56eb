package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khaznati/chunkvault/pkg/internal/service"
	"github.com/khaznati/chunkvault/pkg/internal/types"
)

// CreateFolder 新建文件夹.
// POST /api/v1/folders
func CreateFolder(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	var req types.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.CreateFolder(c.Request.Context(), user, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

// ListRoot 列出根目录的直接子项.
// GET /api/v1/folders
func ListRoot(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	contents, err := svc.ListFolder(c.Request.Context(), user, nil)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, contents)
}

// ListFolder 列出某文件夹的直接子项.
// GET /api/v1/folders/:id
func ListFolder(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	contents, err := svc.ListFolder(c.Request.Context(), user, &id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, contents)
}

// RenameFolder 重命名文件夹.
// POST /api/v1/folders/:id/rename
func RenameFolder(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
		return
	}

	var req types.RenameFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.RenameFolder(c.Request.Context(), user, id, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// MoveFolder 移动文件夹.
// POST /api/v1/folders/:id/move
func MoveFolder(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
		return
	}

	var req types.MoveFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.MoveFolder(c.Request.Context(), user, id, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// DeleteFolder 删除空文件夹.
// DELETE /api/v1/folders/:id
func DeleteFolder(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	if err := svc.DeleteFolder(c.Request.Context(), user, id); err != nil {
		writeServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
