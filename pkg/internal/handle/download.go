package handle

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/khaznati/chunkvault/pkg/internal/service"
	"github.com/khaznati/chunkvault/pkg/log"
)

// Download 下载文件内容，分块按序重组后直接写入响应流.
// GET /api/v1/files/:id/download
func Download(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	fileID := c.Param("id")
	svc := service.NewFileService(c.Request.Context())

	// 先取元数据，重组开始后无法再改状态码
	info, err := svc.GetFile(c.Request.Context(), user, fileID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if info.IsTrashed {
		writeServiceError(c, service.ErrNotFound)
		return
	}

	contentType := info.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name))
	c.Status(http.StatusOK)

	if _, err := svc.Download(c.Request.Context(), user, fileID, c.Writer); err != nil {
		log.Logger().Error().Err(err).Str("file", fileID).Msg("download failed")

		// 响应可能已写了一部分，只能断开连接
		if c.Writer.Written() {
			c.Abort()
			return
		}

		// 还没写出任何字节，撤掉下载头改发错误响应
		c.Header("Content-Length", "")
		c.Header("Content-Disposition", "")
		writeServiceError(c, err)
	}
}
