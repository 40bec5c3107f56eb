package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khaznati/chunkvault/pkg/internal/service"
	"github.com/khaznati/chunkvault/pkg/internal/types"
	"github.com/khaznati/chunkvault/pkg/log"
)

// InitUpload 创建上传会话.
// POST /api/v1/files/upload
func InitUpload(c *gin.Context) {
	logger := log.Logger()

	var req types.InitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn().Err(err).Msg("invalid upload request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	session, err := svc.InitUpload(c.Request.Context(), user, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	logger.Info().
		Str("user", user).
		Str("session", session.SessionID).
		Str("name", req.Name).
		Int64("size", req.Size).
		Msg("upload session created")

	c.JSON(http.StatusOK, session)
}

// StreamUpload 接收文件内容流并完成上传.
// PUT /api/v1/files/upload/:session
func StreamUpload(c *gin.Context) {
	sessionID := c.Param("session")

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.StreamUpload(c.Request.Context(), sessionID, c.Request.Body)
	if err != nil {
		log.Logger().Warn().Err(err).Str("session", sessionID).Msg("upload failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusCreated, info)
}
