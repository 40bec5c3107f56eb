// Package handle 实现 HTTP 请求处理器，负责参数解析与服务层错误到状态码的映射.
package handle

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/khaznati/chunkvault/pkg/internal/backend"
	"github.com/khaznati/chunkvault/pkg/internal/service"
	"github.com/khaznati/chunkvault/pkg/rule"
)

// checkUser 提取用户标识：Header 优先 -> query 参数 -> 非 Release 模式下的默认值.
func checkUser(c *gin.Context) (string, error) {
	user := c.GetHeader("X-User")
	if user == "" {
		user = c.Query("user")
	}

	if user == "" && gin.Mode() != gin.ReleaseMode {
		user = "test-user"
	}

	user = strings.TrimSpace(user)

	if err := rule.ValidateVar(user, "required,max=255"); err != nil {
		return "", err
	}

	return user, nil
}

// folderIDQuery 解析可选的 folder_id 查询参数，缺省表示根目录.
func folderIDQuery(c *gin.Context) (*uint, error) {
	raw := c.Query("folder_id")
	if raw == "" {
		return nil, nil
	}

	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, err
	}

	fid := uint(id)

	return &fid, nil
}

// pathID 解析路径里的数字 id.
func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}

	return uint(id), nil
}

// writeServiceError 把服务层错误映射为 HTTP 响应.
func writeServiceError(c *gin.Context, err error) {
	var ve validator.ValidationErrors

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrQuotaExceeded):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrIncomplete), errors.Is(err, service.ErrChecksumMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, backend.ErrThrottled):
		if wait, ok := backend.RetryAfterOf(err); ok && wait > 0 {
			c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())))
		}

		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, backend.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
