package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/khaznati/chunkvault/pkg/context"
	"github.com/khaznati/chunkvault/pkg/internal/storage"
)

// StorageMiddleware 把存储管理器挂到请求 context 上，下游 handler 通过 context 取用.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithStorageManager(c.Request.Context(), manager)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
