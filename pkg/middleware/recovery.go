package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/carwash-pricing/pkg/common"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into the standard 500 envelope and logs the
// stack with the request's correlation id.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.WithContext(c.Request.Context()).Error("handler panicked",
			zap.String("panic", fmt.Sprint(recovered)),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Stack("stack"),
		)
		common.AppErrorResponse(c, common.NewInternalError("internal server error", nil))
		c.Abort()
	})
}
