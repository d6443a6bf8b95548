package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/banking-ledger-saga/internal/logger"
)

// Recovery turns a handler panic into a logged 500 carrying the correlation ID.
// http.ErrAbortHandler is passed through so net/http can drop the connection.
func Recovery(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			log := logger.FromContext(c.Request.Context(), base)
			log.Error("Panic recovered",
				"error", r,
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"user_id", userID(c),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
		}()

		c.Next()
	}
}

func userID(c *gin.Context) string {
	if p := GetPrincipal(c); p != nil {
		return p.UserID
	}
	return ""
}
