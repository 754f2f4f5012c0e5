package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
	"github.com/xxxsen/cvagent/internal/pkg/jwt"
	"github.com/xxxsen/cvagent/internal/pkg/response"
)

const ContextSubjectKey = "subject"

// JWTAuth requires a bearer token signed with secret. An empty secret turns
// authentication off, leaving every request without a subject.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Fail(c, appErr.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(strings.TrimSpace(parts[1]), secret)
		if err != nil {
			logutil.GetLogger(c.Request.Context()).Debug("token rejected", zap.Error(err))
			response.Fail(c, appErr.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Set(ContextSubjectKey, claims.Subject)
		c.Next()
	}
}

func SubjectOf(c *gin.Context) string {
	v, _ := c.Get(ContextSubjectKey)
	s, _ := v.(string)
	return s
}
