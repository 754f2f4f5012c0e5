package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/cvagent/internal/middleware"
	"github.com/xxxsen/cvagent/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("subject", middleware.SubjectOf(c)),
		zap.Error(err),
	)
	response.Fail(c, err)
}

// scopedThread keeps threads of different token subjects apart. The subject is
// length-prefixed so no subject/thread pair can spell another pair's key.
func scopedThread(c *gin.Context, threadID string) string {
	subject := middleware.SubjectOf(c)
	if subject == "" {
		return threadID
	}
	return strconv.Itoa(len(subject)) + ":" + subject + ":" + threadID
}
