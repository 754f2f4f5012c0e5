package response

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"

	"github.com/xxxsen/cvagent/internal/pkg/errcode"
	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
)

type codeErr struct {
	code uint32
	msg  string
}

func (e codeErr) Error() string {
	return e.msg
}

func (e codeErr) Code() uint32 {
	return e.code
}

func AsCodeErr(code uint32, msg string) error {
	return codeErr{code: code, msg: msg}
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, AsCodeErr(uint32(code), message))
}

// Fail writes the envelope for err using the code CodeOf picks.
func Fail(c *gin.Context, err error) {
	code, msg := CodeOf(err)
	Error(c, code, msg)
}

// CodeOf maps a domain error onto the numeric code sent to API clients.
func CodeOf(err error) (int, string) {
	switch {
	case errors.Is(err, appErr.ErrInvalid), errors.Is(err, appErr.ErrSchemaValidation):
		return errcode.ErrInvalid, "invalid request"
	case errors.Is(err, appErr.ErrUnauthorized):
		return errcode.ErrUnauthorized, "unauthorized"
	case errors.Is(err, appErr.ErrTooMany):
		return errcode.ErrTooMany, "too many requests"
	case errors.Is(err, appErr.ErrEmptyIndex):
		return errcode.ErrNotReady, "index not ready"
	case errors.Is(err, appErr.ErrToolLoopExceeded):
		return errcode.ErrToolLoopExceeded, "tool call rounds exceeded"
	case errors.Is(err, appErr.ErrModelService), errors.Is(err, appErr.ErrEmbeddingService):
		return errcode.ErrModelService, "model service failed"
	default:
		return errcode.ErrInternal, "internal error"
	}
}
