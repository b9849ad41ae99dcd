package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/catalog-backend/internal/data/aggregates"
	"github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/platform/apierr"
	"github.com/yungbote/catalog-backend/internal/platform/ctxutil"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

type APIError struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr classifies err and writes the matching envelope. Invalid catalog
// state is logged and reported as an opaque 500.
func RespondErr(c *gin.Context, log *logger.Logger, err error) {
	var re *catalog.RuleError
	switch {
	case err == nil:
		RespondError(c, http.StatusInternalServerError, "internal", nil)
	case asRule(err, &re):
		status := http.StatusUnprocessableEntity
		switch {
		case re.Code.NotFound():
			status = http.StatusNotFound
		case re.Code == catalog.CodeWrongState, re.Code == catalog.CodeDuplicateKey,
			re.Code == catalog.CodeDuplicateCode, re.Code == catalog.CodeDuplicateLookupType:
			status = http.StatusConflict
		}
		c.JSON(status, ErrorEnvelope{Error: APIError{Message: re.Message, Code: string(re.Code), Params: re.Params}})
	case catalog.IsInvalidState(err):
		if log != nil {
			log.Error("invalid catalog state", "path", c.FullPath(), "request_id", ctxutil.RequestID(c.Request.Context()), "error", err)
		}
		RespondError(c, http.StatusInternalServerError, "internal", errInternal)
	default:
		if ae, ok := apierr.As(err); ok {
			RespondError(c, ae.Status, ae.Code, ae.Err)
			return
		}
		switch aggregates.CodeOf(err) {
		case aggregates.CodeNotFound:
			RespondError(c, http.StatusNotFound, "not_found", err)
		case aggregates.CodeConflict:
			RespondError(c, http.StatusConflict, "conflict", err)
		case aggregates.CodeValidation, aggregates.CodePreconditionFailed:
			RespondError(c, http.StatusUnprocessableEntity, string(aggregates.CodeOf(err)), err)
		case aggregates.CodeRetryable:
			RespondError(c, http.StatusServiceUnavailable, "retryable", err)
		default:
			if log != nil {
				log.Error("request failed", "path", c.FullPath(), "request_id", ctxutil.RequestID(c.Request.Context()), "error", err)
			}
			RespondError(c, http.StatusInternalServerError, "internal", errInternal)
		}
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
