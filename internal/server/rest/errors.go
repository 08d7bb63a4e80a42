package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/accountsvc/internal/common"
	"github.com/dmitrijs2005/accountsvc/internal/logging"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Errors  []common.FieldError `json:"errors,omitempty"`
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: the first target matched with errors.Is wins.
var errorTable = []errorMapping{
	{common.ErrValidation, http.StatusBadRequest, "ValidationFailed", "validation failed"},
	{common.ErrorUnauthorized, http.StatusUnauthorized, "AuthFailed", "invalid email or password"},
	{common.ErrMissingToken, http.StatusUnauthorized, "MissingToken", "access token is missing"},
	{common.ErrTokenExpired, http.StatusUnauthorized, "ExpiredToken", "access token has expired"},
	{common.ErrInvalidToken, http.StatusUnauthorized, "InvalidToken", "access token is invalid"},
	{common.ErrUserNotFound, http.StatusBadRequest, "UserNotFound", "user not found"},
	{common.ErrorNotFound, http.StatusNotFound, "NotFound", "not found"},
	{common.ErrStoreUnavailable, http.StatusInternalServerError, "StoreUnavailable", "failed to process the request"},
}

var internalMapping = errorMapping{nil, http.StatusInternalServerError, "Internal", "failed to process the request"}

func mapError(err error) (int, ErrorResponse) {
	m := internalMapping
	for _, candidate := range errorTable {
		if errors.Is(err, candidate.target) {
			m = candidate
			break
		}
	}

	resp := ErrorResponse{Code: m.code, Message: m.message}

	var ve *common.ValidationError
	if errors.As(err, &ve) {
		resp.Errors = ve.Fields
	}
	return m.status, resp
}

func abortWithError(c *gin.Context, err error) {
	status, resp := mapError(err)
	c.AbortWithStatusJSON(status, resp)
}

// writeError logs server-side failures and replies with the mapped status.
func writeError(c *gin.Context, l logging.Logger, err error) {
	status, _ := mapError(err)
	if status >= http.StatusInternalServerError {
		l.Error(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "error", err)
	}
	abortWithError(c, err)
}
