package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/docshare/identity-api/internal/core/domain"
)

// Client-facing messages. Store internals never reach the body.
const (
	msgWrongCredential = "wrong email or password"
	msgTryAgain        = "something went wrong, please try again"
)

// errorResponse is the single-message error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// fieldErrorsResponse is the field-scoped error envelope.
type fieldErrorsResponse struct {
	Errors []domain.FieldError `json:"errors"`
}

type classification struct {
	status  int
	message string
}

var causeTable = map[domain.Cause]classification{
	domain.CauseWrongCredential:              {http.StatusUnauthorized, msgWrongCredential},
	domain.CauseUnknownIdentity:              {http.StatusNotFound, "user not found"},
	domain.CauseReauthenticationFailed:       {http.StatusForbidden, "current password is incorrect"},
	domain.CausePasswordConfirmationMismatch: {http.StatusForbidden, "new password and confirmation do not match"},
	domain.CauseMalformedIdentifier:          {http.StatusBadRequest, "user id must be an integer"},
	domain.CauseMalformedPaginationQuery:     {http.StatusNotAcceptable, "limit and offset must both be integers"},
	domain.CauseValidationFailure:            {http.StatusForbidden, "invalid user attributes"},
	domain.CauseDuplicateUnique:              {http.StatusForbidden, "email or username already taken"},
	domain.CauseTransientStoreFailure:        {http.StatusServiceUnavailable, msgTryAgain},
	domain.CauseNoMatch:                      {http.StatusNotFound, "no user matches"},
	domain.CauseInternal:                     {http.StatusInternalServerError, "internal server error"},
}

// Classify resolves any error to exactly one status and body. Failures that
// carry field errors render as a field list; anything unrecognised is a 503.
func Classify(err error) (int, any) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var f *domain.Failure
	if !errors.As(err, &f) {
		return http.StatusServiceUnavailable, errorResponse{Error: msgTryAgain}
	}
	cl, ok := causeTable[f.Cause]
	if !ok {
		return http.StatusServiceUnavailable, errorResponse{Error: msgTryAgain}
	}
	if len(f.Fields) > 0 && f.Cause != domain.CauseWrongCredential {
		return cl.status, fieldErrorsResponse{Errors: f.Fields}
	}
	return cl.status, errorResponse{Error: cl.message}
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that renders every
// error through Classify. Server-side failures are logged with their cause;
// the response body never includes it.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := Classify(err)
		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("cause", domain.CauseOf(err).String()).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}
