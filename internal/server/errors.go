// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/internal/search"
	"github.com/pdiddy/gift-engine/internal/store"
	"github.com/pdiddy/gift-engine/pkg/types"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps domain errors to HTTP statuses and stable codes.
func statusFor(err error) (int, string) {
	var (
		he *echo.HTTPError
		ve validator.ValidationErrors
	)
	switch {
	case errors.As(err, &he):
		return he.Code, codeFor(he.Code)
	case errors.As(err, &ve), errors.Is(err, types.ErrInvalidOptions), errors.Is(err, store.ErrInvalidTag):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrSystemTag):
		return http.StatusForbidden, "system_tag"
	case errors.Is(err, search.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal"
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	if status >= 500 {
		return "internal"
	}
	return "error"
}

func errorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if err == nil || c.Response().Committed {
			return
		}

		status, code := statusFor(err)
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg = fmt.Sprint(he.Message)
		}
		if status >= 500 {
			log.Errorw("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
			msg = http.StatusText(status)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, ErrorResponse{Error: msg, Code: code})
		}
		if err != nil {
			log.Errorw("could not write error response", "status", status, "error", err)
		}
	}
}
