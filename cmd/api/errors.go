package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storedesk/internal/apperr"
	"storedesk/internal/obs"

	"github.com/go-playground/validator/v10"
)

// ErrorBody is the error half of every failed response.
//
//	@name			ErrorResponse
//	@description	Standard error envelope returned by all endpoints
type ErrorBody struct {
	Code    string `json:"code" example:"VALIDATION_ERROR"`
	Message string `json:"message" example:"username: required"`
	Contact any    `json:"contact,omitempty"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Success bool      `json:"success" example:"false"`
	Error   ErrorBody `json:"error"`
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse writes err as the error envelope. Anything that is not an
// *apperr.Error goes out as a generic 500.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	status := statusFor(e.Kind)

	if status == http.StatusInternalServerError {
		app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		app.logger.Warnw("request failed", "method", r.Method, "path", r.URL.Path, "code", e.Code, "error", err)
	}

	switch e.Kind {
	case apperr.KindUnauthenticated:
		w.Header().Set("WWW-Authenticate", "Bearer")
		obs.AuthRejected(e.Code)
	case apperr.KindForbidden:
		obs.AuthRejected(e.Code)
	}

	body := ErrorBody{Code: e.Code, Message: e.Message}
	if c, ok := e.Details["contact"]; ok {
		body.Contact = c
	}
	if app.config.IsDevelopment() {
		body.Details = devDetails(e)
	}

	writeJSON(w, status, &ErrorResponse{Success: false, Error: body})
}

func devDetails(e *apperr.Error) map[string]any {
	out := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		if k != "contact" {
			out[k] = v
		}
	}
	if e.Err != nil {
		out["cause"] = e.Err.Error()
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, apperr.Internal(err))
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		app.errorResponse(w, r, apperr.Wrap(apperr.KindValidation, apperr.CodeValidation, validationMessage(ve), err))
		return
	}
	app.errorResponse(w, r, apperr.Wrap(apperr.KindValidation, apperr.CodeValidation, "malformed request body", err))
}

func validationMessage(ve validator.ValidationErrors) string {
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)

	writeJSON(w, http.StatusUnauthorized, &ErrorResponse{Error: ErrorBody{
		Code:    apperr.CodeInvalidCredentials,
		Message: "unauthorized",
	}})
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter string) {
	w.Header().Set("Retry-After", retryAfter)
	app.errorResponse(w, r, apperr.New(apperr.KindRateLimited, apperr.CodeRateLimited,
		"too many requests, please try again later"))
}
