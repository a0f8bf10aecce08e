package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/PabloGalante/guardian-agent/internal/domain"
)

// Error types reported in the error envelope.
const (
	errTypeValidation = "validation_error"
	errTypeNotFound   = "not_found"
	errTypeConflict   = "state_conflict"
	errTypeInternal   = "internal_error"
)

// Envelope wraps every response body.
type Envelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type ErrorData struct {
	ErrorCode string `json:"error_code"`
	ErrorType string `json:"error_type"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondOK(c *gin.Context, message string, data any) {
	respond(c, http.StatusOK, message, data)
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{
		Success:   true,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

func respondError(c *gin.Context, status int, code, errType, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, Envelope{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Data: ErrorData{
			ErrorCode: code,
			ErrorType: errType,
			Details:   details,
			RequestID: c.GetString("request_id"),
		},
	})
}

// respondBindError separates oversized bodies (413) and malformed bodies
// (400) from bodies that parsed but failed field rules (422).
func respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", errTypeValidation,
			"Request body too large", err)
		return
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		respondError(c, http.StatusUnprocessableEntity, "invalid_request", errTypeValidation,
			"Request validation failed", errors.New(describeValidation(verrs)))
		return
	}
	respondError(c, http.StatusBadRequest, "malformed_request", errTypeValidation, "Malformed request body", err)
}

func respondInvalid(c *gin.Context, code string, err error) {
	respondError(c, http.StatusUnprocessableEntity, code, errTypeValidation, "Request validation failed", err)
}

// respondDomainError maps service errors onto status codes.
func respondDomainError(c *gin.Context, err error) {
	var mismatch *domain.StepMismatchError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, "session_not_found", errTypeNotFound, "Session not found", err)
	case errors.As(err, &mismatch):
		respondError(c, http.StatusConflict, "step_mismatch", errTypeConflict,
			fmt.Sprintf("Step mismatch: current step is %d", mismatch.Expected), err)
	case errors.Is(err, domain.ErrSessionEnded):
		respondError(c, http.StatusConflict, "session_ended", errTypeConflict, "Session has already ended", err)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "state_conflict", errTypeConflict, "Session state changed, retry", err)
	case errors.Is(err, domain.ErrInvalidInput):
		respondInvalid(c, "invalid_request", err)
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", errTypeInternal, "Internal server error", err)
	}
}

func describeValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: failed %s", fe.Field(), rule))
	}
	return strings.Join(parts, "; ")
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report json names such as
// current_step instead of Go field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}
