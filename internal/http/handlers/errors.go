package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentcore/internal/domain"
	"rentcore/internal/http/middleware"
	"rentcore/internal/utils"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	reqID := middleware.GetRequestID(c)
	if reqID != "" {
		c.JSON(status, gin.H{
			"error":      message,
			"code":       code,
			"details":    details,
			"request_id": reqID,
			"message":    message,
		})
		return
	}
	c.JSON(status, ErrorResponse{Error: message, Code: code, Details: details})
}

// RespondDomainError maps domain errors to HTTP responses. Vendor payloads
// and internal error text never reach the client.
func RespondDomainError(c *gin.Context, err error) {
	if ve, ok := domain.AsValidation(err); ok {
		var details any
		if len(ve.Fields) > 0 {
			details = ve.Fields
		} else if ve.Field != "" {
			details = []domain.FieldError{{Field: ve.Field, Msg: ve.Msg}}
		}
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), details)
		return
	}
	if vf, ok := domain.AsVendorFailure(err); ok {
		status := http.StatusUnprocessableEntity
		if vf.Retryable() {
			status = http.StatusBadGateway
		}
		utils.LogWarn(middleware.GetRequestID(c), "http", "vendor", "vendor failure",
			zap.String("vendor", vf.Vendor), zap.String("kind", vf.Kind), zap.String("raw", vf.Raw))
		respondError(c, status, "vendor_failure", vf.Message, gin.H{
			"vendor":    vf.Vendor,
			"kind":      vf.Kind,
			"retryable": vf.Retryable(),
		})
		return
	}
	if pf, ok := domain.AsProcessorFailure(err); ok {
		utils.LogWarn(middleware.GetRequestID(c), "http", "processor", "processor failure",
			zap.String("op", pf.Op), zap.String("code", pf.Code), zap.Error(err))
		respondError(c, http.StatusBadGateway, "payment_failed", pf.Error(), gin.H{"op": pf.Op, "code": pf.Code})
		return
	}
	if ie, ok := domain.AsInternal(err); ok {
		zap.L().Error("internal error", zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Request.URL.Path), zap.Error(ie.Err))
		respondError(c, http.StatusInternalServerError, "internal_error", ie.Error(), nil)
		return
	}

	switch {
	case domain.IsUnauthenticated(err):
		respondError(c, http.StatusUnauthorized, "unauthenticated", err.Error(), nil)
	case domain.IsForbidden(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case domain.IsNoEntitlement(err):
		respondError(c, http.StatusPaymentRequired, "no_entitlement", err.Error(), nil)
	case domain.IsPreconditionFailed(err):
		respondError(c, http.StatusPreconditionFailed, "precondition_failed", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		zap.L().Error("unhandled error", zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Request.URL.Path), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
