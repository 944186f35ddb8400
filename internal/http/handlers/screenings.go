package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rentcore/internal/http/middleware"
	"rentcore/internal/services"
)

func (h *Handler) RunScreening(c *gin.Context) {
	var req services.ScreeningRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.screeningService(c).RunScreening(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

func (h *Handler) GetMyScreening(c *gin.Context) {
	res, err := h.screeningService(c).GetScreening(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetMyScreeningAudit(c *gin.Context) {
	trail, err := h.screeningService(c).AuditTrail(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": trail})
}
