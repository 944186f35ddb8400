package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rentcore/internal/http/middleware"
)

// RecordSignature stamps the caller's signature on the agreement.
func (h *Handler) RecordSignature(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.bookingService(c).RecordSignature(c.Request.Context(), middleware.CallerFrom(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	status := http.StatusOK
	if res.Booking.Created {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}
