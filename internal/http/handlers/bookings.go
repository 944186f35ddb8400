package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rentcore/internal/http/middleware"
)

func (h *Handler) GetBookingSchedule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.bookingService(c).Schedule(c.Request.Context(), middleware.CallerFrom(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetBookingStatement serves the rent schedule as an inline PDF.
func (h *Handler) GetBookingStatement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	pdfBytes, filename, err := h.statementService(c).BuildScheduleStatement(c.Request.Context(), middleware.CallerFrom(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
