package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"rentcore/internal/http/middleware"
	"rentcore/internal/services"
)

// Handler carries the wired services. Each request works on a copy stamped
// with its request id.
type Handler struct {
	Screenings services.ScreeningService

	// Completer finishes screenings from vendor webhooks; nil uses Screenings.
	Completer       services.ScreeningCompleter
	Payments        services.PaymentService
	Bookings        services.BookingService
	WebhookSecret   []byte
	PlatformFeeRate decimal.Decimal
}

func (h *Handler) screeningService(c *gin.Context) services.ScreeningService {
	svc := h.Screenings
	svc.RequestID = middleware.GetRequestID(c)
	return svc
}

func (h *Handler) completer(c *gin.Context) services.ScreeningCompleter {
	if h.Completer != nil {
		return h.Completer
	}
	return h.screeningService(c)
}

func (h *Handler) bookingService(c *gin.Context) services.BookingService {
	svc := h.Bookings
	svc.RequestID = middleware.GetRequestID(c)
	return svc
}

func (h *Handler) paymentService(c *gin.Context) services.PaymentService {
	svc := h.Payments
	svc.RequestID = middleware.GetRequestID(c)
	svc.Bookings = h.bookingService(c)
	return svc
}

func (h *Handler) statementService(c *gin.Context) services.StatementService {
	return services.StatementService{
		Schedules: h.bookingService(c),
		RequestID: middleware.GetRequestID(c),
	}
}
