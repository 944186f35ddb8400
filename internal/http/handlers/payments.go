package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rentcore/internal/http/middleware"
	"rentcore/internal/services"
)

type authorizeBody struct {
	InstrumentToken string `json:"instrument_token"`
	AmountCents     int64  `json:"amount_cents"`
}

// AuthorizePayment holds the renter's payment until the lease is signed.
func (h *Handler) AuthorizePayment(c *gin.Context) {
	h.authorize(c, services.HoldUntilLease())
}

// SettlePayment charges immediately and keeps the platform fee.
func (h *Handler) SettlePayment(c *gin.Context) {
	h.authorize(c, services.SettleImmediately(h.PlatformFeeRate))
}

func (h *Handler) authorize(c *gin.Context, policy services.CapturePolicy) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body authorizeBody
	if !BindJSONOrError(c, &body) {
		return
	}

	res, err := h.paymentService(c).AttachAndAuthorize(c.Request.Context(), middleware.CallerFrom(c), services.AuthorizeRequest{
		AgreementID:     id,
		InstrumentToken: body.InstrumentToken,
		AmountCents:     body.AmountCents,
		Policy:          policy,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CapturePayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.paymentService(c).CapturePayment(c.Request.Context(), middleware.CallerFrom(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
