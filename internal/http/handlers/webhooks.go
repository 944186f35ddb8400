package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentcore/internal/http/middleware"
	"rentcore/internal/services"
	"rentcore/internal/utils"
)

const maxWebhookBody = 64 << 10

// BackgroundCheckWebhook accepts the vendor's completion notice. The body
// must carry a valid X-Signature computed over the raw bytes.
func (h *Handler) BackgroundCheckWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable body", nil)
		return
	}
	if len(h.WebhookSecret) == 0 || !utils.VerifySignature(h.WebhookSecret, body, c.GetHeader("X-Signature")) {
		utils.LogWarn(middleware.GetRequestID(c), "webhook", "background_check", "signature rejected",
			zap.String("ip", c.ClientIP()))
		respondError(c, http.StatusUnauthorized, "invalid_signature", "invalid signature", nil)
		return
	}

	var notice services.CompletionNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	res, err := h.completer(c).CompleteScreening(c.Request.Context(), notice)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
