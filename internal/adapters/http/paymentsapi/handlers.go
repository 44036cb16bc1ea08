// Package paymentsapi is the HTTP surface of the payment orchestrator.
package paymentsapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meridianpay/meridian/internal/adapters/http/common"
	"github.com/meridianpay/meridian/internal/application/paymentsvc"
	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

type createIntentRequest struct {
	WalletID int64       `json:"wallet_id" binding:"required"`
	Amount   money.Money `json:"amount"`
	Currency string      `json:"currency" binding:"required,currency"`
}

type intentResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	WalletID  int64     `json:"wallet_id"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	HoldID    *int64    `json:"hold_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toIntentResponse(p *entities.PaymentIntent) intentResponse {
	return intentResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		WalletID:  p.WalletID,
		Amount:    p.Amount.String(),
		Currency:  p.Currency.String(),
		Status:    string(p.Status),
		HoldID:    p.HoldID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// Handler adapts the orchestrator to gin.
type Handler struct {
	svc *paymentsvc.Service
}

func NewHandler(svc *paymentsvc.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, apperrors.New(apperrors.KindValidation, "Invalid request body"))
		return
	}
	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		common.RespondError(c, apperrors.New(apperrors.KindValidation, "Currency must be a 3-letter uppercase code"))
		return
	}

	p, err := h.svc.CreateIntent(c.Request.Context(), common.AuthUserID(c), req.WalletID, req.Amount, currency)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toIntentResponse(p))
}

func (h *Handler) GetIntent(c *gin.Context) {
	intentID, ok := intentPathID(c)
	if !ok {
		return
	}
	p, err := h.svc.GetIntent(c.Request.Context(), intentID, common.AuthUserID(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toIntentResponse(p))
}

func (h *Handler) Confirm(c *gin.Context) {
	intentID, ok := intentPathID(c)
	if !ok {
		return
	}
	p, err := h.svc.Confirm(c.Request.Context(), intentID, common.AuthUserID(c),
		common.BearerToken(c), common.RiskMetadata(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toIntentResponse(p))
}

func (h *Handler) Cancel(c *gin.Context) {
	intentID, ok := intentPathID(c)
	if !ok {
		return
	}
	p, err := h.svc.Cancel(c.Request.Context(), intentID, common.AuthUserID(c), common.BearerToken(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toIntentResponse(p))
}

func intentPathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		common.RespondError(c, apperrors.New(apperrors.KindValidation, "Invalid intent id"))
		return 0, false
	}
	return id, true
}
