// Package walletapi is the HTTP surface of the wallet ledger.
package walletapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/meridianpay/meridian/internal/adapters/http/common"
	"github.com/meridianpay/meridian/internal/application/walletsvc"
	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

// Handler adapts the ledger service to gin.
type Handler struct {
	svc *walletsvc.Service
}

func NewHandler(svc *walletsvc.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateWallet(c *gin.Context) {
	var req createWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, apperrors.New(apperrors.KindValidation, "Invalid request body"))
		return
	}
	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		common.RespondError(c, apperrors.New(apperrors.KindValidation, "Currency must be a 3-letter uppercase code"))
		return
	}

	w, created, err := h.svc.CreateWallet(c.Request.Context(), common.AuthUserID(c), currency, req.AllowAdditional)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, toWalletResponse(w))
}

func (h *Handler) ListWallets(c *gin.Context) {
	wallets, err := h.svc.ListWallets(c.Request.Context(), common.AuthUserID(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	out := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, toWalletResponse(w))
	}
	c.JSON(http.StatusOK, gin.H{"wallets": out})
}

func (h *Handler) GetBalance(c *gin.Context) {
	walletID, ok := pathID(c, "id")
	if !ok {
		return
	}
	w, err := h.svc.GetBalance(c.Request.Context(), common.AuthUserID(c), walletID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{
		ID:       w.ID,
		Currency: w.Currency.String(),
		Balance:  w.Balance.String(),
	})
}

func (h *Handler) Credit(c *gin.Context) {
	h.applyChange(c, entities.EntryTypeCredit)
}

func (h *Handler) Debit(c *gin.Context) {
	h.applyChange(c, entities.EntryTypeDebit)
}

func (h *Handler) applyChange(c *gin.Context, typ entities.EntryType) {
	walletID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req changeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, apperrors.New(apperrors.KindValidation, "Invalid request body"))
		return
	}

	in := walletsvc.ChangeInput{
		WalletID:       walletID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
		Details:        req.details(),
		BearerToken:    common.BearerToken(c),
		RiskMetadata:   common.RiskMetadata(c),
	}

	var (
		w   *entities.Wallet
		err error
	)
	if typ == entities.EntryTypeCredit {
		w, err = h.svc.Credit(c.Request.Context(), common.AuthUserID(c), in)
	} else {
		w, err = h.svc.Debit(c.Request.Context(), common.AuthUserID(c), in)
	}
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWalletResponse(w))
}

func (h *Handler) Transfer(c *gin.Context) {
	sourceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, apperrors.New(apperrors.KindValidation, "Invalid request body"))
		return
	}

	var currency money.Currency
	if req.Currency != "" {
		var err error
		currency, err = money.ParseCurrency(req.Currency)
		if err != nil {
			common.RespondError(c, apperrors.New(apperrors.KindValidation, "Currency must be a 3-letter uppercase code"))
			return
		}
	}

	res, err := h.svc.Transfer(c.Request.Context(), common.AuthUserID(c), walletsvc.TransferInput{
		SourceWalletID:    sourceID,
		TargetWalletID:    req.TargetWalletID,
		Amount:            req.Amount,
		Currency:          currency,
		IdempotencyKey:    req.IdempotencyKey,
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTransferResultResponse(res))
}

func (h *Handler) CreateHold(c *gin.Context) {
	walletID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, apperrors.New(apperrors.KindValidation, "Invalid request body"))
		return
	}

	hold, err := h.svc.CreateHold(c.Request.Context(), common.AuthUserID(c), walletsvc.HoldInput{
		WalletID:       walletID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
		Reference:      req.Reference,
		Details:        req.Details,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toHoldResponse(hold))
}

func (h *Handler) ReleaseHold(c *gin.Context) {
	walletID, ok := pathID(c, "id")
	if !ok {
		return
	}
	holdID, ok := pathID(c, "hold_id")
	if !ok {
		return
	}
	var req releaseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.RespondError(c, apperrors.New(apperrors.KindValidation, "Invalid request body"))
			return
		}
	}

	hold, err := h.svc.ReleaseHold(c.Request.Context(), common.AuthUserID(c), walletID, holdID, req.IdempotencyKey)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toHoldResponse(hold))
}

func (h *Handler) CaptureHold(c *gin.Context) {
	walletID, ok := pathID(c, "id")
	if !ok {
		return
	}
	holdID, ok := pathID(c, "hold_id")
	if !ok {
		return
	}

	hold, err := h.svc.CaptureHold(c.Request.Context(), common.AuthUserID(c), walletID, holdID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toHoldResponse(hold))
}

func (h *Handler) GetStatement(c *gin.Context) {
	walletID, ok := pathID(c, "id")
	if !ok {
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			common.RespondError(c, apperrors.New(apperrors.KindValidation, "Invalid limit"))
			return
		}
		limit = n
	}
	var cursor int64
	if v := c.Query("cursor"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			common.RespondError(c, apperrors.New(apperrors.KindValidation, "Invalid cursor"))
			return
		}
		cursor = n
	}

	st, err := h.svc.GetStatement(c.Request.Context(), common.AuthUserID(c), walletID, limit, cursor)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatementResponse(walletID, st))
}

func (h *Handler) GetReconciliation(c *gin.Context) {
	walletID, ok := pathID(c, "id")
	if !ok {
		return
	}
	rec, err := h.svc.Reconcile(c.Request.Context(), common.AuthUserID(c), walletID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReconciliationResponse(rec))
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		common.RespondError(c, apperrors.Newf(apperrors.KindValidation, "Invalid %s", name))
		return 0, false
	}
	return id, true
}
