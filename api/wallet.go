package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linlinbupt123-crypto/chat_wallet/domain"
	wrapErrors "github.com/linlinbupt123-crypto/chat_wallet/errors"
	"github.com/linlinbupt123-crypto/chat_wallet/logger"
	"github.com/linlinbupt123-crypto/chat_wallet/request"
	"github.com/linlinbupt123-crypto/chat_wallet/service"
	"github.com/linlinbupt123-crypto/chat_wallet/utils"
)

type WalletHandler struct {
	walletService *service.WalletService
	logger        *slog.Logger
}

func NewWalletHandler(ws *service.WalletService, log *slog.Logger) *WalletHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WalletHandler{walletService: ws, logger: log}
}

// Register mounts the wallet routes on r.
func (h *WalletHandler) Register(r gin.IRoutes) {
	r.POST("/wallet/:handle", h.CreateWallet)
	r.POST("/wallet/:handle/tx/send", h.SendTransaction)
	r.GET("/wallet/:handle/balance", h.GetBalance)
	r.GET("/ens/:name", h.LookupName)
	r.GET("/healthz", h.Health)
}

// CreateWallet creates the wallet of handle on a chain. The secrets of a new
// wallet are in this response and nowhere else.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req request.CreateWalletReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var resp request.CreateWalletResp
	res, err := h.walletService.CreateWallet(c.Request.Context(), c.Param("handle"), req.Chain, func(d domain.Disclosure) {
		resp.PrivateKey = d.PrivateKey
		resp.Mnemonic = d.Mnemonic
		resp.Notice = d.Notice
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp.Created = res.Created
	resp.Address = res.Address

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(status, resp)
}

func (h *WalletHandler) SendTransaction(c *gin.Context) {
	var req request.SendTxReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res := h.walletService.Transfer(c.Request.Context(), c.Param("handle"), req.To, req.Amount, req.Chain)
	resp := request.SendTxResp{
		Success:      res.Success,
		Code:         string(res.Code),
		Message:      res.Message,
		TxHash:       res.TxHash,
		Recipient:    res.Recipient,
		ResolvedFrom: res.ResolvedFrom,
	}
	if res.BlockNumber != nil {
		resp.BlockNumber = res.BlockNumber.String()
	}

	status := http.StatusOK
	if !res.Success {
		status = StatusOf(res.Code)
	}
	c.JSON(status, resp)
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	var req request.GetBalanceReq
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	asset, err := h.walletService.GetBalance(c.Request.Context(), c.Param("handle"), req.Chain)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, request.BalanceResp{
		Chain:      asset.Chain,
		Symbol:     asset.Symbol,
		Address:    asset.Address,
		BalanceWei: asset.Balance.String(),
		Balance:    utils.WeiToETH(asset.Balance),
	})
}

func (h *WalletHandler) LookupName(c *gin.Context) {
	p, err := h.walletService.LookupName(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, request.NameProfileResp{
		Name:          p.Name,
		Address:       p.Address.Hex(),
		PrimaryName:   p.PrimaryName,
		IsPrimary:     p.IsPrimary,
		TextRecords:   p.TextRecords,
		CoinAddresses: p.CoinAddresses,
		ContentHash:   p.ContentHash,
		Summary:       p.Summary(),
	})
}

func (h *WalletHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "chains": h.walletService.Chains.Chains()})
}

// StatusOf maps an error code to the HTTP status it is reported with.
func StatusOf(code wrapErrors.Code) int {
	switch code {
	case wrapErrors.CodeValidation:
		return http.StatusBadRequest
	case wrapErrors.CodeNotFound:
		return http.StatusNotFound
	case wrapErrors.CodeNameResolution,
		wrapErrors.CodeInsufficientBalance,
		wrapErrors.CodeInsufficientBalanceFee,
		wrapErrors.CodeChainRejection:
		return http.StatusUnprocessableEntity
	case wrapErrors.CodeNetwork:
		return http.StatusServiceUnavailable
	case wrapErrors.CodeSubmissionFailed:
		return http.StatusBadGateway
	case wrapErrors.CodeCancelled:
		return http.StatusRequestTimeout
	case wrapErrors.CodeConfirmationPending:
		return http.StatusAccepted
	case wrapErrors.CodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err by code. Causes are echoed back only for client
// errors; everything else gets the generic status text.
func (h *WalletHandler) writeError(c *gin.Context, err error) {
	code := wrapErrors.CodeOf(err)
	msg := http.StatusText(StatusOf(code))

	var appErr *wrapErrors.AppError
	if errors.As(err, &appErr) {
		switch code {
		case wrapErrors.CodeValidation, wrapErrors.CodeNotFound, wrapErrors.CodeUnsupported:
			msg = appErr.Error()
		}
	}
	if StatusOf(code) >= http.StatusInternalServerError {
		h.logger.Error("request failed", "request_id", c.GetString("request_id"), "code", string(code), "err", err)
	}
	c.JSON(StatusOf(code), request.ErrorResp{Code: string(code), Error: msg})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, request.ErrorResp{Code: string(wrapErrors.CodeValidation), Error: err.Error()})
}
