package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"pegvault/native/reserve"
	"pegvault/native/token"
)

type mintRequest struct {
	Caller  string `json:"caller"`
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type burnRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type redeemRequest struct {
	Account string `json:"account"`
}

type registerReserveRequest struct {
	Asset           string `json:"asset"`
	MintInterestBps uint32 `json:"mintInterestBps"`
	BurnTaxBps      uint32 `json:"burnTaxBps"`
	VestingPeriod   uint64 `json:"vestingPeriod"`
	RateSource      string `json:"rateSource"`
	Disabled        bool   `json:"disabled"`
	Whitelisted     bool   `json:"whitelisted"`
}

type withdrawRequest struct {
	Asset  string `json:"asset"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type drainRequest struct {
	Asset string `json:"asset"`
	To    string `json:"to"`
}

type salvageRequest struct {
	Asset  string `json:"asset"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type addressRequest struct {
	Address string `json:"address"`
}

type taxRequest struct {
	Bps uint32 `json:"bps"`
}

type reserveView struct {
	Asset           string `json:"asset"`
	MintInterestBps uint32 `json:"mintInterestBps"`
	BurnTaxBps      uint32 `json:"burnTaxBps"`
	VestingPeriod   uint64 `json:"vestingPeriod"`
	RateSource      string `json:"rateSource"`
	Disabled        bool   `json:"disabled"`
	Whitelisted     bool   `json:"whitelisted"`
}

type vestingView struct {
	Account      string `json:"account"`
	UnlockHeight uint64 `json:"unlockHeight"`
	Amount       string `json:"amount"`
}

type estimateView struct {
	RequiredCollateral string `json:"requiredCollateral"`
	TotalMinted        string `json:"totalMinted"`
	ReleasedVesting    string `json:"releasedVesting"`
	VestingAmount      string `json:"vestingAmount"`
	UnlockHeight       uint64 `json:"unlockHeight"`
}

type receiptView struct {
	ReceiptID        string `json:"receiptId"`
	Asset            string `json:"asset"`
	To               string `json:"to"`
	StableAmount     string `json:"stableAmount"`
	CollateralAmount string `json:"collateralAmount"`
	Kind             string `json:"kind"`
	CreatedAt        int64  `json:"createdAt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleListReserves(w http.ResponseWriter, _ *http.Request) {
	reserves, err := s.engine.Reserves()
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]reserveView, 0, len(reserves))
	for _, rsv := range reserves {
		views = append(views, newReserveView(rsv))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetReserve(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(chi.URLParam(r, "asset"))
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	rsv, ok, err := s.engine.ReserveOf(asset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		s.writeError(w, reserve.ErrReserveNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newReserveView(rsv))
}

func (s *Server) handleWhitelist(w http.ResponseWriter, _ *http.Request) {
	assets, err := s.engine.Whitelist()
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]string, 0, len(assets))
	for _, asset := range assets {
		out = append(out, formatAddress(asset))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleVesting(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress(chi.URLParam(r, "account"))
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	entry, ok, err := s.engine.VestingOf(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := vestingView{Account: formatAddress(account), Amount: "0"}
	if ok {
		view.UnlockHeight = entry.UnlockHeight
		view.Amount = entry.Amount.String()
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleFreeReserve(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(chi.URLParam(r, "asset"))
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	balance, err := s.engine.FreeReserveOf(asset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"asset":   formatAddress(asset),
		"balance": balance.String(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeBadRequest(w, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	if s.recorder == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, s.recorder.Recent(limit))
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	account := caller
	if strings.TrimSpace(req.Account) != "" {
		if account, err = parseAddress(req.Account); err != nil {
			s.writeBadRequest(w, err)
			return
		}
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	total, err := s.engine.Mint(caller, asset, account, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"totalMinted": total.String()})
}

func (s *Server) handleMintEstimate(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if !s.decode(w, r, &req) {
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	account, err := parseAddress(req.Account)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	estimate, err := s.engine.MintEstimate(asset, account, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estimateView{
		RequiredCollateral: estimate.RequiredCollateral.String(),
		TotalMinted:        estimate.TotalMinted.String(),
		ReleasedVesting:    estimate.ReleasedVesting.String(),
		VestingAmount:      estimate.VestingAmount.String(),
		UnlockHeight:       estimate.UnlockHeight,
	})
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	toExchange, err := s.engine.Burn(caller, asset, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"collateralOut": toExchange.String()})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if !s.decode(w, r, &req) {
		return
	}
	account, err := parseAddress(req.Account)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	redeemed, err := s.engine.RedeemVesting(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redeemed": redeemed.String()})
}

func (s *Server) handleRegisterReserve(w http.ResponseWriter, r *http.Request) {
	var req registerReserveRequest
	if !s.decode(w, r, &req) {
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, err := s.engine.Owner()
	if err != nil {
		s.writeError(w, err)
		return
	}
	rsv, err := s.engine.RegisterReserve(owner, reserve.Reserve{
		Asset:           asset,
		MintInterestBps: req.MintInterestBps,
		BurnTaxBps:      req.BurnTaxBps,
		VestingPeriod:   req.VestingPeriod,
		RateSource:      req.RateSource,
		Disabled:        req.Disabled,
		Whitelisted:     req.Whitelisted,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReserveView(rsv))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !s.decode(w, r, &req) {
		return
	}
	asset, to, ok := s.parseAssetTo(w, req.Asset, req.To)
	if !ok {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, err := s.engine.Owner()
	if err != nil {
		s.writeError(w, err)
		return
	}
	receipt, err := s.engine.WithdrawFreeReserve(owner, asset, to, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReceiptView(receipt))
}

func (s *Server) handleWithdrawAll(w http.ResponseWriter, r *http.Request) {
	var req drainRequest
	if !s.decode(w, r, &req) {
		return
	}
	asset, to, ok := s.parseAssetTo(w, req.Asset, req.To)
	if !ok {
		return
	}
	owner, err := s.engine.Owner()
	if err != nil {
		s.writeError(w, err)
		return
	}
	receipt, err := s.engine.WithdrawAllFreeReserve(owner, asset, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReceiptView(receipt))
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	var req drainRequest
	if !s.decode(w, r, &req) {
		return
	}
	asset, to, ok := s.parseAssetTo(w, req.Asset, req.To)
	if !ok {
		return
	}
	owner, err := s.engine.Owner()
	if err != nil {
		s.writeError(w, err)
		return
	}
	receipt, err := s.engine.DrainReserve(owner, asset, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReceiptView(receipt))
}

func (s *Server) handleDrainAll(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !s.decode(w, r, &req) {
		return
	}
	to, err := parseAddress(req.Address)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, err := s.engine.Owner()
	if err != nil {
		s.writeError(w, err)
		return
	}
	receipts, err := s.engine.DrainAll(owner, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]receiptView, 0, len(receipts))
	for _, receipt := range receipts {
		views = append(views, newReceiptView(receipt))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSalvage(w http.ResponseWriter, r *http.Request) {
	var req salvageRequest
	if !s.decode(w, r, &req) {
		return
	}
	asset, to, ok := s.parseAssetTo(w, req.Asset, req.To)
	if !ok {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, err := s.engine.Owner()
	if err != nil {
		s.writeError(w, err)
		return
	}
	receipt, err := s.engine.Salvage(owner, asset, to, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReceiptView(receipt))
}

func (s *Server) handleSetBeneficiary(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !s.decode(w, r, &req) {
		return
	}
	beneficiary, err := parseAddress(req.Address)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, err := s.engine.Owner()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.SetBeneficiary(owner, beneficiary); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"beneficiary": formatAddress(beneficiary)})
}

func (s *Server) handleSetGlobalTax(w http.ResponseWriter, r *http.Request) {
	var req taxRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Bps > reserve.BpsDenominator {
		s.writeBadRequest(w, fmt.Errorf("bps %d exceeds %d", req.Bps, reserve.BpsDenominator))
		return
	}
	owner, err := s.engine.Owner()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.SetGlobalTaxBps(owner, req.Bps); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint32{"globalTaxBps": req.Bps})
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !s.decode(w, r, &req) {
		return
	}
	next, err := parseAddress(req.Address)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, err := s.engine.Owner()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.TransferOwnership(owner, next); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owner": formatAddress(next)})
}

func (s *Server) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start, err := parseUnix(query.Get("start"), 0)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	end, err := parseUnix(query.Get("end"), 0)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			s.writeBadRequest(w, fmt.Errorf("invalid limit %q", raw))
			return
		}
	}
	receipts, cursor, err := s.engine.Withdrawals(start, end, query.Get("cursor"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]receiptView, 0, len(receipts))
	for _, receipt := range receipts {
		views = append(views, newReceiptView(receipt))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"withdrawals": views,
		"nextCursor":  cursor,
	})
}

func (s *Server) handleExportWithdrawals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start, err := parseUnix(query.Get("start"), 0)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	end, err := parseUnix(query.Get("end"), 0)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	csv, count, totalCollateral, err := s.engine.ExportWithdrawalsCSV(start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	total := "0"
	if totalCollateral != nil {
		total = totalCollateral.String()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"csvBase64":       csv,
		"count":           count,
		"totalCollateral": total,
	})
}

func (s *Server) parseAssetTo(w http.ResponseWriter, rawAsset, rawTo string) ([20]byte, [20]byte, bool) {
	asset, err := parseAddress(rawAsset)
	if err != nil {
		s.writeBadRequest(w, err)
		return [20]byte{}, [20]byte{}, false
	}
	to, err := parseAddress(rawTo)
	if err != nil {
		s.writeBadRequest(w, err)
		return [20]byte{}, [20]byte{}, false
	}
	return asset, to, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		s.writeBadRequest(w, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, reserve.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, reserve.ErrNotWhitelisted):
		status = http.StatusForbidden
	case errors.Is(err, reserve.ErrReserveNotFound):
		status = http.StatusNotFound
	case errors.Is(err, reserve.ErrReserveDisabled):
		status = http.StatusConflict
	case errors.Is(err, reserve.ErrInsufficientFreeReserve):
		status = http.StatusConflict
	case errors.Is(err, reserve.ErrReentrantCall):
		status = http.StatusConflict
	case errors.Is(err, token.ErrInsufficientBalance):
		status = http.StatusConflict
	case errors.Is(err, reserve.ErrInvalidRateSource):
		status = http.StatusBadRequest
	case errors.Is(err, reserve.ErrRateSourceUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.log.Error("rpc handler failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func newReserveView(rsv *reserve.Reserve) reserveView {
	if rsv == nil {
		return reserveView{}
	}
	return reserveView{
		Asset:           formatAddress(rsv.Asset),
		MintInterestBps: rsv.MintInterestBps,
		BurnTaxBps:      rsv.BurnTaxBps,
		VestingPeriod:   rsv.VestingPeriod,
		RateSource:      rsv.RateSource,
		Disabled:        rsv.Disabled,
		Whitelisted:     rsv.Whitelisted,
	}
}

func newReceiptView(receipt *reserve.WithdrawalReceipt) receiptView {
	if receipt == nil {
		return receiptView{}
	}
	return receiptView{
		ReceiptID:        receipt.ReceiptID,
		Asset:            formatAddress(receipt.Asset),
		To:               formatAddress(receipt.To),
		StableAmount:     receipt.StableAmount.String(),
		CollateralAmount: receipt.CollateralAmount.String(),
		Kind:             receipt.Kind,
		CreatedAt:        receipt.CreatedAt,
	}
}

func parseAddress(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("invalid address %q", value)
	}
	return [20]byte(common.HexToAddress(trimmed)), nil
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must not be empty")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func parseUnix(value string, fallback int64) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return parsed, nil
}
