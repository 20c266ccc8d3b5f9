package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tonroute/tonroute-go/amm"
	"github.com/tonroute/tonroute-go/chains/ton"
	"github.com/tonroute/tonroute-go/curve"
	"github.com/tonroute/tonroute-go/execution"
	"github.com/tonroute/tonroute-go/quote"
	"github.com/tonroute/tonroute-go/router"
)

// errorBody is the uniform error shape of every failing response.
type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func respJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	e := json.NewEncoder(w)
	e.SetIndent("", "\t")
	if err := e.Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func respError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// reportErr maps domain failures onto the HTTP taxonomy. Messages keep the
// sentinel's wording so every failure names the offending concept.
func reportErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quote.ErrNotFound):
		respError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, quote.ErrAlreadyConsumed):
		respError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, quote.ErrExpired):
		respError(w, http.StatusGone, err.Error())
	case errors.Is(err, amm.ErrPoolNotFound):
		respError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, quote.ErrInvalidSlippage):
		respError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ton.ErrInvalidAddress):
		respError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, router.ErrNoRoute),
		errors.Is(err, execution.ErrRouteGone):
		respError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, curve.ErrInsufficientLiquidity),
		errors.Is(err, amm.ErrEmptyPool):
		respError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, execution.ErrSlippageExceeded):
		respError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, execution.ErrSettlementTimeout),
		errors.Is(err, execution.ErrSettlementFailed),
		errors.Is(err, execution.ErrUpstream):
		respError(w, http.StatusServiceUnavailable, "chain network unavailable: "+err.Error())
	default:
		log.Error().Err(err).Msg("unexpected handler failure")
		respError(w, http.StatusInternalServerError, "internal error")
	}
}
