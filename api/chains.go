package api

import (
	"net/http"
)

type chainStatusResponse struct {
	Network string `json:"network"`
	Synced  bool   `json:"synced"`
	Seqno   uint64 `json:"seqno"`
	Tokens  int    `json:"tokens"`
}

func (h *handlers) chainStatus(w http.ResponseWriter, r *http.Request) {
	snap, network, err := h.snapshot(r.URL.Query().Get("network"))
	if err != nil {
		respError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := chainStatusResponse{
		Network: string(network),
		Tokens:  snap.NumTokens(),
	}
	if proc, ok := h.deps.Feeds[network]; ok {
		resp.Synced = proc.Synced()
		resp.Seqno = proc.Seqno()
	}
	respJSON(w, resp)
}

type tokenView struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Decimals uint8  `json:"decimals"`
}

type chainTokensResponse struct {
	Network string      `json:"network"`
	Tokens  []tokenView `json:"tokens"`
}

func (h *handlers) chainTokens(w http.ResponseWriter, r *http.Request) {
	snap, network, err := h.snapshot(r.URL.Query().Get("network"))
	if err != nil {
		respError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens := snap.Tokens()
	views := make([]tokenView, len(tokens))
	for i, t := range tokens {
		views[i] = tokenView{
			Address:  t.Address,
			Symbol:   t.Symbol,
			Name:     t.Name,
			Decimals: t.Decimals,
		}
	}
	respJSON(w, chainTokensResponse{Network: string(network), Tokens: views})
}
