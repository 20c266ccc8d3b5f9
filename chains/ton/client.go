package ton

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/execution"
)

// Client talks to the chain backend over HTTP. It implements
// execution.Settlement; network-level failures are wrapped with
// execution.ErrUpstream so the execution engine's retry policy applies.
type Client struct {
	baseURL string
	network engine.Network
	http    *http.Client
}

// NewClient returns a backend client for the given network.
func NewClient(baseURL string, network engine.Network, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		network: network,
		http:    &http.Client{Timeout: timeout},
	}
}

type swapRequest struct {
	Network      string   `json:"network"`
	Wallet       string   `json:"wallet"`
	Pools        []string `json:"pools"`
	TokenIn      string   `json:"tokenIn"`
	TokenOut     string   `json:"tokenOut"`
	AmountIn     string   `json:"amountIn"`
	AmountOutMin string   `json:"amountOutMin,omitempty"`
	AmountInMax  string   `json:"amountInMax,omitempty"`
}

type swapResponse struct {
	TxHash  string `json:"txHash"`
	GasUsed string `json:"gasUsed"`
}

// Settle submits the routed swap for on-chain execution.
func (c *Client) Settle(ctx context.Context, req execution.SettleRequest) (*execution.SettleResult, error) {
	pools := make([]string, len(req.Route.Hops))
	for i, h := range req.Route.Hops {
		pools[i] = h.PoolAddress
	}
	body := swapRequest{
		Network:  string(req.Network),
		Wallet:   req.Wallet,
		Pools:    pools,
		TokenIn:  req.Route.Hops[0].TokenInSymbol,
		TokenOut: req.Route.Hops[len(req.Route.Hops)-1].TokenOutSymbol,
		AmountIn: req.AmountIn.String(),
	}
	if req.AmountOutMin != nil {
		body.AmountOutMin = req.AmountOutMin.String()
	}
	if req.AmountInMax != nil {
		body.AmountInMax = req.AmountInMax.String()
	}

	var resp swapResponse
	if err := c.post(ctx, "/v2/swap", body, &resp); err != nil {
		return nil, err
	}
	gas, ok := new(big.Int).SetString(resp.GasUsed, 10)
	if !ok {
		gas = big.NewInt(0)
	}
	return &execution.SettleResult{TxHash: resp.TxHash, GasUsed: gas}, nil
}

// Status is the backend's view of chain health.
type Status struct {
	Network string `json:"network"`
	Seqno   uint64 `json:"seqno"`
	Healthy bool   `json:"healthy"`
}

// Status fetches the current chain status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.get(ctx, "/v2/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

type gasResponse struct {
	GasEstimate string `json:"gasEstimate"`
}

// EstimateGas asks the backend for the gas cost of a swap with the given
// number of hops.
func (c *Client) EstimateGas(ctx context.Context, hops int) (*big.Int, error) {
	var resp gasResponse
	if err := c.get(ctx, fmt.Sprintf("/v2/gas?hops=%d", hops), &resp); err != nil {
		return nil, err
	}
	gas, ok := new(big.Int).SetString(resp.GasEstimate, 10)
	if !ok {
		return nil, fmt.Errorf("%w: bad gas estimate %q", execution.ErrUpstream, resp.GasEstimate)
	}
	return gas, nil
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

// Balance fetches a wallet's balance of the given token.
func (c *Client) Balance(ctx context.Context, wallet, tokenAddress string) (*big.Int, error) {
	var resp balanceResponse
	path := fmt.Sprintf("/v2/balance?wallet=%s&token=%s", wallet, tokenAddress)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	balance, ok := new(big.Int).SetString(resp.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("%w: bad balance %q", execution.ErrUpstream, resp.Balance)
	}
	return balance, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", execution.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", execution.ErrUpstream, err)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: backend returned %d: %s", execution.ErrUpstream, resp.StatusCode, body)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("backend rejected request (%d): %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", execution.ErrUpstream, err)
	}
	return nil
}
