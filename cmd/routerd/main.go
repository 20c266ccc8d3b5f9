package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tonroute/tonroute-go/api"
	"github.com/tonroute/tonroute-go/chains/ton"
	"github.com/tonroute/tonroute-go/config"
	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/execution"
	"github.com/tonroute/tonroute-go/feed"
	"github.com/tonroute/tonroute-go/quote"
	"github.com/tonroute/tonroute-go/registry"
)

const compactionThreshold = 1000

// registrySource adapts per-network registries to the execution engine.
type registrySource map[engine.Network]*registry.Registry

func (s registrySource) Snapshot(network engine.Network) (*registry.Snapshot, error) {
	reg, ok := s[network]
	if !ok {
		return nil, fmt.Errorf("network %q is not served", network)
	}
	return reg.Snapshot(), nil
}

// settlementMux routes settlement calls to the backend of the request's
// network.
type settlementMux map[engine.Network]*ton.Client

func (m settlementMux) Settle(ctx context.Context, req execution.SettleRequest) (*execution.SettleResult, error) {
	client, ok := m[req.Network]
	if !ok {
		return nil, fmt.Errorf("no settlement backend for network %q", req.Network)
	}
	return client.Settle(ctx, req)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(os.Stdout)

	cfg := config.ReadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	requestTimeout := cfg.Chains.RequestTimeout.WithDefault(10 * time.Second)

	networks := map[engine.Network]struct{ feedURL, backendURL string }{
		engine.NetworkMainnet: {cfg.Chains.MainnetFeedURL, cfg.Chains.MainnetBackendURL},
	}
	if cfg.Chains.TestnetBackendURL != "" {
		networks[engine.NetworkTestnet] = struct{ feedURL, backendURL string }{
			cfg.Chains.TestnetFeedURL, cfg.Chains.TestnetBackendURL,
		}
	}

	registries := registrySource{}
	backends := settlementMux{}
	gas := map[engine.Network]api.GasEstimator{}
	feeds := map[engine.Network]*feed.Processor{}

	for network, endpoints := range networks {
		reg := registry.New(network, compactionThreshold)
		registries[network] = reg

		client := ton.NewClient(endpoints.backendURL, network, requestTimeout)
		backends[network] = client
		gas[network] = client

		processor := feed.NewProcessor(reg, log.With().Str("network", string(network)).Logger())
		feeds[network] = processor

		if endpoints.feedURL != "" {
			source := feed.NewHTTPSource(endpoints.feedURL, requestTimeout)
			go func(network engine.Network) {
				if err := processor.Run(ctx, source); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Str("network", string(network)).Msg("feed stopped")
				}
			}(network)
		} else {
			log.Warn().Str("network", string(network)).Msg("no feed url configured, registry stays empty")
		}
	}

	store := quote.NewStore()
	go store.RunSweeper(ctx, cfg.Router.SweepInterval.WithDefault(time.Minute))

	retries := cfg.Chains.SettleRetries
	if retries == 0 {
		retries = 3
	}
	exec := execution.NewEngine(store, registries, backends,
		execution.WithSettleTimeout(cfg.Chains.SettleTimeout.WithDefault(10*time.Second)),
		execution.WithRetry(retries, 200*time.Millisecond),
	)

	handler := api.Wrap(api.NewRouter(api.Deps{
		Registries:         registries,
		Store:              store,
		Exec:               exec,
		Gas:                gas,
		Feeds:              feeds,
		QuoteTTL:           cfg.Router.QuoteTTL.WithDefault(30 * time.Second),
		DefaultSlippageBps: cfg.Router.DefaultSlippageBps,
	}), api.MiddlewareConfig{
		MaxReqPerSec:   cfg.MaxReqPerSec,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ListenPort),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout.WithDefault(20 * time.Second),
		WriteTimeout: cfg.WriteTimeout.WithDefault(20 * time.Second),
	}

	go func() {
		log.Info().Int("port", cfg.ListenPort).Msg("serving http")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		cfg.ShutdownTimeout.WithDefault(5*time.Second))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}
