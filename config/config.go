// Package config loads service configuration from an optional JSON file with
// environment variable overrides (prefix TONROUTE).
package config

import (
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Duration time.Duration

type Config struct {
	ListenPort      int      `json:"listen_port" split_words:"true"`
	MaxReqPerSec    float64  `json:"max_req_per_sec" split_words:"true"`
	AllowedOrigins  []string `json:"allowed_origins" split_words:"true"`
	ShutdownTimeout Duration `json:"shutdown_timeout" split_words:"true"`
	ReadTimeout     Duration `json:"read_timeout" split_words:"true"`
	WriteTimeout    Duration `json:"write_timeout" split_words:"true"`

	Router struct {
		QuoteTTL           Duration `json:"quote_ttl" split_words:"true"`
		SweepInterval      Duration `json:"sweep_interval" split_words:"true"`
		DefaultSlippageBps uint32   `json:"default_slippage_bps" split_words:"true"`
	} `json:"router"`

	Chains struct {
		MainnetFeedURL    string   `json:"mainnet_feed_url" split_words:"true"`
		TestnetFeedURL    string   `json:"testnet_feed_url" split_words:"true"`
		MainnetBackendURL string   `json:"mainnet_backend_url" split_words:"true"`
		TestnetBackendURL string   `json:"testnet_backend_url" split_words:"true"`
		RequestTimeout    Duration `json:"request_timeout" split_words:"true"`
		SettleTimeout     Duration `json:"settle_timeout" split_words:"true"`
		SettleRetries     uint     `json:"settle_retries" split_words:"true"`
	} `json:"chains"`
}

func (d Duration) WithDefault(def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		v, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(v)
	default:
		return errors.New("duration not a string")
	}
	return nil
}

func (d *Duration) Decode(value string) error {
	v, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func MustLoadConfigFile(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Exit on configuration file unavailable")
	}
	defer f.Close()

	dec := json.NewDecoder(f)

	// prevent config not used due typos
	dec.DisallowUnknownFields()

	var c Config
	if err := dec.Decode(&c); err != nil {
		log.Fatal().Err(err).Msg("Exit on malformed configuration")
	}
	return &c
}

func setDefaults(c *Config) {
	if c.ListenPort == 0 {
		c.ListenPort = 8080
	}
	if c.MaxReqPerSec == 0 {
		c.MaxReqPerSec = 20
	}
	if c.Router.DefaultSlippageBps == 0 {
		c.Router.DefaultSlippageBps = 50
	}
	if c.Chains.MainnetBackendURL == "" {
		c.Chains.MainnetBackendURL = "http://localhost:8081"
		log.Info().Msgf("Default mainnet backend URL to %q", c.Chains.MainnetBackendURL)
	}
	if _, err := url.Parse(c.Chains.MainnetBackendURL); err != nil {
		log.Fatal().Err(err).Msg("Exit on malformed mainnet backend URL")
	}
	if c.Chains.TestnetBackendURL != "" {
		if _, err := url.Parse(c.Chains.TestnetBackendURL); err != nil {
			log.Fatal().Err(err).Msg("Exit on malformed testnet backend URL")
		}
	}
}

func ReadConfigFrom(filename string) Config {
	var ret Config
	if filename != "" {
		ret = *MustLoadConfigFile(filename)
	}

	// override config with env variables
	err := envconfig.Process("tonroute", &ret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to process config environment variables")
	}

	setDefaults(&ret)
	return ret
}

func ReadConfig() Config {
	switch len(os.Args) {
	case 1:
		return ReadConfigFrom("")
	case 2:
		return ReadConfigFrom(os.Args[1])
	default:
		log.Fatal().Msg("One optional configuration file argument only-no flags")
		return Config{}
	}
}
