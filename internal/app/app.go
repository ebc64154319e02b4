// Package app wires configuration into the collection engine.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kurihiro0119/rum-count/internal/aggregator"
	"github.com/kurihiro0119/rum-count/internal/collector"
	"github.com/kurihiro0119/rum-count/internal/config"
	"github.com/kurihiro0119/rum-count/internal/logging"
)

// NewLogger builds the logger described by cfg
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	if cfg.LogFormat != "" {
		logCfg.Format = cfg.LogFormat
	}
	return logging.New(logCfg)
}

// FetcherOptions translates cfg into collector options. Every in-flight
// workspace may probe a half-open breaker, so the probe budget matches the
// total concurrency.
func FetcherOptions(cfg *config.Config) collector.FetcherOptions {
	return collector.FetcherOptions{
		BaseURL:    cfg.BaseURL,
		APIVersion: cfg.APIVersion,
		Token:      cfg.Token,
		PageSize:   cfg.PageSize,
		Retry: collector.RetryPolicy{
			Delay:      cfg.RetryDelay,
			MaxDelay:   cfg.MaxRetryDelay,
			Multiplier: cfg.BackoffMultiplier,
			Jitter:     cfg.RetryJitter,
			MaxRetries: cfg.MaxRetries,
		},
		RequestsPerSecond:  cfg.RequestsPerSecond,
		BreakerThreshold:   uint32(cfg.BreakerThreshold),
		BreakerTimeout:     cfg.BreakerTimeout,
		BreakerMaxRequests: uint32(cfg.ConcurrencyLimit * cfg.OrgConcurrency),
		Timeout:            cfg.RequestTimeout,
	}
}

// AggregatorOptions translates cfg into aggregator options
func AggregatorOptions(cfg *config.Config) aggregator.Options {
	return aggregator.Options{
		ConcurrencyLimit: cfg.ConcurrencyLimit,
		OrgConcurrency:   cfg.OrgConcurrency,
		Organizations:    cfg.Organizations,
	}
}

// NewAggregator builds an aggregator reading from the Terraform API
func NewAggregator(cfg *config.Config, logger *zap.Logger) (*aggregator.Aggregator, error) {
	fetcher, err := collector.NewFetcher(FetcherOptions(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}
	return aggregator.NewAggregator(collector.NewTFECollector(fetcher), AggregatorOptions(cfg), logger), nil
}

// NewStateFileAggregator builds an aggregator for local state files only
func NewStateFileAggregator(cfg *config.Config, logger *zap.Logger) *aggregator.Aggregator {
	return aggregator.NewAggregator(nil, AggregatorOptions(cfg), logger)
}
