// Command indexer runs the IBC packet lifecycle indexer: it reads
// newline-delimited JSON events from stdin (the narrow interface a block
// ingestion collaborator feeds, per this service's non-goals around raw
// event extraction), applies them to the persisted state machine, and
// serves the read-only REST API documented in SPEC_FULL.md.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/chainregistry"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/config"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/httpserver"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/ibc"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/ibc/mongostore"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/logging"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/metrics"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/priceprovider"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/registrysync"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/token"
)

// ingestedEvent is the wire shape expected on stdin, one JSON object per
// line: the event itself plus the chain metadata a block scanner already
// resolved (tx hash, height, timestamp, network).
type ingestedEvent struct {
	Network    string            `json:"network"`
	TxHash     string            `json:"tx_hash"`
	Height     uint64            `json:"height"`
	Timestamp  time.Time         `json:"timestamp"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	log := logging.New("indexer")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.SetGlobalLevel(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	defer func() {
		if err := store.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to disconnect from mongo")
		}
	}()
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure mongo indexes")
	}

	registry := chainregistry.New()
	if cfg.RegistrySync.Enabled {
		if err := registrysync.Bootstrap(ctx, registry, log); err != nil {
			log.Warn().Err(err).Msg("chain registry sync failed, continuing with built-in seed set")
		}
	}

	priceCfg := priceprovider.Config{
		APIKey:            cfg.PriceProvider.APIKey,
		Tier:              priceprovider.Tier(cfg.PriceProvider.Tier),
		CacheTTL:          cfg.PriceProvider.CacheTTL(),
		BatchSize:         cfg.PriceProvider.BatchSize,
		MaxRetries:        cfg.PriceProvider.MaxRetries,
		RequestsPerMinute: cfg.RequestsPerMinuteForTier(),
	}
	prices := priceprovider.New(priceCfg)
	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	prices.StartRefreshLoop(refreshCtx)
	defer prices.Stop()

	tokens := token.NewService(token.NewMetadataRegistry(), prices)

	resolver := ibc.NewChainResolver(store, registry)

	rec, err := metrics.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create metrics recorder")
	}

	processor := ibc.NewEventProcessor(store, resolver, tokens, registry, rec)

	otelCfg := httpserver.DefaultOTelConfig(cfg.Server.DevelopmentMode)
	otelCfg.EnableMetrics = cfg.Server.EnableMetrics
	otelCfg.EnableTracing = cfg.Server.EnableTracing
	if cfg.Server.OTLPTracesURL != "" {
		otelCfg.OTLPTracesURL = cfg.Server.OTLPTracesURL
	}
	if cfg.Server.OTLPMetricsURL != "" {
		otelCfg.OTLPMetricsURL = cfg.Server.OTLPMetricsURL
	}

	serverCfg := httpserver.DefaultConfig()
	serverCfg.Addr = cfg.Server.Address
	serverCfg.CORSAllowedOrigins = cfg.Server.AllowedOrigins
	serverCfg.RateLimitPerMinute = cfg.Server.RatePerMinute
	serverCfg.OTel = otelCfg

	srv, err := httpserver.NewServer(serverCfg, store, tokens, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build http server")
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	go ingestFromStdin(ctx, processor, log)

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during http server shutdown")
	}
}

// ingestFromStdin decodes newline-delimited JSON events and hands each to
// the processor, logging and continuing past malformed lines or
// processing errors so one bad event never halts the stream.
func ingestFromStdin(ctx context.Context, processor *ibc.EventProcessor, log zerolog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var in ingestedEvent
		if err := json.Unmarshal(line, &in); err != nil {
			log.Warn().Err(err).Msg("failed to decode ingested event, skipping")
			continue
		}

		ev := ibc.Event{Type: in.Type}
		for k, v := range in.Attributes {
			ev.Attributes = append(ev.Attributes, ibc.Attribute{Key: k, Value: v})
		}

		evCtx := ibc.EventContext{
			TxHash:    in.TxHash,
			Height:    in.Height,
			Timestamp: in.Timestamp,
			Network:   ibc.Network(in.Network),
		}

		if err := processor.Process(ctx, ev, evCtx); err != nil {
			log.Error().Err(err).Str("tx_hash", in.TxHash).Str("event_type", in.Type).Msg("failed to process event")
		}
	}

	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("event stream reader error")
	}
}
