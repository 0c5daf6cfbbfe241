// Command nats-geyser-runner bridges a per-tenant NATS JetStream
// substrate into a downstream plugin sink, enforcing per-tenant monthly
// quotas and emitting billing events as it goes.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/teranos/nats-geyser-runner/internal/billing"
	"github.com/teranos/nats-geyser-runner/internal/cache"
	"github.com/teranos/nats-geyser-runner/internal/codec"
	"github.com/teranos/nats-geyser-runner/internal/conn"
	"github.com/teranos/nats-geyser-runner/internal/config"
	"github.com/teranos/nats-geyser-runner/internal/plugin"
	"github.com/teranos/nats-geyser-runner/internal/quota"
	"github.com/teranos/nats-geyser-runner/internal/shutdown"
	"github.com/teranos/nats-geyser-runner/internal/stream"
	"github.com/teranos/nats-geyser-runner/pkg/admin"
	pflags "github.com/teranos/nats-geyser-runner/pkg/flags"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "nats-geyser-runner",
		Short: "Bridge a per-tenant NATS JetStream substrate into a plugin sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := flag.NewFlagSet("nats-geyser-runner", flag.ContinueOnError)
			if err := pflags.ConfigureAndParse(fs, nil); err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}
			return run(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "config.yaml", "path to the runner's YAML configuration file")

	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("nats-geyser-runner exited with an error")
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg := prometheus.NewRegistry()
	broadcast := shutdown.NewBroadcast()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("received shutdown signal")
		broadcast.Trigger()
	}()

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("open jetstream context: %w", err)
	}
	substrate := stream.NewNATSSubstrate(js)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
	defer redisClient.Close()

	quotaCache := cache.New(redisClient, cfg.Cache.TTL.AsDuration(), cfg.Cache.StaleBuffer.AsDuration(), cfg.Cache.KeyPrefix, parseQuotaFlag)

	manager := conn.NewManager()

	billingEmitter, err := billing.NewEmitter(billing.Config{
		Brokers:      cfg.Billing.Brokers,
		Topic:        cfg.Billing.Topic,
		ChannelSize:  cfg.Billing.ChannelSize,
		QueueTimeout: cfg.Billing.QueueTimeout.AsDuration(),
		SASLUsername: cfg.Billing.SASLUsername,
		SASLPassword: cfg.Billing.SASLPassword,
		Shutdown:     broadcast,
		Metrics:      billing.NewMetrics(reg),
	})
	if err != nil {
		return fmt.Errorf("build billing emitter: %w", err)
	}
	go billingEmitter.Run(ctx)

	quotaChecker := quota.NewChecker(quota.Config{
		CheckInterval: cfg.Quota.CheckInterval.AsDuration(),
		BatchSize:     cfg.Quota.BatchSize,
		Manager:       manager,
		Cache:         quotaCache,
		Shutdown:      broadcast,
		Metrics:       quota.NewMetrics(reg),
	})
	go quotaChecker.Run(ctx)

	streamMetrics := stream.NewMetrics(reg)
	sink := plugin.NewLoggingSink(log.WithField("component", "plugin-sink"), nil)
	jsonCodec := &codec.JSONCodec{}

	supervisor := stream.StartStreamWorkers(ctx, streamConfigs(cfg, substrate, sink, jsonCodec, broadcast, streamMetrics))

	adminServer := admin.NewServer(cfg.Admin.Addr, reg, func() bool { return true })
	go func() {
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("admin server exited unexpectedly")
		}
	}()

	<-broadcast.Done()
	log.Info("shutting down")
	return supervisor.Wait()
}

func streamConfigs(cfg config.Config, substrate stream.Substrate, sink plugin.Sink, c *codec.JSONCodec, b *shutdown.Broadcast, m *stream.Metrics) []stream.Config {
	names := map[stream.Kind]string{
		stream.Account:       cfg.NATS.Streams.Account,
		stream.Slot:          cfg.NATS.Streams.Slot,
		stream.Transaction:   cfg.NATS.Streams.Transaction,
		stream.Entry:         cfg.NATS.Streams.Entry,
		stream.BlockMetadata: cfg.NATS.Streams.BlockMetadata,
	}

	configs := make([]stream.Config, 0, len(stream.Kinds))
	for _, kind := range stream.Kinds {
		configs = append(configs, stream.Config{
			Kind:          kind,
			StreamName:    names[kind],
			Substrate:     substrate,
			Sink:          sink,
			Codec:         c,
			Shutdown:      b,
			Metrics:       m,
			QueueCapacity: cfg.NATS.Fetchers.ChannelBound,
			MaxBatch:      cfg.NATS.Consumers.MaxBatchSize,
		})
	}
	return configs
}

// parseQuotaFlag is the value parser for the quota cache: an absent key
// means the tenant has not been flagged as over quota.
func parseQuotaFlag(raw *string) (bool, error) {
	if raw == nil {
		return false, nil
	}
	return *raw == "true", nil
}
