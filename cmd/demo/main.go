// Command demo is the adapted equivalent of the original Python source's
// main.py throughput driver: one producer publishes an increasing run of
// integers through the disruptor package's generic core, and a
// configurable number of subscribers fan out to read every one of them.
//
// It exists to exercise the public API end to end, not as part of the
// core itself (benchmarking harnesses are out of scope for the core, per
// SPEC_FULL.md).
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rishav/disruptor/disruptor"
	"github.com/rishav/disruptor/disruptormetrics"
	"github.com/rishav/disruptor/distbarrier"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090) instead of exiting after the run")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := LoadDemoConfig(*configPath)
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	recorder := disruptormetrics.NewPrometheusRecorder(registry, "disruptor", "demo")

	opts := []disruptor.Option{
		disruptor.WithLogger(logger),
		disruptor.WithMetrics(recorder),
	}

	if cfg.Multiproc {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		factory := distbarrier.NewRedisSignalFactory(client, cfg.RedisChannelKey)
		opts = append(opts, disruptor.WithMultiproc(true), disruptor.WithSignalFactory(factory.Factory()))
		logger.Info("wired redis-backed signal factory for cross-process subscribers", zap.String("redis_addr", cfg.RedisAddr))
	}

	ring, err := disruptor.New(cfg.Capacity, disruptor.NewCellFactory[int](), opts...)
	if err != nil {
		logger.Fatal("constructing disruptor", zap.Error(err))
	}

	metricsDone := make(chan struct{})
	if *metricsAddr != "" {
		go func() {
			defer close(metricsDone)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			logger.Info("serving metrics", zap.String("addr", *metricsAddr))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	pub, err := ring.RegisterPublisher()
	if err != nil {
		logger.Fatal("registering publisher", zap.Error(err))
	}

	var group errgroup.Group
	for i := 0; i < cfg.Subscribers; i++ {
		i := i
		sub, err := ring.RegisterSubscriber()
		if err != nil {
			logger.Fatal("registering subscriber", zap.Error(err))
		}
		group.Go(func() error {
			return runSubscriber(ring, sub, i, cfg.Publications, logger)
		})
	}

	start := time.Now()
	for i := 0; i < cfg.Publications; i++ {
		i := i
		if err := pub.Publish(func(slot *disruptor.Cell[int], seq disruptor.Sequence) {
			slot.Write(i)
		}, disruptor.NoTimeout); err != nil {
			logger.Fatal("publishing", zap.Error(err))
		}
	}
	elapsed := time.Since(start)

	if err := group.Wait(); err != nil {
		logger.Fatal("subscriber failed", zap.Error(err))
	}

	ring.Close()

	throughput := float64(cfg.Publications) / elapsed.Seconds()
	logger.Info("demo run complete",
		zap.Int("publications", cfg.Publications),
		zap.Duration("elapsed", elapsed),
		zap.Float64("events_per_second", throughput),
	)

	if *metricsAddr != "" {
		<-metricsDone
	}
}

func runSubscriber(ring *disruptor.Disruptor[*disruptor.Cell[int]], sub *disruptor.Subscriber, id, publications int, logger *zap.Logger) error {
	defer func() {
		if err := ring.RemoveSubscriber(sub); err != nil {
			logger.Warn("removing subscriber", zap.Int("subscriber", id), zap.Error(err))
		}
	}()

	sum := 0
	for seq := disruptor.Sequence(0); int(seq) < publications; seq++ {
		got, err := ring.WaitFor(seq, disruptor.NoTimeout)
		if err != nil {
			return fmt.Errorf("subscriber %d: wait_for %d: %w", id, seq, err)
		}
		slot, err := ring.Get(got)
		if err != nil {
			return fmt.Errorf("subscriber %d: get %d: %w", id, got, err)
		}
		sum += slot.Read()
		sub.UpdateSequence(got)
	}

	logger.Debug("subscriber finished", zap.Int("subscriber", id), zap.Int("sum", sum))
	return nil
}
