package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kubesee/kubesee/pkg/exporter"
	"github.com/kubesee/kubesee/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/exporter-toolkit/web"
	"github.com/rs/zerolog"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/kubesee/kubesee/pkg/kube"
)

func main() {
	var configPath, webConfigPath, listenAddr string
	flag.StringVar(&configPath, "conf", envOr("KUBESEE_CONFIG", "config.yaml"), "path to the exporter config file")
	flag.StringVar(&webConfigPath, "web.config", os.Getenv("KUBESEE_WEB_CONFIG"), "path to the exporter-toolkit TLS/auth config file")
	flag.StringVar(&listenAddr, "web.listen-address", envOr("KUBESEE_LISTEN_ADDRESS", ":2112"), "address to serve /metrics on")
	flag.Parse()

	cfg, err := exporter.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		slog.Error("invalid environment override", "err", err)
		os.Exit(1)
	}

	installLogger(cfg.LogLevel, cfg.LogFormat)

	registry := prometheus.NewRegistry()
	store := metrics.NewStore(registry, cfg.MetricsNamePrefix)

	engine, err := exporter.NewEngine(cfg, exporter.NewRegistry(store))
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}
	if d, ok := drainTimeoutFromEnv(); ok {
		engine.DrainTimeout = d
	}

	go serveMetrics(registry, listenAddr, webConfigPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stopCh := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stopCh)
	}()

	if cfg.LeaderElection.Enabled {
		runWithLeaderElection(ctx, cfg, engine, store, stopCh)
		return
	}

	if err := engine.Run(cfg, store, stopCh); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}
}

// runWithLeaderElection wraps engine.Run in a client-go leader-election
// lease so only one of several replicas watches and dispatches events at a
// time (spec.md §6's leaderElection config block).
func runWithLeaderElection(ctx context.Context, cfg *exporter.Config, engine *exporter.Engine, store *metrics.Store, stopCh chan struct{}) {
	restConfig, err := kube.BuildConfig(cfg.KubeQPS, cfg.KubeBurst)
	if err != nil {
		slog.Error("failed to build kube config for leader election", "err", err)
		os.Exit(1)
	}

	id, err := os.Hostname()
	if err != nil {
		id = "kubesee"
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "default"
	}

	lock, err := resourcelock.NewFromKubeconfig(
		resourcelock.LeasesResourceLock,
		namespace,
		cfg.LeaderElection.LeaderElectionID,
		resourcelock.ResourceLockConfig{Identity: id},
		restConfig,
		15_000_000_000, // renew deadline, in ns (15s)
	)
	if err != nil {
		slog.Error("failed to build leader election lock", "err", err)
		os.Exit(1)
	}

	leaderelection.RunOrDie(ctx, leaderelection.LeaderElectionConfig{
		Lock:          lock,
		ReleaseOnCancel: true,
		LeaseDuration: 15_000_000_000,
		RenewDeadline: 10_000_000_000,
		RetryPeriod:   2_000_000_000,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(ctx context.Context) {
				slog.Info("acquired leader lease, starting watcher", "identity", id)
				if err := engine.Run(cfg, store, stopCh); err != nil {
					slog.Error("engine exited with error", "err", err)
				}
			},
			OnStoppedLeading: func() {
				slog.Info("lost leader lease", "identity", id)
			},
		},
	})
}

func serveMetrics(registry *prometheus.Registry, listenAddr, webConfigPath string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: listenAddr, Handler: mux}
	flags := &web.FlagConfig{
		WebListenAddresses: &[]string{listenAddr},
		WebConfigFile:      &webConfigPath,
	}
	if err := web.ListenAndServe(srv, flags, slog.Default()); err != nil && err != http.ErrServerClosed {
		slog.Error("metrics server exited", "err", err)
	}
}

// installLogger configures the root slog logger per spec.md §6's logLevel/
// logFormat keys, using zerolog as the structured writer (json) or a
// console writer (console/logfmt) underneath slog's API.
func installLogger(level, format string) {
	zlevel, err := zerolog.ParseLevel(level)
	if err != nil {
		zlevel = zerolog.InfoLevel
	}

	var writer = os.Stderr
	var zl zerolog.Logger
	if format == "console" || format == "logfmt" {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: writer}).Level(zlevel).With().Timestamp().Logger()
	} else {
		zl = zerolog.New(writer).Level(zlevel).With().Timestamp().Logger()
	}

	slog.SetDefault(slog.New(slogHandler{zl: zl}))
}

// applyEnvOverrides layers the KUBESEE_LOG_LEVEL/KUBESEE_METRICS_PREFIX
// environment variables (spec.md §6) over whatever the YAML file set, so an
// operator can adjust either at deploy time without editing the config.
// LoadConfig has already run Validate against the YAML value, so an
// override to MetricsNamePrefix is re-validated here rather than bypassing
// the ^[a-zA-Z][a-zA-Z0-9_:]*_$ rule config.go's Validate enforces.
func applyEnvOverrides(cfg *exporter.Config) error {
	if v := os.Getenv("KUBESEE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("KUBESEE_METRICS_PREFIX"); v != "" {
		cfg.MetricsNamePrefix = v
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// drainTimeoutFromEnv reads KUBESEE_DRAIN_TIMEOUT (milliseconds, spec.md
// §6), returning ok=false when unset or unparsable so the caller keeps the
// engine's built-in default.
func drainTimeoutFromEnv() (time.Duration, bool) {
	v := os.Getenv("KUBESEE_DRAIN_TIMEOUT")
	if v == "" {
		return 0, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms <= 0 {
		slog.Warn("ignoring invalid KUBESEE_DRAIN_TIMEOUT", "value", v)
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
