package sentinel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/panel-sentinel/internal/config"
	"github.com/oshokin/panel-sentinel/internal/db"
	"github.com/oshokin/panel-sentinel/internal/logger"
	"github.com/oshokin/panel-sentinel/internal/metrics"
	"github.com/oshokin/panel-sentinel/internal/notify"
	"github.com/oshokin/panel-sentinel/internal/repository/cache"
	"github.com/oshokin/panel-sentinel/internal/repository/live"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
	memstore "github.com/oshokin/panel-sentinel/internal/repository/store/memory"
	"github.com/oshokin/panel-sentinel/internal/repository/store/sqlite"
)

// Options controls the panel-sentinel process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the gRPC listen address from the configuration.
	ListenAddress string
	// Memory keeps schedules, ignore lists, snapshots and the cache in memory only.
	Memory bool
	// Once runs a single poll cycle and exits without serving the API.
	Once bool
}

const (
	// metricsShutdownTimeout bounds the metrics server shutdown.
	metricsShutdownTimeout = 5 * time.Second
	// metricsReadHeaderTimeout bounds reading request headers of a metrics scrape.
	metricsReadHeaderTimeout = 5 * time.Second
)

// errUnknownLogLevel is returned for unsupported log.level values.
var errUnknownLogLevel = errors.New("unknown log level")

// Run starts panel-sentinel and blocks until the context is canceled.
//
//nolint:funlen // Wiring reads best top to bottom.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "panel-sentinel")

	// Load configuration first to get service settings.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Apply log level and optional file output.
	logCloser, err := setupLogging(&cfg.Log)
	if err != nil {
		return err
	}

	if logCloser != nil {
		defer closeQuietly(ctx, "log file", logCloser)
	}

	// Open the persistent store. A broken store is fatal at startup.
	st, closeStore, err := openStore(ctx, cfg, opts.Memory)
	if err != nil {
		return err
	}

	defer closeStore()

	// Open the arm-state cache.
	kv, closeCache, err := openCache(ctx, cfg, st, opts.Memory)
	if err != nil {
		return err
	}

	defer closeCache()

	// Connect to the live system.
	liveDB, err := live.Open(ctx, &cfg.Live, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("open live system: %w", err)
	}

	gateway := live.NewGateway(liveDB, cfg.Timeout)
	defer closeQuietly(ctx, "live system", gateway)

	// Connect the alert sinks.
	sender, closeSender, err := openSenders(ctx, cfg)
	if err != nil {
		return err
	}

	defer closeSender()

	m := metrics.New()

	sentinel := New(&Dependencies{
		Store:        st,
		Cache:        kv,
		Live:         gateway,
		Sender:       sender,
		Metrics:      m,
		Location:     cfg.Location(),
		PollInterval: cfg.PollInterval,
	})

	if opts.Once {
		logger.Info(ctx, "Running a single poll cycle")
		sentinel.RunOnce(ctx)

		return nil
	}

	if cfg.MetricsAddress != "" {
		stopMetrics := serveMetrics(ctx, cfg.MetricsAddress, m.Handler())
		defer stopMetrics()
	}

	listenAddress := cfg.ListenAddress
	if opts.ListenAddress != "" {
		listenAddress = opts.ListenAddress
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	logger.InfoKV(ctx, "Panel sentinel started",
		"poll_interval", cfg.PollInterval.String(),
		"timezone", cfg.Timezone,
		"cache_backend", cfg.Cache.Backend,
		"memory", opts.Memory,
	)

	return sentinel.Serve(ctx, lis)
}

func setupLogging(cfg *config.LogConfig) (io.Closer, error) {
	level, ok := logger.ParseLogLevel(cfg.Level)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.Level)
	}

	var fileLevel zapcore.LevelEnabler
	if cfg.FileLevel != "" {
		parsed, ok := logger.ParseLogLevel(cfg.FileLevel)
		if !ok {
			return nil, fmt.Errorf("%w: file level %q", errUnknownLogLevel, cfg.FileLevel)
		}

		fileLevel = parsed
	}

	logger.SetLevel(level)

	if cfg.File == "" {
		return nil, nil //nolint:nilnil // Stdout needs no closing.
	}

	l, closer, err := logger.NewWithFile(nil, logger.FileOptions{
		Pattern:      cfg.File,
		MaxAge:       cfg.MaxAge,
		RotationTime: cfg.RotationTime,
		Level:        fileLevel,
	})
	if err != nil {
		return nil, err
	}

	logger.SetLogger(l)

	return closer, nil
}

func openStore(ctx context.Context, cfg *config.Config, inMemory bool) (store.Store, func(), error) {
	if inMemory {
		logger.Warn(ctx, "Using the in-memory store, nothing survives a restart")

		return memstore.New(), func() {}, nil
	}

	conn, err := db.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	writer := db.NewWorker(conn)

	closeFn := func() {
		writer.Close()
		closeQuietly(ctx, "store", conn)
	}

	logger.InfoKV(ctx, "Store opened", "path", cfg.Store.Path)

	return sqlite.New(conn, writer), closeFn, nil
}

func openCache(ctx context.Context, cfg *config.Config, st store.Store, inMemory bool) (store.KeyValue, func(), error) {
	if inMemory || cfg.Cache.Backend != config.CacheBackendRedis {
		return st, func() {}, nil
	}

	kv := cache.NewRedisKeyValue(cache.NewRedisClient(&cfg.Cache), cfg.Cache.KeyPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := kv.Ping(pingCtx); err != nil {
		closeQuietly(ctx, "redis", kv)

		return nil, nil, fmt.Errorf("connect redis cache: %w", err)
	}

	logger.InfoKV(ctx, "Redis cache connected", "redis_addr", cfg.Cache.RedisAddress)

	return kv, func() { closeQuietly(ctx, "redis", kv) }, nil
}

func openSenders(ctx context.Context, cfg *config.Config) (notify.Sender, func(), error) {
	sinks := []notify.Sender{notify.LogSender{}}
	closeFn := func() {}

	if mqttCfg := &cfg.Alerts.MQTT; mqttCfg.Broker != "" {
		client, err := notify.ConnectMQTT(mqttCfg, cfg.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("connect MQTT: %w", err)
		}

		sinks = append(sinks, notify.NewMQTTSender(client, mqttCfg.Topic, mqttCfg.QoS, cfg.Timeout))
		closeFn = func() { notify.DisconnectMQTT(client) }

		logger.InfoKV(ctx, "MQTT alert sink connected", "broker", mqttCfg.Broker, "topic", mqttCfg.Topic)
	}

	if webhook := &cfg.Alerts.Webhook; webhook.URL != "" {
		sinks = append(sinks, notify.NewWebhookSender(webhook.URL, cfg.Timeout, webhook.RetryCount))

		logger.InfoKV(ctx, "Webhook alert sink configured", "url", webhook.URL)
	}

	return notify.NewMulti(sinks...), closeFn, nil
}

// serveMetrics exposes handler on address until the returned stop is called.
func serveMetrics(ctx context.Context, address string, handler http.Handler) (stop func()) {
	server := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		logger.InfoKV(ctx, "Metrics listening", "metrics_address", address)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "Metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "Metrics server shutdown failed", "error", err)
		}
	}
}

func closeQuietly(ctx context.Context, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.WarnKV(ctx, "Close failed", "resource", name, "error", err)
	}
}
