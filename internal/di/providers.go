package di

import (
	"context"
	"fmt"
	"time"

	domrepo "GridAdvisor/internal/domain/repository"
	domsvc "GridAdvisor/internal/domain/service"
	"GridAdvisor/internal/handler/api"
	internalrepo "GridAdvisor/internal/repository"
	"GridAdvisor/internal/service/ratelimit"
	"GridAdvisor/internal/services/analytics"
	"GridAdvisor/internal/usecase"
	"GridAdvisor/pkg/cache"
	pkgch "GridAdvisor/pkg/clickhouse"
	"GridAdvisor/pkg/config"
	xhttp "GridAdvisor/pkg/http"
	pkgkafka "GridAdvisor/pkg/kafka"
	applogger "GridAdvisor/pkg/logger"
	"GridAdvisor/pkg/metrics"
	"GridAdvisor/pkg/server"
)

// ProvideLogger creates the application logger. With a producer and a log topic, error logs
// are aggregated and shipped to Kafka.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			Topic:     cfg.Kafka.LogTopic,
			Publisher: producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

func ProvideForecaster(cfg *config.Config) domsvc.Forecaster {
	return analytics.NewARIMAForecaster(
		analytics.WithHorizon(cfg.Analysis.Horizon),
		analytics.WithMaxIterations(cfg.Analysis.MaxIterations),
		analytics.WithFitTimeout(cfg.Analysis.FitTimeout),
	)
}

func ProvideAnomalyDetector(cfg *config.Config) domsvc.AnomalyDetector {
	return analytics.NewIsolationForest(
		analytics.WithContamination(cfg.Analysis.Contamination),
		analytics.WithSeed(cfg.Analysis.Seed),
		analytics.WithTrees(cfg.Analysis.Trees),
		analytics.WithMaxSamples(cfg.Analysis.MaxSamples),
	)
}

func ProvideDecisionMaker(cfg *config.Config) domsvc.DecisionMaker {
	return analytics.NewDecisionEngine(
		analytics.WithPrice(cfg.Analysis.PricePerUnit),
		analytics.WithMultiplier(cfg.Analysis.Multiplier),
		analytics.WithCurrency(cfg.Analysis.Currency),
	)
}

// ProvidePipeline assembles the analysis pipeline.
func ProvidePipeline(
	f domsvc.Forecaster,
	d domsvc.AnomalyDetector,
	dm domsvc.DecisionMaker,
	m domrepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.AnalysisPipeline {
	return usecase.NewAnalysisPipeline(f, d, dm, m, l,
		usecase.WithFitTimeout(cfg.Analysis.FitTimeout),
		usecase.WithConcurrentStages(cfg.Analysis.Concurrent),
	)
}

// ProvideCache creates the Redis-backed layered cache. Returns nil when caching is disabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	redisCache, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.PoolSize/2, 4*time.Second),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache,
		cache.WithLayeredMemorySize(cfg.Cache.MemorySize),
		cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
	), nil
}

// ProvideAnalyzer wraps the pipeline with the response cache when one is configured.
func ProvideAnalyzer(
	pipeline *usecase.AnalysisPipeline,
	c cache.Service,
	m domrepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) domsvc.Analyzer {
	if c == nil {
		return pipeline
	}
	return usecase.NewCachedAnalyzer(pipeline, internalrepo.NewResponseCache(c), m, l,
		cfg.Cache.TTL, cfg.Analysis.Fingerprint())
}

// ProvideClickHouseClient creates a read-only ClickHouse client. Returns nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ClickHouse.DialTimeout)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return client, nil
}

// ProvideLoadStore creates the meter readings store. Returns nil without a ClickHouse client.
func ProvideLoadStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) (domrepo.LoadStore, error) {
	if ch == nil {
		return nil, nil
	}
	store, err := internalrepo.NewCHLoadStore(ch, cfg.ClickHouse.Database+"."+cfg.ClickHouse.Table)
	if err != nil {
		return nil, err
	}
	store.SetLogger(l)
	return store, nil
}

func ProvideMeterAnalysis(store domrepo.LoadStore, analyzer domsvc.Analyzer, l *applogger.Logger) *usecase.MeterAnalysis {
	return usecase.NewMeterAnalysis(store, analyzer, l)
}

// ProvideKafkaProducer creates a Kafka producer. Returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.RetryMax),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer. Returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.RetryMax, cfg.Kafka.BackoffMin, cfg.Kafka.BackoffMax),
		pkgkafka.WithConsumerHandleTimeout(cfg.Analysis.FitTimeout+5*time.Second),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TracingHook())
	return consumer, nil
}

// ProvideAnalysisJobHandler creates the request topic handler. Returns nil without a producer.
func ProvideAnalysisJobHandler(
	cfg *config.Config,
	analyzer domsvc.Analyzer,
	producer *pkgkafka.Producer,
	l *applogger.Logger,
) *usecase.AnalysisJobHandler {
	if producer == nil {
		return nil
	}
	pub := internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultTopic)
	return usecase.NewAnalysisJobHandler(cfg.Kafka.RequestTopic, analyzer, pub, l)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Burst, cfg.RateLimit.PerSecond)
}

// ProvideHTTPHandler creates the analysis API handler with dependency health checks.
func ProvideHTTPHandler(
	l *applogger.Logger,
	analyzer domsvc.Analyzer,
	meters *usecase.MeterAnalysis,
	limiter *ratelimit.Limiter,
	c cache.Service,
) *api.AnalysisEchoHandler {
	h := api.NewAnalysisEchoHandler(l, analyzer, meters, limiter)
	if c != nil {
		h.AddHealthCheck("cache", c.Ping)
	}
	return h
}

func ProvideHTTPServer(cfg *config.Config, h *api.AnalysisEchoHandler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.HTTP.Host),
		xhttp.WithPort(cfg.HTTP.Port),
		xhttp.WithTimeouts(cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, cfg.HTTP.ShutdownTimeout),
		xhttp.WithBodyLimit(cfg.HTTP.BodyLimit),
		xhttp.WithCORSOrigins(cfg.HTTP.CORSOrigins),
		xhttp.WithSlowThreshold(cfg.HTTP.SlowThreshold),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application and registers every resource for shutdown.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	jobs *usecase.AnalysisJobHandler,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	c cache.Service,
) *server.App {
	var handlers []pkgkafka.MessageHandler
	if jobs != nil {
		handlers = append(handlers, jobs)
	}
	app := server.New(cfg, l, srv, consumer, handlers...)

	if c != nil {
		app.AddCloser("cache", c.Close)
	}
	if ch != nil {
		app.AddCloser("clickhouse", ch.Close)
	}
	if producer != nil {
		app.AddCloser("kafka producer", producer.Close)
		// flushes pending error logs before the producer closes
		app.AddCloser("log collector", func() error {
			l.RemoveCollector()
			return nil
		})
	}
	return app
}
