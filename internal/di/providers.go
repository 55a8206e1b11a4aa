package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"Aegis/internal/domain/repository"
	dsvc "Aegis/internal/domain/service"
	"Aegis/internal/handler/api"
	mid "Aegis/internal/middleware"
	"Aegis/internal/ooda"
	internalrepo "Aegis/internal/repository"
	"Aegis/internal/risk"
	"Aegis/internal/service/broker"
	icache "Aegis/internal/service/cache"
	"Aegis/internal/service/feed"
	"Aegis/internal/service/marketdata"
	"Aegis/internal/service/ratelimit"
	analytics "Aegis/internal/services/analytics"
	"Aegis/internal/usecase"
	pkgcache "Aegis/pkg/cache"
	pkgch "Aegis/pkg/clickhouse"
	"Aegis/pkg/config"
	pkgkafka "Aegis/pkg/kafka"
	xlogger "Aegis/pkg/logger"
	"Aegis/pkg/metrics"
	"Aegis/pkg/queue"
	"Aegis/pkg/server"

	goredis "github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*xlogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return xlogger.New(&xlogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS aegis",
		"CREATE TABLE IF NOT EXISTS aegis.decisions (ts DateTime, symbol String, side String, status String, approved_size Float64, max_drawdown Float64, reasoning String) ENGINE=MergeTree ORDER BY (symbol, ts)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideDecisionStore creates the ClickHouse decision audit store.
func ProvideDecisionStore(chClient *pkgch.Client, cfg *config.Config) repository.DecisionStore {
	return internalrepo.NewClickHouseDecisionStore(chClient.DB(), cfg.ClickHouse.Database+".decisions")
}

// ProvideDecisionPublisher creates the Kafka decision publisher.
func ProvideDecisionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.DecisionPublisher {
	return internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.Topic)
}

// ProvideMarketStream creates the WebSocket tick stream.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Engine.Symbols,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideHistoryStore creates the rolling per-symbol history store.
func ProvideHistoryStore(cfg *config.Config) repository.HistoryStore {
	return marketdata.NewRollingStore(cfg.Feed.HistoryDepth)
}

// ProvideMarketCollector wires the tick stream into the history store.
func ProvideMarketCollector(
	stream repository.MarketStream,
	store repository.HistoryStore,
	metrics repository.Metrics,
) *usecase.MarketCollector {
	return usecase.NewMarketCollector(stream, store, metrics)
}

// ProvideSnapshotSource adapts the history store to the orchestrator's
// snapshot port, mirroring into the shared cache when Redis is configured.
func ProvideSnapshotSource(store repository.HistoryStore, cfg *config.Config) dsvc.MarketDataSource {
	var shared pkgcache.Service
	if cfg.Analytics.Redis.Enabled {
		host, portStr, err := net.SplitHostPort(cfg.Analytics.Redis.Addr)
		if err == nil {
			port, _ := strconv.Atoi(portStr)
			if rc, rerr := pkgcache.NewRedisCache(
				pkgcache.WithRedisHost(host),
				pkgcache.WithRedisPort(port),
				pkgcache.WithRedisPassword(cfg.Analytics.Redis.Password),
				pkgcache.WithRedisDB(cfg.Analytics.Redis.DB),
				pkgcache.WithRedisPrefix("aegis"),
			); rerr == nil {
				shared = pkgcache.NewLayeredCache(rc)
			}
		}
	}
	return marketdata.NewSnapshotSource(store, shared, 10*time.Second)
}

// ProvideForecaster creates the quantile forecaster client with a short TTL
// response cache.
func ProvideForecaster(cfg *config.Config) dsvc.Forecaster {
	base := analytics.NewHTTPServiceBase(cfg.Analytics.ForecastServiceURL, cfg.Analytics.Timeout)
	ttl := cfg.Analytics.CacheTTL.Forecast
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	var c icache.BytesCache
	if cfg.Analytics.Redis.Enabled {
		c = icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Analytics.Redis.Addr,
			Password: cfg.Analytics.Redis.Password,
			DB:       cfg.Analytics.Redis.DB,
		})
	} else {
		c = icache.NewTTLCache()
	}
	return analytics.NewQuantileForecaster(base, c, ttl)
}

// ProvideCouncil creates one HTTP voter per configured council member.
func ProvideCouncil(cfg *config.Config) []dsvc.CouncilMember {
	base := analytics.NewHTTPServiceBase(cfg.Analytics.ForecastServiceURL, cfg.Analytics.Timeout)
	members := make([]dsvc.CouncilMember, 0, len(cfg.Analytics.CouncilMembers))
	for _, name := range cfg.Analytics.CouncilMembers {
		members = append(members, analytics.NewHTTPCouncilMember(base, name))
	}
	return members
}

// ProvideReasoning creates the rate-limited reasoning client.
func ProvideReasoning(cfg *config.Config) dsvc.ReasoningEngine {
	base := analytics.NewHTTPServiceBase(cfg.Analytics.ReasoningServiceURL, cfg.Analytics.Timeout)
	return analytics.NewReasoningClient(base, ratelimit.New(), cfg.Analytics.ReasoningRPM)
}

// ProvideOrchestrator creates the per-cycle analysis orchestrator.
func ProvideOrchestrator(
	market dsvc.MarketDataSource,
	council []dsvc.CouncilMember,
	reasoning dsvc.ReasoningEngine,
	metrics repository.Metrics,
	logger *xlogger.Logger,
) *ooda.Orchestrator {
	return ooda.New(ooda.Options{
		Market:    market,
		Council:   council,
		Reasoning: reasoning,
		Metrics:   metrics,
		Logger:    logger,
	})
}

// ProvideGovernor creates the session risk governor.
func ProvideGovernor(cfg *config.Config, forecaster dsvc.Forecaster, metrics repository.Metrics, logger *xlogger.Logger) *risk.Governor {
	rc := risk.DefaultConfig()
	if cfg.Risk.DrawdownLimit > 0 {
		rc.DrawdownLimit = cfg.Risk.DrawdownLimit
	}
	if cfg.Risk.NashThreshold > 0 {
		rc.NashThreshold = cfg.Risk.NashThreshold
	}
	if cfg.Risk.HardCorrLimit > 0 {
		rc.HardCorrLimit = cfg.Risk.HardCorrLimit
	}
	if cfg.Risk.SoftCorrLimit > 0 {
		rc.SoftCorrLimit = cfg.Risk.SoftCorrLimit
	}
	if cfg.Risk.SettlementFloor > 0 {
		rc.SettlementFloor = cfg.Risk.SettlementFloor
	}
	if cfg.Risk.RiskBudget > 0 {
		rc.RiskBudget = cfg.Risk.RiskBudget
	}
	return risk.NewGovernor(rc, forecaster, metrics, logger)
}

// ProvidePaperAccount creates the paper account used without a brokerage.
// The ops API marks it to market; the engine reads it each cycle.
func ProvidePaperAccount(cfg *config.Config) *broker.PaperAccount {
	return broker.NewPaperAccount(cfg.Risk.StartingCapital, cfg.Risk.PDTExempt)
}

// ProvideAccountSource exposes the paper account behind the engine's port.
func ProvideAccountSource(acct *broker.PaperAccount) dsvc.AccountSource {
	return acct
}

// ProvideDecisionProcessor routes decisions to the configured backend.
func ProvideDecisionProcessor(
	pub repository.DecisionPublisher,
	store repository.DecisionStore,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.DecisionProcessor {
	return usecase.NewDecisionProcessor(pub, store, metrics, cfg.Backend.Type)
}

// ProvidePersistPipeline buffers decision persistence off the decision loop.
func ProvidePersistPipeline(proc *usecase.DecisionProcessor, metrics repository.Metrics) *mid.PersistPipeline {
	return mid.NewPersistPipeline(proc, metrics, mid.WithBufferSize(2000))
}

// ProvideSessionClock parses the configured trading session window.
func ProvideSessionClock(cfg *config.Config) (*usecase.SessionClock, error) {
	return usecase.NewSessionClock(cfg.Engine.SessionOpen, cfg.Engine.SessionClose, cfg.Engine.Timezone)
}

// ProvideAlertQueue creates the Redis ops alert publisher, nil when Redis is
// not configured (the engine skips alerting).
func ProvideAlertQueue(cfg *config.Config, logger *xlogger.Logger) queue.QueueService {
	if !cfg.Analytics.Redis.Enabled {
		return nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Analytics.Redis.Addr,
		Password: cfg.Analytics.Redis.Password,
		DB:       cfg.Analytics.Redis.DB,
	})
	q := queue.NewRedisPublisher(logger, client, queue.WithKeyPrefix("aegis:alerts"))

	// Aggregated error logs ride the same queue for the ops consumers.
	logger.AddCollector(&xlogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          "error_logs",
		Publisher:      q,
	})
	return q
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideDecisionsTopicHandler lands bus decision events into ClickHouse.
func ProvideDecisionsTopicHandler(store repository.DecisionStore, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaDecisionsHandler {
	return usecase.NewKafkaDecisionsHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideDecisionEngine assembles the decision loop.
func ProvideDecisionEngine(
	orchestrator *ooda.Orchestrator,
	governor *risk.Governor,
	accounts dsvc.AccountSource,
	pipe *mid.PersistPipeline,
	clock *usecase.SessionClock,
	alerts queue.QueueService,
	metrics repository.Metrics,
	logger *xlogger.Logger,
	cfg *config.Config,
) *usecase.DecisionEngine {
	return usecase.NewDecisionEngine(usecase.EngineOptions{
		Orchestrator: orchestrator,
		Governor:     governor,
		Accounts:     accounts,
		Pipeline:     pipe,
		Clock:        clock,
		Alerts:       alerts,
		Metrics:      metrics,
		Logger:       logger,
		Symbols:      cfg.Engine.Symbols,
		Interval:     cfg.Engine.CycleInterval,
	})
}

// ProvideOpsHandler creates the ops API handler.
func ProvideOpsHandler(
	logger *xlogger.Logger,
	engine *usecase.DecisionEngine,
	store repository.DecisionStore,
	collector *usecase.MarketCollector,
	account *broker.PaperAccount,
	cfg *config.Config,
) *api.OpsHandler {
	return api.NewOpsHandler(logger, engine, store, collector, account, cfg.Environment)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *xlogger.Logger,
	collector *usecase.MarketCollector,
	engine *usecase.DecisionEngine,
	processor *usecase.DecisionProcessor,
	handler *api.OpsHandler,
	chClient *pkgch.Client,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaDecisionsHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, logger, collector, engine, processor, handler, chClient, consumer, kh)
}
