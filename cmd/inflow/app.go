package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"inflow/internal/config"
	"inflow/internal/constants"
	"inflow/internal/contacts"
	"inflow/internal/dedup"
	"inflow/internal/imapchan"
	"inflow/internal/ingest"
	"inflow/internal/logger"
	"inflow/internal/normalize"
	"inflow/internal/smschan"
	"inflow/pkg/bootstrap"
	"inflow/pkg/circuitbreaker"
	"inflow/pkg/health"
	"inflow/pkg/metrics"
)

type App struct {
	*bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector
	redis       *redis.Client
	mongo       *mongo.Client

	recordStore contacts.RecordStore
	dedupStore  *dedup.Store
	cursorStore *dedup.CursorStore
	pipeline    *ingest.Pipeline
	supervisors []*imapchan.Supervisor
	smsPoller   *smschan.Poller
	server      *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("inflow")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitBroker(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	a.initRecordStore()
	a.initPipeline()

	if err := a.dedupStore.Load(ctx); err != nil {
		return fmt.Errorf("failed to load dedup store: %w", err)
	}

	a.initChannels()

	metrics.RegisterIngestMetrics()
	metrics.RegisterDedupMetrics()
	metrics.RegisterChannelMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterRecordStoreMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.initHTTPServer()

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb

	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	a.mongo = mongoClient
	return nil
}

func (a *App) initRecordStore() {
	store := contacts.RecordStore(contacts.NewMongoRecordStore(a.mongo, a.Config.RecordStore.Database))

	if a.Config.CircuitBreaker.Enabled {
		cbCfg := circuitbreaker.DefaultConfig("record_store")
		if a.Config.CircuitBreaker.MaxRequests > 0 {
			cbCfg.MaxRequests = a.Config.CircuitBreaker.MaxRequests
		}
		if a.Config.CircuitBreaker.Interval > 0 {
			cbCfg.Interval = a.Config.CircuitBreaker.Interval
		}
		if a.Config.CircuitBreaker.Timeout > 0 {
			cbCfg.Timeout = a.Config.CircuitBreaker.Timeout
		}
		store = contacts.NewBreakerStore(store, circuitbreaker.NewWrapper(cbCfg))
		a.Logger.Infow("Circuit breaker enabled for record store")
	}

	a.recordStore = store
}

func (a *App) initPipeline() {
	dedupCfg := dedup.Config{
		Retention:         a.Config.Dedup.Retention,
		HistorySize:       a.Config.Dedup.HistorySize,
		BodyPrefixLen:     a.Config.Dedup.BodyPrefixLen,
		TimestampRounding: a.Config.Dedup.TimestampRounding,
	}

	a.dedupStore = dedup.NewStore(dedup.NewRepository(a.redis), dedupCfg, a.Logger)
	a.cursorStore = dedup.NewCursorStore(dedup.NewCursorRepository(a.redis), dedupCfg.Retention, a.Logger)

	topic := a.Config.Broker.Kafka.EventTopic
	if topic == "" {
		topic = constants.DefaultEventTopic
	}

	a.pipeline = ingest.NewPipeline(
		ingest.NewClassifier(a.Config.Classifier.MinNumericSenderDigits),
		contacts.NewResolver(a.recordStore, a.Config.Classifier.DefaultCountryCode),
		a.recordStore,
		normalize.New(),
		dedup.NewHasher(dedupCfg.BodyPrefixLen, dedupCfg.TimestampRounding),
		a.dedupStore,
		a.cursorStore,
		a.Producer,
		topic,
		a.Logger,
	)
}

func (a *App) initChannels() {
	for _, account := range a.Config.IMAP.Accounts {
		a.pipeline.RegisterSelfAddresses(account.ID, account.SelfAddresses)
		sup := imapchan.NewSupervisor(account, a.Config.IMAP, imapchan.TLSDialer{}, a.pipeline, a.Logger)
		a.supervisors = append(a.supervisors, sup)
	}

	if a.Config.SMS.Enabled {
		client := smschan.NewClient(
			a.Config.SMS.BaseURL,
			a.Config.SMS.APIKey,
			a.Config.SMS.PageSize,
			a.Config.SMS.RequestsPerSecond,
		)
		a.smsPoller = smschan.NewPoller(a.Config.SMS, client, a.pipeline, a.Logger)
	}
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	if a.mongo != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongo))
	}
	for _, sup := range a.supervisors {
		name := fmt.Sprintf("imap_%s", sup.AccountID())
		healthRegistry.Register(health.NewSupervisorChecker(name, sup.HealthState))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      mux,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	for _, sup := range a.supervisors {
		sup := sup
		g.Go(func() error {
			sup.Run(gCtx)
			return nil
		})
	}

	if a.smsPoller != nil {
		g.Go(func() error {
			a.smsPoller.Run(gCtx)
			return nil
		})
	}

	g.Go(func() error {
		a.cursorStore.RunCompactor(gCtx, a.accountIDs(), a.Config.Dedup.CompactInterval)
		return nil
	})

	return g.Wait()
}

func (a *App) accountIDs() []string {
	ids := make([]string, 0, len(a.Config.IMAP.Accounts)+1)
	for _, account := range a.Config.IMAP.Accounts {
		ids = append(ids, account.ID)
	}
	if a.Config.SMS.Enabled {
		ids = append(ids, a.Config.SMS.AccountID)
	}
	return ids
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.InfowCtx(ctx, "Shutting down inflow")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.dedupStore != nil {
			a.dedupStore.StopKeyMetricsUpdater()
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.mongo)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
