package di

import (
	"context"
	"fmt"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/application/services"
	"github.com/Shani815/vctalenthub-sub000/domain/quota"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/config"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/messaging/eventbridge"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/messaging/logmailer"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/observability"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/persistence/dynamodb"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/persistence/memory"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/persistence/postgres"
	"github.com/Shani815/vctalenthub-sub000/interfaces/http/rest"
	"github.com/Shani815/vctalenthub-sub000/interfaces/http/rest/middleware"
	"github.com/Shani815/vctalenthub-sub000/pkg/auth"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const serviceName = "vctalenthub-graph"

// Metrics groups the recorder handed to services with the pieces the
// router exposes. Prometheus and Gatherer are nil unless Prometheus is on.
type Metrics struct {
	Recorder   ports.Metrics
	Prometheus *observability.Recorder
	Gatherer   prometheus.Gatherer
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		zcfg.Level = level
	}

	return zcfg.Build(zap.Fields(zap.String("service", serviceName)))
}

// ProvideTracing sets up the configured trace backend
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.Tracing, func(), error) {
	backend := observability.TracingNone
	if cfg.EnableTracing {
		backend = cfg.TracingBackend
	}

	tracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Backend:      backend,
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: !cfg.IsProduction(),
		SampleRatio:  cfg.TraceSampleRatio,
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down tracing", zap.Error(err))
		}
	}
	return tracing, cleanup, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config, tracing *observability.Tracing) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	tracing.InstrumentAWS(&awsCfg)
	return awsCfg, nil
}

// ProvideStore opens the configured backing store
func ProvideStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (ports.Store, func(), error) {
	var store ports.Store

	switch cfg.StoreDriver {
	case config.StoreMemory:
		mem := memory.NewStore()
		if cfg.SeedFile != "" {
			n, err := mem.LoadSeed(cfg.SeedFile)
			if err != nil {
				return nil, nil, err
			}
			logger.Info("Loaded seed data", zap.String("file", cfg.SeedFile), zap.Int("actors", n))
		}
		store = mem

	case config.StorePostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.Options{
			MaxOpenConns:    cfg.DatabaseMaxConns,
			MaxIdleConns:    cfg.DatabaseMaxConns / 2,
			ConnMaxLifetime: 30 * time.Minute,
			Tracing:         cfg.EnableTracing && cfg.TracingBackend == observability.TracingOTLP,
		})
		if err != nil {
			return nil, nil, err
		}
		pg, err := postgres.NewStore(ctx, db, logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		store = pg

	case config.StoreDynamoDB:
		client := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
			if cfg.DynamoDBEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
			}
		})
		ddb := dynamodb.NewStore(client, cfg.DynamoDBTable, logger,
			dynamodb.WithIndexNames(cfg.GSI1IndexName, cfg.GSI2IndexName))
		if cfg.CreateTable {
			if err := ddb.EnsureTable(ctx); err != nil {
				return nil, nil, err
			}
		}
		store = ddb

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	logger.Info("Store ready", zap.String("driver", cfg.StoreDriver))
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}
	return store, cleanup, nil
}

// ProvideMailer selects the email dispatch collaborator
func ProvideMailer(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) ports.Mailer {
	if cfg.Mailer == config.MailerEventBridge {
		return eventbridge.NewMailer(
			awseventbridge.NewFromConfig(awsCfg),
			cfg.EventBusName,
			cfg.EventSource,
			eventbridge.DefaultBreakerConfig(),
			logger,
		)
	}
	return logmailer.NewMailer(logger)
}

// ProvideMetrics builds the configured metrics backend. Outside Lambda the
// Prometheus endpoint stays available next to CloudWatch.
func ProvideMetrics(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (*Metrics, func(), error) {
	m := &Metrics{}
	var recorders observability.Multi

	if cfg.MetricsBackend == config.MetricsPrometheus ||
		(cfg.MetricsBackend == config.MetricsCloudWatch && !cfg.IsLambda) {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m.Prometheus = observability.NewRecorder(reg)
		m.Gatherer = reg
		recorders = append(recorders, m.Prometheus)
	}

	cleanup := func() {}
	if cfg.MetricsBackend == config.MetricsCloudWatch {
		cw := observability.NewCloudWatchRecorder(
			awscloudwatch.NewFromConfig(awsCfg),
			cfg.MetricsNamespace,
			cfg.MetricsInterval,
			logger,
		)
		cw.Start()
		recorders = append(recorders, cw)
		cleanup = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			cw.Close(ctx)
		}
	}

	switch len(recorders) {
	case 0:
	case 1:
		m.Recorder = recorders[0]
	default:
		m.Recorder = recorders
	}
	return m, cleanup, nil
}

// ProvideQuotaService creates the quota guard
func ProvideQuotaService(store ports.Store, metrics *Metrics, logger *zap.Logger) *services.QuotaService {
	return services.NewQuotaService(quota.DefaultPolicy(), store, store, metrics.Recorder, nil, logger)
}

// ProvideConnectionService creates the connection ledger
func ProvideConnectionService(store ports.Store, q *services.QuotaService, metrics *Metrics, logger *zap.Logger) *services.ConnectionService {
	return services.NewConnectionService(store, store, q, metrics.Recorder, nil, logger)
}

// ProvideIntroService creates the introduction ledger
func ProvideIntroService(store ports.Store, mailer ports.Mailer, metrics *Metrics, logger *zap.Logger) *services.IntroService {
	return services.NewIntroService(store, store, mailer, metrics.Recorder, nil, logger)
}

// ProvideJWTValidator creates the token validator. Without a secret only
// gateway-authorized requests are accepted and the validator is nil.
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set; bearer tokens will be rejected")
		return nil, nil
	}

	var audience []string
	if cfg.JWTAudience != "" {
		audience = []string{cfg.JWTAudience}
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
		Audience:      audience,
	})
}

// ProvideErrorHandler creates the HTTP error renderer
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.DebugErrors && !cfg.IsProduction())
}

// ProvideAuthenticator creates the authentication middleware
func ProvideAuthenticator(cfg *config.Config, validator *auth.JWTValidator, errs *pkgerrors.ErrorHandler, logger *zap.Logger) (*middleware.Authenticator, func()) {
	a := middleware.NewAuthenticator(validator, middleware.AuthConfig{
		TrustGatewayHeaders: cfg.TrustGatewayHeaders,
		RateLimitPerMinute:  cfg.RateLimitPerMinute,
		RateLimitBurst:      cfg.RateLimitBurst,
	}, errs, logger)
	return a, a.Stop
}

// ProvideRouter assembles the HTTP router
func ProvideRouter(
	cfg *config.Config,
	connections *services.ConnectionService,
	intros *services.IntroService,
	q *services.QuotaService,
	store ports.Store,
	authn *middleware.Authenticator,
	errs *pkgerrors.ErrorHandler,
	metrics *Metrics,
	tracing *observability.Tracing,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(rest.Dependencies{
		Connections: connections,
		Intros:      intros,
		Quota:       q,
		Store:       store,
		Auth:        authn,
		Errors:      errs,
		Metrics:     metrics.Prometheus,
		Gatherer:    metrics.Gatherer,
		Tracing:     tracing,
		CORS: rest.CORSConfig{
			Enabled: cfg.EnableCORS,
			Origins: cfg.CORSOrigins,
		},
		Logger: logger,
	})
}
