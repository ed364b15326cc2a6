package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
)

// Mailer drivers
const (
	MailerLog         = "log"
	MailerEventBridge = "eventbridge"
)

// Metrics backends
const (
	MetricsPrometheus = "prometheus"
	MetricsCloudWatch = "cloudwatch"
	MetricsNone       = "none"
)

// Config holds all application configuration
type Config struct {
	// Server
	ServerAddress   string        `yaml:"server_address"`
	Environment     string        `yaml:"environment"`
	LogLevel        string        `yaml:"log_level"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	DebugErrors     bool          `yaml:"debug_errors"`

	// Storage
	StoreDriver      string `yaml:"store_driver"`
	SeedFile         string `yaml:"seed_file"`
	DatabaseURL      string `yaml:"database_url"`
	DatabaseMaxConns int    `yaml:"database_max_conns"`

	// AWS
	AWSRegion        string `yaml:"aws_region"`
	DynamoDBTable    string `yaml:"dynamodb_table"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`
	GSI1IndexName    string `yaml:"gsi1_index_name"`
	GSI2IndexName    string `yaml:"gsi2_index_name"`
	CreateTable      bool   `yaml:"create_table"`
	EventBusName     string `yaml:"event_bus_name"`
	EventSource      string `yaml:"event_source"`
	Mailer           string `yaml:"mailer"`

	// Lambda
	IsLambda            bool `yaml:"is_lambda"`
	TrustGatewayHeaders bool `yaml:"trust_gateway_headers"`

	// Authentication
	JWTSecret   string `yaml:"jwt_secret"`
	JWTIssuer   string `yaml:"jwt_issuer"`
	JWTAudience string `yaml:"jwt_audience"`

	// Observability
	MetricsBackend   string        `yaml:"metrics_backend"`
	MetricsNamespace string        `yaml:"metrics_namespace"`
	MetricsInterval  time.Duration `yaml:"metrics_interval"`
	EnableTracing    bool          `yaml:"enable_tracing"`
	TracingBackend   string        `yaml:"tracing_backend"`
	OTLPEndpoint     string        `yaml:"otlp_endpoint"`
	TraceSampleRatio float64       `yaml:"trace_sample_ratio"`

	// HTTP surface
	EnableCORS         bool     `yaml:"enable_cors"`
	CORSOrigins        []string `yaml:"cors_origins"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
}

// Defaults returns the development configuration
func Defaults() *Config {
	return &Config{
		ServerAddress:   ":8080",
		Environment:     "development",
		LogLevel:        "info",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 30 * time.Second,

		StoreDriver:      StoreMemory,
		DatabaseMaxConns: 20,

		AWSRegion:     "us-east-1",
		DynamoDBTable: "vctalenthub-graph",
		GSI1IndexName: "GSI1",
		GSI2IndexName: "GSI2",
		EventBusName:  "vctalenthub-mail",
		Mailer:        MailerLog,

		JWTIssuer: "vctalenthub",

		MetricsBackend:   MetricsPrometheus,
		MetricsNamespace: "VCTalentHub/Graph",
		MetricsInterval:  time.Minute,
		TracingBackend:   "otlp",
		OTLPEndpoint:     "localhost:4317",
		TraceSampleRatio: 1,

		EnableCORS:         true,
		CORSOrigins:        []string{"*"},
		RateLimitPerMinute: 120,
		RateLimitBurst:     30,
	}
}

// LoadConfig loads CONFIG_FILE when set, then applies environment variables
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.ReadTimeout = getEnvDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.DebugErrors = getEnvBool("DEBUG_ERRORS", c.DebugErrors)

	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.SeedFile = getEnv("SEED_FILE", c.SeedFile)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.DatabaseMaxConns = getEnvInt("DATABASE_MAX_CONNS", c.DatabaseMaxConns)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.DynamoDBEndpoint)
	c.GSI1IndexName = getEnv("GSI1_INDEX_NAME", c.GSI1IndexName)
	c.GSI2IndexName = getEnv("GSI2_INDEX_NAME", c.GSI2IndexName)
	c.CreateTable = getEnvBool("CREATE_TABLE", c.CreateTable)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.EventSource = getEnv("EVENT_SOURCE", c.EventSource)
	c.Mailer = getEnv("MAILER", c.Mailer)

	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "")
	c.TrustGatewayHeaders = getEnvBool("TRUST_GATEWAY_HEADERS", c.TrustGatewayHeaders)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.JWTAudience = getEnv("JWT_AUDIENCE", c.JWTAudience)

	c.MetricsBackend = getEnv("METRICS_BACKEND", c.MetricsBackend)
	c.MetricsNamespace = getEnv("METRICS_NAMESPACE", c.MetricsNamespace)
	c.MetricsInterval = getEnvDuration("METRICS_INTERVAL", c.MetricsInterval)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.TracingBackend = getEnv("TRACING_BACKEND", c.TracingBackend)
	c.OTLPEndpoint = getEnv("OTLP_ENDPOINT", c.OTLPEndpoint)
	c.TraceSampleRatio = getEnvFloat("TRACE_SAMPLE_RATIO", c.TraceSampleRatio)

	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.CORSOrigins = getEnvList("CORS_ORIGINS", c.CORSOrigins)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)
}

// Validate checks that the selected drivers have what they need
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.Mailer {
	case MailerLog:
	case MailerEventBridge:
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required for the eventbridge mailer")
		}
	default:
		return fmt.Errorf("unknown MAILER %q", c.Mailer)
	}

	switch c.MetricsBackend {
	case MetricsPrometheus, MetricsCloudWatch, MetricsNone:
	default:
		return fmt.Errorf("unknown METRICS_BACKEND %q", c.MetricsBackend)
	}

	if c.IsProduction() {
		if c.JWTSecret == "" && !c.TrustGatewayHeaders {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.StoreDriver == StoreMemory {
			return fmt.Errorf("the memory store cannot be used in production")
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
