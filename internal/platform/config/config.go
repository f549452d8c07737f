package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultSQLitePath        = "site.db"
	defaultPubSubTopic       = "site-events"
	defaultRabbitExchange    = "site.events"
	defaultLeadPath          = "/api/lead.php"
	defaultOrderPath         = "/api/order.php"
	defaultIntakeTimeout     = 8 * time.Second
	defaultWorkspaceTTL      = 2 * time.Hour
	defaultSecretsFallback   = ".secrets.local"
	defaultLogLevel          = "info"
	defaultIdempotencyHeader = "Idempotency-Key"
	defaultIdempotencyTTL    = 24 * time.Hour
	defaultIdempotencySweep  = time.Hour
)

// Storage drivers.
const (
	StorageMemory    = "memory"
	StorageFirestore = "firestore"
	StorageSQLite    = "sqlite"
)

// Event drivers.
const (
	EventsNone     = "none"
	EventsPubSub   = "pubsub"
	EventsRabbitMQ = "rabbitmq"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Firestore   FirestoreConfig
	SQLite      SQLiteConfig
	Events      EventsConfig
	Intake      IntakeConfig
	Session     SessionConfig
	Features    FeatureFlags
	Workspace   WorkspaceConfig
	Catalog     CatalogConfig
	Secrets     SecretsConfig
	Idempotency IdempotencyConfig
	LogLevel    string
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StorageConfig selects the repository driver.
type StorageConfig struct {
	Driver string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// SQLiteConfig locates the sqlite database file.
type SQLiteConfig struct {
	Path string
}

// EventsConfig selects and configures the event publisher.
type EventsConfig struct {
	Driver          string
	PubSubProjectID string
	PubSubTopic     string
	RabbitMQURL     string
	RabbitExchange  string
}

// IntakeConfig points at the lead and order intake endpoints.
type IntakeConfig struct {
	BaseURL   string
	LeadPath  string
	OrderPath string
	Timeout   time.Duration
	APIToken  string
}

// SessionConfig configures the visitor and session cookies.
type SessionConfig struct {
	SigningKey    string
	SecureCookies bool
}

// FeatureFlags toggles optional behaviour.
type FeatureFlags struct {
	LeadOptimisticFallback  bool
	OrderOptimisticFallback bool
}

// WorkspaceConfig bounds how long idle per-session page state is kept.
type WorkspaceConfig struct {
	TTL time.Duration
}

// CatalogConfig optionally overrides the embedded catalog.
type CatalogConfig struct {
	Path string
}

// SecretsConfig configures the Secret Manager fetcher.
type SecretsConfig struct {
	ProjectID    string
	FallbackFile string
}

// IdempotencyConfig controls replay of submissions carrying an Idempotency-Key.
type IdempotencyConfig struct {
	Header          string
	TTL             time.Duration
	CleanupInterval time.Duration
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// values.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		if resolver != nil {
			o.secret = resolver
		}
	}
}

// Lookup returns the raw value of key with the same precedence Load uses, so dependencies
// such as the secret fetcher can be built before Load runs.
func Lookup(key string, opts ...Option) (string, bool, error) {
	_, lookup, err := newLookup(opts)
	if err != nil {
		return "", false, err
	}
	value, ok := lookup(key)
	return value, ok, nil
}

func newLookup(opts []Option) (loaderOptions, func(string) (string, bool), error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return options, nil, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}
	return options, lookup, nil
}

// Load reads configuration with precedence: explicit map, OS env, then .env file.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options, lookup, err := newLookup(opts)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "SITE_HTTP_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "SITE_HTTP_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SITE_HTTP_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SITE_HTTP_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(stringWithDefault(lookup, "SITE_STORAGE_DRIVER", StorageMemory)),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "SITE_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "SITE_FIRESTORE_EMULATOR_HOST", ""),
		},
		SQLite: SQLiteConfig{
			Path: stringWithDefault(lookup, "SITE_SQLITE_PATH", defaultSQLitePath),
		},
		Events: EventsConfig{
			Driver:          strings.ToLower(stringWithDefault(lookup, "SITE_EVENTS_DRIVER", EventsNone)),
			PubSubProjectID: stringWithDefault(lookup, "SITE_PUBSUB_PROJECT_ID", ""),
			PubSubTopic:     stringWithDefault(lookup, "SITE_PUBSUB_TOPIC", defaultPubSubTopic),
			RabbitMQURL:     stringWithDefault(lookup, "SITE_RABBITMQ_URL", ""),
			RabbitExchange:  stringWithDefault(lookup, "SITE_RABBITMQ_EXCHANGE", defaultRabbitExchange),
		},
		Intake: IntakeConfig{
			BaseURL:   strings.TrimRight(stringWithDefault(lookup, "SITE_INTAKE_BASE_URL", ""), "/"),
			LeadPath:  stringWithDefault(lookup, "SITE_INTAKE_LEAD_PATH", defaultLeadPath),
			OrderPath: stringWithDefault(lookup, "SITE_INTAKE_ORDER_PATH", defaultOrderPath),
			Timeout:   durationWithDefault(lookup, "SITE_INTAKE_TIMEOUT", defaultIntakeTimeout),
			APIToken:  stringWithDefault(lookup, "SITE_INTAKE_API_TOKEN", ""),
		},
		Session: SessionConfig{
			SigningKey:    stringWithDefault(lookup, "SITE_SESSION_SIGNING_KEY", ""),
			SecureCookies: boolWithDefault(lookup, "SITE_SESSION_SECURE", false),
		},
		Features: FeatureFlags{
			LeadOptimisticFallback:  boolWithDefault(lookup, "SITE_LEAD_OPTIMISTIC_FALLBACK", true),
			OrderOptimisticFallback: boolWithDefault(lookup, "SITE_ORDER_OPTIMISTIC_FALLBACK", false),
		},
		Workspace: WorkspaceConfig{
			TTL: durationWithDefault(lookup, "SITE_WORKSPACE_TTL", defaultWorkspaceTTL),
		},
		Catalog: CatalogConfig{
			Path: stringWithDefault(lookup, "SITE_CATALOG_PATH", ""),
		},
		Secrets: SecretsConfig{
			ProjectID:    stringWithDefault(lookup, "SITE_SECRETS_PROJECT_ID", ""),
			FallbackFile: stringWithDefault(lookup, "SITE_SECRETS_FALLBACK_FILE", defaultSecretsFallback),
		},
		Idempotency: IdempotencyConfig{
			Header:          stringWithDefault(lookup, "SITE_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:             durationWithDefault(lookup, "SITE_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval: durationWithDefault(lookup, "SITE_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencySweep),
		},
		LogLevel: strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
	}

	// Pub/Sub and Secret Manager default to the Firestore project.
	if cfg.Events.PubSubProjectID == "" {
		cfg.Events.PubSubProjectID = cfg.Firestore.ProjectID
	}
	if cfg.Secrets.ProjectID == "" {
		cfg.Secrets.ProjectID = cfg.Firestore.ProjectID
	}

	secretFields := []*string{&cfg.Session.SigningKey, &cfg.Intake.APIToken}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if cfg.Server.Port == "" {
		invalid = append(invalid, "Server.Port")
	}
	switch cfg.Storage.Driver {
	case StorageMemory:
	case StorageFirestore:
		if cfg.Firestore.ProjectID == "" {
			invalid = append(invalid, "Firestore.ProjectID")
		}
	case StorageSQLite:
		if strings.TrimSpace(cfg.SQLite.Path) == "" {
			invalid = append(invalid, "SQLite.Path")
		}
	default:
		invalid = append(invalid, "Storage.Driver")
	}
	switch cfg.Events.Driver {
	case EventsNone:
	case EventsPubSub:
		if cfg.Events.PubSubProjectID == "" {
			invalid = append(invalid, "Events.PubSubProjectID")
		}
		if cfg.Events.PubSubTopic == "" {
			invalid = append(invalid, "Events.PubSubTopic")
		}
	case EventsRabbitMQ:
		if cfg.Events.RabbitMQURL == "" {
			invalid = append(invalid, "Events.RabbitMQURL")
		}
	default:
		invalid = append(invalid, "Events.Driver")
	}
	if cfg.Intake.Timeout <= 0 {
		invalid = append(invalid, "Intake.Timeout")
	}
	if cfg.Workspace.TTL <= 0 {
		invalid = append(invalid, "Workspace.TTL")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		invalid = append(invalid, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		invalid = append(invalid, "Idempotency.TTL")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	if _, err := strconv.Atoi(c.Port); err == nil {
		return ":" + c.Port
	}
	return c.Port
}
