// Package container provides dependency injection for the finagent application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"
	"time"

	"fjacquet/finagent/internal/aggregator"
	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/config"
	"fjacquet/finagent/internal/export"
	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
	"fjacquet/finagent/internal/ofxsource"
	"fjacquet/finagent/internal/plaid"
	"fjacquet/finagent/internal/profiles"
	"fjacquet/finagent/internal/provider"
	"fjacquet/finagent/internal/reclassifier"
	"fjacquet/finagent/internal/service"
	"fjacquet/finagent/internal/store"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation - all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger       logging.Logger
	config       *config.Config
	store        *store.Store
	source       provider.DataSource
	profiles     []models.EarlyPaymentProfile
	reclassifier *reclassifier.Reclassifier
	aggregator   *aggregator.Aggregator
	service      *service.Service
	csvWriter    *export.Writer
}

// Option overrides a dependency the container would otherwise build from config.
type Option func(*overrides)

type overrides struct {
	logger    logging.Logger
	persister store.Persister
	source    provider.DataSource
	now       func() time.Time
}

// WithLogger injects the logger instead of building one from the log section.
func WithLogger(logger logging.Logger) Option {
	return func(o *overrides) { o.logger = logger }
}

// WithPersister injects the snapshot persister instead of the configured backend.
func WithPersister(p store.Persister) Option {
	return func(o *overrides) { o.persister = p }
}

// WithDataSource injects the banking-data source instead of the configured provider.
func WithDataSource(source provider.DataSource) Option {
	return func(o *overrides) { o.source = source }
}

// WithClock fixes the clock used for fetch windows and insight timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *overrides) { o.now = now }
}

// NewContainer creates and wires all application dependencies and loads the
// persisted state. The caller owns the container and must Close it.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	var o overrides
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = config.ConfigureLoggingFromConfig(cfg)
	}

	profileSet, err := profiles.NewLoader(logger).Load(cfg.Profiles.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load early-payment profiles: %w", err)
	}

	source := o.source
	if source == nil {
		source = newDataSource(cfg, logger)
	}

	persister := o.persister
	if persister == nil {
		if persister, err = newPersister(ctx, cfg); err != nil {
			return nil, err
		}
	}

	st := store.New(persister, logger)
	if err := st.Open(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	aggOpts := []aggregator.Option{aggregator.WithLogger(logger)}
	if o.now != nil {
		aggOpts = append(aggOpts, aggregator.WithClock(o.now))
	}
	agg := aggregator.New(aggOpts...)
	rec := reclassifier.New(profileSet, logger)

	svc := service.New(st, source, rec, agg, logger, service.Options{
		WindowDays:         cfg.Provider.WindowDays,
		Timeout:            cfg.ProviderTimeout(),
		DashboardInsights:  cfg.Insights.DashboardLimit,
		RecentTransactions: cfg.Insights.RecentTransactions,
		Now:                o.now,
	})

	logger.Info("Container initialized successfully",
		logging.F(logging.FieldSource, source.Name()),
		logging.F(logging.FieldBackend, persister.Name()),
		logging.F("profiles_count", len(profileSet)))

	return &Container{
		logger:       logger,
		config:       cfg,
		store:        st,
		source:       source,
		profiles:     profileSet,
		reclassifier: rec,
		aggregator:   agg,
		service:      svc,
		csvWriter:    export.NewWriter(logger),
	}, nil
}

func newPersister(ctx context.Context, cfg *config.Config) (store.Persister, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return store.NewFilePersister(cfg.Storage.Path), nil
	case config.BackendSQLite:
		p, err := store.NewSQLitePersister(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return p, nil
	case config.BackendGCS:
		p, err := store.NewGCSPersister(ctx, cfg.Storage.Bucket, cfg.Storage.Object)
		if err != nil {
			return nil, fmt.Errorf("failed to open gcs storage: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

// newDataSource builds the configured provider. A provider that cannot be built
// (missing credentials) is replaced by one that fails every call, so commands that
// only read local state keep working.
func newDataSource(cfg *config.Config, logger logging.Logger) provider.DataSource {
	if cfg.Provider.Kind == config.ProviderOFX {
		return ofxsource.New(logger)
	}

	err := cfg.ValidateCredentials()
	if err == nil {
		var client *plaid.Client
		client, err = plaid.NewClient(plaid.Options{
			ClientID:          cfg.Provider.Plaid.ClientID,
			Secret:            cfg.Provider.Plaid.Secret,
			Environment:       cfg.Provider.Plaid.Environment,
			BaseURL:           cfg.Provider.Plaid.BaseURL,
			PageSize:          cfg.Provider.PageSize,
			RequestsPerSecond: cfg.Provider.RequestsPerSecond,
			Timeout:           cfg.ProviderTimeout(),
		}, logger)
		if err == nil {
			return client
		}
	}

	logger.WithError(err).Warn("Plaid provider unavailable, provider calls will fail")
	return unavailableSource{name: plaid.SourceName, err: err}
}

type unavailableSource struct {
	name string
	err  error
}

func (s unavailableSource) Name() string { return s.name }

func (s unavailableSource) FetchAccounts(context.Context, string) ([]models.Account, error) {
	return nil, &apperrors.DataSourceError{Source: s.name, Op: "fetch accounts", Err: s.err}
}

func (s unavailableSource) FetchTransactions(context.Context, string, time.Time, time.Time) ([]models.Transaction, error) {
	return nil, &apperrors.DataSourceError{Source: s.name, Op: "fetch transactions", Err: s.err}
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStore returns the state store.
func (c *Container) GetStore() *store.Store {
	return c.store
}

// GetDataSource returns the banking-data source.
func (c *Container) GetDataSource() provider.DataSource {
	return c.source
}

// GetProfiles returns a copy of the loaded early-payment profiles.
func (c *Container) GetProfiles() []models.EarlyPaymentProfile {
	return append([]models.EarlyPaymentProfile(nil), c.profiles...)
}

// GetReclassifier returns the early-payment reclassifier.
func (c *Container) GetReclassifier() *reclassifier.Reclassifier {
	return c.reclassifier
}

// GetAggregator returns the insight aggregator.
func (c *Container) GetAggregator() *aggregator.Aggregator {
	return c.aggregator
}

// GetService returns the application service.
func (c *Container) GetService() *service.Service {
	return c.service
}

// GetCSVWriter returns the adjusted-transaction CSV writer.
func (c *Container) GetCSVWriter() *export.Writer {
	return c.csvWriter
}

// Close releases the storage backend.
func (c *Container) Close() error {
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	c.logger.Debug("Container closed")
	return nil
}
