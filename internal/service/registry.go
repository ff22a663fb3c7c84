// Package service orchestrates the domain, config and version stores. It
// resolves slugs and keys top-down and reports failures as ErrorKinds.
package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/alfredjeanlab/configmonkey/internal/events"
	"github.com/alfredjeanlab/configmonkey/internal/idgen"
	"github.com/alfredjeanlab/configmonkey/internal/metrics"
	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/store"
)

// Paging bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest selects a window of a list. A zero Limit means DefaultLimit.
type PageRequest struct {
	Limit  int
	Offset int
}

func (p PageRequest) normalize() (PageRequest, error) {
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit < 1 || p.Limit > MaxLimit || p.Offset < 0 {
		return p, newError(KindInvalidPagination, nil)
	}
	return p, nil
}

// Registry is the entry point for every registry operation.
type Registry struct {
	store   store.Store
	events  events.Publisher
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Collector
	now     func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithPublisher sets where change events go. Defaults to a no-op publisher.
func WithPublisher(p events.Publisher) Option {
	return func(r *Registry) { r.events = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Registry) { r.tracer = t }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(r *Registry) { r.metrics = c }
}

// WithClock overrides time.Now for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New returns a Registry over s.
func New(s store.Store, opts ...Option) *Registry {
	r := &Registry{
		store:  s,
		events: &events.NoopPublisher{},
		logger: slog.Default(),
		tracer: noop.NewTracerProvider().Tracer("configmonkey"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ping checks the store.
func (r *Registry) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// begin starts a span for op. The returned func ends it, records metrics
// and logs failures that have no specific kind.
func (r *Registry) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "registry."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		code := "ok"
		if err != nil {
			kind := KindOf(err)
			code = kind.Code()
			span.RecordError(err)
			span.SetStatus(codes.Error, code)
			if kind == KindUnknown {
				r.logger.ErrorContext(ctx, "registry operation failed", "op", op, "err", err)
			}
		}
		span.End()
		r.metrics.ObserveOperation(op, code, time.Since(start))
	}
}

// publish emits an event after a committed write. Failures are logged and
// never fail the operation.
func (r *Registry) publish(ctx context.Context, topic string, event any) {
	if err := r.events.Publish(ctx, topic, event); err != nil {
		r.logger.WarnContext(ctx, "publish event failed", "topic", topic, "err", err)
		if r.metrics != nil {
			r.metrics.EventFailures.WithLabelValues(topic).Inc()
		}
	}
}

func (r *Registry) stamp() time.Time {
	return r.now().UTC()
}

// resolveDomain is the first step of every config and version operation.
func (r *Registry) resolveDomain(ctx context.Context, slug string) (*model.Domain, error) {
	d, err := r.store.GetDomainBySlug(ctx, slug)
	if err != nil {
		return nil, domainErrors.translate(err)
	}
	return d, nil
}

// resolveConfig looks up the domain, then the config inside it.
func (r *Registry) resolveConfig(ctx context.Context, slug, key string) (*model.Config, error) {
	d, err := r.resolveDomain(ctx, slug)
	if err != nil {
		return nil, err
	}
	c, err := r.store.GetConfig(ctx, d.ID, key)
	if err != nil {
		return nil, configErrors.translate(err)
	}
	return c, nil
}

// Domains

func (r *Registry) CreateDomain(ctx context.Context, slug string) (d *model.Domain, err error) {
	ctx, done := r.begin(ctx, "create_domain", attribute.String("domain", slug))
	defer func() { done(err) }()

	if !model.ValidSlug(slug) {
		return nil, newError(KindInvalidSlug, nil)
	}
	id, err := idgen.Domain()
	if err != nil {
		return nil, newError(KindUnknown, err)
	}
	d = &model.Domain{ID: id, Slug: slug, CreatedAt: r.stamp()}
	if err := r.store.CreateDomain(ctx, d); err != nil {
		return nil, domainErrors.translate(err)
	}
	r.publish(ctx, events.TopicDomainCreated, events.DomainCreated{Domain: d})
	return d, nil
}

func (r *Registry) GetDomain(ctx context.Context, slug string) (d *model.Domain, err error) {
	ctx, done := r.begin(ctx, "get_domain", attribute.String("domain", slug))
	defer func() { done(err) }()

	if !model.ValidSlug(slug) {
		return nil, newError(KindInvalidSlug, nil)
	}
	return r.resolveDomain(ctx, slug)
}

func (r *Registry) ListDomains(ctx context.Context, req PageRequest) (page model.Page[*model.Domain], err error) {
	ctx, done := r.begin(ctx, "list_domains")
	defer func() { done(err) }()

	req, err = req.normalize()
	if err != nil {
		return page, err
	}
	items, err := r.store.ListDomains(ctx, req.Limit, req.Offset)
	if err != nil {
		return page, domainErrors.translate(err)
	}
	return model.Paginate(items, req.Limit, req.Offset), nil
}

// DeleteDomain removes an empty domain. The store's foreign key decides
// emptiness, so there is no separate count query to race against.
func (r *Registry) DeleteDomain(ctx context.Context, slug string) (err error) {
	ctx, done := r.begin(ctx, "delete_domain", attribute.String("domain", slug))
	defer func() { done(err) }()

	if !model.ValidSlug(slug) {
		return newError(KindInvalidSlug, nil)
	}
	if err := r.store.DeleteDomain(ctx, slug); err != nil {
		return domainErrors.translate(err)
	}
	r.publish(ctx, events.TopicDomainDeleted, events.DomainDeleted{Slug: slug})
	return nil
}

// Configs

func (r *Registry) CreateConfig(ctx context.Context, slug, key string) (c *model.Config, err error) {
	ctx, done := r.begin(ctx, "create_config", attribute.String("domain", slug), attribute.String("key", key))
	defer func() { done(err) }()

	if !model.ValidKey(key) {
		return nil, newError(KindInvalidKey, nil)
	}
	d, err := r.resolveDomain(ctx, slug)
	if err != nil {
		return nil, err
	}
	id, err := idgen.Config()
	if err != nil {
		return nil, newError(KindUnknown, err)
	}
	c = &model.Config{ID: id, DomainID: d.ID, Key: key, CreatedAt: r.stamp()}
	if err := r.store.CreateConfig(ctx, c); err != nil {
		return nil, configInsertErrors.translate(err)
	}
	r.publish(ctx, events.TopicConfigCreated, events.ConfigCreated{Domain: slug, Config: c})
	return c, nil
}

func (r *Registry) GetConfig(ctx context.Context, slug, key string) (c *model.Config, err error) {
	ctx, done := r.begin(ctx, "get_config", attribute.String("domain", slug), attribute.String("key", key))
	defer func() { done(err) }()

	return r.resolveConfig(ctx, slug, key)
}

func (r *Registry) ListConfigs(ctx context.Context, slug string, req PageRequest) (page model.Page[*model.Config], err error) {
	ctx, done := r.begin(ctx, "list_configs", attribute.String("domain", slug))
	defer func() { done(err) }()

	req, err = req.normalize()
	if err != nil {
		return page, err
	}
	d, err := r.resolveDomain(ctx, slug)
	if err != nil {
		return page, err
	}
	items, err := r.store.ListConfigs(ctx, d.ID, req.Limit, req.Offset)
	if err != nil {
		return page, configErrors.translate(err)
	}
	return model.Paginate(items, req.Limit, req.Offset), nil
}

// DeleteConfig removes a config together with its versions.
func (r *Registry) DeleteConfig(ctx context.Context, slug, key string) (err error) {
	ctx, done := r.begin(ctx, "delete_config", attribute.String("domain", slug), attribute.String("key", key))
	defer func() { done(err) }()

	c, err := r.resolveConfig(ctx, slug, key)
	if err != nil {
		return err
	}
	if err := r.store.DeleteConfig(ctx, c.ID); err != nil {
		return configErrors.translate(err)
	}
	r.publish(ctx, events.TopicConfigDeleted, events.ConfigDeleted{Domain: slug, Key: key})
	return nil
}

// Versions

// CreateVersion appends value to the config's history and returns the new
// version with its assigned index.
func (r *Registry) CreateVersion(ctx context.Context, slug, key string, value model.Value) (v *model.Version, err error) {
	ctx, done := r.begin(ctx, "create_version",
		attribute.String("domain", slug), attribute.String("key", key), attribute.String("type", value.Type().String()))
	defer func() { done(err) }()

	if value.Type() == model.TypeFloat && (math.IsNaN(value.Float()) || math.IsInf(value.Float(), 0)) {
		return nil, newError(KindInvalidValue, nil)
	}
	c, err := r.resolveConfig(ctx, slug, key)
	if err != nil {
		return nil, err
	}
	id, err := idgen.Version()
	if err != nil {
		return nil, newError(KindUnknown, err)
	}
	v = &model.Version{ID: id, ConfigID: c.ID, Value: value, CreatedAt: r.stamp()}
	if err := r.store.CreateVersion(ctx, v); err != nil {
		return nil, versionInsertErrors.translate(err)
	}
	if r.metrics != nil {
		r.metrics.VersionsCreated.Inc()
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("index", v.Index))
	r.publish(ctx, events.TopicVersionCreated, events.VersionCreated{Domain: slug, Key: key, Version: v})
	return v, nil
}

// ListVersions pages through a config's versions, newest first.
func (r *Registry) ListVersions(ctx context.Context, slug, key string, req PageRequest) (page model.Page[*model.Version], err error) {
	ctx, done := r.begin(ctx, "list_versions", attribute.String("domain", slug), attribute.String("key", key))
	defer func() { done(err) }()

	req, err = req.normalize()
	if err != nil {
		return page, err
	}
	c, err := r.resolveConfig(ctx, slug, key)
	if err != nil {
		return page, err
	}
	items, err := r.store.ListVersions(ctx, c.ID, req.Limit, req.Offset)
	if err != nil {
		return page, versionErrors.translate(err)
	}
	return model.Paginate(items, req.Limit, req.Offset), nil
}

// GetCurrentVersion returns the version with the greatest index.
func (r *Registry) GetCurrentVersion(ctx context.Context, slug, key string) (v *model.Version, err error) {
	ctx, done := r.begin(ctx, "get_current_version", attribute.String("domain", slug), attribute.String("key", key))
	defer func() { done(err) }()

	c, err := r.resolveConfig(ctx, slug, key)
	if err != nil {
		return nil, err
	}
	v, err = r.store.GetCurrentVersion(ctx, c.ID)
	if err != nil {
		return nil, versionErrors.translate(err)
	}
	return v, nil
}

func (r *Registry) GetVersion(ctx context.Context, slug, key string, index int64) (v *model.Version, err error) {
	ctx, done := r.begin(ctx, "get_version",
		attribute.String("domain", slug), attribute.String("key", key), attribute.Int64("index", index))
	defer func() { done(err) }()

	c, err := r.resolveConfig(ctx, slug, key)
	if err != nil {
		return nil, err
	}
	if index < 1 {
		return nil, newError(KindVersionNotFound, nil)
	}
	v, err = r.store.GetVersion(ctx, c.ID, index)
	if err != nil {
		return nil, versionErrors.translate(err)
	}
	return v, nil
}
