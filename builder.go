package authsess

import (
	"context"
	"errors"
	"time"

	internalevents "github.com/lumora-app/authsess/internal/events"
	internalmetrics "github.com/lumora-app/authsess/internal/metrics"
	"github.com/lumora-app/authsess/storage"
)

// expiryChannelBuffer bounds undelivered expiry notices. One is enough
// for the at-most-one-per-session contract; the extra slack covers
// consumers that re-login and expire again before draining.
const expiryChannelBuffer = 4

// watcherChannelBuffer bounds the internal teardown watcher's feed of
// refresh failures.
const watcherChannelBuffer = 8

// Builder defines a public type used by authsess APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	repo      Repository
	store     storage.Store
	eventSink EventSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRepository describes the withrepository operation and its observable behavior.
//
// WithRepository may return an error when input validation, dependency calls, or security checks fail.
// WithRepository does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRepository(repo Repository) *Builder {
	b.repo = repo
	return b
}

// WithStore describes the withstore operation and its observable behavior.
//
// WithStore may return an error when input validation, dependency calls, or security checks fail.
// WithStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithStore(store storage.Store) *Builder {
	b.store = store
	return b
}

// WithEventSink describes the witheventsink operation and its observable behavior.
//
// WithEventSink may return an error when input validation, dependency calls, or security checks fail.
// WithEventSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

// WithEventsEnabled describes the witheventsenabled operation and its observable behavior.
//
// WithEventsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithEventsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithEventsEnabled(enabled bool) *Builder {
	b.config.Events.Enabled = enabled
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.repo == nil {
		return nil, errors.New("repository required")
	}

	store := b.store
	if store == nil {
		store = storage.NewMemoryStore()
	}

	client := &Client{
		config:  cfg,
		repo:    b.repo,
		session: newSessionStore(store, cfg.Storage),
		state:   newStateCell(),
		metrics: internalmetrics.New(internalmetrics.Config{
			Enabled:       cfg.Metrics.Enabled,
			EnableLatency: cfg.Metrics.EnableLatencyHistograms,
		}),
		events: internalevents.NewDispatcher(internalevents.Config{
			Enabled:    cfg.Events.Enabled,
			BufferSize: cfg.Events.BufferSize,
			DropIfFull: cfg.Events.DropIfFull,
		}, b.eventSink),
		expiryCh: make(chan ExpiryNotice, expiryChannelBuffer),
		now:      time.Now,
	}

	client.refresher = newRefresher(refresherDeps{
		repo:    b.repo,
		session: client.session,
		metrics: client.metrics,
		emit: func(ctx context.Context, eventType string, success bool, err error, metadataBuilder func() map[string]string) {
			client.emitEvent(ctx, eventType, success, client.currentUser(), err, metadataBuilder)
		},
		timeout: cfg.Tokens.RefreshTimeout,
		now:     func() time.Time { return client.now() },
	})

	client.validator = &Validator{
		repo:    b.repo,
		metrics: client.metrics,
		now:     func() time.Time { return client.now() },
	}

	failures, unsubscribe := client.refresher.subscribe(watcherChannelBuffer)
	client.unsubscribe = unsubscribe
	client.watcherDone = make(chan struct{})
	go client.watchRefreshFailures(failures)

	b.built = true

	return client, nil
}
