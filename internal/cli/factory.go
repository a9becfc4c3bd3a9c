// Package cli wires configuration into a Studio and its history backend for the
// canopy command.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/config"
	"github.com/aretw0/canopy/pkg/adapters/file"
	"github.com/aretw0/canopy/pkg/adapters/memory"
	"github.com/aretw0/canopy/pkg/adapters/redis"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/aretw0/canopy/pkg/persistence/middleware"
	"github.com/aretw0/canopy/pkg/ports"
)

// History backends accepted by CANOPY_HISTORY_BACKEND.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// piiPresets are the named patterns accepted in CANOPY_PII_PATTERNS.
var piiPresets = map[string]string{
	"email": middleware.PatternEmail,
	"ssn":   middleware.PatternSSN,
	"card":  middleware.PatternCard,
}

// Backend is a configured history store plus what else the backend provides.
type Backend struct {
	Store  ports.Store
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// NewBackend builds the history store named by cfg, wrapped in the PII and encryption
// middlewares when they are configured. PII masking runs before encryption.
func NewBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{}

	switch strings.ToLower(cfg.HistoryBackend) {
	case "", BackendFile:
		b.Store = file.New(cfg.HistoryDir)
		logger.Debug("history backend", "type", BackendFile, "dir", cfg.HistoryDir)
	case BackendMemory:
		b.Store = memory.NewStore()
		logger.Debug("history backend", "type", BackendMemory)
	case BackendRedis:
		opts := []redis.Option{redis.WithPrefix(cfg.RedisPrefix)}
		if cfg.SessionTTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.SessionTTL))
		}
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rs.Client().Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}

		b.Store = rs
		b.close = rs.Close
		if cfg.DistributedLock {
			b.Locker = redis.NewLocker(rs.Client(), cfg.RedisPrefix)
		}
		logger.Debug("history backend", "type", BackendRedis, "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL, "lock", cfg.DistributedLock)
	default:
		return nil, fmt.Errorf("unknown history backend %q (want file, redis or memory)", cfg.HistoryBackend)
	}

	if cfg.DistributedLock && b.Locker == nil {
		logger.Warn("distributed lock requested but the history backend is not redis; ignoring")
	}

	var mws []middleware.Middleware
	if len(cfg.PIIPatterns) > 0 {
		patterns, err := PIIPatterns(cfg.PIIPatterns)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		mws = append(mws, middleware.NewPIIMiddleware(patterns))
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	b.Store = middleware.Chain(b.Store, mws...)
	return b, nil
}

// PIIPatterns resolves preset names (email, ssn, card) and validates raw expressions.
func PIIPatterns(entries []string) ([]string, error) {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if preset, ok := piiPresets[strings.ToLower(entry)]; ok {
			out = append(out, preset)
			continue
		}
		if _, err := regexp.Compile(entry); err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", entry, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// NewStudio builds a Studio from cfg on top of backend.
func NewStudio(cfg *config.Config, backend *Backend, logger *slog.Logger, metrics *observability.Metrics) *canopy.Studio {
	opts := []canopy.Option{
		canopy.WithLogger(logger),
		canopy.WithMetrics(metrics),
		canopy.WithLLM(cfg.LLM()),
		canopy.WithStore(backend.Store),
		canopy.WithWorkers(cfg.Workers),
		canopy.WithEventBuffer(cfg.EventBuffer),
		canopy.WithMaxToolRounds(cfg.MaxToolRounds),
		canopy.WithCapabilityTimeout(cfg.ToolTimeout),
	}
	if backend.Locker != nil {
		opts = append(opts, canopy.WithLocker(backend.Locker))
	}
	return canopy.New(opts...)
}
