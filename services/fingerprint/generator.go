package fingerprint

import (
	"context"
	"fmt"
	"strings"

	"subzero/utils"

	"go.uber.org/zap"
)

// BundleCollector produces a signal bundle from an environment.
type BundleCollector interface {
	Collect(ctx context.Context, env Environment) Bundle
}

// Generator turns an Environment into a fingerprint string. It holds no per-call state.
type Generator struct {
	Collector BundleCollector
	Hasher    Hasher
	Logger    *zap.Logger
	Metrics   *utils.Metrics
}

// NewGenerator wires the default collector.
func NewGenerator(logger *zap.Logger, metrics *utils.Metrics) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		Collector: NewCollector(logger),
		Logger:    logger,
		Metrics:   metrics,
	}
}

// Generate always resolves to a fingerprint. If full collection fails outright it
// falls back to hashing the reduced signal set.
func (g *Generator) Generate(ctx context.Context, env Environment) (fp string) {
	defer func() {
		if p := recover(); p != nil {
			g.Logger.Warn("fingerprint collection failed, using reduced signal set", zap.Any("panic", p))
			g.Metrics.RecordFingerprintFallback()
			fp = FallbackHash(env)
		}
	}()
	if env == nil {
		panic("nil environment")
	}
	return g.Hasher.Hash(g.Collector.Collect(ctx, env))
}

// FallbackHash hashes user agent, platform, screen size, language and timezone offset.
func FallbackHash(env Environment) string {
	parts := []string{SentinelError, SentinelError, SentinelError, SentinelError, SentinelError}
	if env != nil {
		if nav := guard("navigator", func() Result {
			n, err := env.Navigator()
			if err != nil {
				return fail(err)
			}
			return ok(n.UserAgent + "\x00" + n.Platform)
		}); nav.Supported() {
			ua, platform, _ := strings.Cut(nav.Value, "\x00")
			parts[0], parts[1] = ua, platform
		}
		parts[2] = guard("screen", func() Result {
			s, err := env.Screen()
			if err != nil {
				return fail(err)
			}
			return ok(fmt.Sprintf("%dx%d", s.Width, s.Height))
		}).String()
		if loc := guard("locale", func() Result {
			l, err := env.Locale()
			if err != nil {
				return fail(err)
			}
			return ok(fmt.Sprintf("%s\x00%d", l.Language, l.TimezoneOffset))
		}); loc.Supported() {
			lang, offset, _ := strings.Cut(loc.Value, "\x00")
			parts[3], parts[4] = lang, offset
		}
	}
	return HashString("fallback" + GroupSeparator + strings.Join(parts, GroupSeparator))
}
