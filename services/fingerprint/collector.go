package fingerprint

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Bundle is the full set of raw signals for one device. Every field is always populated,
// with a sentinel standing in for anything the environment could not provide.
type Bundle struct {
	Browser  Result
	Hardware Result
	Network  Result
	Locale   Result
	Canvas   Result
	WebGL    Result
	Audio    Result
	Fonts    Result
	Timing   Result
}

// Collector gathers a Bundle from an Environment.
type Collector struct {
	FontCandidates []string
	TimingRuns     int
	TimingBudget   time.Duration
	Logger         *zap.Logger
}

// NewCollector returns a Collector with the default probes.
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		FontCandidates: DefaultFontCandidates,
		TimingRuns:     defaultTimingRuns,
		TimingBudget:   defaultTimingBudget,
		Logger:         logger,
	}
}

type browserSignal struct {
	UserAgent     string   `json:"userAgent"`
	Platform      string   `json:"platform"`
	Vendor        string   `json:"vendor"`
	Languages     []string `json:"languages"`
	Plugins       []string `json:"plugins"`
	CookieEnabled bool     `json:"cookieEnabled"`
	DoNotTrack    string   `json:"doNotTrack"`
}

type hardwareSignal struct {
	HardwareConcurrency int        `json:"hardwareConcurrency"`
	DeviceMemory        float64    `json:"deviceMemory"`
	MaxTouchPoints      int        `json:"maxTouchPoints"`
	Screen              ScreenInfo `json:"screen"`
}

// Collect runs every signal collector. A failing collector never affects the others.
func (c *Collector) Collect(ctx context.Context, env Environment) Bundle {
	b := Bundle{
		Browser: guard("browser", func() Result {
			nav, err := env.Navigator()
			if err != nil {
				return fail(err)
			}
			return marshalSignal(browserSignal{
				UserAgent:     nav.UserAgent,
				Platform:      nav.Platform,
				Vendor:        nav.Vendor,
				Languages:     nav.Languages,
				Plugins:       nav.Plugins,
				CookieEnabled: nav.CookieEnabled,
				DoNotTrack:    nav.DoNotTrack,
			})
		}),
		Hardware: guard("hardware", func() Result {
			nav, err := env.Navigator()
			if err != nil {
				return fail(err)
			}
			screen, err := env.Screen()
			if err != nil {
				return fail(err)
			}
			return marshalSignal(hardwareSignal{
				HardwareConcurrency: nav.HardwareConcurrency,
				DeviceMemory:        nav.DeviceMemory,
				MaxTouchPoints:      nav.MaxTouchPoints,
				Screen:              screen,
			})
		}),
		Network: guard("network", func() Result {
			n, err := env.Network()
			if err != nil {
				return fail(err)
			}
			return marshalSignal(n)
		}),
		Locale: guard("locale", func() Result {
			l, err := env.Locale()
			if err != nil {
				return fail(err)
			}
			return marshalSignal(l)
		}),
		Canvas: guard("canvas", func() Result { return collectCanvas(env) }),
		WebGL:  guard("webgl", func() Result { return collectWebGL(env) }),
		Audio:  guard("audio", func() Result { return collectAudio(ctx, env) }),
		Fonts:  guard("fonts", func() Result { return collectFonts(env, c.FontCandidates) }),
		Timing: guard("timing", func() Result { return collectTiming(ctx, env, c.TimingRuns, c.TimingBudget) }),
	}

	for name, r := range b.named() {
		if !r.Supported() {
			c.Logger.Debug("fingerprint signal unavailable", zap.String("signal", name), zap.Error(r.Err))
		}
	}
	return b
}

// named returns the signal groups keyed by name.
func (b Bundle) named() map[string]Result {
	return map[string]Result{
		"browser":  b.Browser,
		"hardware": b.Hardware,
		"network":  b.Network,
		"locale":   b.Locale,
		"canvas":   b.Canvas,
		"webgl":    b.WebGL,
		"audio":    b.Audio,
		"fonts":    b.Fonts,
		"timing":   b.Timing,
	}
}

// ordered returns the signal groups in their fixed serialization order.
func (b Bundle) ordered() []Result {
	return []Result{b.Browser, b.Hardware, b.Network, b.Locale, b.Canvas, b.WebGL, b.Audio, b.Fonts, b.Timing}
}

func marshalSignal(v any) Result {
	out, err := json.Marshal(v)
	if err != nil {
		return fail(err)
	}
	return ok(string(out))
}
