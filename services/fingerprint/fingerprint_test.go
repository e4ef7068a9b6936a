package fingerprint

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{64}$`)

func fullProbe() Probe {
	widths := map[string]float64{"monospace": 100}
	for _, f := range DefaultFontCandidates {
		widths["'"+f+"', monospace"] = 100
	}
	widths["'Arial', monospace"] = 112.5
	widths["'Verdana', monospace"] = 120

	samples := make([]float32, audioWindowEnd-audioWindowStart)
	for i := range samples {
		samples[i] = float32(i%7) * 0.001
	}

	return Probe{
		Navigator: &NavigatorInfo{
			UserAgent:           "Mozilla/5.0 (X11; Linux x86_64)",
			Platform:            "Linux x86_64",
			Vendor:              "Google Inc.",
			Languages:           []string{"en-US", "en"},
			CookieEnabled:       true,
			HardwareConcurrency: 8,
			DeviceMemory:        8,
		},
		Screen:  &ScreenInfo{Width: 1920, Height: 1080, AvailWidth: 1920, AvailHeight: 1040, ColorDepth: 24, PixelDepth: 24, DevicePixelRatio: 1},
		Network: &NetworkInfo{EffectiveType: "4g", Downlink: 10, RTT: 50},
		Locale:  &LocaleInfo{Language: "en-US", Timezone: "Europe/Berlin", TimezoneOffset: -120},
		Canvas:  &CanvasProbe{DataURL: "data:image/png;base64,iVBORw0KGgo="},
		WebGL: &WebGLProbe{
			Parameters: map[string]string{
				"VENDOR":                  "WebKit",
				"RENDERER":                "WebKit WebGL",
				"UNMASKED_VENDOR_WEBGL":   "Intel",
				"UNMASKED_RENDERER_WEBGL": "Mesa Intel(R) UHD",
				"MAX_TEXTURE_SIZE":        "16384",
			},
			Extensions: []string{"OES_texture_float", debugRendererExtension},
			Pixels:     "ff00ff00",
		},
		Audio:  &AudioProbe{SampleRate: audioSampleRate, Offset: audioWindowStart, Samples: samples},
		Fonts:  &FontProbe{Widths: widths},
		Timing: &TimingProbe{RunsMs: []float64{1.5, 1.6, 1.4, 1.5, 1.5}},
	}
}

func generate(t *testing.T, p Probe) string {
	t.Helper()
	return NewGenerator(nil, nil).Generate(context.Background(), NewReportedEnvironment(p))
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := generate(t, fullProbe())
	b := generate(t, fullProbe())
	assert.Equal(t, a, b)
	assert.Regexp(t, hexID, a)
}

func TestSingleSignalChangesFingerprint(t *testing.T) {
	base := generate(t, fullProbe())

	mutations := map[string]func(*Probe){
		"user agent":   func(p *Probe) { p.Navigator.UserAgent += " Firefox" },
		"screen":       func(p *Probe) { p.Screen.Width = 1366 },
		"canvas":       func(p *Probe) { p.Canvas.DataURL = "data:image/png;base64,AAAA" },
		"webgl":        func(p *Probe) { p.WebGL.Parameters["UNMASKED_RENDERER_WEBGL"] = "ANGLE" },
		"audio":        func(p *Probe) { p.Audio.Samples[3] = 0.5 },
		"fonts":        func(p *Probe) { p.Fonts.Widths["'Impact', monospace"] = 90 },
		"timezone":     func(p *Probe) { p.Locale.TimezoneOffset = 0 },
		"network":      func(p *Probe) { p.Network.EffectiveType = "3g" },
		"timing":       func(p *Probe) { p.Timing.RunsMs = []float64{9, 9, 9, 9, 9} },
		"missing gpu":  func(p *Probe) { p.WebGL = nil },
		"missing font": func(p *Probe) { p.Fonts = nil },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p := fullProbe()
			mutate(&p)
			assert.NotEqual(t, base, generate(t, p))
		})
	}
}

func TestMissingApisDegradeToSentinels(t *testing.T) {
	env := NewReportedEnvironment(Probe{Navigator: fullProbe().Navigator})
	b := NewCollector(nil).Collect(context.Background(), env)

	assert.True(t, b.Browser.Supported())
	for name, r := range map[string]Result{"canvas": b.Canvas, "webgl": b.WebGL, "audio": b.Audio, "fonts": b.Fonts, "timing": b.Timing, "screen": b.Hardware} {
		assert.Equal(t, SentinelNotSupported, r.String(), name)
	}

	fp := NewGenerator(nil, nil).Generate(context.Background(), env)
	assert.Regexp(t, hexID, fp)
}

func TestCollectorErrorsUseErrorSentinel(t *testing.T) {
	p := fullProbe()
	p.Canvas = &CanvasProbe{DataURL: "not-a-data-uri"}
	p.Audio.Offset = audioLength
	b := NewCollector(nil).Collect(context.Background(), NewReportedEnvironment(p))

	assert.Equal(t, SentinelError, b.Canvas.String())
	assert.Equal(t, SentinelError, b.Audio.String())
	assert.True(t, b.WebGL.Supported())
}

func TestSignalValues(t *testing.T) {
	b := NewCollector(nil).Collect(context.Background(), NewReportedEnvironment(fullProbe()))

	assert.Equal(t, "Arial,Verdana", b.Fonts.Value)
	assert.Contains(t, b.WebGL.Value, `"unmaskedRenderer":"Mesa Intel(R) UHD"`)
	assert.Contains(t, b.WebGL.Value, `"render":"ff00ff00"`)
	assert.Contains(t, b.WebGL.Value, `"MAX_VIEWPORT_DIMS":"not_supported"`)
	assert.Equal(t, "mean=1.500;var=0.004;min=1.400;max=1.600", b.Timing.Value)
	assert.True(t, strings.HasPrefix(b.Canvas.Value, "data:"))
}

func TestUnmaskedRendererRequiresExtension(t *testing.T) {
	p := fullProbe()
	p.WebGL.Extensions = []string{"OES_texture_float"}
	b := NewCollector(nil).Collect(context.Background(), NewReportedEnvironment(p))
	assert.Contains(t, b.WebGL.Value, `"unmaskedRenderer":"not_supported"`)
}

// leakyEnv wraps a reported environment with handles that misbehave.
type leakyEnv struct {
	*ReportedEnvironment
	canvasPanics bool
	renderFails  bool
}

type panickingCanvas struct{ Canvas }

func (panickingCanvas) Draw(CanvasScene) error { panic("canvas exploded") }

type failingAudio struct{ AudioContext }

func (failingAudio) Render(context.Context, AudioGraph) ([]float32, error) {
	return nil, errors.New("render failed")
}

func (e *leakyEnv) NewCanvas(w, h int) (Canvas, error) {
	c, err := e.ReportedEnvironment.NewCanvas(w, h)
	if err != nil || !e.canvasPanics {
		return c, err
	}
	return panickingCanvas{c}, nil
}

func (e *leakyEnv) NewOfflineAudioContext(channels, length, rate int) (AudioContext, error) {
	a, err := e.ReportedEnvironment.NewOfflineAudioContext(channels, length, rate)
	if err != nil || !e.renderFails {
		return a, err
	}
	return failingAudio{a}, nil
}

func TestHandlesReleasedOnEveryPath(t *testing.T) {
	cases := map[string]*leakyEnv{
		"success": {ReportedEnvironment: NewReportedEnvironment(fullProbe())},
		"panic":   {ReportedEnvironment: NewReportedEnvironment(fullProbe()), canvasPanics: true},
		"error":   {ReportedEnvironment: NewReportedEnvironment(fullProbe()), renderFails: true},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			b := NewCollector(nil).Collect(context.Background(), env)
			assert.Zero(t, env.OpenHandles())
			if env.canvasPanics {
				assert.Equal(t, SentinelError, b.Canvas.String())
				assert.True(t, b.Audio.Supported())
			}
			if env.renderFails {
				assert.Equal(t, SentinelError, b.Audio.String())
				assert.True(t, b.Canvas.Supported())
			}
		})
	}
}

type explodingCollector struct{}

func (explodingCollector) Collect(context.Context, Environment) Bundle { panic("boom") }

func TestGenerateFallsBackOnTotalFailure(t *testing.T) {
	env := NewReportedEnvironment(fullProbe())
	g := NewGenerator(nil, nil)
	g.Collector = explodingCollector{}

	fp := g.Generate(context.Background(), env)
	assert.Equal(t, FallbackHash(env), fp)
	assert.Regexp(t, hexID, fp)
	assert.NotEqual(t, generate(t, fullProbe()), fp)
}

func TestGenerateNilEnvironmentStillResolves(t *testing.T) {
	fp := NewGenerator(nil, nil).Generate(context.Background(), nil)
	assert.Equal(t, FallbackHash(nil), fp)
}

func TestFallbackUsesReducedSignals(t *testing.T) {
	p := fullProbe()
	before := FallbackHash(NewReportedEnvironment(p))

	p.Canvas = nil
	p.Fonts = nil
	assert.Equal(t, before, FallbackHash(NewReportedEnvironment(p)))

	p.Locale.TimezoneOffset = 60
	assert.NotEqual(t, before, FallbackHash(NewReportedEnvironment(p)))
}

type slowEnv struct {
	*ReportedEnvironment
	calls int
}

func (e *slowEnv) RunTimed(ctx context.Context, iterations int) (time.Duration, error) {
	e.calls++
	select {
	case <-time.After(40 * time.Millisecond):
		return 40 * time.Millisecond, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func TestTimingRespectsBudget(t *testing.T) {
	env := &slowEnv{ReportedEnvironment: NewReportedEnvironment(fullProbe())}
	start := time.Now()
	r := collectTiming(context.Background(), env, 100, 100*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
	require.True(t, r.Supported())
	assert.Less(t, env.calls, 100)
	assert.Contains(t, r.Value, "mean=40.000")
}

func TestHashStringProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		h := HashString(s)
		if !hexID.MatchString(h) {
			t.Fatalf("hash %q is not 64 hex chars", h)
		}
		if h != HashString(s) {
			t.Fatalf("hash of %q is not stable", s)
		}
		other := s + rapid.StringN(1, 8, -1).Draw(t, "suffix")
		if HashString(other) == h {
			t.Fatalf("hash collision between %q and %q", s, other)
		}
	})
}

func TestHashDependsOnOrder(t *testing.T) {
	assert.NotEqual(t, HashString("ab"), HashString("ba"))
	assert.Equal(t, "cba", reverse("abc"))
	assert.Equal(t, "\U0001F603x", reverse("x\U0001F603"))
}
