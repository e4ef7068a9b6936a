package fingerprint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Probe is the set of raw probe outputs reported by a browser.
// Nil sections mean the browser could not run that probe.
type Probe struct {
	Navigator *NavigatorInfo `json:"navigator"`
	Screen    *ScreenInfo    `json:"screen"`
	Network   *NetworkInfo   `json:"network"`
	Locale    *LocaleInfo    `json:"locale"`
	Canvas    *CanvasProbe   `json:"canvas"`
	WebGL     *WebGLProbe    `json:"webgl"`
	Audio     *AudioProbe    `json:"audio"`
	Fonts     *FontProbe     `json:"fonts"`
	Timing    *TimingProbe   `json:"timing"`
}

type CanvasProbe struct {
	DataURL string `json:"dataUrl"`
	Error   string `json:"error,omitempty"`
}

type WebGLProbe struct {
	Parameters map[string]string `json:"parameters"`
	Extensions []string          `json:"extensions"`
	// Pixels is the hex-encoded readback of the shader probe.
	Pixels string `json:"pixels"`
}

// AudioProbe carries the rendered samples of the compared window.
type AudioProbe struct {
	SampleRate int       `json:"sampleRate"`
	Offset     int       `json:"offset"`
	Samples    []float32 `json:"samples"`
}

// FontProbe maps a font stack (e.g. "'Arial', monospace") to its measured width.
type FontProbe struct {
	Widths map[string]float64 `json:"widths"`
}

type TimingProbe struct {
	RunsMs []float64 `json:"runsMs"`
}

// ReportedEnvironment replays a browser Probe as an Environment.
// It is safe for one Generate call at a time.
type ReportedEnvironment struct {
	probe Probe

	mu       sync.Mutex
	timingAt int
	open     int
}

// NewReportedEnvironment wraps probe.
func NewReportedEnvironment(probe Probe) *ReportedEnvironment {
	return &ReportedEnvironment{probe: probe}
}

// OpenHandles reports canvas, WebGL and audio handles not yet released.
func (e *ReportedEnvironment) OpenHandles() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

func (e *ReportedEnvironment) acquire() func() {
	e.mu.Lock()
	e.open++
	e.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			e.open--
			e.mu.Unlock()
		})
	}
}

func (e *ReportedEnvironment) Navigator() (NavigatorInfo, error) {
	if e.probe.Navigator == nil {
		return NavigatorInfo{}, ErrNotSupported
	}
	return *e.probe.Navigator, nil
}

func (e *ReportedEnvironment) Screen() (ScreenInfo, error) {
	if e.probe.Screen == nil {
		return ScreenInfo{}, ErrNotSupported
	}
	return *e.probe.Screen, nil
}

func (e *ReportedEnvironment) Network() (NetworkInfo, error) {
	if e.probe.Network == nil {
		return NetworkInfo{}, ErrNotSupported
	}
	return *e.probe.Network, nil
}

func (e *ReportedEnvironment) Locale() (LocaleInfo, error) {
	if e.probe.Locale == nil {
		return LocaleInfo{}, ErrNotSupported
	}
	return *e.probe.Locale, nil
}

func (e *ReportedEnvironment) NewCanvas(width, height int) (Canvas, error) {
	if e.probe.Canvas == nil {
		return nil, ErrNotSupported
	}
	return &reportedCanvas{probe: *e.probe.Canvas, release: e.acquire()}, nil
}

func (e *ReportedEnvironment) NewWebGL() (WebGL, error) {
	if e.probe.WebGL == nil {
		return nil, ErrNotSupported
	}
	return &reportedWebGL{probe: *e.probe.WebGL, release: e.acquire()}, nil
}

func (e *ReportedEnvironment) NewOfflineAudioContext(channels, length, sampleRate int) (AudioContext, error) {
	if e.probe.Audio == nil {
		return nil, ErrNotSupported
	}
	if e.probe.Audio.SampleRate != 0 && e.probe.Audio.SampleRate != sampleRate {
		return nil, fmt.Errorf("reported sample rate %d, want %d", e.probe.Audio.SampleRate, sampleRate)
	}
	return &reportedAudio{probe: *e.probe.Audio, length: length, release: e.acquire()}, nil
}

func (e *ReportedEnvironment) MeasureText(fontStack string, sizePx int, text string) (float64, error) {
	if e.probe.Fonts == nil {
		return 0, ErrNotSupported
	}
	w, ok := e.probe.Fonts.Widths[fontStack]
	if !ok {
		return 0, ErrNotSupported
	}
	return w, nil
}

// RunTimed replays the next reported run.
func (e *ReportedEnvironment) RunTimed(ctx context.Context, iterations int) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if e.probe.Timing == nil {
		return 0, ErrNotSupported
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timingAt >= len(e.probe.Timing.RunsMs) {
		return 0, errors.New("no more reported timing runs")
	}
	ms := e.probe.Timing.RunsMs[e.timingAt]
	e.timingAt++
	return time.Duration(ms * float64(time.Millisecond)), nil
}

type reportedCanvas struct {
	probe   CanvasProbe
	release func()
}

func (c *reportedCanvas) Draw(CanvasScene) error {
	if c.probe.Error != "" {
		return errors.New(c.probe.Error)
	}
	return nil
}

func (c *reportedCanvas) DataURL() (string, error) {
	if c.probe.DataURL == "" {
		return "", ErrNotSupported
	}
	return c.probe.DataURL, nil
}

func (c *reportedCanvas) Release() { c.release() }

type reportedWebGL struct {
	probe   WebGLProbe
	release func()
}

func (g *reportedWebGL) Parameter(name string) (string, error) {
	v, ok := g.probe.Parameters[name]
	if !ok {
		return "", ErrNotSupported
	}
	return v, nil
}

func (g *reportedWebGL) Extensions() ([]string, error) {
	if g.probe.Extensions == nil {
		return nil, ErrNotSupported
	}
	return g.probe.Extensions, nil
}

func (g *reportedWebGL) RenderProbe(ShaderProbe) ([]byte, error) {
	if g.probe.Pixels == "" {
		return nil, ErrNotSupported
	}
	return hex.DecodeString(g.probe.Pixels)
}

func (g *reportedWebGL) Release() { g.release() }

type reportedAudio struct {
	probe   AudioProbe
	length  int
	release func()
}

// Render places the reported window into a buffer of the requested length.
func (a *reportedAudio) Render(ctx context.Context, _ AudioGraph) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.probe.Offset < 0 || a.probe.Offset+len(a.probe.Samples) > a.length {
		return nil, fmt.Errorf("reported samples [%d,%d) outside buffer of %d", a.probe.Offset, a.probe.Offset+len(a.probe.Samples), a.length)
	}
	buf := make([]float32, a.length)
	copy(buf[a.probe.Offset:], a.probe.Samples)
	return buf, nil
}

func (a *reportedAudio) Close() error {
	a.release()
	return nil
}
