package fingerprint

import (
	"context"
	"time"
)

// NavigatorInfo holds browser identity properties.
type NavigatorInfo struct {
	UserAgent           string   `json:"userAgent"`
	Platform            string   `json:"platform"`
	Vendor              string   `json:"vendor"`
	Languages           []string `json:"languages"`
	Plugins             []string `json:"plugins"`
	CookieEnabled       bool     `json:"cookieEnabled"`
	DoNotTrack          string   `json:"doNotTrack"`
	HardwareConcurrency int      `json:"hardwareConcurrency"`
	DeviceMemory        float64  `json:"deviceMemory"`
	MaxTouchPoints      int      `json:"maxTouchPoints"`
}

// ScreenInfo holds display geometry.
type ScreenInfo struct {
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	AvailWidth       int     `json:"availWidth"`
	AvailHeight      int     `json:"availHeight"`
	ColorDepth       int     `json:"colorDepth"`
	PixelDepth       int     `json:"pixelDepth"`
	DevicePixelRatio float64 `json:"devicePixelRatio"`
}

// NetworkInfo holds connection hints.
type NetworkInfo struct {
	EffectiveType string  `json:"effectiveType"`
	Downlink      float64 `json:"downlink"`
	RTT           int     `json:"rtt"`
	SaveData      bool    `json:"saveData"`
}

// LocaleInfo holds language and time zone.
type LocaleInfo struct {
	Language       string `json:"language"`
	Timezone       string `json:"timezone"`
	TimezoneOffset int    `json:"timezoneOffset"`
}

// Canvas is an offscreen 2D surface. Release must be called once the caller is done with it.
type Canvas interface {
	Draw(scene CanvasScene) error
	DataURL() (string, error)
	Release()
}

// WebGL is a rendering context. Release must be called once the caller is done with it.
type WebGL interface {
	Parameter(name string) (string, error)
	Extensions() ([]string, error)
	// RenderProbe draws the probe and reads back its pixels.
	RenderProbe(probe ShaderProbe) ([]byte, error)
	Release()
}

// AudioContext is an offline audio renderer. Close must be called once the caller is done with it.
type AudioContext interface {
	// Render runs graph to completion and returns the rendered channel data.
	Render(ctx context.Context, graph AudioGraph) ([]float32, error)
	Close() error
}

// Environment is the source of every passively observable signal.
// Methods return ErrNotSupported for APIs the environment lacks.
type Environment interface {
	Navigator() (NavigatorInfo, error)
	Screen() (ScreenInfo, error)
	Network() (NetworkInfo, error)
	Locale() (LocaleInfo, error)
	NewCanvas(width, height int) (Canvas, error)
	NewWebGL() (WebGL, error)
	NewOfflineAudioContext(channels, length, sampleRate int) (AudioContext, error)
	// MeasureText returns the rendered width of text in the given font stack.
	MeasureText(fontStack string, sizePx int, text string) (float64, error)
	// RunTimed runs the fixed CPU loop for the given iterations and reports its wall-clock duration.
	RunTimed(ctx context.Context, iterations int) (time.Duration, error)
}
