package fingerprint

import (
	"errors"
	"strings"
)

// CanvasScene is the fixed drawing used for the canvas signal.
type CanvasScene struct {
	Width     int
	Height    int
	Text      string
	Font      string
	TextColor string
	Rect      [4]int
	RectColor string
	Arc       [3]int
	Gradient  []string
}

var defaultCanvasScene = CanvasScene{
	Width:     280,
	Height:    60,
	Text:      "SUBZERO-MD,fp <canvas> 1.0 \U0001F603",
	Font:      "14px 'Arial'",
	TextColor: "#069",
	Rect:      [4]int{125, 1, 62, 20},
	RectColor: "#f60",
	Arc:       [3]int{50, 50, 50},
	Gradient:  []string{"#ff0000", "#00ff00", "#0000ff"},
}

func collectCanvas(env Environment) Result {
	scene := defaultCanvasScene
	canvas, err := env.NewCanvas(scene.Width, scene.Height)
	if err != nil {
		return fail(err)
	}
	defer canvas.Release()

	if err := canvas.Draw(scene); err != nil {
		return fail(err)
	}
	uri, err := canvas.DataURL()
	if err != nil {
		return fail(err)
	}
	if !strings.HasPrefix(uri, "data:") {
		return fail(errors.New("canvas returned a non data URI"))
	}
	return ok(uri)
}
