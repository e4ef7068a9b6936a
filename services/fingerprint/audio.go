package fingerprint

import (
	"context"
	"fmt"
	"math"
)

// AudioGraph is the fixed oscillator → compressor chain rendered for the audio signal.
type AudioGraph struct {
	OscillatorType      string
	Frequency           float64
	CompressorThreshold float64
	CompressorKnee      float64
	CompressorRatio     float64
	CompressorAttack    float64
	CompressorRelease   float64
}

const (
	audioSampleRate  = 44100
	audioChannels    = 1
	audioLength      = audioSampleRate // exactly one second
	audioWindowStart = 4500
	audioWindowEnd   = 5000
)

var defaultAudioGraph = AudioGraph{
	OscillatorType:      "triangle",
	Frequency:           10000,
	CompressorThreshold: -50,
	CompressorKnee:      40,
	CompressorRatio:     12,
	CompressorAttack:    0,
	CompressorRelease:   0.25,
}

func collectAudio(ctx context.Context, env Environment) Result {
	actx, err := env.NewOfflineAudioContext(audioChannels, audioLength, audioSampleRate)
	if err != nil {
		return fail(err)
	}
	defer actx.Close()

	buf, err := actx.Render(ctx, defaultAudioGraph)
	if err != nil {
		return fail(err)
	}
	if len(buf) != audioLength {
		return fail(fmt.Errorf("rendered %d frames, want %d", len(buf), audioLength))
	}

	var sum float64
	for _, s := range buf[audioWindowStart:audioWindowEnd] {
		sum += math.Abs(float64(s))
	}
	return ok(fmt.Sprintf("%.10f", sum))
}
