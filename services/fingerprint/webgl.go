package fingerprint

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
)

// ShaderProbe is the micro render test drawn by the WebGL signal.
type ShaderProbe struct {
	Width          int
	Height         int
	VertexShader   string
	FragmentShader string
}

const debugRendererExtension = "WEBGL_debug_renderer_info"

var defaultShaderProbe = ShaderProbe{
	Width:        16,
	Height:       16,
	VertexShader: "attribute vec2 p;varying vec2 v;void main(){v=p;gl_Position=vec4(p,0.0,1.0);}",
	FragmentShader: "precision mediump float;varying vec2 v;" +
		"void main(){gl_FragColor=vec4(sin(v.x*12.9898)*0.5+0.5,cos(v.y*78.233)*0.5+0.5,fract(v.x*v.y*43758.5453),1.0);}",
}

// webglLimits are the capability parameters recorded verbatim.
var webglLimits = []string{
	"MAX_TEXTURE_SIZE",
	"MAX_VERTEX_ATTRIBS",
	"MAX_VERTEX_UNIFORM_VECTORS",
	"MAX_FRAGMENT_UNIFORM_VECTORS",
	"MAX_VARYING_VECTORS",
	"MAX_RENDERBUFFER_SIZE",
	"MAX_VIEWPORT_DIMS",
	"ALIASED_LINE_WIDTH_RANGE",
	"SHADING_LANGUAGE_VERSION",
	"VERSION",
}

type webglSignal struct {
	Vendor           string            `json:"vendor"`
	Renderer         string            `json:"renderer"`
	UnmaskedVendor   string            `json:"unmaskedVendor"`
	UnmaskedRenderer string            `json:"unmaskedRenderer"`
	Limits           map[string]string `json:"limits"`
	Extensions       []string          `json:"extensions"`
	Render           string            `json:"render"`
}

func collectWebGL(env Environment) Result {
	gl, err := env.NewWebGL()
	if err != nil {
		return fail(err)
	}
	defer gl.Release()

	sig := webglSignal{Limits: make(map[string]string, len(webglLimits))}
	if sig.Vendor, err = gl.Parameter("VENDOR"); err != nil {
		return fail(err)
	}
	if sig.Renderer, err = gl.Parameter("RENDERER"); err != nil {
		return fail(err)
	}

	exts, err := gl.Extensions()
	if err != nil {
		exts = nil
	}
	exts = append([]string(nil), exts...)
	sort.Strings(exts)
	sig.Extensions = exts

	sig.UnmaskedVendor = SentinelNotSupported
	sig.UnmaskedRenderer = SentinelNotSupported
	if containsString(exts, debugRendererExtension) {
		if v, err := gl.Parameter("UNMASKED_VENDOR_WEBGL"); err == nil {
			sig.UnmaskedVendor = v
		}
		if r, err := gl.Parameter("UNMASKED_RENDERER_WEBGL"); err == nil {
			sig.UnmaskedRenderer = r
		}
	}

	for _, name := range webglLimits {
		v, err := gl.Parameter(name)
		if err != nil {
			v = fail(err).String()
		}
		sig.Limits[name] = v
	}

	pixels, err := gl.RenderProbe(defaultShaderProbe)
	switch {
	case err != nil:
		sig.Render = fail(err).String()
	case len(pixels) == 0:
		sig.Render = fail(errors.New("empty readback")).String()
	default:
		sig.Render = hex.EncodeToString(pixels)
	}

	out, err := json.Marshal(sig)
	if err != nil {
		return fail(err)
	}
	return ok(string(out))
}

func containsString(list []string, s string) bool {
	i := sort.SearchStrings(list, s)
	return i < len(list) && list[i] == s
}
