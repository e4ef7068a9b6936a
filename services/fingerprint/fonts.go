package fingerprint

import (
	"errors"
	"sort"
	"strings"
)

const (
	fontBaseline = "monospace"
	fontSizePx   = 72
	fontTestText = "mmmmmmmmmmlli"
)

// DefaultFontCandidates is the list probed for availability.
var DefaultFontCandidates = []string{
	"Andale Mono", "Arial", "Arial Black", "Arial Narrow", "Bookman Old Style", "Calibri", "Cambria",
	"Century Gothic", "Comic Sans MS", "Consolas", "Courier New", "Garamond", "Georgia", "Helvetica",
	"Impact", "Lucida Console", "Lucida Grande", "Menlo", "Monaco", "MS Gothic", "Noto Sans",
	"Palatino Linotype", "Roboto", "Segoe UI", "Tahoma", "Times New Roman", "Trebuchet MS",
	"Ubuntu", "Verdana", "Wingdings",
}

func collectFonts(env Environment, candidates []string) Result {
	base, err := env.MeasureText(fontBaseline, fontSizePx, fontTestText)
	if err != nil {
		return fail(err)
	}
	if base <= 0 {
		return fail(errors.New("baseline width is not positive"))
	}

	var detected []string
	for _, font := range candidates {
		w, err := env.MeasureText("'"+font+"', "+fontBaseline, fontSizePx, fontTestText)
		if err != nil {
			continue
		}
		if w != base {
			detected = append(detected, font)
		}
	}
	sort.Strings(detected)
	return ok(strings.Join(detected, ","))
}
