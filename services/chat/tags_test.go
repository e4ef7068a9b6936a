package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestExtractTags(t *testing.T) {
	assert.Equal(t, []string{"@issue"}, ExtractTags("hello @issue"))
	assert.Equal(t, []string{"@b", "@a"}, ExtractTags("@b then @a and @b again"))
	assert.Equal(t, []string{"@under_score1"}, ExtractTags("ping @under_score1!"))
	assert.Equal(t, []string{}, ExtractTags("no tags @ here"))
}

func TestExtractTagsProperties(t *testing.T) {
	word := rapid.StringMatching(`[A-Za-z0-9_]{1,12}`)
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOfN(word, 0, 8).Draw(t, "words")
		var sb strings.Builder
		for i, w := range words {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString("@" + w)
		}
		tags := ExtractTags(sb.String())

		seen := map[string]bool{}
		for _, tag := range tags {
			if seen[tag] {
				t.Fatalf("duplicate tag %q", tag)
			}
			seen[tag] = true
			if !strings.HasPrefix(tag, "@") {
				t.Fatalf("tag %q lacks @", tag)
			}
		}
		for _, w := range words {
			if !seen["@"+w] {
				t.Fatalf("tag @%s missing from %v", w, tags)
			}
		}
	})
}
