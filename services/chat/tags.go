package chat

import "regexp"

var tagPattern = regexp.MustCompile(`@[A-Za-z0-9_]+`)

// ExtractTags returns the distinct @tags in text in order of first appearance.
func ExtractTags(text string) []string {
	tags := []string{}
	seen := make(map[string]struct{})
	for _, t := range tagPattern.FindAllString(text, -1) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}
