package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// truncateRunes 는 글자(rune) 단위로 자른다. 잘렸으면 true 이다.
func truncateRunes(s string, n int) (string, bool) {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:n]), true
}

func stripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

// makePreview 는 태그를 벗긴 앞 100자이며, 잘렸으면 "..." 을 붙인다.
func makePreview(content string) string {
	p, cut := truncateRunes(stripTags(content), 100)
	if cut {
		return p + "..."
	}
	return p
}
