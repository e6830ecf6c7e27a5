package discord

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxDiscordMessageLen = 2000
	SafeChunkLen         = 1900
)

// ChunkMessage splits rendered content into Discord-sized messages, preferring
// paragraph and then line boundaries.
func ChunkMessage(content string) []string {
	if utf8.RuneCountInString(content) <= MaxDiscordMessageLen {
		return []string{content}
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
		}
	}

	for _, line := range strings.SplitAfter(content, "\n") {
		for utf8.RuneCountInString(line) > SafeChunkLen {
			flush()
			head, tail := splitAtRune(line, SafeChunkLen)
			chunks = append(chunks, head)
			line = tail
		}
		if utf8.RuneCountInString(current.String())+utf8.RuneCountInString(line) > SafeChunkLen {
			flush()
		}
		current.WriteString(line)
	}
	flush()
	return chunks
}

func splitAtRune(s string, n int) (string, string) {
	count := 0
	for i := range s {
		if count == n {
			return s[:i], s[i:]
		}
		count++
	}
	return s, ""
}

var newlineCollapse = regexp.MustCompile(`\n{3,}`)

// BeautifyForDiscord normalizes AI-responses for improved readability.
func BeautifyForDiscord(text string) string {
	if text == "" {
		return text
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = newlineCollapse.ReplaceAllString(normalized, "\n\n")

	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "- "):
			lines[i] = strings.Replace(line, "- ", "• ", 1)
		case strings.HasPrefix(trimmed, "* "):
			lines[i] = strings.Replace(line, "* ", "• ", 1)
		}
	}

	return WrapURLsNoEmbed(strings.TrimSpace(strings.Join(lines, "\n")))
}
