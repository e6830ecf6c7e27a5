package discord

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	urlRegex     = regexp.MustCompile(`<?https?://[^\s\[\]()<>]+>?`)
	mentionRegex = regexp.MustCompile(`^<@!?(\d+)>$`)
)

// WrapURLsNoEmbed wraps URLs in angle brackets to prevent Discord embeds.
func WrapURLsNoEmbed(text string) string {
	return urlRegex.ReplaceAllStringFunc(text, func(url string) string {
		if strings.HasPrefix(url, "<") && strings.HasSuffix(url, ">") {
			return url
		}
		url = strings.Trim(url, "<>")
		trimmed := strings.TrimRight(url, ".,;:!?)")
		return fmt.Sprintf("<%s>%s", trimmed, url[len(trimmed):])
	})
}

// ParseUserRef accepts a raw user ID or a <@id> mention and returns the ID.
func ParseUserRef(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if m := mentionRegex.FindStringSubmatch(token); m != nil {
		return m[1], true
	}
	if token == "" {
		return "", false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return token, true
}
