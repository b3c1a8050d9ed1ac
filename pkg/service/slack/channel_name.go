package slack

import (
	"strings"
	"unicode"
)

// NormalizeChannelName normalizes a string to be a valid Slack channel name
// Slack allows: lowercase letters, numbers, hyphens, underscores, and Unicode characters (including Japanese)
// Slack prohibits: uppercase (Latin), spaces, slashes, periods, commas, and special symbols
func NormalizeChannelName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "#")
	name = strings.ReplaceAll(name, " ", "-")

	var result strings.Builder
	result.Grow(len(name))

	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_':
			result.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			result.WriteRune(unicode.ToLower(r))
		case r > 127 && !isProhibitedSymbol(r):
			result.WriteRune(r)
		}
	}

	return result.String()
}

// isProhibitedSymbol checks if a Unicode character is prohibited in Slack channel names
func isProhibitedSymbol(r rune) bool {
	switch r {
	case '。', '、', '!', '?', '・', '「', '」':
		return true
	}
	return false
}

// isChannelID reports whether ref already is a channel ID such as C0123ABCD
func isChannelID(ref string) bool {
	if len(ref) < 9 || (ref[0] != 'C' && ref[0] != 'G') {
		return false
	}
	for _, r := range ref[1:] {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// ResolveChannel maps a channel reference from the config file, either an ID
// or a "#name", to the ID of a joined channel
func ResolveChannel(channels []Channel, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if isChannelID(ref) {
		return ref, true
	}

	name := NormalizeChannelName(ref)
	for _, ch := range channels {
		if ch.Name == name {
			return ch.ID, true
		}
	}
	return "", false
}
