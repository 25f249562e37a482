package relay

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
)

const (
	// Telegram hard limits, in UTF-16 code units.
	telegramTextLimit    = 4096
	telegramCaptionLimit = 1024

	DefaultMaxLength = 4000

	truncatedMarker = "...<message truncated>"
	captionEllipsis = "..."
	defaultSource   = "Channel"
	headerSeparator = "\n\n"
)

// Header is the Markdown link to the original message followed by a blank line.
// It is empty when the message cannot be addressed.
func Header(m domain.CandidateMessage) string {
	if m.ChannelID == 0 || m.ID == 0 {
		return ""
	}

	return fmt.Sprintf("[%s](%s)%s", sourceName(m), domain.MessageURL(m.ChannelID, m.ID), headerSeparator)
}

// Truncate joins header and body within limit, cutting the body and appending a marker.
// The header is kept whole unless it alone leaves no room for the marker.
func Truncate(header, body string, limit int) string {
	text := header + body
	if utf16Len(text) <= limit {
		return text
	}

	budget := limit - utf16Len(truncatedMarker)
	if budget < 0 {
		budget = 0
	}

	if rest := budget - utf16Len(header); rest >= 0 {
		return header + utf16Slice(body, rest) + truncatedMarker
	}

	return utf16Slice(text, budget) + truncatedMarker
}

// Caption fits text into a media caption.
func Caption(text string) string {
	if utf16Len(text) <= telegramCaptionLimit {
		return text
	}

	return utf16Slice(text, telegramCaptionLimit-len(captionEllipsis)) + captionEllipsis
}

func sourceName(m domain.CandidateMessage) string {
	if name := strings.TrimSpace(m.ChannelName); name != "" {
		return name
	}

	return defaultSource
}

// utf16Len returns the length Telegram counts: UTF-16 code units.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// utf16Slice returns the longest prefix of s that fits in maxUnits UTF-16 code units.
func utf16Slice(s string, maxUnits int) string {
	units := 0

	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}

		if units+n > maxUnits {
			return s[:i]
		}

		units += n
	}

	return s
}
