package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// MessageKind is the delivery shape of a message, resolved once at ingestion.
type MessageKind string

// Message kinds.
const (
	KindText             MessageKind = "text"
	KindMedia            MessageKind = "media"
	KindMediaWithCaption MessageKind = "media_caption"
)

// ResolveKind derives the kind from the media flag and the text.
func ResolveKind(hasMedia bool, text string) MessageKind {
	switch {
	case hasMedia && strings.TrimSpace(text) != "":
		return KindMediaWithCaption
	case hasMedia:
		return KindMedia
	default:
		return KindText
	}
}

// CandidateMessage is one ingested message. It is never mutated by the pipeline,
// only included or excluded.
type CandidateMessage struct {
	ID          int64       `json:"id"`
	ChannelID   int64       `json:"channel_id"`
	ChannelName string      `json:"channel_name"`
	Timestamp   string      `json:"timestamp"`
	Text        string      `json:"text"`
	HasMedia    bool        `json:"has_media"`
	Kind        MessageKind `json:"kind,omitempty"`
}

// Key is the composite identity of a message for the lifetime of a run.
type Key struct {
	ChannelID int64
	ID        int64
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.ChannelID, k.ID)
}

// Key returns the composite identity of the message.
func (m CandidateMessage) Key() Key {
	return Key{ChannelID: m.ChannelID, ID: m.ID}
}

// Time parses the message timestamp. Zero time is returned for unparseable values.
func (m CandidateMessage) Time() time.Time {
	if m.Timestamp == "" {
		return time.Time{}
	}

	t, err := dateparse.ParseAny(m.Timestamp)
	if err != nil {
		return time.Time{}
	}

	return t
}

// WithKind returns the message with Kind resolved when it was not persisted.
func (m CandidateMessage) WithKind() CandidateMessage {
	if m.Kind == "" {
		m.Kind = ResolveKind(m.HasMedia, m.Text)
	}

	return m
}

// Document is the hand-off artifact between stages.
type Document struct {
	Timestamp string             `json:"timestamp"`
	Messages  []CandidateMessage `json:"messages"`
}

// NewDocument stamps messages with the current time in ISO-8601.
func NewDocument(messages []CandidateMessage, now time.Time) Document {
	if messages == nil {
		messages = []CandidateMessage{}
	}

	return Document{
		Timestamp: now.Format(time.RFC3339),
		Messages:  messages,
	}
}

// Artifact names.
const (
	ArtifactNewMessages         = "new_messages"
	ArtifactInformativeMessages = "informative_messages"
	ArtifactUniqueMessages      = "unique_messages"
)

// UniqueByKey drops repeated composite identities, keeping the first occurrence.
func UniqueByKey(messages []CandidateMessage) []CandidateMessage {
	seen := make(map[Key]struct{}, len(messages))
	result := make([]CandidateMessage, 0, len(messages))

	for _, m := range messages {
		if _, ok := seen[m.Key()]; ok {
			continue
		}

		seen[m.Key()] = struct{}{}
		result = append(result, m)
	}

	return result
}

const channelIDPrefix = -1000000000000

// BareChannelID strips the Bot API "-100" channel prefix and the basic group sign.
func BareChannelID(id int64) int64 {
	switch {
	case id <= channelIDPrefix:
		return channelIDPrefix - id
	case id < 0:
		return -id
	default:
		return id
	}
}

// DialogChannelID returns the Bot API form of a channel or supergroup ID.
func DialogChannelID(bareID int64) int64 {
	return channelIDPrefix - bareID
}

// MessageURL links to a message of a private or public channel by numeric ID.
func MessageURL(channelID, messageID int64) string {
	return fmt.Sprintf("https://t.me/c/%d/%d", BareChannelID(channelID), messageID)
}
