package dedup

import (
	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	"github.com/lueurxax/telegram-relay/internal/platform/observability"
)

// DefaultThreshold is the similarity ratio at which two messages are near-duplicates.
const DefaultThreshold = 0.9

// Log key constants for deduplication.
const (
	logKeySkippedID   = "skipped_id"
	logKeyDuplicateOf = "duplicate_of"
	logKeyChannel     = "channel"
	logKeyRemoved     = "removed"
	logKeySimilarity  = "similarity"
)

// Result is the outcome of a collapse pass.
type Result struct {
	// Messages holds one representative per similarity group, in group creation order.
	Messages []domain.CandidateMessage

	// Removed is the number of input messages dropped as near-duplicates.
	Removed int
}

// group is one distinct story: its representative and the matcher comparing against it.
type group struct {
	message    domain.CandidateMessage
	normalized []string
	matcher    *difflib.SequenceMatcher
}

// Collapse greedily removes near-duplicates. Each message joins the first group whose
// representative reaches the threshold and replaces it only when its normalized text
// is strictly longer; otherwise it starts a new group.
func Collapse(messages []domain.CandidateMessage, threshold float64, logger *zerolog.Logger) Result {
	if len(messages) == 0 {
		return Result{Messages: []domain.CandidateMessage{}}
	}

	groups := make([]*group, 0, len(messages))

	for _, msg := range messages {
		norm := splitRunes(Normalize(msg.Text))

		matched := false

		for _, g := range groups {
			g.matcher.SetSeq1(norm)

			similarity, ok := reaches(g.matcher, threshold)
			if !ok {
				continue
			}

			matched = true

			if len(norm) > len(g.normalized) {
				logDuplicate(logger, g.message, msg, similarity, "Replacing representative with longer duplicate")

				g.message = msg
				g.normalized = norm
				g.matcher.SetSeq2(norm)
			} else {
				logDuplicate(logger, msg, g.message, similarity, "Skipping near-duplicate")
			}

			break
		}

		if !matched {
			groups = append(groups, &group{
				message:    msg,
				normalized: norm,
				matcher:    difflib.NewMatcher(nil, norm),
			})
		}
	}

	result := Result{
		Messages: make([]domain.CandidateMessage, 0, len(groups)),
		Removed:  len(messages) - len(groups),
	}

	for _, g := range groups {
		result.Messages = append(result.Messages, g.message)
	}

	if result.Removed > 0 {
		observability.CollapseRemoved.Add(float64(result.Removed))

		if logger != nil {
			logger.Info().Int(logKeyRemoved, result.Removed).Msg("Removed near-duplicate messages before analysis")
		}
	}

	return result
}

// Ratio returns the character-sequence similarity of two texts in [0,1].
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(splitRunes(a), splitRunes(b)).Ratio()
}

// reaches evaluates the cheap upper bounds before the full ratio.
func reaches(m *difflib.SequenceMatcher, threshold float64) (float64, bool) {
	if m.RealQuickRatio() < threshold || m.QuickRatio() < threshold {
		return 0, false
	}

	ratio := m.Ratio()

	return ratio, ratio >= threshold
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}

	return out
}

func logDuplicate(logger *zerolog.Logger, dropped, kept domain.CandidateMessage, similarity float64, msg string) {
	if logger == nil {
		return
	}

	logger.Debug().
		Str(logKeySkippedID, dropped.Key().String()).
		Str(logKeyDuplicateOf, kept.Key().String()).
		Str(logKeyChannel, dropped.ChannelName).
		Float64(logKeySimilarity, similarity).
		Msg(msg)
}
