package judge

import (
	"fmt"
	"strings"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
)

const messageLineFormat = "Message #%d (Channel: %s): %s"

const defaultUniqueSystemPrompt = `You analyze messages collected from several Telegram channels and decide which of them are unique and carry the most complete information. Select the messages that do not duplicate each other in informational content, even when they come from different channels.`

const defaultInformativeSystemPrompt = `You analyze messages collected from Telegram channels and decide which of them contain substantive, useful information.`

// DefaultInformativeCriteria is the policy used when no custom criteria are configured.
const DefaultInformativeCriteria = `1. It contains enough context to be understood on its own.
2. It is not spam or an emotional post without specifics.
3. It is not a job posting or an offer of employment.
4. It is not an announcement of or invitation to an event (conferences, round tables, webinars, seminars, trainings, courses).`

const uniqueUserTemplate = `Analyze the following messages from different Telegram channels and determine which of them contain unique information:

%s

IMPORTANT: If several messages cover the same news story or event (even from different channels), select ONLY ONE of them: the best, most complete and most informative one. Ignore the rest.

VERY IMPORTANT: Answer with the numbers of the unique messages as a JSON array of integers, for example [1, 2, 5, 8].
Use only the message numbers shown at the start of each message, without the "#" sign.

Your answer must contain only the JSON array of numbers and nothing else.
Example: [1, 3, 5, 7]
`

const informativeUserTemplate = `Analyze the following messages from Telegram channels and determine which of them are informative:

%s

An informative message meets these criteria:
%s

Answer with the numbers of the informative messages as a JSON array of integers, for example [1, 2, 5, 8].
Your answer must contain only the JSON array of numbers and nothing else.
Example: [1, 3, 5, 7]
`

// RenderBatch renders messages with 1-based local indices, separated by blank lines.
func RenderBatch(messages []domain.CandidateMessage) string {
	lines := make([]string, 0, len(messages))
	for i, m := range messages {
		lines = append(lines, fmt.Sprintf(messageLineFormat, i+1, m.ChannelName, m.Text))
	}

	return strings.Join(lines, "\n\n")
}

func buildUniquePrompt(messages []domain.CandidateMessage) string {
	return fmt.Sprintf(uniqueUserTemplate, RenderBatch(messages))
}

func buildInformativePrompt(messages []domain.CandidateMessage, criteria string) string {
	return fmt.Sprintf(informativeUserTemplate, RenderBatch(messages), criteria)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}
