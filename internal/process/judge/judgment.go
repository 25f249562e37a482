package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

// indexArrayPattern finds a bracketed, comma separated list of integers anywhere in a reply.
var indexArrayPattern = regexp.MustCompile(`\[\s*\d+(?:\s*,\s*\d+)*\s*\]`)

// FailureKind classifies why a judgment could not be used.
type FailureKind string

// Failure kinds.
const (
	FailureNone      FailureKind = ""
	FailureTransport FailureKind = "transport"
	FailureMalformed FailureKind = "malformed"
	FailureParse     FailureKind = "parse"
)

// Outcome is the result of one judgment call: either the returned indices or a failure.
type Outcome struct {
	Indices []int
	Failure FailureKind
	Err     error
}

// Failed reports whether the batch must be accepted wholesale.
func (o Outcome) Failed() bool {
	return o.Failure != FailureNone
}

// NewOutcome turns a service reply or call error into an Outcome.
func NewOutcome(content string, callErr error) Outcome {
	if callErr != nil {
		return Outcome{Failure: FailureTransport, Err: callErr}
	}

	indices, err := ParseIndices(content)
	if err != nil {
		kind := FailureParse
		if errors.Is(err, apperrors.ErrMalformedResponse) {
			kind = FailureMalformed
		}

		return Outcome{Failure: kind, Err: err}
	}

	return Outcome{Indices: indices}
}

// ParseIndices extracts the first bracketed integer array from content.
// Values too large to represent are returned as -1 so range checks drop them.
func ParseIndices(content string) ([]int, error) {
	match := indexArrayPattern.FindString(content)
	if match == "" {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrMalformedResponse, truncate(content, 200))
	}

	dec := json.NewDecoder(strings.NewReader(match))
	dec.UseNumber()

	var raw []json.Number
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode index array %q: %w", match, err)
	}

	indices := make([]int, 0, len(raw))

	for _, n := range raw {
		v, err := strconv.Atoi(n.String())
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				indices = append(indices, -1)
				continue
			}

			return nil, fmt.Errorf("parse index %q: %w", n, err)
		}

		indices = append(indices, v)
	}

	return indices, nil
}

// AcceptedIndices maps an outcome onto a batch of size n and returns the accepted
// 1-based local indices. Failed outcomes accept every index; otherwise indices keep
// the returned order with out-of-range values and repeats dropped.
func AcceptedIndices(n int, o Outcome) []int {
	if o.Failed() {
		all := make([]int, n)
		for i := range all {
			all[i] = i + 1
		}

		return all
	}

	seen := make(map[int]struct{}, len(o.Indices))
	accepted := make([]int, 0, len(o.Indices))

	for _, idx := range o.Indices {
		if idx < 1 || idx > n {
			continue
		}

		if _, dup := seen[idx]; dup {
			continue
		}

		seen[idx] = struct{}{}
		accepted = append(accepted, idx)
	}

	return accepted
}

// Accept returns the batch items selected by the outcome together with their
// 1-based local indices.
func Accept[T any](batch Batch[T], o Outcome) (items []T, indices []int) {
	indices = AcceptedIndices(batch.Len(), o)

	items = make([]T, 0, len(indices))
	for _, idx := range indices {
		items = append(items, batch.Items[idx-1])
	}

	return items, indices
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n]) + "..."
}
