package judge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

func TestParseIndices(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []int
		wantErr error
	}{
		{name: "bare array", content: "[1, 3, 5]", want: []int{1, 3, 5}},
		{name: "surrounding prose", content: "Unique messages: [2,1] as requested.", want: []int{2, 1}},
		{name: "first array wins", content: "[4] or maybe [1, 2]", want: []int{4}},
		{name: "whitespace inside", content: "[ 1 ,\n 2 ]", want: []int{1, 2}},
		{name: "markdown fence", content: "```json\n[7, 8]\n```", want: []int{7, 8}},
		{name: "not json at all", content: "not json at all", wantErr: apperrors.ErrMalformedResponse},
		{name: "empty array", content: "[]", wantErr: apperrors.ErrMalformedResponse},
		{name: "hash prefixed", content: "[#1, #2]", wantErr: apperrors.ErrMalformedResponse},
		{name: "overflowing value", content: "[1, 99999999999999999999999]", want: []int{1, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIndices(tt.content)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIndices_LeadingZeroIsParseError(t *testing.T) {
	_, err := ParseIndices("[01, 2]")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrMalformedResponse))

	o := NewOutcome("[01, 2]", nil)
	assert.Equal(t, FailureParse, o.Failure)
}

func TestNewOutcome(t *testing.T) {
	o := NewOutcome("", errors.New("connection refused"))
	assert.Equal(t, FailureTransport, o.Failure)
	assert.True(t, o.Failed())

	o = NewOutcome("nothing here", nil)
	assert.Equal(t, FailureMalformed, o.Failure)

	o = NewOutcome("[2]", nil)
	assert.False(t, o.Failed())
	assert.Equal(t, []int{2}, o.Indices)
}

func TestAccept(t *testing.T) {
	batch := Batch[string]{Items: []string{"a", "b", "c"}, Offset: 30}

	tests := []struct {
		name    string
		outcome Outcome
		want    []string
	}{
		{name: "out of range dropped", outcome: Outcome{Indices: []int{1, 5, 2}}, want: []string{"a", "b"}},
		{name: "returned order kept", outcome: Outcome{Indices: []int{3, 1}}, want: []string{"c", "a"}},
		{name: "duplicates not repeated", outcome: Outcome{Indices: []int{2, 2, 1, 2}}, want: []string{"b", "a"}},
		{name: "zero and negative dropped", outcome: Outcome{Indices: []int{0, -1, 3}}, want: []string{"c"}},
		{name: "nothing unique", outcome: Outcome{Indices: []int{9}}, want: []string{}},
		{name: "transport failure accepts all", outcome: Outcome{Failure: FailureTransport}, want: []string{"a", "b", "c"}},
		{name: "malformed accepts all", outcome: NewOutcome("not json at all", nil), want: []string{"a", "b", "c"}},
		{name: "parse failure accepts all", outcome: Outcome{Failure: FailureParse}, want: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, indices := Accept(batch, tt.outcome)
			assert.Equal(t, tt.want, got)
			assert.Len(t, indices, len(got))
		})
	}
}

func TestAccept_Indices(t *testing.T) {
	batch := Batch[string]{Items: []string{"a", "b", "c"}, Offset: 30}

	items, indices := Accept(batch, Outcome{Indices: []int{3, 7, 1, 3}})
	assert.Equal(t, []string{"c", "a"}, items)
	assert.Equal(t, []int{3, 1}, indices)
	assert.Equal(t, 32, batch.GlobalIndex(indices[0]))
	assert.Equal(t, 30, batch.GlobalIndex(indices[1]))
}
