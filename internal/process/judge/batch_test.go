package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	items := []int{10, 11, 12, 13, 14, 15, 16}

	tests := []struct {
		name        string
		items       []int
		maxSize     int
		wantSizes   []int
		wantOffsets []int
	}{
		{name: "empty", items: nil, maxSize: 3, wantSizes: nil, wantOffsets: nil},
		{name: "exact multiple", items: items[:6], maxSize: 3, wantSizes: []int{3, 3}, wantOffsets: []int{0, 3}},
		{name: "short last batch", items: items, maxSize: 3, wantSizes: []int{3, 3, 1}, wantOffsets: []int{0, 3, 6}},
		{name: "max larger than input", items: items, maxSize: 30, wantSizes: []int{7}, wantOffsets: []int{0}},
		{name: "size one", items: items[:3], maxSize: 1, wantSizes: []int{1, 1, 1}, wantOffsets: []int{0, 1, 2}},
		{name: "non-positive max", items: items[:4], maxSize: 0, wantSizes: []int{4}, wantOffsets: []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := Plan(tt.items, tt.maxSize)
			require.Len(t, batches, len(tt.wantSizes))

			var flat []int

			for i, b := range batches {
				assert.Equal(t, tt.wantSizes[i], b.Len())
				assert.Equal(t, tt.wantOffsets[i], b.Offset)

				flat = append(flat, b.Items...)
			}

			assert.Equal(t, []int(tt.items), flat, "flattening must reconstruct the input")
		})
	}
}

func TestPlan_ReconstructsForAnySize(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	for k := 1; k <= 30; k++ {
		var flat []int
		for _, b := range Plan(items, k) {
			require.LessOrEqual(t, b.Len(), k)

			for local := 1; local <= b.Len(); local++ {
				require.Equal(t, items[b.GlobalIndex(local)], b.Items[local-1])
			}

			flat = append(flat, b.Items...)
		}

		require.Equal(t, items, flat, "k=%d", k)
	}
}

func TestPlan_BatchesDoNotShareCapacity(t *testing.T) {
	items := []int{1, 2, 3, 4}
	batches := Plan(items, 2)

	_ = append(batches[0].Items, 99)

	assert.Equal(t, 3, items[2], "appending to a batch must not overwrite the next batch")
}
