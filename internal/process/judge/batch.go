package judge

// DefaultMaxBatchSize bounds the number of messages sent in one judgment call.
const DefaultMaxBatchSize = 30

// Batch is a contiguous slice of the working sequence with its global offset.
// Local indices run 1..len(Items); local index i maps to global index Offset+i-1.
type Batch[T any] struct {
	Items  []T
	Offset int
}

// Len returns the number of items in the batch.
func (b Batch[T]) Len() int {
	return len(b.Items)
}

// GlobalIndex maps a 1-based local index to its 0-based position in the planned sequence.
func (b Batch[T]) GlobalIndex(local int) int {
	return b.Offset + local - 1
}

// Plan splits items into consecutive batches of at most maxSize. A non-positive
// maxSize yields a single batch.
func Plan[T any](items []T, maxSize int) []Batch[T] {
	if len(items) == 0 {
		return nil
	}

	if maxSize <= 0 {
		maxSize = len(items)
	}

	batches := make([]Batch[T], 0, (len(items)+maxSize-1)/maxSize)

	for start := 0; start < len(items); start += maxSize {
		end := min(start+maxSize, len(items))
		batches = append(batches, Batch[T]{Items: items[start:end:end], Offset: start})
	}

	return batches
}
