package worker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWeightFor(t *testing.T) {
	require.Equal(t, -1, weightFor(0))
	require.Equal(t, 0, weightFor(4))
	require.Equal(t, 3, weightFor(31))
	require.Equal(t, 0, weightFor(64), "workers beyond the table drain the whole mailbox")
}

func TestBatchSize(t *testing.T) {
	require.Equal(t, 0, batchSize(0, 0))
	require.Equal(t, 1, batchSize(-1, 50), "negative weight always dispatches one message")
	require.Equal(t, 50, batchSize(0, 50), "zero weight drains the whole mailbox")
	require.Equal(t, 13, batchSize(2, 50), "ceil(50 >> 2) == 13")
	require.Equal(t, 1, batchSize(3, 1), "never rounds down to zero")
}
