package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"domainscout/internal/extract"
)

func TestEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	ctx := context.Background()

	item := extract.QueueItem{RunID: "run-1"}
	require.NoError(t, q.Enqueue(ctx, item))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "run-1", got.RunID)
}

func TestDequeueRespectsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	require.Error(t, err)
}

func TestDequeueAfterCloseReturnsError(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	q.Close()
	q.Close() // idempotent

	_, err := q.Dequeue(context.Background())
	require.Error(t, err)
}
