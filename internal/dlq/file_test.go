package dlq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commlogs-systems/commlogs-collector/internal/models"
)

func sampleBatch(id string) FailedBatch {
	host := "web-1"
	return FailedBatch{
		BatchID:   id,
		Timestamp: time.Date(2025, 11, 18, 3, 30, 0, 0, time.UTC),
		Records: []models.Record{
			{TS: time.Date(2025, 11, 18, 3, 29, 0, 0, time.UTC), SourceHost: &host, Tags: map[string]any{}},
		},
		Error:    "insert failed",
		Attempts: 3,
	}
}

func TestFileQueueWriteAndList(t *testing.T) {
	q, err := NewFileQueue(t.TempDir())
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Write(ctx, sampleBatch("batch-a")))
	require.NoError(t, q.Write(ctx, sampleBatch("batch-b")))

	batches, err := q.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	ids := []string{batches[0].BatchID, batches[1].BatchID}
	assert.ElementsMatch(t, []string{"batch-a", "batch-b"}, ids)

	got := batches[0]
	assert.Equal(t, "insert failed", got.Error)
	assert.Equal(t, 3, got.Attempts)
	require.Len(t, got.Records, 1)
	require.NotNil(t, got.Records[0].SourceHost)
	assert.Equal(t, "web-1", *got.Records[0].SourceHost)
}

func TestFileQueueListLimit(t *testing.T) {
	q, err := NewFileQueue(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Write(ctx, sampleBatch("batch")))
	}

	batches, err := q.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, batches, 2)
}

func TestFileQueueCreatesDirectory(t *testing.T) {
	base := t.TempDir() + "/nested/dlq"
	q, err := NewFileQueue(base)
	require.NoError(t, err)

	require.NoError(t, q.Write(context.Background(), sampleBatch("batch-a")))

	batches, err := q.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}
