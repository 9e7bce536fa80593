package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, "test:jobs")
}

func TestQueue_FIFO(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, "slotting.calculate", "t1", "u1", map[string]string{"warehouse_id": "wh1"})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "waves.generate", "t1", "u1", map[string]string{"warehouse_id": "wh2"})
	require.NoError(t, err)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, first.ID, job.ID)
	assert.Equal(t, "slotting.calculate", job.Type)
	assert.Equal(t, "t1", job.TenantID)

	var payload map[string]string
	require.NoError(t, job.Decode(&payload))
	assert.Equal(t, "wh1", payload["warehouse_id"])

	job, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "waves.generate", job.Type)
}

func TestQueue_DequeueTimeout(t *testing.T) {
	q := newTestQueue(t)

	job, err := q.Dequeue(context.Background(), 100*time.Millisecond)
	assert.NoError(t, err)
	assert.Nil(t, job)
}

func TestJob_DecodeEmpty(t *testing.T) {
	var j Job
	assert.Error(t, j.Decode(&struct{}{}))
}
