package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stallingPublisher 阻塞到 ctx 结束，模拟 Kafka 不可用
type stallingPublisher struct {
	mu      sync.Mutex
	entered chan struct{}
	errs    []error
}

func (p *stallingPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	p.entered <- struct{}{}
	<-ctx.Done()
	p.mu.Lock()
	p.errs = append(p.errs, ctx.Err())
	p.mu.Unlock()
	return ctx.Err()
}

func (p *stallingPublisher) Close() error { return nil }

type recordingPublisher struct {
	mu      sync.Mutex
	keys    []string
	ctxErrs []error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestAuditLogger_SlowPublisherDoesNotBlock(t *testing.T) {
	store := testutil.NewMemoryStore()
	pub := &stallingPublisher{entered: make(chan struct{}, 1)}
	a := NewAuditLogger(store, pub, zap.NewNop())
	a.publishTimeout = 50 * time.Millisecond

	done := make(chan struct{})
	go func() {
		a.Record(context.Background(), tenant, "wave", "wave.generate", nil, nil, actor)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on publisher")
	}
	assert.Equal(t, []string{"wave.generate"}, store.AuditActions())

	select {
	case <-pub.entered:
	case <-time.After(time.Second):
		t.Fatal("publisher never called")
	}
	a.Wait()
	require.Len(t, pub.errs, 1)
	assert.ErrorIs(t, pub.errs[0], context.DeadlineExceeded)
}

func TestAuditLogger_PublishOutlivesRequest(t *testing.T) {
	pub := &recordingPublisher{}
	a := NewAuditLogger(testutil.NewMemoryStore(), pub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Record(ctx, tenant, "slotting_recommendation", "slotting.execute", strPtr("rec-1"), nil, actor)
	a.Wait()

	require.Len(t, pub.keys, 1)
	assert.Equal(t, tenant, pub.keys[0])
	assert.NoError(t, pub.ctxErrs[0])
}

func TestAuditLogger_NilIsNoop(t *testing.T) {
	var a *AuditLogger
	a.Record(context.Background(), tenant, "wave", "wave.start", nil, nil, actor)
	a.Wait()
}
