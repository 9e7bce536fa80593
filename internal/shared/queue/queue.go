// Package queue Redis 列表实现的简单任务队列（LPUSH 入队，BRPOP 出队）。
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Job 队列任务
type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	TenantID   string          `json:"tenant_id"`
	ActorID    string          `json:"actor_id"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Decode 反序列化任务参数
func (j *Job) Decode(v interface{}) error {
	if len(j.Payload) == 0 {
		return errors.New("empty job payload")
	}
	return json.Unmarshal(j.Payload, v)
}

type Queue struct {
	rdb  redis.Cmdable
	name string
}

func New(rdb redis.Cmdable, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

// Enqueue 入队，返回任务ID
func (q *Queue) Enqueue(ctx context.Context, jobType, tenantID, actorID string, payload interface{}) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		TenantID:   tenantID,
		ActorID:    actorID,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.name, body).Err(); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return job, nil
}

// Dequeue 阻塞等待任务；超时返回 nil, nil
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BRPOP 返回 [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected brpop reply: %v", res)
	}
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// Len 队列长度
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.name).Result()
}
