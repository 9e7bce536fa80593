package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/shared/queue"
	"go.uber.org/zap"
)

// 任务类型
const (
	JobSlottingCalculate = "slotting.calculate"
	JobWavesGenerate     = "waves.generate"
)

// JobQueue 后台任务队列
type JobQueue interface {
	Enqueue(ctx context.Context, jobType, tenantID, actorID string, payload interface{}) (*queue.Job, error)
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
}

// JobService 异步触发计算与组波
type JobService struct {
	queue  JobQueue
	logger *zap.Logger
}

func NewJobService(q JobQueue, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{queue: q, logger: logger}
}

func (s *JobService) EnqueueCalculate(ctx context.Context, tenantID, actorID string, req *CalculateReq) (*queue.Job, error) {
	return s.enqueue(ctx, JobSlottingCalculate, tenantID, actorID, req)
}

func (s *JobService) EnqueueGenerateWaves(ctx context.Context, tenantID, actorID string, req *GenerateWavesReq) (*queue.Job, error) {
	if !req.Strategy.Valid() {
		return nil, invalidArgument("unknown wave strategy %q", req.Strategy)
	}
	return s.enqueue(ctx, JobWavesGenerate, tenantID, actorID, req)
}

func (s *JobService) enqueue(ctx context.Context, jobType, tenantID, actorID string, payload interface{}) (*queue.Job, error) {
	job, err := s.queue.Enqueue(ctx, jobType, tenantID, actorID, payload)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	s.logger.Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("type", jobType),
		zap.String("tenant_id", tenantID),
	)
	return job, nil
}

// Worker 消费队列并调用与同步接口相同的服务方法；失败只记录日志不重试
type Worker struct {
	queue       JobQueue
	slotting    *SlottingService
	waves       *WaveService
	pollTimeout time.Duration
	logger      *zap.Logger
}

func NewWorker(q JobQueue, slotting *SlottingService, waves *WaveService, pollTimeout time.Duration, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &Worker{
		queue:       q,
		slotting:    slotting,
		waves:       waves,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// Run 循环出队直到 ctx 取消
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return nil
		default:
		}

		job, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				w.logger.Info("worker stopped")
				return nil
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}
		if err := w.Handle(ctx, job); err != nil {
			w.logger.Error("job failed",
				zap.String("job_id", job.ID),
				zap.String("type", job.Type),
				zap.String("tenant_id", job.TenantID),
				zap.Error(err),
			)
		}
	}
}

// Handle 执行单个任务
func (w *Worker) Handle(ctx context.Context, job *queue.Job) error {
	start := time.Now()
	switch job.Type {
	case JobSlottingCalculate:
		var req CalculateReq
		if err := job.Decode(&req); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		recs, err := w.slotting.Calculate(ctx, job.TenantID, job.ActorID, &req)
		if err != nil {
			return err
		}
		w.logger.Info("job done",
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.Int("recommendations", len(recs)),
			zap.Duration("latency", time.Since(start)),
		)
	case JobWavesGenerate:
		var req GenerateWavesReq
		if err := job.Decode(&req); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		waves, err := w.waves.GenerateWaves(ctx, job.TenantID, job.ActorID, &req)
		if err != nil {
			return err
		}
		w.logger.Info("job done",
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.Int("waves", len(waves)),
			zap.Duration("latency", time.Since(start)),
		)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
	return nil
}
