package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PickingRepository struct {
	db *gorm.DB
}

func NewPickingRepository(db *gorm.DB) *PickingRepository {
	return &PickingRepository{db: db}
}

// CreateTask 创建拣货任务及明细
func (r *PickingRepository) CreateTask(ctx context.Context, task *entity.PickingTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	for i := range task.Lines {
		if task.Lines[i].ID == "" {
			task.Lines[i].ID = uuid.New().String()
		}
		task.Lines[i].TaskID = task.ID
	}
	return r.db.WithContext(ctx).Create(task).Error
}

// ListTaskLinesByWave 波次下所有任务明细，按任务创建顺序与行号排列
func (r *PickingRepository) ListTaskLinesByWave(ctx context.Context, tenantID, waveID string) ([]entity.PickingTaskLine, error) {
	var lines []entity.PickingTaskLine
	err := r.db.WithContext(ctx).
		Table("wms_picking_task_lines AS l").
		Select("l.*").
		Joins("JOIN wms_picking_tasks t ON t.id = l.task_id").
		Where("t.tenant_id = ? AND t.wave_id = ?", tenantID, waveID).
		Order("t.created_at ASC, l.line_no ASC").
		Find(&lines).Error
	return lines, err
}

// UpsertPath 每个波次仅一条路径，重复生成时覆盖；id/created_at 回填为库中已有行
func (r *PickingRepository) UpsertPath(ctx context.Context, path *entity.PickingPath) error {
	if path.ID == "" {
		path.ID = uuid.New().String()
	}
	path.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "wave_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"stops", "location_sequence", "total_distance", "total_estimated_time", "updated_at",
			}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "created_at"}}},
	).Create(path).Error
}

func (r *PickingRepository) FindPathByWave(ctx context.Context, tenantID, waveID string) (*entity.PickingPath, error) {
	var path entity.PickingPath
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND wave_id = ?", tenantID, waveID).
		First(&path).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &path, nil
}
