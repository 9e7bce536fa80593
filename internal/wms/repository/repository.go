package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories WMS仓库集合
type Repositories struct {
	db        *gorm.DB
	Location  *LocationRepository
	Product   *ProductRepository
	Inventory *InventoryRepository
	Slotting  *SlottingRepository
	Order     *OrderRepository
	Wave      *WaveRepository
	Picking   *PickingRepository
	Audit     *AuditRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:        db,
		Location:  NewLocationRepository(db),
		Product:   NewProductRepository(db),
		Inventory: NewInventoryRepository(db),
		Slotting:  NewSlottingRepository(db),
		Order:     NewOrderRepository(db),
		Wave:      NewWaveRepository(db),
		Picking:   NewPickingRepository(db),
		Audit:     NewAuditRepository(db),
	}
}

// RunAtomic 在一个数据库事务中执行 fn
func (r *Repositories) RunAtomic(ctx context.Context, fn func(tx Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{
			inventory: NewInventoryRepository(tx),
			slotting:  NewSlottingRepository(tx),
			wave:      NewWaveRepository(tx),
			picking:   NewPickingRepository(tx),
		})
	})
}

type txRepositories struct {
	inventory *InventoryRepository
	slotting  *SlottingRepository
	wave      *WaveRepository
	picking   *PickingRepository
}

func (t *txRepositories) Inventory() InventoryStore { return t.inventory }
func (t *txRepositories) Slotting() SlottingStore   { return t.slotting }
func (t *txRepositories) Waves() WaveStore          { return t.wave }
func (t *txRepositories) Picking() PickingStore     { return t.picking }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
