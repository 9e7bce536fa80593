package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/xuri/excelize/v2"
)

var pickListHeaders = []string{"序号", "库位", "SKU", "商品名称", "批次", "数量", "单位", "来源订单行数"}

// ExportService 拣货单导出
type ExportService struct {
	waves    repository.WaveStore
	picking  repository.PickingStore
	products repository.ProductStore
}

func NewExportService(waves repository.WaveStore, picking repository.PickingStore, products repository.ProductStore) *ExportService {
	return &ExportService{waves: waves, picking: picking, products: products}
}

// orderByPath 按路径顺序排列任务明细，路径中没有的库位排在最后
func orderByPath(lines []entity.PickingTaskLine, path *entity.PickingPath) []entity.PickingTaskLine {
	if path == nil {
		return lines
	}
	byLocation := map[string][]entity.PickingTaskLine{}
	for _, l := range lines {
		byLocation[l.FromLocationID] = append(byLocation[l.FromLocationID], l)
	}
	ordered := make([]entity.PickingTaskLine, 0, len(lines))
	visited := map[string]bool{}
	for _, stop := range path.Stops {
		if stop.LocationID == entity.StartNodeID || visited[stop.LocationID] {
			continue
		}
		visited[stop.LocationID] = true
		ordered = append(ordered, byLocation[stop.LocationID]...)
	}
	for _, l := range lines {
		if !visited[l.FromLocationID] {
			ordered = append(ordered, l)
		}
	}
	return ordered
}

// ExportPickList 导出波次拣货单
func (s *ExportService) ExportPickList(ctx context.Context, tenantID, waveID string) (*excelize.File, string, error) {
	w, err := s.waves.FindWaveByID(ctx, tenantID, waveID)
	if err != nil {
		return nil, "", err
	}
	lines, err := s.picking.ListTaskLinesByWave(ctx, tenantID, waveID)
	if err != nil {
		return nil, "", fmt.Errorf("list task lines: %w", err)
	}
	path, err := s.picking.FindPathByWave(ctx, tenantID, waveID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("find picking path: %w", err)
	}

	codes := map[string]string{}
	if path != nil {
		for _, stop := range path.Stops {
			codes[stop.LocationID] = stop.LocationCode
		}
	}

	var productIDs []string
	for _, l := range lines {
		productIDs = append(productIDs, l.ProductID)
	}
	products, err := s.products.FindProductsByIDs(ctx, tenantID, productIDs)
	if err != nil {
		return nil, "", fmt.Errorf("find products: %w", err)
	}
	productByID := make(map[string]*entity.Product, len(products))
	for i := range products {
		productByID[products[i].ID] = &products[i]
	}

	f := excelize.NewFile()
	sheet := "PickList"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range pickListHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	ordered := orderByPath(lines, path)
	for idx, l := range ordered {
		row := idx + 2
		code := codes[l.FromLocationID]
		if code == "" {
			code = l.FromLocationID
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), idx+1)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), code)
		if p, ok := productByID[l.ProductID]; ok {
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), p.SKU)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), p.Name)
		} else {
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), l.ProductID)
		}
		if l.LotID != nil {
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), *l.LotID)
		}
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), l.QuantityToPick.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), l.UOM)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), len(l.SourceOrderLineIDs))
	}

	summaryRow := len(ordered) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "汇总")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("订单数: %d", w.TotalOrders))
	if path != nil {
		f.SetCellValue(sheet, fmt.Sprintf("D%d", summaryRow), fmt.Sprintf("总距离: %.1f", path.TotalDistance))
	}
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("H%d", summaryRow), summaryStyle)

	colWidths := []float64{6, 14, 16, 24, 20, 10, 6, 12}
	for i, width := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, width)
	}

	filename := fmt.Sprintf("PickList_%s.xlsx", w.Code)
	return f, filename, nil
}
