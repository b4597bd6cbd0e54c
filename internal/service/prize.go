// Package service 奖品仓库管理服务
package service

import (
	"errors"
	"fmt"

	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/database/repository"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

var (
	ErrInvalidWarehouse = errors.New("无效的仓库名称")
	ErrNoPrizeText      = errors.New("奖品内容不能为空")
)

// PrizeService 奖品仓库管理服务
type PrizeService struct {
	prizes prizeStore
}

// NewPrizeService 创建奖品仓库管理服务
func NewPrizeService() *PrizeService {
	return newPrizeService(repository.NewPrizeRepository())
}

func newPrizeService(prizes prizeStore) *PrizeService {
	return &PrizeService{prizes: prizes}
}

// AddPrizes 向仓库追加奖品，每条默认 1 个库存
func (s *PrizeService) AddPrizes(warehouse string, texts []string) error {
	return s.AddPrizesWithStock(warehouse, texts, 1)
}

// AddPrizesWithStock 向仓库追加奖品并指定库存
func (s *PrizeService) AddPrizesWithStock(warehouse string, texts []string, stock int) error {
	if warehouse == "" {
		return ErrInvalidWarehouse
	}
	if len(texts) == 0 {
		return ErrNoPrizeText
	}
	for _, text := range texts {
		if text == "" {
			return ErrNoPrizeText
		}
	}
	if stock <= 0 {
		stock = 1
	}

	if err := s.prizes.AddItems(warehouse, texts, stock); err != nil {
		return fmt.Errorf("添加奖品失败: %w", err)
	}

	logger.Info().
		Str("warehouse", warehouse).
		Int("count", len(texts)).
		Int("stock", stock).
		Msg("奖品已入库")

	return nil
}

// ListStock 获取仓库内全部奖品
func (s *PrizeService) ListStock(warehouse string) ([]models.PrizeItem, error) {
	if warehouse == "" {
		return nil, ErrInvalidWarehouse
	}
	return s.prizes.ListByWarehouse(warehouse)
}

// Warehouses 统计全部仓库
func (s *PrizeService) Warehouses() ([]repository.WarehouseStat, error) {
	return s.prizes.Warehouses()
}

// Clear 清空指定仓库，返回删除的条目数
func (s *PrizeService) Clear(warehouse string) (int64, error) {
	if warehouse == "" {
		return 0, ErrInvalidWarehouse
	}

	deleted, err := s.prizes.Clear(warehouse)
	if err != nil {
		return 0, fmt.Errorf("清空仓库失败: %w", err)
	}

	logger.Info().Str("warehouse", warehouse).Int64("deleted", deleted).Msg("仓库已清空")
	return deleted, nil
}

// ClearAll 清空全部仓库，返回删除的条目数
func (s *PrizeService) ClearAll() (int64, error) {
	deleted, err := s.prizes.ClearAll()
	if err != nil {
		return 0, fmt.Errorf("清空仓库失败: %w", err)
	}

	logger.Info().Int64("deleted", deleted).Msg("全部仓库已清空")
	return deleted, nil
}
