// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/yipai/yipai/pkg/model"
)

// AutoFillConfigRepository 自动排班配置仓储（每财年一条）
type AutoFillConfigRepository struct {
	db DB
}

// NewAutoFillConfigRepository 创建自动排班配置仓储
func NewAutoFillConfigRepository(db DB) *AutoFillConfigRepository {
	return &AutoFillConfigRepository{db: db}
}

// GetByFiscalYear 获取财年的自动排班配置（无则返回nil）
func (r *AutoFillConfigRepository) GetByFiscalYear(ctx context.Context, fiscalYearID uuid.UUID) (*model.AutoFillConfig, error) {
	query := `
		SELECT id, fiscal_year_id, weights, major_holiday_names,
			min_gap_weeks_between_stints, max_passes, created_at, updated_at
		FROM autofill_configs
		WHERE fiscal_year_id = $1 AND deleted_at IS NULL
	`

	cfg := &model.AutoFillConfig{}
	var weightsJSON []byte
	err := r.db.QueryRowContext(ctx, query, fiscalYearID).Scan(
		&cfg.ID, &cfg.FiscalYearID, &weightsJSON, pq.Array(&cfg.MajorHolidayNames),
		&cfg.MinGapWeeksBetweenStints, &cfg.MaxPasses, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询自动排班配置失败: %w", err)
	}

	if err := json.Unmarshal(weightsJSON, &cfg.Weights); err != nil {
		return nil, fmt.Errorf("解析权重配置失败: %w", err)
	}
	return cfg, nil
}

// Upsert 保存财年的自动排班配置
// 权重合计100的不变式在这里是最后一道闸：无效配置不落库
func (r *AutoFillConfigRepository) Upsert(ctx context.Context, cfg *model.AutoFillConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	now := time.Now()
	cfg.UpdatedAt = now

	weightsJSON, _ := json.Marshal(cfg.Weights)

	query := `
		INSERT INTO autofill_configs (
			id, fiscal_year_id, weights, major_holiday_names,
			min_gap_weeks_between_stints, max_passes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (fiscal_year_id)
		DO UPDATE SET weights = $3, major_holiday_names = $4,
			min_gap_weeks_between_stints = $5, max_passes = $6, updated_at = $7
	`

	_, err := r.db.ExecContext(ctx, query,
		cfg.ID, cfg.FiscalYearID, weightsJSON, pq.Array(cfg.MajorHolidayNames),
		cfg.MinGapWeeksBetweenStints, cfg.MaxPasses, now,
	)
	if err != nil {
		return fmt.Errorf("保存自动排班配置失败: %w", err)
	}
	return nil
}
