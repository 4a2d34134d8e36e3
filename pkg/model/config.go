// Package model 定义医师排班引擎的核心数据模型
package model

import (
	"fmt"

	"github.com/google/uuid"
)

// AutoFillWeights 自动排班五项权重（必须恰好合计100）
type AutoFillWeights struct {
	Preference      int `json:"preference" db:"weight_preference" validate:"min=0,max=100"`
	HolidayParity   int `json:"holiday_parity" db:"weight_holiday_parity" validate:"min=0,max=100"`
	WorkloadSpread  int `json:"workload_spread" db:"weight_workload_spread" validate:"min=0,max=100"`
	RotationVariety int `json:"rotation_variety" db:"weight_rotation_variety" validate:"min=0,max=100"`
	GapEnforcement  int `json:"gap_enforcement" db:"weight_gap_enforcement" validate:"min=0,max=100"`
}

// Sum 返回权重合计
func (w AutoFillWeights) Sum() int {
	return w.Preference + w.HolidayParity + w.WorkloadSpread + w.RotationVariety + w.GapEnforcement
}

// DefaultAutoFillWeights 返回默认权重配置
func DefaultAutoFillWeights() AutoFillWeights {
	return AutoFillWeights{
		Preference:      30,
		HolidayParity:   25,
		WorkloadSpread:  20,
		RotationVariety: 15,
		GapEnforcement:  10,
	}
}

// AutoFillConfig 每财年的自动排班配置
type AutoFillConfig struct {
	BaseModel
	FiscalYearID           uuid.UUID       `json:"fiscal_year_id" db:"fiscal_year_id"`
	Weights                AutoFillWeights `json:"weights" db:"-"`
	MajorHolidayNames      []string        `json:"major_holiday_names" db:"major_holiday_names"`
	MinGapWeeksBetweenStints int           `json:"min_gap_weeks_between_stints" db:"min_gap_weeks_between_stints"`
	MaxPasses              int             `json:"max_passes" db:"max_passes"`
}

// Validate 在保存时校验配置（评分阶段不再校验）
func (c *AutoFillConfig) Validate() error {
	if sum := c.Weights.Sum(); sum != 100 {
		return fmt.Errorf("五项权重必须恰好合计100, 当前为 %d", sum)
	}
	for _, w := range []int{
		c.Weights.Preference, c.Weights.HolidayParity, c.Weights.WorkloadSpread,
		c.Weights.RotationVariety, c.Weights.GapEnforcement,
	} {
		if w < 0 {
			return fmt.Errorf("权重不能为负数: %d", w)
		}
	}
	if c.MinGapWeeksBetweenStints < 0 {
		return fmt.Errorf("轮转间隔周数不能为负数: %d", c.MinGapWeeksBetweenStints)
	}
	if c.MaxPasses < 1 {
		return fmt.Errorf("最大遍历轮数必须至少为1: %d", c.MaxPasses)
	}
	return nil
}

// DefaultAutoFillConfig 返回财年的默认自动排班配置
func DefaultAutoFillConfig(fiscalYearID uuid.UUID) *AutoFillConfig {
	return &AutoFillConfig{
		BaseModel:                NewBaseModel(),
		FiscalYearID:             fiscalYearID,
		Weights:                  DefaultAutoFillWeights(),
		MajorHolidayNames:        []string{},
		MinGapWeeksBetweenStints: 2,
		MaxPasses:                8,
	}
}
