// Package model 定义医师排班引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// FiscalYear 财年
type FiscalYear struct {
	BaseModel
	Label     string           `json:"label" db:"label"`
	StartDate string           `json:"start_date" db:"start_date"` // YYYY-MM-DD
	EndDate   string           `json:"end_date" db:"end_date"`     // YYYY-MM-DD
	Status    FiscalYearStatus `json:"status" db:"status"`
}

// AllowsPreferenceEdits 检查当前状态是否允许修改偏好
func (f *FiscalYear) AllowsPreferenceEdits() bool {
	return f.Status == FiscalYearCollecting
}

// AllowsAutoFill 检查当前状态是否允许自动排班
func (f *FiscalYear) AllowsAutoFill() bool {
	return f.Status == FiscalYearBuilding
}

// Week 财年内的周（创建后不可变）
type Week struct {
	ID           uuid.UUID `json:"id" db:"id"`
	FiscalYearID uuid.UUID `json:"fiscal_year_id" db:"fiscal_year_id"`
	WeekNumber   int       `json:"week_number" db:"week_number"` // 1..52
	StartDate    string    `json:"start_date" db:"start_date"`
	EndDate      string    `json:"end_date" db:"end_date"`
	Holidays     []string  `json:"holidays,omitempty" db:"holidays"` // 本周内的节假日名称
}

// HasHoliday 检查本周是否包含指定名称的节假日
func (w *Week) HasHoliday(names []string) bool {
	for _, h := range w.Holidays {
		for _, n := range names {
			if h == n {
				return true
			}
		}
	}
	return false
}
