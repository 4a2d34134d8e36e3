// Package model 定义医师排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// MasterCalendar 主排班日历（每财年一份，可多版本）
type MasterCalendar struct {
	BaseModel
	FiscalYearID uuid.UUID      `json:"fiscal_year_id" db:"fiscal_year_id"`
	Version      int            `json:"version" db:"version"`
	Status       CalendarStatus `json:"status" db:"status"`
	PublishedAt  *time.Time     `json:"published_at,omitempty" db:"published_at"`
}

// IsDraft 检查日历是否处于草稿状态（求解器可写）
func (c *MasterCalendar) IsDraft() bool {
	return c.Status == CalendarDraft
}

// Assignment 排班格子：(日历, 周, 轮转) → 医师
// 不变式：每个 (日历, 周, 轮转) 最多一条记录；同一医师同一周不得持有两个轮转
type Assignment struct {
	BaseModel
	MasterCalendarID uuid.UUID  `json:"master_calendar_id" db:"master_calendar_id"`
	WeekID           uuid.UUID  `json:"week_id" db:"week_id"`
	RotationID       uuid.UUID  `json:"rotation_id" db:"rotation_id"`
	PhysicianID      *uuid.UUID `json:"physician_id,omitempty" db:"physician_id"` // null = 未排
	IsAutoFilled     bool       `json:"is_auto_filled" db:"is_auto_filled"`
	AssignedBy       string     `json:"assigned_by" db:"assigned_by"` // system/管理员标识
	AssignedAt       time.Time  `json:"assigned_at" db:"assigned_at"`
}

// IsFilled 检查格子是否已排
func (a *Assignment) IsFilled() bool {
	return a.PhysicianID != nil
}

// ScoreBreakdown 评分明细（封闭结构，按组件一个字段）
// 原样序列化保存到决策日志，供审计与前端展示
type ScoreBreakdown struct {
	Preference      float64 `json:"preference"`
	HolidayParity   float64 `json:"holiday_parity"`
	WorkloadSpread  float64 `json:"workload_spread"`
	RotationVariety float64 `json:"rotation_variety"`
	GapEnforcement  float64 `json:"gap_enforcement"`
}

// DecisionLogEntry 求解器决策日志（只追加，不修改）
// 仅在整轮重跑时整体清除重建
type DecisionLogEntry struct {
	ID                     uuid.UUID      `json:"id" db:"id"`
	MasterCalendarID       uuid.UUID      `json:"master_calendar_id" db:"master_calendar_id"`
	WeekID                 uuid.UUID      `json:"week_id" db:"week_id"`
	RotationID             uuid.UUID      `json:"rotation_id" db:"rotation_id"`
	PhysicianID            uuid.UUID      `json:"physician_id" db:"physician_id"`
	Score                  float64        `json:"score" db:"score"`
	Breakdown              ScoreBreakdown `json:"breakdown" db:"breakdown"`
	AlternativesConsidered int            `json:"alternatives_considered" db:"alternatives_considered"`
	PassNumber             int            `json:"pass_number" db:"pass_number"`
	CreatedAt              time.Time      `json:"created_at" db:"created_at"`
}
