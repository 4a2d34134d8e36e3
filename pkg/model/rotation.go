// Package model 定义医师排班引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// Rotation 轮转服务线（如 ICU 组）
type Rotation struct {
	BaseModel
	FiscalYearID        uuid.UUID `json:"fiscal_year_id" db:"fiscal_year_id"`
	Name                string    `json:"name" db:"name"`
	Abbreviation        string    `json:"abbreviation" db:"abbreviation"`
	CftePerWeek         float64   `json:"cfte_per_week" db:"cfte_per_week"`
	MinStaff            int       `json:"min_staff" db:"min_staff"`
	MaxConsecutiveWeeks int       `json:"max_consecutive_weeks" db:"max_consecutive_weeks"`
	SortOrder           int       `json:"sort_order" db:"sort_order"`
	IsActive            bool      `json:"is_active" db:"is_active"`
}

// PhysicianRotationRule 医师级别的连续周数覆盖规则
// 优先于轮转默认的 MaxConsecutiveWeeks
type PhysicianRotationRule struct {
	BaseModel
	FiscalYearID        uuid.UUID `json:"fiscal_year_id" db:"fiscal_year_id"`
	PhysicianID         uuid.UUID `json:"physician_id" db:"physician_id"`
	RotationID          uuid.UUID `json:"rotation_id" db:"rotation_id"`
	MaxConsecutiveWeeks int       `json:"max_consecutive_weeks" db:"max_consecutive_weeks"`
}

// ClinicType 门诊类型
type ClinicType struct {
	BaseModel
	FiscalYearID   uuid.UUID `json:"fiscal_year_id" db:"fiscal_year_id"`
	Name           string    `json:"name" db:"name"`
	CftePerHalfDay float64   `json:"cfte_per_half_day" db:"cfte_per_half_day"`
}

// PhysicianClinicAssignment 医师门诊安排
// 贡献固定的年度门诊cFTE，与轮转排班无关
type PhysicianClinicAssignment struct {
	BaseModel
	FiscalYearID    uuid.UUID `json:"fiscal_year_id" db:"fiscal_year_id"`
	PhysicianID     uuid.UUID `json:"physician_id" db:"physician_id"`
	ClinicTypeID    uuid.UUID `json:"clinic_type_id" db:"clinic_type_id"`
	HalfDaysPerWeek int       `json:"half_days_per_week" db:"half_days_per_week"`
	ActiveWeeks     int       `json:"active_weeks" db:"active_weeks"` // 每年生效周数
}

// AnnualCfte 计算此门诊安排的年度cFTE贡献
func (p *PhysicianClinicAssignment) AnnualCfte(clinicType *ClinicType) float64 {
	if clinicType == nil {
		return 0
	}
	return float64(p.HalfDaysPerWeek) * float64(p.ActiveWeeks) * clinicType.CftePerHalfDay
}

// PhysicianCfteTarget 医师年度cFTE目标
type PhysicianCfteTarget struct {
	BaseModel
	FiscalYearID uuid.UUID `json:"fiscal_year_id" db:"fiscal_year_id"`
	PhysicianID  uuid.UUID `json:"physician_id" db:"physician_id"`
	TargetCfte   float64   `json:"target_cfte" db:"target_cfte"`
}
