// Package model 定义医师排班引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// Physician 医师
type Physician struct {
	BaseModel
	Name     string `json:"name" db:"name"`
	Initials string `json:"initials" db:"initials"`
	Role     string `json:"role" db:"role"` // physician/admin
	IsActive bool   `json:"is_active" db:"is_active"`

	// 年中入职/离职边界（为空表示不限制）
	ActiveFrom  *string `json:"active_from,omitempty" db:"active_from"`   // YYYY-MM-DD
	ActiveUntil *string `json:"active_until,omitempty" db:"active_until"` // YYYY-MM-DD
}

// IsAssignableWeek 检查某周是否落在医师的在职区间内
// 按整周判断：入职日期晚于周结束、或离职日期早于周开始时不可排
func (p *Physician) IsAssignableWeek(week *Week) bool {
	if week == nil {
		return false
	}
	if p.ActiveFrom != nil && *p.ActiveFrom > week.EndDate {
		return false
	}
	if p.ActiveUntil != nil && *p.ActiveUntil < week.StartDate {
		return false
	}
	return true
}

// ScheduleRequest 医师提交的年度可用性申请
type ScheduleRequest struct {
	BaseModel
	FiscalYearID uuid.UUID        `json:"fiscal_year_id" db:"fiscal_year_id"`
	PhysicianID  uuid.UUID        `json:"physician_id" db:"physician_id"`
	Status       ApprovalStatus   `json:"status" db:"status"`
	Preferences  []WeekPreference `json:"preferences,omitempty" db:"-"`
}

// WeekPreference 周级别可用性偏好
// 未设置的周在求解器中默认为 green
type WeekPreference struct {
	BaseModel
	ScheduleRequestID uuid.UUID    `json:"schedule_request_id" db:"schedule_request_id"`
	WeekID            uuid.UUID    `json:"week_id" db:"week_id"`
	Availability      Availability `json:"availability" db:"availability"`
	ReasonCategory    string       `json:"reason_category,omitempty" db:"reason_category"`
	ReasonText        string       `json:"reason_text,omitempty" db:"reason_text"`
}

// RotationPreference 医师对轮转的偏好
type RotationPreference struct {
	BaseModel
	FiscalYearID uuid.UUID              `json:"fiscal_year_id" db:"fiscal_year_id"`
	PhysicianID  uuid.UUID              `json:"physician_id" db:"physician_id"`
	RotationID   uuid.UUID              `json:"rotation_id" db:"rotation_id"`
	Type         RotationPreferenceType `json:"type" db:"type"`
	Rank         int                    `json:"rank,omitempty" db:"rank"`               // preferred 时为 1..N
	AvoidReason  string                 `json:"avoid_reason,omitempty" db:"avoid_reason"` // avoid 时必填
	Status       ApprovalStatus         `json:"status" db:"status"`
}

// Validate 检查偏好记录的完整性
func (r *RotationPreference) Validate() bool {
	if !r.Type.IsValid() {
		return false
	}
	if r.Type == PreferencePreferred && r.Rank < 1 {
		return false
	}
	if r.Type == PreferenceAvoid && r.AvoidReason == "" {
		return false
	}
	return true
}
