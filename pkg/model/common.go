// Package model 定义医师排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// FiscalYearStatus 财年生命周期状态
type FiscalYearStatus string

const (
	FiscalYearSetup      FiscalYearStatus = "setup"      // 初始配置
	FiscalYearCollecting FiscalYearStatus = "collecting" // 收集偏好
	FiscalYearBuilding   FiscalYearStatus = "building"   // 排班编制
	FiscalYearPublished  FiscalYearStatus = "published"  // 已发布
	FiscalYearArchived   FiscalYearStatus = "archived"   // 已归档
)

// CalendarStatus 主日历状态
type CalendarStatus string

const (
	CalendarDraft     CalendarStatus = "draft"     // 草稿（求解器可写）
	CalendarPublished CalendarStatus = "published" // 已发布（冻结）
)

// Availability 周可用性（红绿灯）
type Availability string

const (
	AvailabilityGreen  Availability = "green"  // 可排班
	AvailabilityYellow Availability = "yellow" // 尽量不排
	AvailabilityRed    Availability = "red"    // 禁止排班
)

// IsValid 检查可用性取值是否合法
func (a Availability) IsValid() bool {
	switch a {
	case AvailabilityGreen, AvailabilityYellow, AvailabilityRed:
		return true
	}
	return false
}

// RotationPreferenceType 轮转偏好类型
type RotationPreferenceType string

const (
	PreferencePreferred    RotationPreferenceType = "preferred"    // 偏好（带1..N排名）
	PreferenceWilling      RotationPreferenceType = "willing"      // 愿意（默认/无记录）
	PreferenceDeprioritize RotationPreferenceType = "deprioritize" // 降低优先级
	PreferenceAvoid        RotationPreferenceType = "avoid"        // 回避（需填写原因）
)

// IsValid 检查偏好类型取值是否合法
func (p RotationPreferenceType) IsValid() bool {
	switch p {
	case PreferencePreferred, PreferenceWilling, PreferenceDeprioritize, PreferenceAvoid:
		return true
	}
	return false
}

// ApprovalStatus 偏好记录的审批状态
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"  // 待管理员审批
	ApprovalApproved ApprovalStatus = "approved" // 已审批
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JSONMap 用于存储 JSONB 数据
type JSONMap map[string]interface{}
