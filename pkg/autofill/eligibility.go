// Package autofill 提供医师排班自动填充核心
package autofill

import (
	"github.com/yipai/yipai/pkg/model"
)

// Reason 不合格原因码
// 换班匹配器的 excludedSummary 原样使用这些原因码作为计数键
type Reason string

const (
	ReasonEligible                  Reason = ""
	ReasonPhysicianInactive         Reason = "physician_inactive"
	ReasonOutsideActiveDates        Reason = "outside_active_dates"
	ReasonAlreadyOnService          Reason = "already_on_service_this_week"
	ReasonMissingScheduleRequest    Reason = "missing_schedule_request"
	ReasonMissingRotationPreference Reason = "missing_rotation_preference"
	ReasonMarkedDoNotAssign         Reason = "marked_do_not_assign"
	ReasonRotationMarkedAvoid       Reason = "rotation_marked_avoid"
	ReasonExceedsMaxConsecutive     Reason = "exceeds_max_consecutive_weeks"
	ReasonViolatesMinGap            Reason = "violates_min_gap"
)

// Mode 资格检查模式
type Mode int

const (
	// ModeSolver 求解器模式：缺失周偏好默认为 green，
	// 但医师必须至少有一条轮转偏好记录才视为可参与映射
	ModeSolver Mode = iota

	// ModeTrade 换班模式：必须有可用性申请，且对目标轮转有偏好记录
	ModeTrade
)

// CheckEligibility 检查医师能否被排入 (周, 轮转) 格子
// 纯函数：只读上下文，按固定优先级返回首个不合格原因
func CheckEligibility(ctx *Context, physician *model.Physician, week *model.Week, rotation *model.Rotation, mode Mode) (bool, Reason) {
	// 1. 医师停用或周不在在职区间内
	if !physician.IsActive {
		return false, ReasonPhysicianInactive
	}
	if !physician.IsAssignableWeek(week) {
		return false, ReasonOutsideActiveDates
	}

	// 2. 本周已持有其他轮转
	if existing := ctx.PhysicianAssignmentInWeek(physician.ID, week.ID); existing != nil {
		if existing.RotationID != rotation.ID {
			return false, ReasonAlreadyOnService
		}
		// 换班模式下，任何在岗都排除（包括同一轮转）
		if mode == ModeTrade {
			return false, ReasonAlreadyOnService
		}
	}

	// 数据完整性：换班模式要求有可用性申请与目标轮转偏好记录；
	// 求解器模式缺失周偏好按 green 处理，但仍要求至少一条轮转偏好记录
	if mode == ModeTrade {
		if !ctx.HasScheduleRequest(physician.ID) {
			return false, ReasonMissingScheduleRequest
		}
		if ctx.RotationPreferenceFor(physician.ID, rotation.ID) == nil {
			return false, ReasonMissingRotationPreference
		}
	} else {
		if !ctx.HasAnyRotationPreference(physician.ID) {
			return false, ReasonMissingRotationPreference
		}
	}

	// 3. 周偏好为 red
	if availability, _ := ctx.WeekAvailability(physician.ID, week.ID); availability == model.AvailabilityRed {
		return false, ReasonMarkedDoNotAssign
	}

	// 4. 轮转偏好为 avoid
	if pref := ctx.RotationPreferenceFor(physician.ID, rotation.ID); pref != nil && pref.Type == model.PreferenceAvoid {
		return false, ReasonRotationMarkedAvoid
	}

	// 5. 连续周数上限（医师级别规则优先）
	maxConsecutive := ctx.EffectiveMaxConsecutive(physician.ID, rotation.ID)
	if maxConsecutive > 0 && ctx.ConsecutiveRunWith(physician.ID, rotation.ID, week.WeekNumber) > maxConsecutive {
		return false, ReasonExceedsMaxConsecutive
	}

	// 6. 距上一段任期的最小间隔
	if ctx.Config != nil && ctx.Config.MinGapWeeksBetweenStints > 0 {
		minGap := ctx.Config.MinGapWeeksBetweenStints
		if gap := ctx.GapBeforeStint(physician.ID, rotation.ID, week.WeekNumber); gap > 0 && gap < minGap {
			return false, ReasonViolatesMinGap
		}
		if gap := ctx.GapAfterStint(physician.ID, rotation.ID, week.WeekNumber); gap > 0 && gap < minGap {
			return false, ReasonViolatesMinGap
		}
	}

	return true, ReasonEligible
}
