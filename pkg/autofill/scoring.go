// Package autofill 提供医师排班自动填充核心
package autofill

import (
	"github.com/yipai/yipai/pkg/model"
)

// Engine 评分引擎
// 五项组件各自归一化到 [0,100]，再按权重合成：score = Σ(weight_i/100 × component_i)
// 权重合计为100的不变式在配置保存时校验，评分阶段不再检查
type Engine struct {
	cfg *model.AutoFillConfig
}

// NewEngine 创建评分引擎
func NewEngine(cfg *model.AutoFillConfig) *Engine {
	return &Engine{cfg: cfg}
}

// ScoreOptions 评分选项
type ScoreOptions struct {
	// PhysicianMode 单医师模式：工作量组件同时考虑cFTE目标余量
	PhysicianMode bool
}

// Score 为合格候选人计算综合得分与明细
func (e *Engine) Score(ctx *Context, physician *model.Physician, week *model.Week, rotation *model.Rotation, peers []*model.Physician, opts ScoreOptions) (float64, model.ScoreBreakdown) {
	breakdown := model.ScoreBreakdown{
		Preference:      e.PreferenceComponent(ctx, physician, week, rotation),
		HolidayParity:   e.holidayParityComponent(ctx, physician, week, peers),
		WorkloadSpread:  e.workloadSpreadComponent(ctx, physician, peers, opts),
		RotationVariety: e.rotationVarietyComponent(ctx, physician, rotation),
		GapEnforcement:  e.gapEnforcementComponent(ctx, physician, rotation, week),
	}

	w := e.cfg.Weights
	score := float64(w.Preference)/100*breakdown.Preference +
		float64(w.HolidayParity)/100*breakdown.HolidayParity +
		float64(w.WorkloadSpread)/100*breakdown.WorkloadSpread +
		float64(w.RotationVariety)/100*breakdown.RotationVariety +
		float64(w.GapEnforcement)/100*breakdown.GapEnforcement

	return score, breakdown
}

// PreferenceComponent 偏好组件：周可用性与轮转偏好各占一半
// green=100 / yellow=40；preferred 按排名递减（下限70）、willing=60、deprioritize=20
// 换班匹配器复用此组件作为候选人基础分
func (e *Engine) PreferenceComponent(ctx *Context, physician *model.Physician, week *model.Week, rotation *model.Rotation) float64 {
	weekScore := 100.0
	if availability, _ := ctx.WeekAvailability(physician.ID, week.ID); availability == model.AvailabilityYellow {
		weekScore = 40.0
	}

	rotScore := 60.0 // willing（含无记录的默认）
	if pref := ctx.RotationPreferenceFor(physician.ID, rotation.ID); pref != nil {
		switch pref.Type {
		case model.PreferencePreferred:
			rotScore = 100.0 - float64(pref.Rank-1)*10.0
			if rotScore < 70.0 {
				rotScore = 70.0
			}
		case model.PreferenceDeprioritize:
			rotScore = 20.0
		case model.PreferenceWilling:
			rotScore = 60.0
		}
	}

	return 0.5*weekScore + 0.5*rotScore
}

// holidayParityComponent 节假日均衡组件
// 非节假日周记中性分50；节假日周按候选人节假日排班数与合格同侪均值的差距奖惩
func (e *Engine) holidayParityComponent(ctx *Context, physician *model.Physician, week *model.Week, peers []*model.Physician) float64 {
	if !week.HasHoliday(e.cfg.MajorHolidayNames) {
		return 50.0
	}

	peerMean := 0.0
	if len(peers) > 0 {
		total := 0
		for _, p := range peers {
			total += ctx.HolidayAssignmentCount(p.ID)
		}
		peerMean = float64(total) / float64(len(peers))
	}

	delta := float64(ctx.HolidayAssignmentCount(physician.ID)) - peerMean
	return clamp(50.0-25.0*delta, 0, 100)
}

// workloadSpreadComponent 工作量分布组件
// 低于同侪均值加分、高于均值减分；单医师模式额外按cFTE目标余量折算
func (e *Engine) workloadSpreadComponent(ctx *Context, physician *model.Physician, peers []*model.Physician, opts ScoreOptions) float64 {
	cohortMean := 0.0
	if len(peers) > 0 {
		total := 0
		for _, p := range peers {
			total += ctx.AssignedWeekCount(p.ID)
		}
		cohortMean = float64(total) / float64(len(peers))
	}

	delta := float64(ctx.AssignedWeekCount(physician.ID)) - cohortMean
	base := clamp(50.0-10.0*delta, 0, 100)

	if opts.PhysicianMode {
		summary := ComputeCfte(ctx, physician.ID)
		if summary.Target != nil && *summary.Target > 0 {
			headroomRatio := clamp(*summary.Headroom / *summary.Target, 0, 1)
			return 0.5*base + 0.5*headroomRatio*100
		}
	}

	return base
}

// rotationVarietyComponent 轮转多样性组件
// 在本轮转上的已排周占比越低得分越高，避免单调重复
func (e *Engine) rotationVarietyComponent(ctx *Context, physician *model.Physician, rotation *model.Rotation) float64 {
	total := ctx.AssignedWeekCount(physician.ID)
	if total == 0 {
		return 100.0
	}
	share := float64(ctx.WeeksOnRotation(physician.ID, rotation.ID)) / float64(total)
	return (1.0 - share) * 100.0
}

// gapEnforcementComponent 任期间隔组件
// 距上一段同轮转任期越久得分越高，在 minGapWeeksBetweenStints 处封顶
func (e *Engine) gapEnforcementComponent(ctx *Context, physician *model.Physician, rotation *model.Rotation, week *model.Week) float64 {
	minGap := 0
	if e.cfg != nil {
		minGap = e.cfg.MinGapWeeksBetweenStints
	}
	if minGap <= 0 {
		return 100.0
	}

	gap := ctx.GapBeforeStint(physician.ID, rotation.ID, week.WeekNumber)
	if gap < 0 {
		return 100.0 // 从未排过此轮转
	}
	if gap > minGap {
		gap = minGap
	}
	return float64(gap) / float64(minGap) * 100.0
}

// clamp 将值限制在 [lo, hi] 区间
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
