// Package autofill 提供医师排班自动填充核心
package autofill

import (
	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

// CfteSummary cFTE台账汇总
// 每次按需从当前排班计算，不做冗余存储，保证与网格实时一致
type CfteSummary struct {
	PhysicianID  uuid.UUID `json:"physician_id"`
	RotationCfte float64   `json:"rotation_cfte"`
	ClinicCfte   float64   `json:"clinic_cfte"`
	TotalCfte    float64   `json:"total_cfte"`
	Target       *float64  `json:"target,omitempty"`
	Headroom     *float64  `json:"headroom,omitempty"` // target − total，未设目标时为null
	IsOverTarget bool      `json:"is_over_target"`
}

// ComputeCfte 计算医师的cFTE台账
// rotationCfte = Σ 已排周的轮转cFTE；clinicCfte = Σ 半天数 × 生效周数 × 门诊半天cFTE
func ComputeCfte(ctx *Context, physicianID uuid.UUID) CfteSummary {
	summary := CfteSummary{PhysicianID: physicianID}

	for _, a := range ctx.PhysicianAssignments(physicianID) {
		if r := ctx.GetRotation(a.RotationID); r != nil {
			summary.RotationCfte += r.CftePerWeek
		}
	}

	clinicTypeByID := make(map[uuid.UUID]*model.ClinicType, len(ctx.ClinicTypes))
	for _, ct := range ctx.ClinicTypes {
		clinicTypeByID[ct.ID] = ct
	}
	for _, ca := range ctx.ClinicAssignments {
		if ca.PhysicianID != physicianID {
			continue
		}
		summary.ClinicCfte += ca.AnnualCfte(clinicTypeByID[ca.ClinicTypeID])
	}

	summary.TotalCfte = summary.RotationCfte + summary.ClinicCfte

	if target, ok := ctx.CfteTargets[physicianID]; ok {
		t := target
		headroom := t - summary.TotalCfte
		summary.Target = &t
		summary.Headroom = &headroom
		summary.IsOverTarget = summary.TotalCfte > t
	}

	return summary
}
