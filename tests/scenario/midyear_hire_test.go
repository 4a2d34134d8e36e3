package scenario

import (
	"context"
	"testing"

	"github.com/yipai/yipai/pkg/autofill"
	"github.com/yipai/yipai/pkg/model"
)

// TestMidYearHireSinglePhysician 年中入职医师的单医师排班：
// 只能排入职之后的周，且不超出cFTE目标
func TestMidYearHireSinglePhysician(t *testing.T) {
	d := newDepartment(8)
	ward := d.addRotation("病房", "W", 4, 0.040)

	// 在职医师把前4周排掉
	veteran := d.addPhysician("陈医师")
	d.submitRequest(veteran)
	d.setRotationPref(veteran, ward, model.PreferenceWilling, 0)
	for n := 1; n <= 4; n++ {
		d.assign(veteran, n, ward, true)
	}

	// 新医师第5周入职，目标cFTE只容两周病房
	hire := d.addPhysician("林医师")
	activeFrom := d.weeks[4].StartDate
	hire.ActiveFrom = &activeFrom
	d.submitRequest(hire)
	d.setRotationPref(hire, ward, model.PreferencePreferred, 1)
	d.setCfteTarget(hire, 0.08)

	grid := d.build()
	solver := autofill.NewSolver(autofill.NewEngine(d.config))

	result, err := solver.SolvePhysician(context.Background(), grid, hire.ID, false)
	if err != nil {
		t.Fatalf("求解失败: %v", err)
	}

	// 0.08 / 0.04 = 正好两周
	if result.AssignedCount != 2 {
		t.Fatalf("期望排2周, 实际 %d", result.AssignedCount)
	}
	for _, a := range result.Assignments {
		week := grid.GetWeek(a.WeekID)
		if week.WeekNumber < 5 {
			t.Errorf("入职前的第%d周不应被排班", week.WeekNumber)
		}
		if !a.IsAutoFilled || a.AssignedBy != autofill.AssignedBySystem {
			t.Error("单医师模式的排班应带自动标记")
		}
	}

	// 台账与目标一致，不超标
	if result.Cfte.TotalCfte > 0.08+1e-9 {
		t.Errorf("cFTE超出目标: %f", result.Cfte.TotalCfte)
	}
	if result.Cfte.IsOverTarget {
		t.Error("不应超出cFTE目标")
	}

	// 在职医师的既有排班不受影响
	for n := 1; n <= 4; n++ {
		week := grid.WeekByNumber(n)
		a := grid.AssignmentAt(week.ID, ward.ID)
		if a == nil || *a.PhysicianID != veteran.ID {
			t.Errorf("第%d周的既有排班被改动", n)
		}
	}
}
