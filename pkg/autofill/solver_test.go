package autofill

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/model"
)

func newSolverForTest(cfg *model.AutoFillConfig) *Solver {
	return NewSolver(NewEngine(cfg))
}

func TestSolver_入口校验(t *testing.T) {
	t.Run("非草稿日历拒绝", func(t *testing.T) {
		f := newFixture()
		f.addWeeks(1)
		f.addRotation("ICU", 3, 0.02)
		f.calendar.Status = model.CalendarPublished
		grid := f.build()

		_, err := newSolverForTest(f.config).SolveFullDepartment(context.Background(), grid)
		if !errors.IsCode(err, errors.CodeCalendarNotDraft) {
			t.Errorf("err = %v, 期望 CALENDAR_NOT_DRAFT", err)
		}
	})

	t.Run("缺少配置拒绝", func(t *testing.T) {
		f := newFixture()
		f.addWeeks(1)
		f.addRotation("ICU", 3, 0.02)
		grid := f.build()
		grid.Config = nil

		_, err := newSolverForTest(f.config).SolveFullDepartment(context.Background(), grid)
		if !errors.IsCode(err, errors.CodeConfigMissing) {
			t.Errorf("err = %v, 期望 CONFIG_MISSING", err)
		}
	})

	t.Run("权重不合计100拒绝", func(t *testing.T) {
		f := newFixture()
		f.addWeeks(1)
		f.addRotation("ICU", 3, 0.02)
		f.config.Weights.Preference = 99
		grid := f.build()

		_, err := newSolverForTest(f.config).SolveFullDepartment(context.Background(), grid)
		if !errors.IsCode(err, errors.CodeInvalidWeights) {
			t.Errorf("err = %v, 期望 INVALID_WEIGHTS", err)
		}
	})
}

// 最小双医师场景：red周排除后另一人顶上，第二周由工作量均衡拉回
func TestSolver_双医师双周场景(t *testing.T) {
	f := newFixture()
	f.addWeeks(2)
	icu := f.addRotation("ICU", 3, 0.02)

	alice := f.addPhysician("Alice")
	bob := f.addPhysician("Bob")
	f.setWeekPref(alice, f.weeks[0], model.AvailabilityRed)
	f.setRotationPref(alice, icu, model.PreferenceWilling, 0)
	f.setRotationPref(bob, icu, model.PreferenceWilling, 0)
	f.config.MinGapWeeksBetweenStints = 0

	grid := f.build()
	result, err := newSolverForTest(f.config).SolveFullDepartment(context.Background(), grid)
	if err != nil {
		t.Fatalf("SolveFullDepartment: %v", err)
	}

	if len(result.Assignments) != 2 || result.RemainingUnstaffed != 0 {
		t.Fatalf("assignments=%d remaining=%d, 期望 2/0", len(result.Assignments), result.RemainingUnstaffed)
	}

	week1 := grid.AssignmentAt(f.weeks[0].ID, icu.ID)
	week2 := grid.AssignmentAt(f.weeks[1].ID, icu.ID)
	if *week1.PhysicianID != bob.ID {
		t.Error("第1周Alice为red，应排Bob")
	}
	if *week2.PhysicianID != alice.ID {
		t.Error("第2周工作量均衡应排Alice")
	}
}

func TestSolver_不变式(t *testing.T) {
	f := newFixture()
	f.addWeeks(10)
	icu := f.addRotation("ICU", 2, 0.02)
	ward := f.addRotation("病房", 3, 0.015)
	night := f.addRotation("夜班", 2, 0.025)

	physicians := []*model.Physician{
		f.addPhysician("Alice"),
		f.addPhysician("Bob"),
		f.addPhysician("Carol"),
		f.addPhysician("Dave"),
	}
	for _, p := range physicians {
		f.setRotationPref(p, icu, model.PreferenceWilling, 0)
		f.setRotationPref(p, ward, model.PreferenceWilling, 0)
		f.setRotationPref(p, night, model.PreferenceWilling, 0)
	}
	f.setWeekPref(physicians[0], f.weeks[3], model.AvailabilityRed)
	f.setWeekPref(physicians[1], f.weeks[3], model.AvailabilityRed)
	f.config.MinGapWeeksBetweenStints = 1

	grid := f.build()
	result, err := newSolverForTest(f.config).SolveFullDepartment(context.Background(), grid)
	if err != nil {
		t.Fatalf("SolveFullDepartment: %v", err)
	}

	t.Run("同一医师同周不得重复排班", func(t *testing.T) {
		type key struct {
			phys uuid.UUID
			week uuid.UUID
		}
		seen := make(map[key]bool)
		for _, a := range grid.Assignments {
			if a.PhysicianID == nil {
				continue
			}
			k := key{*a.PhysicianID, a.WeekID}
			if seen[k] {
				t.Fatalf("医师 %s 在同一周被排两次", a.PhysicianID)
			}
			seen[k] = true
		}
	})

	t.Run("red周医师绝不被排入", func(t *testing.T) {
		for _, a := range grid.Assignments {
			if a.PhysicianID == nil {
				continue
			}
			if availability, found := grid.WeekAvailability(*a.PhysicianID, a.WeekID); found && availability == model.AvailabilityRed {
				t.Fatal("red周出现排班")
			}
		}
	})

	t.Run("连续周数不超过上限", func(t *testing.T) {
		for _, p := range physicians {
			for _, r := range grid.Rotations {
				run := 0
				for _, w := range grid.Weeks {
					a := grid.AssignmentAt(w.ID, r.ID)
					if a != nil && a.PhysicianID != nil && *a.PhysicianID == p.ID {
						run++
						if max := grid.EffectiveMaxConsecutive(p.ID, r.ID); max > 0 && run > max {
							t.Fatalf("医师 %s 在 %s 连排 %d 周，上限 %d", p.Name, r.Name, run, max)
						}
					} else {
						run = 0
					}
				}
			}
		}
	})

	t.Run("决策日志与排班一一对应", func(t *testing.T) {
		if len(result.DecisionLog) != len(result.Assignments) {
			t.Fatalf("log=%d assignments=%d", len(result.DecisionLog), len(result.Assignments))
		}
		for _, e := range result.DecisionLog {
			if e.AlternativesConsidered < 1 || e.PassNumber < 1 {
				t.Errorf("日志条目不完整: alternatives=%d pass=%d", e.AlternativesConsidered, e.PassNumber)
			}
			if e.Score < 0 || e.Score > 100 {
				t.Errorf("score=%v 超出范围", e.Score)
			}
			a := grid.AssignmentAt(e.WeekID, e.RotationID)
			if a == nil || a.PhysicianID == nil || *a.PhysicianID != e.PhysicianID {
				t.Error("日志条目与网格不一致")
			}
		}
	})

	t.Run("所有新排班标记为自动", func(t *testing.T) {
		for _, a := range result.Assignments {
			if !a.IsAutoFilled || a.AssignedBy != AssignedBySystem {
				t.Error("求解器产出的排班应标记 IsAutoFilled/system")
			}
		}
	})

	t.Run("轮数不超过配置上限", func(t *testing.T) {
		if result.Passes > f.config.MaxPasses {
			t.Errorf("passes=%d 超过上限 %d", result.Passes, f.config.MaxPasses)
		}
	})
}

func TestSolver_确定性(t *testing.T) {
	build := func() (*fixture, *model.Rotation) {
		f := newFixture()
		f.addWeeks(6)
		icu := f.addRotation("ICU", 2, 0.02)
		for _, name := range []string{"Alice", "Bob", "Carol"} {
			p := f.addPhysician(name)
			f.setRotationPref(p, icu, model.PreferenceWilling, 0)
		}
		return f, icu
	}

	f1, icu1 := build()
	// 两次构建需要相同的医师ID才可比，直接复用同一批医师
	f2 := newFixture()
	f2.addWeeks(6)
	icu2 := f2.addRotation("ICU", 2, 0.02)
	f2.physicians = f1.physicians
	for _, p := range f2.physicians {
		f2.setRotationPref(p, icu2, model.PreferenceWilling, 0)
	}

	grid1 := f1.build()
	grid2 := f2.build()

	r1, err1 := newSolverForTest(f1.config).SolveFullDepartment(context.Background(), grid1)
	r2, err2 := newSolverForTest(f2.config).SolveFullDepartment(context.Background(), grid2)
	if err1 != nil || err2 != nil {
		t.Fatalf("err1=%v err2=%v", err1, err2)
	}

	if len(r1.Assignments) != len(r2.Assignments) {
		t.Fatalf("排班数不同: %d vs %d", len(r1.Assignments), len(r2.Assignments))
	}
	for _, w1 := range grid1.Weeks {
		w2 := grid2.WeekByNumber(w1.WeekNumber)
		a1 := grid1.AssignmentAt(w1.ID, icu1.ID)
		a2 := grid2.AssignmentAt(w2.ID, icu2.ID)
		switch {
		case a1 == nil && a2 == nil:
		case a1 == nil || a2 == nil:
			t.Fatalf("第%d周填充状态不同", w1.WeekNumber)
		case (a1.PhysicianID == nil) != (a2.PhysicianID == nil):
			t.Fatalf("第%d周填充状态不同", w1.WeekNumber)
		case a1.PhysicianID != nil && *a1.PhysicianID != *a2.PhysicianID:
			t.Fatalf("第%d周排班不确定: %s vs %s", w1.WeekNumber, a1.PhysicianID, a2.PhysicianID)
		}
	}
}

func TestSolver_部分解(t *testing.T) {
	f := newFixture()
	f.addWeeks(3)
	f.addRotation("ICU", 3, 0.02)
	alice := f.addPhysician("Alice")
	// 无任何轮转偏好记录：不参与映射
	_ = alice

	grid := f.build()
	result, err := newSolverForTest(f.config).SolveFullDepartment(context.Background(), grid)
	if err != nil {
		t.Fatalf("无解不是错误: %v", err)
	}

	if len(result.Assignments) != 0 || result.RemainingUnstaffed != 3 {
		t.Fatalf("assignments=%d remaining=%d, 期望 0/3", len(result.Assignments), result.RemainingUnstaffed)
	}

	unstaffed, missingPrefs := 0, false
	for _, w := range result.Warnings {
		switch w.Code {
		case WarnCellUnstaffed:
			unstaffed++
		case WarnMissingRotationPreferences:
			missingPrefs = true
		}
	}
	if unstaffed != 3 {
		t.Errorf("cell_unstaffed 警告数 = %d, 期望 3", unstaffed)
	}
	if !missingPrefs {
		t.Error("应有缺失轮转偏好的数据完整性警告")
	}
}

func TestSolver_手工排班不被覆盖(t *testing.T) {
	f := newFixture()
	f.addWeeks(2)
	icu := f.addRotation("ICU", 3, 0.02)

	alice := f.addPhysician("Alice")
	bob := f.addPhysician("Bob")
	f.setRotationPref(alice, icu, model.PreferenceWilling, 0)
	f.setRotationPref(bob, icu, model.PreferenceWilling, 0)
	manual := f.assign(bob, f.weeks[0], icu, false)
	f.config.MinGapWeeksBetweenStints = 0

	grid := f.build()
	result, err := newSolverForTest(f.config).SolveFullDepartment(context.Background(), grid)
	if err != nil {
		t.Fatalf("SolveFullDepartment: %v", err)
	}

	kept := grid.AssignmentAt(f.weeks[0].ID, icu.ID)
	if kept.ID != manual.ID || kept.IsAutoFilled {
		t.Error("已填格子（手工）不应被求解器改动")
	}
	if len(result.Assignments) != 1 {
		t.Errorf("仅第2周待排，期望新增1条，得到 %d", len(result.Assignments))
	}
}

// 手工撤销在格子留下 physician 为空的行，求解器应以新排班取代它，
// 而不是在同一格子追加第二行
func TestSolver_撤销残留空行被取代(t *testing.T) {
	f := newFixture()
	f.addWeeks(2)
	icu := f.addRotation("ICU", 3, 0.02)

	alice := f.addPhysician("Alice")
	bob := f.addPhysician("Bob")
	f.setRotationPref(alice, icu, model.PreferenceWilling, 0)
	f.setRotationPref(bob, icu, model.PreferenceWilling, 0)
	f.config.MinGapWeeksBetweenStints = 0

	placeholder := f.revokeCell(f.weeks[0], icu)

	grid := f.build()
	result, err := newSolverForTest(f.config).SolveFullDepartment(context.Background(), grid)
	if err != nil {
		t.Fatalf("SolveFullDepartment: %v", err)
	}

	if len(result.Assignments) != 2 || result.RemainingUnstaffed != 0 {
		t.Fatalf("assignments=%d remaining=%d, 期望 2/0", len(result.Assignments), result.RemainingUnstaffed)
	}

	rows := 0
	for _, a := range grid.Assignments {
		if a.WeekID == f.weeks[0].ID && a.RotationID == icu.ID {
			rows++
		}
		if a.ID == placeholder.ID {
			t.Error("空行不应残留在网格中")
		}
	}
	if rows != 1 {
		t.Fatalf("格子排班行数 = %d, 期望 1", rows)
	}

	filled := grid.AssignmentAt(f.weeks[0].ID, icu.ID)
	if filled == nil || !filled.IsFilled() || !filled.IsAutoFilled {
		t.Error("空格子应被自动排班填入")
	}
}

func TestSolver_上下文取消(t *testing.T) {
	f := newFixture()
	f.addWeeks(4)
	icu := f.addRotation("ICU", 3, 0.02)
	alice := f.addPhysician("Alice")
	f.setRotationPref(alice, icu, model.PreferenceWilling, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSolverForTest(f.config).SolveFullDepartment(ctx, f.build())
	if err == nil {
		t.Fatal("已取消的上下文应返回错误")
	}
}

func TestSolvePhysician_单医师模式(t *testing.T) {
	f := newFixture()
	f.addWeeks(6)
	icu := f.addRotation("ICU", 2, 0.1)

	alice := f.addPhysician("Alice")
	bob := f.addPhysician("Bob")
	f.setRotationPref(alice, icu, model.PreferenceWilling, 0)
	f.setRotationPref(bob, icu, model.PreferenceWilling, 0)

	// Bob 的既有排班（自动）与 Alice 的既有排班（自动）各一条
	bobWeek := f.assign(bob, f.weeks[0], icu, true)
	f.assign(alice, f.weeks[2], icu, true)
	f.config.MinGapWeeksBetweenStints = 0

	grid := f.build()
	result, err := newSolverForTest(f.config).SolvePhysician(context.Background(), grid, alice.ID, true)
	if err != nil {
		t.Fatalf("SolvePhysician: %v", err)
	}

	t.Run("只产出该医师的排班", func(t *testing.T) {
		for _, a := range result.Assignments {
			if *a.PhysicianID != alice.ID {
				t.Fatal("单医师模式排入了其他医师")
			}
		}
		if result.AssignedCount != len(result.Assignments) {
			t.Errorf("AssignedCount=%d 与排班数不符", result.AssignedCount)
		}
	})

	t.Run("replaceExisting只清除该医师的自动排班", func(t *testing.T) {
		kept := grid.AssignmentAt(f.weeks[0].ID, icu.ID)
		if kept == nil || kept.ID != bobWeek.ID {
			t.Error("其他医师的排班不应被清除")
		}
	})

	t.Run("返回cFTE台账", func(t *testing.T) {
		want := float64(grid.AssignedWeekCount(alice.ID)) * icu.CftePerWeek
		if !almostEqual(result.Cfte.TotalCfte, want) {
			t.Errorf("TotalCfte=%v, 期望 %v", result.Cfte.TotalCfte, want)
		}
	})
}

func TestSolvePhysician_cFTE目标封顶(t *testing.T) {
	f := newFixture()
	f.addWeeks(8)
	icu := f.addRotation("ICU", 8, 0.1)

	alice := f.addPhysician("Alice")
	f.setRotationPref(alice, icu, model.PreferenceWilling, 0)
	f.setCfteTarget(alice, 0.3) // 每周0.1 → 最多3周
	f.config.MinGapWeeksBetweenStints = 0

	grid := f.build()
	result, err := newSolverForTest(f.config).SolvePhysician(context.Background(), grid, alice.ID, false)
	if err != nil {
		t.Fatalf("SolvePhysician: %v", err)
	}

	if result.AssignedCount != 3 {
		t.Errorf("AssignedCount=%d, 目标0.3应止于3周", result.AssignedCount)
	}
	if result.Cfte.IsOverTarget {
		t.Error("封顶逻辑不应超出目标")
	}
}

func TestSolvePhysician_医师不存在(t *testing.T) {
	f := newFixture()
	f.addWeeks(1)
	f.addRotation("ICU", 3, 0.02)
	grid := f.build()

	_, err := newSolverForTest(f.config).SolvePhysician(context.Background(), grid, uuid.New(), false)
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("err = %v, 期望 NOT_FOUND", err)
	}
}
