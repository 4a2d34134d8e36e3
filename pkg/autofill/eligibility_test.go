package autofill

import (
	"testing"

	"github.com/yipai/yipai/pkg/model"
)

func TestCheckEligibility_基础排除(t *testing.T) {
	f := newFixture()
	f.addWeeks(4)
	icu := f.addRotation("ICU", 3, 0.02)
	ward := f.addRotation("病房", 3, 0.02)

	alice := f.addPhysician("Alice")
	bob := f.addPhysician("Bob")
	carol := f.addPhysician("Carol")
	carol.IsActive = false

	until := "2026-07-03" // 第1周内离职
	bob.ActiveUntil = &until

	f.setRotationPref(alice, icu, model.PreferenceWilling, 0)
	f.setRotationPref(bob, icu, model.PreferenceWilling, 0)
	f.setRotationPref(carol, icu, model.PreferenceWilling, 0)
	f.assign(alice, f.weeks[0], ward, false)

	grid := f.build()

	tests := []struct {
		name      string
		physician *model.Physician
		week      *model.Week
		rotation  *model.Rotation
		wantOK    bool
		wantWhy   Reason
	}{
		{"停用医师被排除", carol, f.weeks[0], icu, false, ReasonPhysicianInactive},
		{"离职后的周被排除", bob, f.weeks[1], icu, false, ReasonOutsideActiveDates},
		{"在职区间内的周可排", bob, f.weeks[0], icu, true, ReasonEligible},
		{"本周已持有其他轮转", alice, f.weeks[0], icu, false, ReasonAlreadyOnService},
		{"其他周不受影响", alice, f.weeks[1], icu, true, ReasonEligible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, why := CheckEligibility(grid, tt.physician, tt.week, tt.rotation, ModeSolver)
			if ok != tt.wantOK || why != tt.wantWhy {
				t.Errorf("CheckEligibility() = (%v, %q), 期望 (%v, %q)", ok, why, tt.wantOK, tt.wantWhy)
			}
		})
	}
}

func TestCheckEligibility_数据完整性(t *testing.T) {
	f := newFixture()
	f.addWeeks(2)
	icu := f.addRotation("ICU", 3, 0.02)
	ward := f.addRotation("病房", 3, 0.02)

	// Alice：有申请且对ICU有偏好；Bob：什么都没提交
	alice := f.addPhysician("Alice")
	bob := f.addPhysician("Bob")
	f.submitRequest(alice)
	f.setRotationPref(alice, icu, model.PreferenceWilling, 0)

	grid := f.build()

	t.Run("求解器模式要求至少一条轮转偏好", func(t *testing.T) {
		if ok, why := CheckEligibility(grid, bob, f.weeks[0], icu, ModeSolver); ok || why != ReasonMissingRotationPreference {
			t.Errorf("得到 (%v, %q)", ok, why)
		}
	})
	t.Run("求解器模式缺失周偏好默认green", func(t *testing.T) {
		if ok, why := CheckEligibility(grid, alice, f.weeks[1], icu, ModeSolver); !ok {
			t.Errorf("期望合格，得到 %q", why)
		}
	})
	t.Run("求解器模式有任一轮转偏好即可参与其他轮转", func(t *testing.T) {
		if ok, why := CheckEligibility(grid, alice, f.weeks[0], ward, ModeSolver); !ok {
			t.Errorf("期望合格，得到 %q", why)
		}
	})
	t.Run("换班模式要求可用性申请", func(t *testing.T) {
		if ok, why := CheckEligibility(grid, bob, f.weeks[0], icu, ModeTrade); ok || why != ReasonMissingScheduleRequest {
			t.Errorf("得到 (%v, %q)", ok, why)
		}
	})
	t.Run("换班模式要求目标轮转的偏好记录", func(t *testing.T) {
		if ok, why := CheckEligibility(grid, alice, f.weeks[0], ward, ModeTrade); ok || why != ReasonMissingRotationPreference {
			t.Errorf("得到 (%v, %q)", ok, why)
		}
	})
	t.Run("换班模式条件齐备则合格", func(t *testing.T) {
		if ok, why := CheckEligibility(grid, alice, f.weeks[0], icu, ModeTrade); !ok {
			t.Errorf("期望合格，得到 %q", why)
		}
	})
}

func TestCheckEligibility_换班模式在岗即排除(t *testing.T) {
	f := newFixture()
	f.addWeeks(2)
	icu := f.addRotation("ICU", 3, 0.02)

	alice := f.addPhysician("Alice")
	f.submitRequest(alice)
	f.setRotationPref(alice, icu, model.PreferenceWilling, 0)
	f.assign(alice, f.weeks[0], icu, false)

	grid := f.build()

	// 求解器模式下同轮转同周不算冲突（就是那个格子），换班模式下算
	if ok, why := CheckEligibility(grid, alice, f.weeks[0], icu, ModeTrade); ok || why != ReasonAlreadyOnService {
		t.Errorf("换班模式得到 (%v, %q)，期望排除", ok, why)
	}
}

func TestCheckEligibility_偏好排除(t *testing.T) {
	f := newFixture()
	f.addWeeks(3)
	icu := f.addRotation("ICU", 3, 0.02)
	ward := f.addRotation("病房", 3, 0.02)

	alice := f.addPhysician("Alice")
	f.setWeekPref(alice, f.weeks[0], model.AvailabilityRed)
	f.setWeekPref(alice, f.weeks[1], model.AvailabilityYellow)
	f.setRotationPref(alice, icu, model.PreferenceWilling, 0)
	f.setRotationPref(alice, ward, model.PreferenceAvoid, 0)

	grid := f.build()

	t.Run("red周硬排除", func(t *testing.T) {
		if ok, why := CheckEligibility(grid, alice, f.weeks[0], icu, ModeSolver); ok || why != ReasonMarkedDoNotAssign {
			t.Errorf("得到 (%v, %q)", ok, why)
		}
	})
	t.Run("yellow周不排除", func(t *testing.T) {
		if ok, _ := CheckEligibility(grid, alice, f.weeks[1], icu, ModeSolver); !ok {
			t.Error("yellow应降分而非排除")
		}
	})
	t.Run("avoid轮转硬排除", func(t *testing.T) {
		if ok, why := CheckEligibility(grid, alice, f.weeks[2], ward, ModeSolver); ok || why != ReasonRotationMarkedAvoid {
			t.Errorf("得到 (%v, %q)", ok, why)
		}
	})
}

func TestCheckEligibility_连续周数上限(t *testing.T) {
	f := newFixture()
	f.addWeeks(6)
	icu := f.addRotation("ICU", 2, 0.02)

	alice := f.addPhysician("Alice")
	bob := f.addPhysician("Bob")
	f.setRotationPref(alice, icu, model.PreferenceWilling, 0)
	f.setRotationPref(bob, icu, model.PreferenceWilling, 0)

	// Alice 已排第1、2周；Bob 有医师级别规则放宽到4并已排第1、2、3周
	f.assign(alice, f.weeks[0], icu, true)
	f.assign(alice, f.weeks[1], icu, true)
	f.setConsecutiveRule(bob, icu, 4)
	f.config.MinGapWeeksBetweenStints = 0

	grid := f.build()

	// Bob 的连排场景需要独立网格（同一格子不能同时排两人）
	f2 := newFixture()
	f2.addWeeks(6)
	icu2 := f2.addRotation("ICU", 2, 0.02)
	f2.setRotationPref(bob, icu2, model.PreferenceWilling, 0)
	f2.setConsecutiveRule(bob, icu2, 4)
	f2.physicians = append(f2.physicians, bob)
	f2.assign(bob, f2.weeks[0], icu2, true)
	f2.assign(bob, f2.weeks[1], icu2, true)
	f2.assign(bob, f2.weeks[2], icu2, true)
	f2.config.MinGapWeeksBetweenStints = 0
	grid2 := f2.build()

	t.Run("超过轮转默认上限被排除", func(t *testing.T) {
		if ok, why := CheckEligibility(grid, alice, f.weeks[2], icu, ModeSolver); ok || why != ReasonExceedsMaxConsecutive {
			t.Errorf("得到 (%v, %q)", ok, why)
		}
	})
	t.Run("医师级别规则覆盖轮转默认", func(t *testing.T) {
		if ok, why := CheckEligibility(grid2, bob, f2.weeks[3], icu2, ModeSolver); !ok {
			t.Errorf("规则放宽到4，第4周应合格，得到 %q", why)
		}
	})
	t.Run("填补中间周也计入连续长度", func(t *testing.T) {
		// Alice 已排第1、2周，若排入第3周则连续3 > 上限2
		if ok, _ := CheckEligibility(grid, alice, f.weeks[2], icu, ModeSolver); ok {
			t.Error("前后合并后的连续长度应被拒绝")
		}
	})
}

func TestCheckEligibility_最小任期间隔(t *testing.T) {
	f := newFixture()
	f.addWeeks(8)
	icu := f.addRotation("ICU", 3, 0.02)

	alice := f.addPhysician("Alice")
	f.setRotationPref(alice, icu, model.PreferenceWilling, 0)
	f.assign(alice, f.weeks[0], icu, true) // 第1周任期
	f.config.MinGapWeeksBetweenStints = 2

	grid := f.build()

	tests := []struct {
		name    string
		week    *model.Week
		wantOK  bool
		wantWhy Reason
	}{
		{"间隔1周违反最小间隔", f.weeks[2], false, ReasonViolatesMinGap},
		{"间隔恰好等于最小间隔", f.weeks[3], true, ReasonEligible},
		{"间隔大于最小间隔", f.weeks[4], true, ReasonEligible},
		{"相邻周走连续约束而非间隔约束", f.weeks[1], true, ReasonEligible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, why := CheckEligibility(grid, alice, tt.week, icu, ModeSolver)
			if ok != tt.wantOK || why != tt.wantWhy {
				t.Errorf("CheckEligibility() = (%v, %q), 期望 (%v, %q)", ok, why, tt.wantOK, tt.wantWhy)
			}
		})
	}

	t.Run("反向间隔同样生效", func(t *testing.T) {
		// 任期在第5周，往前排第4周间隔0走连续约束，第3周间隔1违反
		f2 := newFixture()
		f2.addWeeks(8)
		icu2 := f2.addRotation("ICU", 3, 0.02)
		bob := f2.addPhysician("Bob")
		f2.setRotationPref(bob, icu2, model.PreferenceWilling, 0)
		f2.assign(bob, f2.weeks[4], icu2, true)
		grid2 := f2.build()

		if ok, why := CheckEligibility(grid2, bob, f2.weeks[2], icu2, ModeSolver); ok || why != ReasonViolatesMinGap {
			t.Errorf("得到 (%v, %q)，期望反向间隔违规", ok, why)
		}
	})
}
