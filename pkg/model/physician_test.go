package model

import (
	"testing"
)

func strPtr(s string) *string { return &s }

func TestPhysician_IsAssignableWeek(t *testing.T) {
	week := &Week{WeekNumber: 10, StartDate: "2026-06-08", EndDate: "2026-06-14"}

	tests := []struct {
		name        string
		activeFrom  *string
		activeUntil *string
		expected    bool
	}{
		{"无边界限制", nil, nil, true},
		{"入职早于本周", strPtr("2026-01-01"), nil, true},
		{"入职晚于本周结束", strPtr("2026-06-15"), nil, false},
		{"入职在本周内", strPtr("2026-06-10"), nil, true},
		{"离职早于本周开始", nil, strPtr("2026-06-07"), false},
		{"离职在本周内", nil, strPtr("2026-06-10"), true},
		{"在职区间覆盖本周", strPtr("2026-01-01"), strPtr("2026-12-31"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Physician{IsActive: true, ActiveFrom: tt.activeFrom, ActiveUntil: tt.activeUntil}
			if result := p.IsAssignableWeek(week); result != tt.expected {
				t.Errorf("IsAssignableWeek() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestWeek_HasHoliday(t *testing.T) {
	week := &Week{Holidays: []string{"春节", "元宵节"}}

	if !week.HasHoliday([]string{"春节", "国庆节"}) {
		t.Error("包含春节的周应该匹配")
	}
	if week.HasHoliday([]string{"国庆节"}) {
		t.Error("不含国庆节的周不应匹配")
	}
	if week.HasHoliday(nil) {
		t.Error("空名单不应匹配")
	}
}

func TestRotationPreference_Validate(t *testing.T) {
	tests := []struct {
		name     string
		pref     RotationPreference
		expected bool
	}{
		{"willing无需附加信息", RotationPreference{Type: PreferenceWilling}, true},
		{"preferred需要排名", RotationPreference{Type: PreferencePreferred}, false},
		{"preferred带排名", RotationPreference{Type: PreferencePreferred, Rank: 1}, true},
		{"avoid需要原因", RotationPreference{Type: PreferenceAvoid}, false},
		{"avoid带原因", RotationPreference{Type: PreferenceAvoid, AvoidReason: "资质不符"}, true},
		{"未知类型拒绝", RotationPreference{Type: "unknown"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.pref.Validate(); result != tt.expected {
				t.Errorf("Validate() = %v, expected %v", result, tt.expected)
			}
		})
	}
}
