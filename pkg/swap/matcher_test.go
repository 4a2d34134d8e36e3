package swap

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/autofill"
	"github.com/yipai/yipai/pkg/model"
)

// swapFixture 匹配器测试网格
type swapFixture struct {
	fiscalYear *model.FiscalYear
	calendar   *model.MasterCalendar
	config     *model.AutoFillConfig

	weeks      []*model.Week
	rotations  []*model.Rotation
	physicians []*model.Physician

	requests    map[uuid.UUID]*model.ScheduleRequest
	rotPrefs    []*model.RotationPreference
	assignments []*model.Assignment
}

func newSwapFixture(weekCount int) *swapFixture {
	fy := &model.FiscalYear{
		BaseModel: model.NewBaseModel(),
		Label:     "FY2027",
		StartDate: "2026-07-01",
		EndDate:   "2027-06-30",
		Status:    model.FiscalYearBuilding,
	}
	f := &swapFixture{
		fiscalYear: fy,
		calendar: &model.MasterCalendar{
			BaseModel:    model.NewBaseModel(),
			FiscalYearID: fy.ID,
			Version:      1,
			Status:       model.CalendarDraft,
		},
		config:   model.DefaultAutoFillConfig(fy.ID),
		requests: make(map[uuid.UUID]*model.ScheduleRequest),
	}
	for i := 1; i <= weekCount; i++ {
		f.weeks = append(f.weeks, &model.Week{
			ID:           uuid.New(),
			FiscalYearID: fy.ID,
			WeekNumber:   i,
			StartDate:    fmt.Sprintf("2026-07-%02d", (i-1)*7+1),
			EndDate:      fmt.Sprintf("2026-07-%02d", (i-1)*7+7),
		})
	}
	return f
}

func (f *swapFixture) addRotation(name string) *model.Rotation {
	r := &model.Rotation{
		BaseModel:           model.NewBaseModel(),
		FiscalYearID:        f.fiscalYear.ID,
		Name:                name,
		Abbreviation:        name,
		CftePerWeek:         0.02,
		MinStaff:            1,
		MaxConsecutiveWeeks: 4,
		SortOrder:           len(f.rotations) + 1,
		IsActive:            true,
	}
	f.rotations = append(f.rotations, r)
	return r
}

// addCandidate 添加已提交申请且对轮转有偏好记录的医师（换班模式的准入条件）
func (f *swapFixture) addCandidate(name string, r *model.Rotation, prefType model.RotationPreferenceType) *model.Physician {
	p := &model.Physician{
		BaseModel: model.NewBaseModel(),
		Name:      name,
		Initials:  name,
		Role:      "physician",
		IsActive:  true,
	}
	f.physicians = append(f.physicians, p)
	f.requests[p.ID] = &model.ScheduleRequest{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: f.fiscalYear.ID,
		PhysicianID:  p.ID,
		Status:       model.ApprovalApproved,
	}
	pref := &model.RotationPreference{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: f.fiscalYear.ID,
		PhysicianID:  p.ID,
		RotationID:   r.ID,
		Type:         prefType,
		Status:       model.ApprovalApproved,
	}
	if prefType == model.PreferencePreferred {
		pref.Rank = 1
	}
	f.rotPrefs = append(f.rotPrefs, pref)
	return p
}

func (f *swapFixture) assign(p *model.Physician, week *model.Week, r *model.Rotation) *model.Assignment {
	physID := p.ID
	a := &model.Assignment{
		BaseModel:        model.NewBaseModel(),
		MasterCalendarID: f.calendar.ID,
		WeekID:           week.ID,
		RotationID:       r.ID,
		PhysicianID:      &physID,
		AssignedBy:       "admin",
	}
	f.assignments = append(f.assignments, a)
	return a
}

func (f *swapFixture) build() *autofill.Context {
	grid := autofill.NewContext(f.fiscalYear, f.calendar, f.config)
	grid.SetWeeks(f.weeks)
	grid.SetRotations(f.rotations)
	grid.SetPhysicians(f.physicians)

	requests := make([]*model.ScheduleRequest, 0, len(f.requests))
	for _, req := range f.requests {
		requests = append(requests, req)
	}
	grid.SetScheduleRequests(requests)
	grid.SetRotationPreferences(f.rotPrefs)
	grid.SetAssignments(f.assignments)
	return grid
}

func newMatcherForTest(cfg *model.AutoFillConfig) *Matcher {
	return NewMatcher(autofill.NewEngine(cfg))
}

func TestFindCandidates_基本匹配(t *testing.T) {
	f := newSwapFixture(4)
	icu := f.addRotation("ICU")

	holder := f.addCandidate("Holder", icu, model.PreferenceWilling)
	preferred := f.addCandidate("Preferred", icu, model.PreferencePreferred)
	willing := f.addCandidate("Willing", icu, model.PreferenceWilling)

	source := f.assign(holder, f.weeks[1], icu)
	grid := f.build()

	result, err := newMatcherForTest(f.config).FindCandidates(grid, source, nil)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}

	if result.TotalCandidateCount != 2 {
		t.Errorf("TotalCandidateCount = %d, 期望 2（原持有人不计）", result.TotalCandidateCount)
	}
	if len(result.Suggestions) != 2 {
		t.Fatalf("suggestions = %d, 期望 2", len(result.Suggestions))
	}
	if result.Suggestions[0].Physician.ID != preferred.ID {
		t.Error("首选偏好者应排第一")
	}
	if result.Suggestions[0].Rank != 1 || result.Suggestions[1].Rank != 2 {
		t.Error("排名应从1开始连续")
	}
	_ = willing
}

func TestFindCandidates_同周在岗排除(t *testing.T) {
	f := newSwapFixture(2)
	icu := f.addRotation("ICU")
	ward := f.addRotation("病房")

	holder := f.addCandidate("Holder", icu, model.PreferenceWilling)
	busy := f.addCandidate("Busy", icu, model.PreferenceWilling)

	source := f.assign(holder, f.weeks[0], icu)
	f.assign(busy, f.weeks[0], ward) // 同周已在病房

	grid := f.build()
	result, err := newMatcherForTest(f.config).FindCandidates(grid, source, nil)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}

	if len(result.Suggestions) != 0 {
		t.Errorf("suggestions = %d, 期望 0", len(result.Suggestions))
	}
	if result.ExcludedSummary[string(autofill.ReasonAlreadyOnService)] != 1 {
		t.Errorf("ExcludedSummary = %v, 期望 already_on_service_this_week=1", result.ExcludedSummary)
	}
	if result.TotalCandidateCount != 1 {
		t.Errorf("TotalCandidateCount = %d, 期望 1", result.TotalCandidateCount)
	}
}

func TestFindCandidates_排除原因统计(t *testing.T) {
	f := newSwapFixture(2)
	icu := f.addRotation("ICU")

	holder := f.addCandidate("Holder", icu, model.PreferenceWilling)

	// noRequest：有偏好但没有可用性申请
	noRequest := &model.Physician{BaseModel: model.NewBaseModel(), Name: "NoRequest", Role: "physician", IsActive: true}
	f.physicians = append(f.physicians, noRequest)
	f.rotPrefs = append(f.rotPrefs, &model.RotationPreference{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: f.fiscalYear.ID,
		PhysicianID:  noRequest.ID,
		RotationID:   icu.ID,
		Type:         model.PreferenceWilling,
		Status:       model.ApprovalApproved,
	})

	// avoider：标记回避此轮转
	avoider := f.addCandidate("Avoider", icu, model.PreferenceAvoid)
	for _, p := range f.rotPrefs {
		if p.PhysicianID == avoider.ID {
			p.AvoidReason = "资质不符"
		}
	}

	source := f.assign(holder, f.weeks[0], icu)
	grid := f.build()

	result, err := newMatcherForTest(f.config).FindCandidates(grid, source, nil)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}

	if result.TotalCandidateCount != 2 {
		t.Errorf("TotalCandidateCount = %d, 期望 2", result.TotalCandidateCount)
	}
	if result.ExcludedSummary[string(autofill.ReasonMissingScheduleRequest)] != 1 {
		t.Errorf("缺申请应计1: %v", result.ExcludedSummary)
	}
	if result.ExcludedSummary[string(autofill.ReasonRotationMarkedAvoid)] != 1 {
		t.Errorf("回避应计1: %v", result.ExcludedSummary)
	}
}

func TestFindCandidates_连续性加分(t *testing.T) {
	f := newSwapFixture(4)
	icu := f.addRotation("ICU")
	f.config.MinGapWeeksBetweenStints = 0

	holder := f.addCandidate("Holder", icu, model.PreferenceWilling)
	adjacent := f.addCandidate("Adjacent", icu, model.PreferenceWilling)
	fresh := f.addCandidate("Fresh", icu, model.PreferenceWilling)

	// Adjacent 已在第1周ICU，接手第2周可延续任期
	f.assign(adjacent, f.weeks[0], icu)
	source := f.assign(holder, f.weeks[1], icu)

	grid := f.build()
	result, err := newMatcherForTest(f.config).FindCandidates(grid, source, nil)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}

	if len(result.Suggestions) != 2 {
		t.Fatalf("suggestions = %d, 期望 2", len(result.Suggestions))
	}
	if result.Suggestions[0].Physician.ID != adjacent.ID {
		t.Error("延续任期者应因连续性加分排第一")
	}
	if result.Suggestions[0].Score <= result.Suggestions[1].Score {
		t.Errorf("加分后 %v 应高于 %v", result.Suggestions[0].Score, result.Suggestions[1].Score)
	}
	_ = fresh
}

// 相邻周在岗的加分不限同一轮转：前一周在病房的候选人
// 仍应优先于两侧都空闲的候选人
func TestFindCandidates_跨轮转相邻加分(t *testing.T) {
	f := newSwapFixture(4)
	icu := f.addRotation("ICU")
	ward := f.addRotation("病房")
	f.config.MinGapWeeksBetweenStints = 0

	holder := f.addCandidate("Holder", icu, model.PreferenceWilling)
	adjacent := f.addCandidate("Adjacent", icu, model.PreferenceWilling)
	isolated := f.addCandidate("Isolated", icu, model.PreferenceWilling)

	// Adjacent 第1周在病房：接手第2周ICU仍减少人员切换
	f.assign(adjacent, f.weeks[0], ward)
	source := f.assign(holder, f.weeks[1], icu)

	grid := f.build()
	result, err := newMatcherForTest(f.config).FindCandidates(grid, source, nil)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}

	if len(result.Suggestions) != 2 {
		t.Fatalf("suggestions = %d, 期望 2", len(result.Suggestions))
	}
	if result.Suggestions[0].Physician.ID != adjacent.ID {
		t.Error("相邻周在岗者应排在完全空闲者之前")
	}
	if !result.Suggestions[0].WorksPrecedingWeek {
		t.Error("WorksPrecedingWeek 应标记为 true")
	}
	if result.Suggestions[0].Score <= result.Suggestions[1].Score {
		t.Errorf("加分后 %v 应高于 %v", result.Suggestions[0].Score, result.Suggestions[1].Score)
	}
	if result.Suggestions[1].Physician.ID != isolated.ID {
		t.Error("空闲候选人应排第二")
	}
}

func TestFindCandidates_数量上限与只读(t *testing.T) {
	f := newSwapFixture(2)
	icu := f.addRotation("ICU")

	holder := f.addCandidate("Holder", icu, model.PreferenceWilling)
	for i := 0; i < 8; i++ {
		f.addCandidate(fmt.Sprintf("P%d", i), icu, model.PreferenceWilling)
	}

	source := f.assign(holder, f.weeks[0], icu)
	grid := f.build()
	before := len(grid.Assignments)

	result, err := newMatcherForTest(f.config).FindCandidates(grid, source, &Options{MaxSuggestions: 3})
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}

	if len(result.Suggestions) != 3 {
		t.Errorf("suggestions = %d, 期望截断到 3", len(result.Suggestions))
	}
	if result.TotalCandidateCount != 8 {
		t.Errorf("TotalCandidateCount = %d, 期望 8", result.TotalCandidateCount)
	}
	if len(grid.Assignments) != before {
		t.Error("匹配器不应修改网格")
	}
}

func TestBestCandidate(t *testing.T) {
	f := newSwapFixture(2)
	icu := f.addRotation("ICU")
	holder := f.addCandidate("Holder", icu, model.PreferenceWilling)
	source := f.assign(holder, f.weeks[0], icu)

	grid := f.build()
	best, err := newMatcherForTest(f.config).BestCandidate(grid, source)
	if err != nil {
		t.Fatalf("BestCandidate: %v", err)
	}
	if best != nil {
		t.Error("无其他候选时应返回nil")
	}
}
