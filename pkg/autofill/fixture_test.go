package autofill

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

// fixture 测试网格构建器：先收集数据，build 时一次性写入上下文
type fixture struct {
	fiscalYear *model.FiscalYear
	calendar   *model.MasterCalendar
	config     *model.AutoFillConfig

	weeks      []*model.Week
	rotations  []*model.Rotation
	physicians []*model.Physician

	requests map[uuid.UUID]*model.ScheduleRequest
	rotPrefs []*model.RotationPreference
	rules    []*model.PhysicianRotationRule
	targets  []*model.PhysicianCfteTarget

	clinicTypes       []*model.ClinicType
	clinicAssignments []*model.PhysicianClinicAssignment

	assignments []*model.Assignment
}

func newFixture() *fixture {
	fy := &model.FiscalYear{
		BaseModel: model.NewBaseModel(),
		Label:     "FY2027",
		StartDate: "2026-07-01",
		EndDate:   "2027-06-30",
		Status:    model.FiscalYearBuilding,
	}
	return &fixture{
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
}

// addWeeks 添加连续的周（周一开始，7天一周，日期仅需保持偏序正确）
func (f *fixture) addWeeks(count int) {
	for i := 0; i < count; i++ {
		n := len(f.weeks) + 1
		f.weeks = append(f.weeks, &model.Week{
			ID:           uuid.New(),
			FiscalYearID: f.fiscalYear.ID,
			WeekNumber:   n,
			StartDate:    fmt.Sprintf("2026-07-%02d", (n-1)*7+1),
			EndDate:      fmt.Sprintf("2026-07-%02d", (n-1)*7+7),
		})
	}
}

func (f *fixture) addRotation(name string, maxConsecutive int, cfte float64) *model.Rotation {
	r := &model.Rotation{
		BaseModel:           model.NewBaseModel(),
		FiscalYearID:        f.fiscalYear.ID,
		Name:                name,
		Abbreviation:        name,
		CftePerWeek:         cfte,
		MinStaff:            1,
		MaxConsecutiveWeeks: maxConsecutive,
		SortOrder:           len(f.rotations) + 1,
		IsActive:            true,
	}
	f.rotations = append(f.rotations, r)
	return r
}

func (f *fixture) addPhysician(name string) *model.Physician {
	p := &model.Physician{
		BaseModel: model.NewBaseModel(),
		Name:      name,
		Initials:  name,
		Role:      "physician",
		IsActive:  true,
	}
	f.physicians = append(f.physicians, p)
	return p
}

// submitRequest 为医师创建已批准的可用性申请（可多次调用追加周偏好）
func (f *fixture) submitRequest(p *model.Physician) *model.ScheduleRequest {
	if req, ok := f.requests[p.ID]; ok {
		return req
	}
	req := &model.ScheduleRequest{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: f.fiscalYear.ID,
		PhysicianID:  p.ID,
		Status:       model.ApprovalApproved,
	}
	f.requests[p.ID] = req
	return req
}

func (f *fixture) setWeekPref(p *model.Physician, week *model.Week, availability model.Availability) {
	req := f.submitRequest(p)
	req.Preferences = append(req.Preferences, model.WeekPreference{
		BaseModel:         model.NewBaseModel(),
		ScheduleRequestID: req.ID,
		WeekID:            week.ID,
		Availability:      availability,
	})
}

func (f *fixture) setRotationPref(p *model.Physician, r *model.Rotation, prefType model.RotationPreferenceType, rank int) {
	pref := &model.RotationPreference{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: f.fiscalYear.ID,
		PhysicianID:  p.ID,
		RotationID:   r.ID,
		Type:         prefType,
		Rank:         rank,
		Status:       model.ApprovalApproved,
	}
	if prefType == model.PreferenceAvoid {
		pref.AvoidReason = "测试原因"
	}
	f.rotPrefs = append(f.rotPrefs, pref)
}

func (f *fixture) setConsecutiveRule(p *model.Physician, r *model.Rotation, max int) {
	f.rules = append(f.rules, &model.PhysicianRotationRule{
		BaseModel:           model.NewBaseModel(),
		FiscalYearID:        f.fiscalYear.ID,
		PhysicianID:         p.ID,
		RotationID:          r.ID,
		MaxConsecutiveWeeks: max,
	})
}

func (f *fixture) setCfteTarget(p *model.Physician, target float64) {
	f.targets = append(f.targets, &model.PhysicianCfteTarget{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: f.fiscalYear.ID,
		PhysicianID:  p.ID,
		TargetCfte:   target,
	})
}

func (f *fixture) addClinic(p *model.Physician, cftePerHalfDay float64, halfDays, activeWeeks int) {
	ct := &model.ClinicType{
		BaseModel:      model.NewBaseModel(),
		FiscalYearID:   f.fiscalYear.ID,
		Name:           "普通门诊",
		CftePerHalfDay: cftePerHalfDay,
	}
	f.clinicTypes = append(f.clinicTypes, ct)
	f.clinicAssignments = append(f.clinicAssignments, &model.PhysicianClinicAssignment{
		BaseModel:       model.NewBaseModel(),
		FiscalYearID:    f.fiscalYear.ID,
		PhysicianID:     p.ID,
		ClinicTypeID:    ct.ID,
		HalfDaysPerWeek: halfDays,
		ActiveWeeks:     activeWeeks,
	})
}

// assign 预置一条排班（autoFilled 控制手工/自动标记）
func (f *fixture) assign(p *model.Physician, week *model.Week, r *model.Rotation, autoFilled bool) *model.Assignment {
	physID := p.ID
	a := &model.Assignment{
		BaseModel:        model.NewBaseModel(),
		MasterCalendarID: f.calendar.ID,
		WeekID:           week.ID,
		RotationID:       r.ID,
		PhysicianID:      &physID,
		IsAutoFilled:     autoFilled,
		AssignedBy:       "admin",
	}
	if autoFilled {
		a.AssignedBy = AssignedBySystem
	}
	f.assignments = append(f.assignments, a)
	return a
}

// revokeCell 预置一条手工撤销后残留的空格子行（physician为空，非自动）
func (f *fixture) revokeCell(week *model.Week, r *model.Rotation) *model.Assignment {
	a := &model.Assignment{
		BaseModel:        model.NewBaseModel(),
		MasterCalendarID: f.calendar.ID,
		WeekID:           week.ID,
		RotationID:       r.ID,
		IsAutoFilled:     false,
		AssignedBy:       "admin",
	}
	f.assignments = append(f.assignments, a)
	return a
}

func (f *fixture) build() *Context {
	grid := NewContext(f.fiscalYear, f.calendar, f.config)
	grid.SetWeeks(f.weeks)
	grid.SetRotations(f.rotations)
	grid.SetPhysicians(f.physicians)

	requests := make([]*model.ScheduleRequest, 0, len(f.requests))
	for _, req := range f.requests {
		requests = append(requests, req)
	}
	grid.SetScheduleRequests(requests)
	grid.SetRotationPreferences(f.rotPrefs)
	grid.SetRotationRules(f.rules)
	grid.SetClinicData(f.clinicTypes, f.clinicAssignments)
	grid.SetCfteTargets(f.targets)
	grid.SetAssignments(f.assignments)
	return grid
}
