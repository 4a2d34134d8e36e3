// Package scenario 提供贴近真实科室的场景测试
package scenario

import (
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/autofill"
	"github.com/yipai/yipai/pkg/model"
)

// department 场景构建器：一个财年、一套轮转、一组医师的完整求解上下文
type department struct {
	fy          *model.FiscalYear
	calendar    *model.MasterCalendar
	config      *model.AutoFillConfig
	weeks       []*model.Week
	rotations   []*model.Rotation
	physicians  []*model.Physician
	requests    []*model.ScheduleRequest
	requestFor  map[uuid.UUID]*model.ScheduleRequest
	rotPrefs    []*model.RotationPreference
	rules       []*model.PhysicianRotationRule
	targets     []*model.PhysicianCfteTarget
	assignments []*model.Assignment
}

func newDepartment(weekCount int) *department {
	fy := &model.FiscalYear{
		BaseModel: model.NewBaseModel(),
		Label:     "FY2027",
		StartDate: "2026-07-06",
		EndDate:   "2027-07-04",
		Status:    model.FiscalYearBuilding,
	}
	d := &department{
		fy: fy,
		calendar: &model.MasterCalendar{
			BaseModel:    model.NewBaseModel(),
			FiscalYearID: fy.ID,
			Version:      1,
			Status:       model.CalendarDraft,
		},
		config:     model.DefaultAutoFillConfig(fy.ID),
		requestFor: make(map[uuid.UUID]*model.ScheduleRequest),
	}

	start, _ := time.Parse("2006-01-02", fy.StartDate)
	for i := 0; i < weekCount; i++ {
		ws := start.AddDate(0, 0, i*7)
		d.weeks = append(d.weeks, &model.Week{
			ID:           uuid.New(),
			FiscalYearID: fy.ID,
			WeekNumber:   i + 1,
			StartDate:    ws.Format("2006-01-02"),
			EndDate:      ws.AddDate(0, 0, 6).Format("2006-01-02"),
		})
	}
	return d
}

func (d *department) markHoliday(weekNumber int, name string) {
	d.weeks[weekNumber-1].Holidays = append(d.weeks[weekNumber-1].Holidays, name)
}

func (d *department) addRotation(name, abbrev string, maxConsecutive int, cftePerWeek float64) *model.Rotation {
	rot := &model.Rotation{
		BaseModel:           model.NewBaseModel(),
		FiscalYearID:        d.fy.ID,
		Name:                name,
		Abbreviation:        abbrev,
		CftePerWeek:         cftePerWeek,
		MinStaff:            1,
		MaxConsecutiveWeeks: maxConsecutive,
		SortOrder:           len(d.rotations) + 1,
		IsActive:            true,
	}
	d.rotations = append(d.rotations, rot)
	return rot
}

func (d *department) addPhysician(name string) *model.Physician {
	p := &model.Physician{
		BaseModel: model.NewBaseModel(),
		Name:      name,
		Initials:  string([]rune(name)[0]),
		Role:      "physician",
		IsActive:  true,
	}
	d.physicians = append(d.physicians, p)
	return p
}

func (d *department) submitRequest(p *model.Physician) *model.ScheduleRequest {
	req := &model.ScheduleRequest{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: d.fy.ID,
		PhysicianID:  p.ID,
		Status:       model.ApprovalApproved,
	}
	d.requests = append(d.requests, req)
	d.requestFor[p.ID] = req
	return req
}

func (d *department) setWeekPref(p *model.Physician, weekNumber int, availability model.Availability) {
	req := d.requestFor[p.ID]
	req.Preferences = append(req.Preferences, model.WeekPreference{
		BaseModel:         model.NewBaseModel(),
		ScheduleRequestID: req.ID,
		WeekID:            d.weeks[weekNumber-1].ID,
		Availability:      availability,
	})
}

func (d *department) setRotationPref(p *model.Physician, rot *model.Rotation, prefType model.RotationPreferenceType, rank int) {
	pref := &model.RotationPreference{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: d.fy.ID,
		PhysicianID:  p.ID,
		RotationID:   rot.ID,
		Type:         prefType,
		Rank:         rank,
		Status:       model.ApprovalApproved,
	}
	if prefType == model.PreferenceAvoid {
		pref.AvoidReason = "个人原因"
	}
	d.rotPrefs = append(d.rotPrefs, pref)
}

func (d *department) setCfteTarget(p *model.Physician, target float64) {
	d.targets = append(d.targets, &model.PhysicianCfteTarget{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: d.fy.ID,
		PhysicianID:  p.ID,
		TargetCfte:   target,
	})
}

func (d *department) assign(p *model.Physician, weekNumber int, rot *model.Rotation, autoFilled bool) *model.Assignment {
	pid := p.ID
	by := "admin"
	if autoFilled {
		by = autofill.AssignedBySystem
	}
	a := &model.Assignment{
		BaseModel:        model.NewBaseModel(),
		MasterCalendarID: d.calendar.ID,
		WeekID:           d.weeks[weekNumber-1].ID,
		RotationID:       rot.ID,
		PhysicianID:      &pid,
		IsAutoFilled:     autoFilled,
		AssignedBy:       by,
	}
	d.assignments = append(d.assignments, a)
	return a
}

func (d *department) build() *autofill.Context {
	grid := autofill.NewContext(d.fy, d.calendar, d.config)
	grid.SetWeeks(d.weeks)
	grid.SetRotations(d.rotations)
	grid.SetPhysicians(d.physicians)
	grid.SetScheduleRequests(d.requests)
	grid.SetRotationPreferences(d.rotPrefs)
	grid.SetRotationRules(d.rules)
	grid.SetClinicData(nil, nil)
	grid.SetCfteTargets(d.targets)
	grid.SetAssignments(d.assignments)
	return grid
}
