// Package service 提供业务编排层：加载求解上下文、调用核心、持久化结果
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/yipai/yipai/internal/database"
	"github.com/yipai/yipai/internal/repository"
	"github.com/yipai/yipai/pkg/autofill"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/model"
)

// Services 服务集合
type Services struct {
	AutoFill *AutoFillService
	Swap     *SwapService
	Roster   *RosterService
}

// New 创建服务集合
func New(db *database.DB) *Services {
	repos := newRepos(db)
	return &Services{
		AutoFill: &AutoFillService{db: db, repos: repos},
		Swap:     &SwapService{repos: repos},
		Roster:   &RosterService{repos: repos},
	}
}

// repos 仓储集合
type repos struct {
	fiscalYears *repository.FiscalYearRepository
	physicians  *repository.PhysicianRepository
	rotations   *repository.RotationRepository
	preferences *repository.PreferenceRepository
	calendars   *repository.CalendarRepository
	decisions   *repository.DecisionLogRepository
	configs     *repository.AutoFillConfigRepository
}

func newRepos(db repository.DB) *repos {
	return &repos{
		fiscalYears: repository.NewFiscalYearRepository(db),
		physicians:  repository.NewPhysicianRepository(db),
		rotations:   repository.NewRotationRepository(db),
		preferences: repository.NewPreferenceRepository(db),
		calendars:   repository.NewCalendarRepository(db),
		decisions:   repository.NewDecisionLogRepository(db),
		configs:     repository.NewAutoFillConfigRepository(db),
	}
}

// loadGrid 加载财年的完整求解上下文
// 求解核心只看这份快照，不直接访问数据库
func (r *repos) loadGrid(ctx context.Context, fiscalYearID uuid.UUID) (*autofill.Context, error) {
	fy, err := r.fiscalYears.GetByID(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载财年失败")
	}
	if fy == nil {
		return nil, errors.New(errors.CodeNotFound, "财年不存在")
	}

	calendar, err := r.calendars.GetDraft(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载日历失败")
	}
	if calendar == nil {
		return nil, errors.New(errors.CodeCalendarNotDraft, "财年没有草稿日历")
	}

	cfg, err := r.configs.GetByFiscalYear(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载自动排班配置失败")
	}

	grid := autofill.NewContext(fy, calendar, cfg)

	weeks, err := r.fiscalYears.GetWeeks(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载周列表失败")
	}
	grid.SetWeeks(weeks)

	rotations, err := r.rotations.ListByFiscalYear(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载轮转列表失败")
	}
	grid.SetRotations(rotations)

	physicians, err := r.physicians.List(ctx, repository.ListFilter{})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载医师列表失败")
	}
	grid.SetPhysicians(physicians)

	requests, err := r.preferences.ListScheduleRequests(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载可用性申请失败")
	}
	grid.SetScheduleRequests(requests)

	rotPrefs, err := r.preferences.ListRotationPreferences(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载轮转偏好失败")
	}
	grid.SetRotationPreferences(rotPrefs)

	rules, err := r.rotations.ListRules(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载轮转规则失败")
	}
	grid.SetRotationRules(rules)

	clinicTypes, err := r.rotations.ListClinicTypes(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载门诊类型失败")
	}
	clinicAssignments, err := r.rotations.ListClinicAssignments(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载门诊安排失败")
	}
	grid.SetClinicData(clinicTypes, clinicAssignments)

	targets, err := r.rotations.ListCfteTargets(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载cFTE目标失败")
	}
	grid.SetCfteTargets(targets)

	assignments, err := r.calendars.ListAssignments(ctx, calendar.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载排班失败")
	}
	grid.SetAssignments(assignments)

	return grid, nil
}

// requireAutoFillAllowed 检查财年状态是否允许自动排班
func requireAutoFillAllowed(fy *model.FiscalYear) error {
	if !fy.AllowsAutoFill() {
		return errors.New(errors.CodeFiscalYearLocked, "财年当前状态不允许自动排班")
	}
	return nil
}
