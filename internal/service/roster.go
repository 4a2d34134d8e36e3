package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/internal/repository"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/model"
)

// RosterService 基础数据管理：财年、周、医师、轮转、偏好、cFTE目标
type RosterService struct {
	repos *repos
}

// fiscalYearTransitions 财年状态机：只允许向前推进，published可归档
var fiscalYearTransitions = map[model.FiscalYearStatus][]model.FiscalYearStatus{
	model.FiscalYearSetup:      {model.FiscalYearCollecting},
	model.FiscalYearCollecting: {model.FiscalYearBuilding},
	model.FiscalYearBuilding:   {model.FiscalYearCollecting, model.FiscalYearPublished},
	model.FiscalYearPublished:  {model.FiscalYearArchived},
}

// CreateFiscalYear 创建财年及周列表
// weekCount 从财年起始日期按7天切分，每周的节假日留空由管理员后续维护
func (s *RosterService) CreateFiscalYear(ctx context.Context, label, startDate string, weekCount int) (*model.FiscalYear, error) {
	if label == "" {
		return nil, errors.New(errors.CodeInvalidInput, "财年名称不能为空")
	}
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "财年起始日期格式应为YYYY-MM-DD")
	}
	if weekCount < 1 || weekCount > 53 {
		return nil, errors.New(errors.CodeInvalidInput, "财年周数应在1到53之间")
	}

	fy := &model.FiscalYear{
		BaseModel: model.NewBaseModel(),
		Label:     label,
		StartDate: startDate,
		EndDate:   start.AddDate(0, 0, weekCount*7-1).Format("2006-01-02"),
		Status:    model.FiscalYearSetup,
	}

	weeks := make([]*model.Week, 0, weekCount)
	for i := 0; i < weekCount; i++ {
		weekStart := start.AddDate(0, 0, i*7)
		weeks = append(weeks, &model.Week{
			ID:           uuid.New(),
			FiscalYearID: fy.ID,
			WeekNumber:   i + 1,
			StartDate:    weekStart.Format("2006-01-02"),
			EndDate:      weekStart.AddDate(0, 0, 6).Format("2006-01-02"),
		})
	}

	if err := s.repos.fiscalYears.Create(ctx, fy); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "创建财年失败")
	}
	if err := s.repos.fiscalYears.CreateWeeks(ctx, weeks); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "创建周列表失败")
	}
	return fy, nil
}

// GetFiscalYear 获取财年
func (s *RosterService) GetFiscalYear(ctx context.Context, id uuid.UUID) (*model.FiscalYear, error) {
	fy, err := s.repos.fiscalYears.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载财年失败")
	}
	if fy == nil {
		return nil, errors.New(errors.CodeNotFound, "财年不存在")
	}
	return fy, nil
}

// ListFiscalYears 列出财年
func (s *RosterService) ListFiscalYears(ctx context.Context, filter repository.ListFilter) ([]*model.FiscalYear, error) {
	return s.repos.fiscalYears.List(ctx, filter)
}

// GetWeeks 列出财年的周
func (s *RosterService) GetWeeks(ctx context.Context, fiscalYearID uuid.UUID) ([]*model.Week, error) {
	return s.repos.fiscalYears.GetWeeks(ctx, fiscalYearID)
}

// AdvanceFiscalYear 推进财年状态
// 进入building时自动创建第一个草稿日历（如无草稿）
func (s *RosterService) AdvanceFiscalYear(ctx context.Context, id uuid.UUID, target model.FiscalYearStatus) (*model.FiscalYear, error) {
	fy, err := s.GetFiscalYear(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range fiscalYearTransitions[fy.Status] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, errors.New(errors.CodeFiscalYearLocked, "财年状态不允许此变更").
			WithField("from", string(fy.Status)).
			WithField("to", string(target))
	}

	if err := s.repos.fiscalYears.UpdateStatus(ctx, id, target); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "更新财年状态失败")
	}
	fy.Status = target

	if target == model.FiscalYearBuilding {
		if _, err := s.ensureDraftCalendar(ctx, fy.ID); err != nil {
			return nil, err
		}
	}
	return fy, nil
}

// ensureDraftCalendar 确保财年有草稿日历，没有则创建下一个版本
func (s *RosterService) ensureDraftCalendar(ctx context.Context, fiscalYearID uuid.UUID) (*model.MasterCalendar, error) {
	draft, err := s.repos.calendars.GetDraft(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载日历失败")
	}
	if draft != nil {
		return draft, nil
	}

	versions, err := s.repos.calendars.ListVersions(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载日历版本失败")
	}

	cal := &model.MasterCalendar{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: fiscalYearID,
		Version:      len(versions) + 1,
		Status:       model.CalendarDraft,
	}
	if err := s.repos.calendars.Create(ctx, cal); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "创建草稿日历失败")
	}
	return cal, nil
}

// CreateDraftCalendar 为财年创建草稿日历（已有草稿时直接返回既有草稿）
func (s *RosterService) CreateDraftCalendar(ctx context.Context, fiscalYearID uuid.UUID) (*model.MasterCalendar, error) {
	if _, err := s.GetFiscalYear(ctx, fiscalYearID); err != nil {
		return nil, err
	}
	return s.ensureDraftCalendar(ctx, fiscalYearID)
}

// CreatePhysician 创建医师
func (s *RosterService) CreatePhysician(ctx context.Context, p *model.Physician) error {
	if p.Name == "" {
		return errors.New(errors.CodeInvalidInput, "医师姓名不能为空")
	}
	if p.ID == uuid.Nil {
		p.BaseModel = model.NewBaseModel()
	}
	if err := s.repos.physicians.Create(ctx, p); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "创建医师失败")
	}
	return nil
}

// UpdatePhysician 更新医师
func (s *RosterService) UpdatePhysician(ctx context.Context, p *model.Physician) error {
	existing, err := s.repos.physicians.GetByID(ctx, p.ID)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "加载医师失败")
	}
	if existing == nil {
		return errors.New(errors.CodeNotFound, "医师不存在")
	}
	if err := s.repos.physicians.Update(ctx, p); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "更新医师失败")
	}
	return nil
}

// ListPhysicians 列出医师
func (s *RosterService) ListPhysicians(ctx context.Context, filter repository.ListFilter) ([]*model.Physician, error) {
	return s.repos.physicians.List(ctx, filter)
}

// CreateRotation 创建轮转
func (s *RosterService) CreateRotation(ctx context.Context, rot *model.Rotation) error {
	if rot.Name == "" {
		return errors.New(errors.CodeInvalidInput, "轮转名称不能为空")
	}
	if rot.CftePerWeek < 0 {
		return errors.New(errors.CodeInvalidInput, "轮转每周cFTE不能为负")
	}
	if rot.ID == uuid.Nil {
		rot.BaseModel = model.NewBaseModel()
	}
	if err := s.repos.rotations.Create(ctx, rot); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "创建轮转失败")
	}
	return nil
}

// UpdateRotation 更新轮转
func (s *RosterService) UpdateRotation(ctx context.Context, rot *model.Rotation) error {
	if err := s.repos.rotations.Update(ctx, rot); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "更新轮转失败")
	}
	return nil
}

// ListRotations 列出财年轮转
func (s *RosterService) ListRotations(ctx context.Context, fiscalYearID uuid.UUID) ([]*model.Rotation, error) {
	return s.repos.rotations.ListByFiscalYear(ctx, fiscalYearID)
}

// UpsertRotationRule 设置医师级别的连续周数覆盖规则
func (s *RosterService) UpsertRotationRule(ctx context.Context, rule *model.PhysicianRotationRule) error {
	if rule.MaxConsecutiveWeeks < 1 {
		return errors.New(errors.CodeInvalidInput, "连续周数上限至少为1")
	}
	if err := s.repos.rotations.UpsertRule(ctx, rule); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存轮转规则失败")
	}
	return nil
}

// UpsertCfteTarget 设置医师的年度cFTE目标
func (s *RosterService) UpsertCfteTarget(ctx context.Context, target *model.PhysicianCfteTarget) error {
	if target.TargetCfte < 0 {
		return errors.New(errors.CodeInvalidInput, "cFTE目标不能为负")
	}
	if err := s.repos.rotations.UpsertCfteTarget(ctx, target); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存cFTE目标失败")
	}
	return nil
}

// SubmitScheduleRequest 提交可用性申请（含周偏好）
// 仅在财年收集阶段允许
func (s *RosterService) SubmitScheduleRequest(ctx context.Context, req *model.ScheduleRequest) error {
	fy, err := s.GetFiscalYear(ctx, req.FiscalYearID)
	if err != nil {
		return err
	}
	if !fy.AllowsPreferenceEdits() {
		return errors.New(errors.CodeFiscalYearLocked, "财年当前状态不允许提交偏好")
	}

	if req.ID == uuid.Nil {
		req.BaseModel = model.NewBaseModel()
	}
	if req.Status == "" {
		req.Status = model.ApprovalPending
	}
	if err := s.repos.preferences.CreateScheduleRequest(ctx, req); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "提交可用性申请失败")
	}
	return nil
}

// SetWeekPreference 设置申请中某周的可用性
func (s *RosterService) SetWeekPreference(ctx context.Context, requestID uuid.UUID, pref *model.WeekPreference) error {
	if !pref.Availability.IsValid() {
		return errors.New(errors.CodeInvalidInput, "无效的可用性取值")
	}
	if err := s.repos.preferences.SetWeekPreference(ctx, requestID, pref); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存周偏好失败")
	}
	return nil
}

// ApproveScheduleRequest 审批可用性申请
func (s *RosterService) ApproveScheduleRequest(ctx context.Context, requestID uuid.UUID) error {
	if err := s.repos.preferences.UpdateRequestStatus(ctx, requestID, model.ApprovalApproved); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "审批可用性申请失败")
	}
	return nil
}

// UpsertRotationPreference 保存医师的轮转偏好
func (s *RosterService) UpsertRotationPreference(ctx context.Context, pref *model.RotationPreference) error {
	fy, err := s.GetFiscalYear(ctx, pref.FiscalYearID)
	if err != nil {
		return err
	}
	if !fy.AllowsPreferenceEdits() {
		return errors.New(errors.CodeFiscalYearLocked, "财年当前状态不允许修改偏好")
	}
	if !pref.Validate() {
		return errors.New(errors.CodeInvalidInput, "轮转偏好不完整：preferred需要排名，avoid需要理由")
	}
	if err := s.repos.preferences.UpsertRotationPreference(ctx, pref); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存轮转偏好失败")
	}
	return nil
}

// ApproveRotationPreference 审批轮转偏好
func (s *RosterService) ApproveRotationPreference(ctx context.Context, id uuid.UUID) error {
	if err := s.repos.preferences.ApproveRotationPreference(ctx, id); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "审批轮转偏好失败")
	}
	return nil
}

// ListAssignments 列出日历的排班格子
func (s *RosterService) ListAssignments(ctx context.Context, calendarID uuid.UUID) ([]*model.Assignment, error) {
	return s.repos.calendars.ListAssignments(ctx, calendarID)
}
