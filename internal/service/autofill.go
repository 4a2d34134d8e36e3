package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/internal/database"
	"github.com/yipai/yipai/internal/metrics"
	"github.com/yipai/yipai/internal/repository"
	"github.com/yipai/yipai/pkg/autofill"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/model"
)

// AutoFillService 自动排班服务
type AutoFillService struct {
	db    *database.DB
	repos *repos
}

// RunFullDepartment 全科模式：清除既有自动排班后整轮重跑
// 求解结果（排班、决策日志）在单个事务内落库，失败则整体回滚
func (s *AutoFillService) RunFullDepartment(ctx context.Context, fiscalYearID uuid.UUID) (*autofill.Result, error) {
	grid, err := s.repos.loadGrid(ctx, fiscalYearID)
	if err != nil {
		return nil, err
	}
	if err := requireAutoFillAllowed(grid.FiscalYear); err != nil {
		return nil, err
	}
	if grid.Config == nil {
		return nil, errors.New(errors.CodeConfigMissing, "财年缺少自动排班配置")
	}

	// 整轮重跑语义：内存中先移除全部自动排班，手工排班保留
	kept := grid.Assignments[:0]
	for _, a := range grid.Assignments {
		if !a.IsAutoFilled {
			kept = append(kept, a)
		}
	}
	grid.SetAssignments(kept)

	solver := autofill.NewSolver(autofill.NewEngine(grid.Config))
	result, err := solver.SolveFullDepartment(ctx, grid)
	if err != nil {
		metrics.RecordAutoFillRun("full_department", false, 0)
		return nil, errors.FromError(err)
	}

	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		txRepos := newRepos(tx)
		if _, err := txRepos.calendars.DeleteAutoFilled(ctx, grid.Calendar.ID); err != nil {
			return err
		}
		if err := txRepos.decisions.DeleteByCalendar(ctx, grid.Calendar.ID); err != nil {
			return err
		}
		if err := txRepos.calendars.CreateAssignments(ctx, result.Assignments); err != nil {
			return err
		}
		return txRepos.decisions.CreateEntries(ctx, result.DecisionLog)
	})
	if err != nil {
		metrics.RecordAutoFillRun("full_department", false, result.Duration)
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "保存求解结果失败")
	}

	s.recordGridMetrics(grid, result)
	metrics.RecordAutoFillRun("full_department", true, result.Duration)
	return result, nil
}

// RunPhysician 单医师模式
func (s *AutoFillService) RunPhysician(ctx context.Context, fiscalYearID, physicianID uuid.UUID, replaceExisting bool) (*autofill.PhysicianResult, error) {
	grid, err := s.repos.loadGrid(ctx, fiscalYearID)
	if err != nil {
		return nil, err
	}
	if err := requireAutoFillAllowed(grid.FiscalYear); err != nil {
		return nil, err
	}
	if grid.Config == nil {
		return nil, errors.New(errors.CodeConfigMissing, "财年缺少自动排班配置")
	}

	solver := autofill.NewSolver(autofill.NewEngine(grid.Config))
	result, err := solver.SolvePhysician(ctx, grid, physicianID, replaceExisting)
	if err != nil {
		metrics.RecordAutoFillRun("single_physician", false, 0)
		return nil, errors.FromError(err)
	}

	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		txRepos := newRepos(tx)
		if replaceExisting {
			if _, err := txRepos.calendars.DeleteAutoFilledForPhysician(ctx, grid.Calendar.ID, physicianID); err != nil {
				return err
			}
		}
		if err := txRepos.calendars.CreateAssignments(ctx, result.Assignments); err != nil {
			return err
		}
		return txRepos.decisions.CreateEntries(ctx, result.DecisionLog)
	})
	if err != nil {
		metrics.RecordAutoFillRun("single_physician", false, result.Duration)
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "保存求解结果失败")
	}

	metrics.RecordAutoFillRun("single_physician", true, result.Duration)
	return result, nil
}

// ClearResult 清除操作结果
type ClearResult struct {
	RemovedAssignments int64 `json:"removed_assignments"`
}

// ClearAutoFilled 清除财年草稿的全部自动排班与决策日志
// 幂等：没有可清的内容时返回零计数而非错误
func (s *AutoFillService) ClearAutoFilled(ctx context.Context, fiscalYearID uuid.UUID) (*ClearResult, error) {
	calendar, err := s.repos.calendars.GetDraft(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载日历失败")
	}
	if calendar == nil {
		return nil, errors.New(errors.CodeCalendarNotDraft, "财年没有草稿日历")
	}

	result := &ClearResult{}
	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		txRepos := newRepos(tx)
		removed, err := txRepos.calendars.DeleteAutoFilled(ctx, calendar.ID)
		if err != nil {
			return err
		}
		result.RemovedAssignments = removed
		return txRepos.decisions.DeleteByCalendar(ctx, calendar.ID)
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "清除自动排班失败")
	}
	return result, nil
}

// DecisionLogPage 决策日志分页结果
type DecisionLogPage struct {
	Entries []*model.DecisionLogEntry `json:"entries"`
	Total   int                       `json:"total"`
}

// GetDecisionLog 查询财年草稿日历的决策日志
func (s *AutoFillService) GetDecisionLog(ctx context.Context, fiscalYearID uuid.UUID, filter repository.DecisionLogFilter) (*DecisionLogPage, error) {
	calendar, err := s.repos.calendars.GetDraft(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载日历失败")
	}
	if calendar == nil {
		return nil, errors.New(errors.CodeNotFound, "财年没有草稿日历")
	}

	entries, total, err := s.repos.decisions.List(ctx, calendar.ID, filter)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询决策日志失败")
	}
	return &DecisionLogPage{Entries: entries, Total: total}, nil
}

// UpsertConfig 保存财年的自动排班配置
func (s *AutoFillService) UpsertConfig(ctx context.Context, cfg *model.AutoFillConfig) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, errors.CodeInvalidWeights, "自动排班配置无效")
	}
	if err := s.repos.configs.Upsert(ctx, cfg); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存自动排班配置失败")
	}
	return nil
}

// GetConfig 获取财年的自动排班配置（无则返回默认值，不落库）
func (s *AutoFillService) GetConfig(ctx context.Context, fiscalYearID uuid.UUID) (*model.AutoFillConfig, error) {
	cfg, err := s.repos.configs.GetByFiscalYear(ctx, fiscalYearID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询自动排班配置失败")
	}
	if cfg == nil {
		return model.DefaultAutoFillConfig(fiscalYearID), nil
	}
	return cfg, nil
}

// AssignManual 手工排班（覆盖格子，physicianID 为空表示撤销）
func (s *AutoFillService) AssignManual(ctx context.Context, calendarID, weekID, rotationID uuid.UUID, physicianID *uuid.UUID, assignedBy string) error {
	calendar, err := s.repos.calendars.GetByID(ctx, calendarID)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "加载日历失败")
	}
	if calendar == nil {
		return errors.New(errors.CodeNotFound, "日历不存在")
	}
	if !calendar.IsDraft() {
		return errors.New(errors.CodeCalendarNotDraft, "仅草稿状态的日历可修改排班")
	}

	// 同一医师同周唯一的不变式在写入前检查
	if physicianID != nil {
		assignments, err := s.repos.calendars.ListAssignments(ctx, calendarID)
		if err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "加载排班失败")
		}
		for _, a := range assignments {
			if a.WeekID == weekID && a.RotationID != rotationID &&
				a.PhysicianID != nil && *a.PhysicianID == *physicianID {
				return errors.New(errors.CodeScheduleConflict, "该医师本周已在其他轮转上")
			}
		}
	}

	assignment := &model.Assignment{
		BaseModel:        model.NewBaseModel(),
		MasterCalendarID: calendarID,
		WeekID:           weekID,
		RotationID:       rotationID,
		PhysicianID:      physicianID,
		IsAutoFilled:     false,
		AssignedBy:       assignedBy,
		AssignedAt:       time.Now(),
	}
	if err := s.repos.calendars.UpsertAssignment(ctx, assignment); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存排班失败")
	}
	return nil
}

// PublishCalendar 发布日历并冻结财年
func (s *AutoFillService) PublishCalendar(ctx context.Context, calendarID uuid.UUID) error {
	calendar, err := s.repos.calendars.GetByID(ctx, calendarID)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "加载日历失败")
	}
	if calendar == nil {
		return errors.New(errors.CodeNotFound, "日历不存在")
	}
	if !calendar.IsDraft() {
		return errors.New(errors.CodeCalendarNotDraft, "日历已发布")
	}

	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		txRepos := newRepos(tx)
		if err := txRepos.calendars.Publish(ctx, calendarID); err != nil {
			return err
		}
		return txRepos.fiscalYears.UpdateStatus(ctx, calendar.FiscalYearID, model.FiscalYearPublished)
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "发布日历失败")
	}
	return nil
}

// recordGridMetrics 上报网格质量指标
func (s *AutoFillService) recordGridMetrics(grid *autofill.Context, result *autofill.Result) {
	fillRate := 0.0
	if result.Metrics.TotalCells > 0 {
		fillRate = float64(result.Metrics.FilledCells) / float64(result.Metrics.TotalCells)
	}
	metrics.SetGridMetrics(grid.FiscalYear.Label, fillRate,
		result.Metrics.AverageScore, result.Metrics.HolidayParityScore,
		result.Metrics.UnfilledCells)
}
