package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/yipai/yipai/internal/metrics"
	"github.com/yipai/yipai/pkg/autofill"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/swap"
)

// SwapService 换班候选建议服务
// 只读：给出能接手某个格子的候选医师，不修改任何排班
type SwapService struct {
	repos *repos
}

// SuggestCandidates 为指定排班格子寻找换班候选
// options 为nil时使用默认选项
func (s *SwapService) SuggestCandidates(ctx context.Context, assignmentID uuid.UUID, options *swap.Options) (*swap.Result, error) {
	assignment, err := s.repos.calendars.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载排班格子失败")
	}
	if assignment == nil {
		return nil, errors.New(errors.CodeNotFound, "排班格子不存在")
	}

	calendar, err := s.repos.calendars.GetByID(ctx, assignment.MasterCalendarID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载日历失败")
	}
	if calendar == nil {
		return nil, errors.New(errors.CodeNotFound, "排班格子所属日历不存在")
	}

	grid, err := s.repos.loadGrid(ctx, calendar.FiscalYearID)
	if err != nil {
		return nil, err
	}
	if grid.Calendar.ID != assignment.MasterCalendarID {
		return nil, errors.New(errors.CodeCalendarNotDraft, "排班格子不属于当前草稿日历")
	}

	matcher := swap.NewMatcher(autofill.NewEngine(swapConfig(grid)))
	result, err := matcher.FindCandidates(grid, assignment, options)
	if err != nil {
		return nil, err
	}

	metrics.RecordSwapLookup(len(result.Suggestions) > 0)
	return result, nil
}

// swapConfig 返回换班匹配用的自动排班配置
// 换班匹配只读，财年没有保存过配置时填入应用默认值并写回网格，
// 使资格检查（最小间隔等）与评分引擎看到同一份配置
func swapConfig(grid *autofill.Context) *model.AutoFillConfig {
	if grid.Config == nil {
		grid.Config = model.DefaultAutoFillConfig(grid.FiscalYear.ID)
	}
	return grid.Config
}
