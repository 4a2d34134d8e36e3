// Package autofill 提供医师排班自动填充核心
package autofill

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/logger"
	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/stats"
)

// AssignedBySystem 求解器写入排班时的操作者标识
const AssignedBySystem = "system"

// Warning 求解警告（数据完整性问题等，不中断求解）
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// 警告码
const (
	WarnCellUnstaffed              = "cell_unstaffed"
	WarnMissingScheduleRequest     = "missing_schedule_request"
	WarnPendingApproval            = "pending_approval"
	WarnMissingRotationPreferences = "missing_rotation_preference_count"
)

// Result 全科模式求解结果
type Result struct {
	Assignments        []*model.Assignment       `json:"assignments"`
	DecisionLog        []*model.DecisionLogEntry `json:"decision_log"`
	Metrics            stats.GridMetrics         `json:"metrics"`
	Warnings           []Warning                 `json:"warnings"`
	RemainingUnstaffed int                       `json:"remaining_unstaffed"`
	Passes             int                       `json:"passes"`
	Duration           time.Duration             `json:"duration"`
}

// PhysicianResult 单医师模式求解结果
type PhysicianResult struct {
	AssignedCount      int                       `json:"assigned_count"`
	RemainingUnstaffed int                       `json:"remaining_unstaffed"`
	Warnings           []Warning                 `json:"warnings"`
	Cfte               CfteSummary               `json:"cfte"`
	Assignments        []*model.Assignment       `json:"assignments"`
	DecisionLog        []*model.DecisionLogEntry `json:"decision_log"`
	Passes             int                       `json:"passes"`
	Duration           time.Duration             `json:"duration"`
}

// Solver 多轮求解器
// 每轮按确定顺序扫描未排格子；只要某轮有新排入就继续下一轮
// （排入会改变相邻格子的连续/间隔资格），直到零排入或达到轮数上限
type Solver struct {
	engine *Engine
	logger *logger.AutoFillLogger
}

// NewSolver 创建多轮求解器
func NewSolver(engine *Engine) *Solver {
	return &Solver{
		engine: engine,
		logger: logger.NewAutoFillLogger(),
	}
}

// validate 入口校验：日历必须为草稿且配置有效，否则整体拒绝
func (s *Solver) validate(grid *Context) error {
	if grid.Calendar == nil {
		return errors.New(errors.CodeNotFound, "主日历不存在")
	}
	if !grid.Calendar.IsDraft() {
		return errors.New(errors.CodeCalendarNotDraft, "仅草稿状态的日历可自动排班")
	}
	if grid.Config == nil {
		return errors.New(errors.CodeConfigMissing, "财年缺少自动排班配置")
	}
	if err := grid.Config.Validate(); err != nil {
		return errors.Wrap(err, errors.CodeInvalidWeights, "自动排班配置无效")
	}
	return nil
}

// cell 待排格子
type cell struct {
	week     *model.Week
	rotation *model.Rotation
}

// unfilledCells 按确定顺序（周数升序，轮转排序值升序）收集未排格子
func (s *Solver) unfilledCells(grid *Context) []cell {
	var cells []cell
	for _, w := range grid.Weeks {
		for _, r := range grid.Rotations {
			if a := grid.AssignmentAt(w.ID, r.ID); a == nil || !a.IsFilled() {
				cells = append(cells, cell{week: w, rotation: r})
			}
		}
	}
	return cells
}

// candidate 某格子的候选评估结果
type candidate struct {
	physician *model.Physician
	score     float64
	breakdown model.ScoreBreakdown
}

// pickBest 选择得分最高的候选人
// 平分时先比本财年已排周数（少者优先），再比医师ID保证完全确定
func pickBest(grid *Context, candidates []candidate) candidate {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		ci := grid.AssignedWeekCount(candidates[i].physician.ID)
		cj := grid.AssignedWeekCount(candidates[j].physician.ID)
		if ci != cj {
			return ci < cj
		}
		return candidates[i].physician.ID.String() < candidates[j].physician.ID.String()
	})
	return candidates[0]
}

// SolveFullDepartment 全科模式：遍历整个草稿网格的未排格子
// 无法排满不是错误：以警告与 RemainingUnstaffed 报告部分解
func (s *Solver) SolveFullDepartment(ctx context.Context, grid *Context) (*Result, error) {
	if err := s.validate(grid); err != nil {
		return nil, err
	}

	startTime := time.Now()
	result := &Result{
		Assignments: make([]*model.Assignment, 0),
		DecisionLog: make([]*model.DecisionLogEntry, 0),
		Warnings:    make([]Warning, 0),
	}

	active := grid.ActivePhysicians()
	s.logger.StartRun(grid.Calendar.ID.String(), "full_department", len(active), len(s.unfilledCells(grid)))

	maxPasses := grid.Config.MaxPasses
	for pass := 1; pass <= maxPasses; pass++ {
		filledThisPass := 0

		for _, c := range s.unfilledCells(grid) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			var eligible []*model.Physician
			for _, p := range active {
				if ok, _ := CheckEligibility(grid, p, c.week, c.rotation, ModeSolver); ok {
					eligible = append(eligible, p)
				}
			}
			if len(eligible) == 0 {
				continue
			}

			candidates := make([]candidate, 0, len(eligible))
			for _, p := range eligible {
				score, breakdown := s.engine.Score(grid, p, c.week, c.rotation, eligible, ScoreOptions{})
				candidates = append(candidates, candidate{physician: p, score: score, breakdown: breakdown})
			}

			best := pickBest(grid, candidates)
			assignment, entry := s.commit(grid, c, best, len(candidates), pass)
			result.Assignments = append(result.Assignments, assignment)
			result.DecisionLog = append(result.DecisionLog, entry)
			filledThisPass++
		}

		result.Passes = pass
		s.logger.PassComplete(grid.Calendar.ID.String(), pass, filledThisPass)
		if filledThisPass == 0 {
			break
		}
	}

	// 终态：剩余未排格子作为警告报告
	remaining := s.unfilledCells(grid)
	result.RemainingUnstaffed = len(remaining)
	for _, c := range remaining {
		s.logger.CellUnfilled(c.week.WeekNumber, c.rotation.Abbreviation)
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarnCellUnstaffed,
			Message: fmt.Sprintf("第%d周 %s 无合格候选医师", c.week.WeekNumber, c.rotation.Name),
		})
	}
	result.Warnings = append(result.Warnings, s.dataWarnings(grid, active)...)

	result.Metrics = s.buildMetrics(grid, active, result.DecisionLog)
	result.Duration = time.Since(startTime)
	s.logger.RunComplete(grid.Calendar.ID.String(), result.Duration, len(result.Assignments), result.RemainingUnstaffed, result.Passes)

	return result, nil
}

// SolvePhysician 单医师模式
// replaceExisting 时先清除该医师自己的自动排班（手工排班与他人格子不动），
// 再将遍历限制在该医师合格且未排的格子上
func (s *Solver) SolvePhysician(ctx context.Context, grid *Context, physicianID uuid.UUID, replaceExisting bool) (*PhysicianResult, error) {
	if err := s.validate(grid); err != nil {
		return nil, err
	}

	physician := grid.GetPhysician(physicianID)
	if physician == nil {
		return nil, errors.New(errors.CodeNotFound, "医师不存在")
	}

	startTime := time.Now()
	result := &PhysicianResult{
		Assignments: make([]*model.Assignment, 0),
		DecisionLog: make([]*model.DecisionLogEntry, 0),
		Warnings:    make([]Warning, 0),
	}

	if replaceExisting {
		grid.RemoveAutoFilledFor(physicianID)
	}

	cohort := grid.ActivePhysicians()
	s.logger.StartRun(grid.Calendar.ID.String(), "single_physician", 1, len(s.unfilledCells(grid)))

	maxPasses := grid.Config.MaxPasses
	for pass := 1; pass <= maxPasses; pass++ {
		filledThisPass := 0

		for _, c := range s.unfilledCells(grid) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			if ok, _ := CheckEligibility(grid, physician, c.week, c.rotation, ModeSolver); !ok {
				continue
			}

			// 已达cFTE目标时不再追加排班
			summary := ComputeCfte(grid, physicianID)
			if summary.Headroom != nil && *summary.Headroom < c.rotation.CftePerWeek {
				continue
			}

			score, breakdown := s.engine.Score(grid, physician, c.week, c.rotation, cohort, ScoreOptions{PhysicianMode: true})
			assignment, entry := s.commit(grid, c, candidate{physician: physician, score: score, breakdown: breakdown}, 1, pass)
			result.Assignments = append(result.Assignments, assignment)
			result.DecisionLog = append(result.DecisionLog, entry)
			filledThisPass++
		}

		result.Passes = pass
		s.logger.PassComplete(grid.Calendar.ID.String(), pass, filledThisPass)
		if filledThisPass == 0 {
			break
		}
	}

	result.AssignedCount = len(result.Assignments)
	for _, c := range s.unfilledCells(grid) {
		if ok, _ := CheckEligibility(grid, physician, c.week, c.rotation, ModeSolver); ok {
			result.RemainingUnstaffed++
		}
	}

	result.Warnings = append(result.Warnings, s.dataWarnings(grid, []*model.Physician{physician})...)
	result.Cfte = ComputeCfte(grid, physicianID)
	result.Duration = time.Since(startTime)
	s.logger.RunComplete(grid.Calendar.ID.String(), result.Duration, result.AssignedCount, result.RemainingUnstaffed, result.Passes)

	return result, nil
}

// commit 写入排班与对应的决策日志条目
// 手工撤销会在格子留下 physician 为空的行，先移除再写入，
// 保证每个 (日历, 周, 轮转) 至多一条排班
func (s *Solver) commit(grid *Context, c cell, best candidate, alternatives, pass int) (*model.Assignment, *model.DecisionLogEntry) {
	now := time.Now()
	physID := best.physician.ID
	if existing := grid.AssignmentAt(c.week.ID, c.rotation.ID); existing != nil && !existing.IsFilled() {
		grid.RemoveAssignment(existing.ID)
	}
	assignment := &model.Assignment{
		BaseModel:        model.NewBaseModel(),
		MasterCalendarID: grid.Calendar.ID,
		WeekID:           c.week.ID,
		RotationID:       c.rotation.ID,
		PhysicianID:      &physID,
		IsAutoFilled:     true,
		AssignedBy:       AssignedBySystem,
		AssignedAt:       now,
	}
	grid.AddAssignment(assignment)

	entry := &model.DecisionLogEntry{
		ID:                     uuid.New(),
		MasterCalendarID:       grid.Calendar.ID,
		WeekID:                 c.week.ID,
		RotationID:             c.rotation.ID,
		PhysicianID:            physID,
		Score:                  best.score,
		Breakdown:              best.breakdown,
		AlternativesConsidered: alternatives,
		PassNumber:             pass,
		CreatedAt:              now,
	}
	return assignment, entry
}

// dataWarnings 汇总数据完整性警告（跳过候选/格子后继续求解，聚合上报）
func (s *Solver) dataWarnings(grid *Context, physicians []*model.Physician) []Warning {
	var warnings []Warning
	for _, p := range physicians {
		if !grid.HasScheduleRequest(p.ID) {
			warnings = append(warnings, Warning{
				Code:    WarnMissingScheduleRequest,
				Message: fmt.Sprintf("医师 %s 未提交可用性申请", p.Name),
			})
		}
		if pending := grid.PendingRotationPreferenceCount(p.ID); pending > 0 {
			warnings = append(warnings, Warning{
				Code:    WarnPendingApproval,
				Message: fmt.Sprintf("医师 %s 有 %d 条轮转偏好待管理员审批", p.Name, pending),
				Count:   pending,
			})
		}
		if missing := grid.MissingRotationPreferenceCount(p.ID); missing > 0 {
			warnings = append(warnings, Warning{
				Code:    WarnMissingRotationPreferences,
				Message: fmt.Sprintf("医师 %s 有 %d 个轮转未配置偏好", p.Name, missing),
				Count:   missing,
			})
		}
	}
	return warnings
}

// buildMetrics 从最终网格状态计算聚合指标
func (s *Solver) buildMetrics(grid *Context, physicians []*model.Physician, entries []*model.DecisionLogEntry) stats.GridMetrics {
	workloads := make([]stats.PhysicianWorkload, 0, len(physicians))
	for _, p := range physicians {
		w := stats.PhysicianWorkload{
			PhysicianID:   p.ID.String(),
			AssignedWeeks: grid.AssignedWeekCount(p.ID),
			HolidayWeeks:  grid.HolidayAssignmentCount(p.ID),
			TotalCfte:     ComputeCfte(grid, p.ID).TotalCfte,
		}
		for _, a := range grid.PhysicianAssignments(p.ID) {
			w.FilledWeekCount++
			if availability, _ := grid.WeekAvailability(p.ID, a.WeekID); availability == model.AvailabilityGreen {
				w.GreenWeekCount++
			}
		}
		workloads = append(workloads, w)
	}

	totalCells := len(grid.Weeks) * len(grid.Rotations)
	filledCells := 0
	for _, w := range grid.Weeks {
		for _, r := range grid.Rotations {
			if a := grid.AssignmentAt(w.ID, r.ID); a != nil && a.IsFilled() {
				filledCells++
			}
		}
	}

	averageScore := 0.0
	if len(entries) > 0 {
		for _, e := range entries {
			averageScore += e.Score
		}
		averageScore /= float64(len(entries))
	}

	return stats.Analyze(workloads, totalCells, filledCells, averageScore)
}
