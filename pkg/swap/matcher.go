// Package swap 提供换班候选匹配
// 只读模块：评估谁能接手某个排班格子，不修改网格，由管理员线下完成实际换班
package swap

import (
	"sort"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/autofill"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/model"
)

// Matcher 换班候选匹配器
// 资格判定复用自动排班的换班模式：候选人必须有可用性申请
// 且对目标轮转有偏好记录（比求解器模式更严格）
type Matcher struct {
	engine *autofill.Engine
}

// NewMatcher 创建换班候选匹配器
func NewMatcher(engine *autofill.Engine) *Matcher {
	return &Matcher{engine: engine}
}

// Suggestion 换班候选建议
// WorksPrecedingWeek/WorksFollowingWeek 标记候选人在相邻周是否在岗，
// 供管理员判断交接成本
type Suggestion struct {
	Physician          *model.Physician `json:"physician"`
	Score              float64          `json:"score"`
	Rationale          string           `json:"rationale"`
	Rank               int              `json:"rank"`
	WorksPrecedingWeek bool             `json:"works_preceding_week"`
	WorksFollowingWeek bool             `json:"works_following_week"`
}

// Options 匹配选项
type Options struct {
	MaxSuggestions    int         // 最大建议数量
	ExcludePhysicians []uuid.UUID // 额外排除的医师
	MinScore          float64     // 最低得分
}

// DefaultOptions 返回默认选项
func DefaultOptions() *Options {
	return &Options{
		MaxSuggestions: 5,
		MinScore:       0,
	}
}

// Result 匹配结果
// ExcludedSummary 以不合格原因码为键统计被排除的候选人数，
// 供前端解释"为什么没有更多人选"
type Result struct {
	Suggestions         []Suggestion   `json:"suggestions"`
	ExcludedSummary     map[string]int `json:"excluded_summary"`
	TotalCandidateCount int            `json:"total_candidate_count"`
}

// FindCandidates 为指定排班格子寻找能接手的候选医师
func (m *Matcher) FindCandidates(grid *autofill.Context, assignment *model.Assignment, options *Options) (*Result, error) {
	if options == nil {
		options = DefaultOptions()
	}

	week := grid.GetWeek(assignment.WeekID)
	rotation := grid.GetRotation(assignment.RotationID)
	if week == nil || rotation == nil {
		return nil, errors.New(errors.CodeNotFound, "排班格子引用的周或轮转不存在")
	}

	excludeSet := make(map[uuid.UUID]bool)
	if assignment.PhysicianID != nil {
		excludeSet[*assignment.PhysicianID] = true
	}
	for _, id := range options.ExcludePhysicians {
		excludeSet[id] = true
	}

	result := &Result{
		Suggestions:     make([]Suggestion, 0),
		ExcludedSummary: make(map[string]int),
	}

	for _, candidate := range grid.ActivePhysicians() {
		if excludeSet[candidate.ID] {
			continue
		}
		result.TotalCandidateCount++

		ok, reason := autofill.CheckEligibility(grid, candidate, week, rotation, autofill.ModeTrade)
		if !ok {
			result.ExcludedSummary[string(reason)]++
			continue
		}

		precedes := worksInWeek(grid, candidate.ID, week.WeekNumber-1)
		follows := worksInWeek(grid, candidate.ID, week.WeekNumber+1)
		score := m.score(grid, candidate, week, rotation, precedes || follows)
		if score < options.MinScore {
			continue
		}

		result.Suggestions = append(result.Suggestions, Suggestion{
			Physician:          candidate,
			Score:              score,
			Rationale:          m.rationale(grid, candidate, week, rotation),
			WorksPrecedingWeek: precedes,
			WorksFollowingWeek: follows,
		})
	}

	sort.Slice(result.Suggestions, func(i, j int) bool {
		if result.Suggestions[i].Score != result.Suggestions[j].Score {
			return result.Suggestions[i].Score > result.Suggestions[j].Score
		}
		return result.Suggestions[i].Physician.ID.String() < result.Suggestions[j].Physician.ID.String()
	})

	if len(result.Suggestions) > options.MaxSuggestions {
		result.Suggestions = result.Suggestions[:options.MaxSuggestions]
	}
	for i := range result.Suggestions {
		result.Suggestions[i].Rank = i + 1
	}

	return result, nil
}

// score 候选人得分：偏好组件为基础，相邻周已在岗的接手加分
func (m *Matcher) score(grid *autofill.Context, candidate *model.Physician, week *model.Week, rotation *model.Rotation, adjacent bool) float64 {
	score := m.engine.PreferenceComponent(grid, candidate, week, rotation)

	// 连续性加分：相邻周在岗（不限轮转）减少人员切换；
	// 同轮转接手会超出连续上限的已在资格阶段被排除
	if adjacent {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

// extendsStint 检查接手后是否与候选人既有的同轮转周相邻
func (m *Matcher) extendsStint(grid *autofill.Context, candidate *model.Physician, week *model.Week, rotation *model.Rotation) bool {
	return grid.ConsecutiveRunWith(candidate.ID, rotation.ID, week.WeekNumber) > 1
}

// worksInWeek 检查医师在指定周序号是否已有任何排班
func worksInWeek(grid *autofill.Context, physicianID uuid.UUID, weekNumber int) bool {
	week := grid.WeekByNumber(weekNumber)
	if week == nil {
		return false
	}
	return grid.PhysicianAssignmentInWeek(physicianID, week.ID) != nil
}

// rationale 生成建议理由
func (m *Matcher) rationale(grid *autofill.Context, candidate *model.Physician, week *model.Week, rotation *model.Rotation) string {
	if pref := grid.RotationPreferenceFor(candidate.ID, rotation.ID); pref != nil && pref.Type == model.PreferencePreferred {
		return "该医师将此轮转列为首选"
	}
	if m.extendsStint(grid, candidate, week, rotation) {
		return "可延续既有任期，减少交接"
	}
	if worksInWeek(grid, candidate.ID, week.WeekNumber-1) || worksInWeek(grid, candidate.ID, week.WeekNumber+1) {
		return "相邻周已在岗，交接成本低"
	}
	if availability, found := grid.WeekAvailability(candidate.ID, week.ID); found && availability == model.AvailabilityGreen {
		return "该周明确标记为可排"
	}
	return "无约束冲突，可以接手"
}

// BestCandidate 返回得分最高的单个候选（无合格候选时返回nil）
func (m *Matcher) BestCandidate(grid *autofill.Context, assignment *model.Assignment) (*Suggestion, error) {
	result, err := m.FindCandidates(grid, assignment, &Options{MaxSuggestions: 1})
	if err != nil {
		return nil, err
	}
	if len(result.Suggestions) == 0 {
		return nil, nil
	}
	return &result.Suggestions[0], nil
}
