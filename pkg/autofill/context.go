// Package autofill 提供医师排班自动填充核心：资格过滤、cFTE台账、评分引擎与多轮求解器
package autofill

import (
	"sort"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

// CellKey 格子键：(周, 轮转)
type CellKey struct {
	WeekID     uuid.UUID
	RotationID uuid.UUID
}

// Context 排班上下文：一次求解所需的全部快照数据
// 作为显式聚合传入核心，核心不依赖任何全局状态
type Context struct {
	FiscalYear *model.FiscalYear
	Calendar   *model.MasterCalendar
	Weeks      []*model.Week     // 按周数升序
	Rotations  []*model.Rotation // 仅启用的轮转，按 SortOrder 升序
	Physicians []*model.Physician
	Config     *model.AutoFillConfig

	// 偏好与规则
	ScheduleRequests   map[uuid.UUID]*model.ScheduleRequest // physicianID → 申请
	RotationPrefs      []*model.RotationPreference
	RotationRules      []*model.PhysicianRotationRule
	ClinicTypes        []*model.ClinicType
	ClinicAssignments  []*model.PhysicianClinicAssignment
	CfteTargets        map[uuid.UUID]float64 // physicianID → 目标cFTE

	// 当前排班结果
	Assignments []*model.Assignment

	// 索引缓存
	weekByID         map[uuid.UUID]*model.Week
	rotationByID     map[uuid.UUID]*model.Rotation
	physicianByID    map[uuid.UUID]*model.Physician
	weekPrefs        map[uuid.UUID]map[uuid.UUID]model.Availability        // physicianID → weekID → 可用性
	rotPrefs         map[uuid.UUID]map[uuid.UUID]*model.RotationPreference // physicianID → rotationID → 偏好
	ruleByKey        map[[2]uuid.UUID]int                     // (physicianID, rotationID) → 连续周数上限
	assignmentByCell map[CellKey]*model.Assignment
	assignmentsByPhys map[uuid.UUID][]*model.Assignment
}

// NewContext 创建排班上下文并构建索引
func NewContext(fy *model.FiscalYear, calendar *model.MasterCalendar, cfg *model.AutoFillConfig) *Context {
	ctx := &Context{
		FiscalYear:       fy,
		Calendar:         calendar,
		Config:           cfg,
		ScheduleRequests: make(map[uuid.UUID]*model.ScheduleRequest),
		CfteTargets:      make(map[uuid.UUID]float64),
	}
	ctx.rebuildIndexes()
	return ctx
}

// SetWeeks 设置周列表（按周数排序）
func (c *Context) SetWeeks(weeks []*model.Week) {
	c.Weeks = make([]*model.Week, len(weeks))
	copy(c.Weeks, weeks)
	sort.Slice(c.Weeks, func(i, j int) bool {
		return c.Weeks[i].WeekNumber < c.Weeks[j].WeekNumber
	})
	c.weekByID = make(map[uuid.UUID]*model.Week, len(c.Weeks))
	for _, w := range c.Weeks {
		c.weekByID[w.ID] = w
	}
}

// SetRotations 设置轮转列表（仅启用，按排序值排序）
func (c *Context) SetRotations(rotations []*model.Rotation) {
	c.Rotations = c.Rotations[:0]
	for _, r := range rotations {
		if r.IsActive {
			c.Rotations = append(c.Rotations, r)
		}
	}
	sort.Slice(c.Rotations, func(i, j int) bool {
		return c.Rotations[i].SortOrder < c.Rotations[j].SortOrder
	})
	c.rotationByID = make(map[uuid.UUID]*model.Rotation, len(c.Rotations))
	for _, r := range c.Rotations {
		c.rotationByID[r.ID] = r
	}
}

// SetPhysicians 设置医师列表
func (c *Context) SetPhysicians(physicians []*model.Physician) {
	c.Physicians = physicians
	c.physicianByID = make(map[uuid.UUID]*model.Physician, len(physicians))
	for _, p := range physicians {
		c.physicianByID[p.ID] = p
	}
}

// SetScheduleRequests 设置可用性申请（含周偏好）
func (c *Context) SetScheduleRequests(requests []*model.ScheduleRequest) {
	c.ScheduleRequests = make(map[uuid.UUID]*model.ScheduleRequest, len(requests))
	c.weekPrefs = make(map[uuid.UUID]map[uuid.UUID]model.Availability)
	for _, req := range requests {
		c.ScheduleRequests[req.PhysicianID] = req
		prefs := make(map[uuid.UUID]model.Availability, len(req.Preferences))
		for i := range req.Preferences {
			p := &req.Preferences[i]
			prefs[p.WeekID] = p.Availability
		}
		c.weekPrefs[req.PhysicianID] = prefs
	}
}

// SetRotationPreferences 设置轮转偏好
func (c *Context) SetRotationPreferences(prefs []*model.RotationPreference) {
	c.RotationPrefs = prefs
	c.rotPrefs = make(map[uuid.UUID]map[uuid.UUID]*model.RotationPreference)
	for _, p := range prefs {
		m, ok := c.rotPrefs[p.PhysicianID]
		if !ok {
			m = make(map[uuid.UUID]*model.RotationPreference)
			c.rotPrefs[p.PhysicianID] = m
		}
		m[p.RotationID] = p
	}
}

// SetRotationRules 设置医师级别连续周数规则
func (c *Context) SetRotationRules(rules []*model.PhysicianRotationRule) {
	c.RotationRules = rules
	c.ruleByKey = make(map[[2]uuid.UUID]int, len(rules))
	for _, r := range rules {
		c.ruleByKey[[2]uuid.UUID{r.PhysicianID, r.RotationID}] = r.MaxConsecutiveWeeks
	}
}

// SetClinicData 设置门诊类型与医师门诊安排
func (c *Context) SetClinicData(types []*model.ClinicType, assignments []*model.PhysicianClinicAssignment) {
	c.ClinicTypes = types
	c.ClinicAssignments = assignments
}

// SetCfteTargets 设置医师cFTE目标
func (c *Context) SetCfteTargets(targets []*model.PhysicianCfteTarget) {
	c.CfteTargets = make(map[uuid.UUID]float64, len(targets))
	for _, t := range targets {
		c.CfteTargets[t.PhysicianID] = t.TargetCfte
	}
}

// SetAssignments 设置当前排班结果
func (c *Context) SetAssignments(assignments []*model.Assignment) {
	c.Assignments = assignments
	c.rebuildIndexes()
}

// AddAssignment 添加一条排班并更新索引
func (c *Context) AddAssignment(a *model.Assignment) {
	c.Assignments = append(c.Assignments, a)
	c.assignmentByCell[CellKey{a.WeekID, a.RotationID}] = a
	if a.PhysicianID != nil {
		c.assignmentsByPhys[*a.PhysicianID] = append(c.assignmentsByPhys[*a.PhysicianID], a)
	}
}

// RemoveAssignment 移除一条排班并重建索引
func (c *Context) RemoveAssignment(id uuid.UUID) {
	for i, a := range c.Assignments {
		if a.ID == id {
			c.Assignments = append(c.Assignments[:i], c.Assignments[i+1:]...)
			break
		}
	}
	c.rebuildIndexes()
}

// RemoveAutoFilledFor 移除某医师的全部自动排班（手工排班保留）
// 返回被移除的排班记录
func (c *Context) RemoveAutoFilledFor(physicianID uuid.UUID) []*model.Assignment {
	var removed []*model.Assignment
	kept := c.Assignments[:0]
	for _, a := range c.Assignments {
		if a.IsAutoFilled && a.PhysicianID != nil && *a.PhysicianID == physicianID {
			removed = append(removed, a)
			continue
		}
		kept = append(kept, a)
	}
	c.Assignments = kept
	c.rebuildIndexes()
	return removed
}

// rebuildIndexes 重建排班索引
func (c *Context) rebuildIndexes() {
	c.assignmentByCell = make(map[CellKey]*model.Assignment, len(c.Assignments))
	c.assignmentsByPhys = make(map[uuid.UUID][]*model.Assignment)
	for _, a := range c.Assignments {
		c.assignmentByCell[CellKey{a.WeekID, a.RotationID}] = a
		if a.PhysicianID != nil {
			c.assignmentsByPhys[*a.PhysicianID] = append(c.assignmentsByPhys[*a.PhysicianID], a)
		}
	}
}

// GetWeek 获取周
func (c *Context) GetWeek(id uuid.UUID) *model.Week {
	return c.weekByID[id]
}

// GetRotation 获取轮转
func (c *Context) GetRotation(id uuid.UUID) *model.Rotation {
	return c.rotationByID[id]
}

// GetPhysician 获取医师
func (c *Context) GetPhysician(id uuid.UUID) *model.Physician {
	return c.physicianByID[id]
}

// WeekByNumber 按周数获取周
func (c *Context) WeekByNumber(number int) *model.Week {
	for _, w := range c.Weeks {
		if w.WeekNumber == number {
			return w
		}
	}
	return nil
}

// AssignmentAt 获取指定格子的排班（无则返回nil）
func (c *Context) AssignmentAt(weekID, rotationID uuid.UUID) *model.Assignment {
	return c.assignmentByCell[CellKey{weekID, rotationID}]
}

// PhysicianAssignmentInWeek 获取医师在指定周的排班（无则返回nil）
func (c *Context) PhysicianAssignmentInWeek(physicianID, weekID uuid.UUID) *model.Assignment {
	for _, a := range c.assignmentsByPhys[physicianID] {
		if a.WeekID == weekID {
			return a
		}
	}
	return nil
}

// PhysicianAssignments 获取医师的全部排班
func (c *Context) PhysicianAssignments(physicianID uuid.UUID) []*model.Assignment {
	return c.assignmentsByPhys[physicianID]
}

// HasScheduleRequest 检查医师是否提交了可用性申请
func (c *Context) HasScheduleRequest(physicianID uuid.UUID) bool {
	_, ok := c.ScheduleRequests[physicianID]
	return ok
}

// WeekAvailability 获取医师对某周的可用性
// 无记录时返回 green 且 found=false（求解器的文档化默认值）
func (c *Context) WeekAvailability(physicianID, weekID uuid.UUID) (availability model.Availability, found bool) {
	if prefs, ok := c.weekPrefs[physicianID]; ok {
		if a, ok := prefs[weekID]; ok {
			return a, true
		}
	}
	return model.AvailabilityGreen, false
}

// RotationPreferenceFor 获取医师对某轮转的偏好记录（无则返回nil）
func (c *Context) RotationPreferenceFor(physicianID, rotationID uuid.UUID) *model.RotationPreference {
	if m, ok := c.rotPrefs[physicianID]; ok {
		return m[rotationID]
	}
	return nil
}

// HasAnyRotationPreference 检查医师是否存在任何轮转偏好记录
func (c *Context) HasAnyRotationPreference(physicianID uuid.UUID) bool {
	return len(c.rotPrefs[physicianID]) > 0
}

// PendingRotationPreferenceCount 统计医师待审批的轮转偏好数量
func (c *Context) PendingRotationPreferenceCount(physicianID uuid.UUID) int {
	count := 0
	for _, p := range c.rotPrefs[physicianID] {
		if p.Status == model.ApprovalPending {
			count++
		}
	}
	return count
}

// MissingRotationPreferenceCount 统计医师未配置偏好的启用轮转数量
func (c *Context) MissingRotationPreferenceCount(physicianID uuid.UUID) int {
	count := 0
	for _, r := range c.Rotations {
		if c.RotationPreferenceFor(physicianID, r.ID) == nil {
			count++
		}
	}
	return count
}

// EffectiveMaxConsecutive 获取医师在某轮转上的有效连续周数上限
// 医师级别规则优先于轮转默认值
func (c *Context) EffectiveMaxConsecutive(physicianID, rotationID uuid.UUID) int {
	if max, ok := c.ruleByKey[[2]uuid.UUID{physicianID, rotationID}]; ok {
		return max
	}
	if r := c.rotationByID[rotationID]; r != nil {
		return r.MaxConsecutiveWeeks
	}
	return 0
}

// assignedToRotationInWeek 检查医师在指定周数是否被排在指定轮转
func (c *Context) assignedToRotationInWeek(physicianID, rotationID uuid.UUID, weekNumber int) bool {
	week := c.WeekByNumber(weekNumber)
	if week == nil {
		return false
	}
	a := c.assignmentByCell[CellKey{week.ID, rotationID}]
	return a != nil && a.PhysicianID != nil && *a.PhysicianID == physicianID
}

// ConsecutiveRunWith 计算若将医师排入目标周后，该轮转上形成的最大连续周数
// 向前与向后扫描已排周，目标周本身计为1
func (c *Context) ConsecutiveRunWith(physicianID, rotationID uuid.UUID, weekNumber int) int {
	countBefore := 0
	for n := weekNumber - 1; n >= 1; n-- {
		if !c.assignedToRotationInWeek(physicianID, rotationID, n) {
			break
		}
		countBefore++
	}

	countAfter := 0
	for n := weekNumber + 1; c.WeekByNumber(n) != nil; n++ {
		if !c.assignedToRotationInWeek(physicianID, rotationID, n) {
			break
		}
		countAfter++
	}

	return countBefore + 1 + countAfter
}

// GapBeforeStint 计算目标周与医师上一段同轮转任期结束之间的空档周数
// 从未排过或相邻（同一任期）时分别返回 -1 和 0
func (c *Context) GapBeforeStint(physicianID, rotationID uuid.UUID, weekNumber int) int {
	for n := weekNumber - 1; n >= 1; n-- {
		if c.assignedToRotationInWeek(physicianID, rotationID, n) {
			return weekNumber - n - 1
		}
	}
	return -1
}

// GapAfterStint 计算目标周与医师下一段同轮转任期开始之间的空档周数
// 之后没有任期或相邻时分别返回 -1 和 0
func (c *Context) GapAfterStint(physicianID, rotationID uuid.UUID, weekNumber int) int {
	for n := weekNumber + 1; c.WeekByNumber(n) != nil; n++ {
		if c.assignedToRotationInWeek(physicianID, rotationID, n) {
			return n - weekNumber - 1
		}
	}
	return -1
}

// AssignedWeekCount 统计医师已排的周数
func (c *Context) AssignedWeekCount(physicianID uuid.UUID) int {
	return len(c.assignmentsByPhys[physicianID])
}

// WeeksOnRotation 统计医师在指定轮转上已排的周数
func (c *Context) WeeksOnRotation(physicianID, rotationID uuid.UUID) int {
	count := 0
	for _, a := range c.assignmentsByPhys[physicianID] {
		if a.RotationID == rotationID {
			count++
		}
	}
	return count
}

// HolidayAssignmentCount 统计医师已排周中包含重大节假日的周数
func (c *Context) HolidayAssignmentCount(physicianID uuid.UUID) int {
	if c.Config == nil {
		return 0
	}
	count := 0
	for _, a := range c.assignmentsByPhys[physicianID] {
		if w := c.weekByID[a.WeekID]; w != nil && w.HasHoliday(c.Config.MajorHolidayNames) {
			count++
		}
	}
	return count
}

// ActivePhysicians 返回启用的医师列表
func (c *Context) ActivePhysicians() []*model.Physician {
	var result []*model.Physician
	for _, p := range c.Physicians {
		if p.IsActive {
			result = append(result, p)
		}
	}
	return result
}
