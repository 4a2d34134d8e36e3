package scenario

import (
	"testing"

	"github.com/yipai/yipai/pkg/autofill"
	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/swap"
)

// TestSwapSuggestionWorkflow 换班建议流程：
// 当值医师想换掉第3周的病房，匹配器给出排序后的候选并解释排除原因
func TestSwapSuggestionWorkflow(t *testing.T) {
	d := newDepartment(6)
	ward := d.addRotation("病房", "W", 3, 0.035)
	consult := d.addRotation("会诊", "C", 2, 0.030)

	holder := d.addPhysician("陈医师")
	preferred := d.addPhysician("李医师")
	willing := d.addPhysician("王医师")
	busy := d.addPhysician("赵医师")
	noRequest := d.addPhysician("孙医师")
	_ = noRequest

	for _, p := range []*model.Physician{holder, preferred, willing, busy} {
		d.submitRequest(p)
	}
	d.setRotationPref(holder, ward, model.PreferenceWilling, 0)
	d.setRotationPref(preferred, ward, model.PreferencePreferred, 1)
	d.setRotationPref(willing, ward, model.PreferenceWilling, 0)
	d.setRotationPref(busy, ward, model.PreferencePreferred, 1)
	// 孙医师没有提交可用性申请，换班模式下直接不合格

	// 当值医师持有第3周病房；赵医师同周在会诊，不能分身
	target := d.assign(holder, 3, ward, true)
	d.assign(busy, 3, consult, false)

	grid := d.build()
	matcher := swap.NewMatcher(autofill.NewEngine(d.config))

	before := len(grid.Assignments)
	result, err := matcher.FindCandidates(grid, target, nil)
	if err != nil {
		t.Fatalf("匹配失败: %v", err)
	}

	// 评估对象：除当值医师外的4人
	if result.TotalCandidateCount != 4 {
		t.Errorf("期望评估4名候选, 实际 %d", result.TotalCandidateCount)
	}

	// 合格的只有李医师和王医师，首选排第一
	if len(result.Suggestions) != 2 {
		t.Fatalf("期望2名合格候选, 实际 %d", len(result.Suggestions))
	}
	if result.Suggestions[0].Physician.ID != preferred.ID {
		t.Errorf("首选该轮转的医师应排第一, 实际是 %s", result.Suggestions[0].Physician.Name)
	}
	if result.Suggestions[0].Rank != 1 || result.Suggestions[1].Rank != 2 {
		t.Error("排名应从1开始连续编号")
	}
	for _, s := range result.Suggestions {
		if s.Score < 0 || s.Score > 100 {
			t.Errorf("候选得分超出值域: %f", s.Score)
		}
	}

	// 排除原因统计
	if result.ExcludedSummary[string(autofill.ReasonAlreadyOnService)] != 1 {
		t.Errorf("同周在岗的排除计数错误: %v", result.ExcludedSummary)
	}
	if result.ExcludedSummary[string(autofill.ReasonMissingScheduleRequest)] != 1 {
		t.Errorf("缺可用性申请的排除计数错误: %v", result.ExcludedSummary)
	}

	// 匹配是只读的
	if len(grid.Assignments) != before {
		t.Error("匹配器修改了网格")
	}
	if a := grid.AssignmentAt(target.WeekID, ward.ID); a == nil || *a.PhysicianID != holder.ID {
		t.Error("目标格子的持有人被改动")
	}
}
