package service

import (
	"testing"

	"github.com/yipai/yipai/pkg/autofill"
	"github.com/yipai/yipai/pkg/model"
)

func newSwapTestGrid() *autofill.Context {
	fy := &model.FiscalYear{
		BaseModel: model.NewBaseModel(),
		Label:     "FY2027",
		StartDate: "2026-07-01",
		EndDate:   "2027-06-30",
		Status:    model.FiscalYearBuilding,
	}
	calendar := &model.MasterCalendar{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: fy.ID,
		Version:      1,
		Status:       model.CalendarDraft,
	}
	return autofill.NewContext(fy, calendar, nil)
}

// 财年未保存配置时，默认配置必须写回网格：
// 资格检查读取的是网格配置，否则最小间隔规则会被静默跳过
func TestSwapConfig_默认配置写回网格(t *testing.T) {
	grid := newSwapTestGrid()

	cfg := swapConfig(grid)
	if cfg == nil {
		t.Fatal("应返回默认配置")
	}
	if grid.Config != cfg {
		t.Fatal("默认配置应写回网格，资格检查与评分才会同源")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("默认配置应通过校验: %v", err)
	}
	if cfg.MinGapWeeksBetweenStints <= 0 {
		t.Error("默认最小间隔应对换班资格检查生效")
	}
}

func TestSwapConfig_已保存配置不被覆盖(t *testing.T) {
	grid := newSwapTestGrid()
	existing := model.DefaultAutoFillConfig(grid.FiscalYear.ID)
	existing.MinGapWeeksBetweenStints = 4
	grid.Config = existing

	if got := swapConfig(grid); got != existing {
		t.Error("已保存的配置应原样返回")
	}
	if grid.Config.MinGapWeeksBetweenStints != 4 {
		t.Error("已保存的配置不应被默认值覆盖")
	}
}
