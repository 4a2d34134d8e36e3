package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/internal/repository"
	"github.com/yipai/yipai/internal/service"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/model"
)

// AutoFillHandler 自动排班处理器
type AutoFillHandler struct {
	svc        *service.AutoFillService
	runTimeout time.Duration
}

// NewAutoFillHandler 创建自动排班处理器
func NewAutoFillHandler(svc *service.AutoFillService, runTimeout time.Duration) *AutoFillHandler {
	if runTimeout <= 0 {
		runTimeout = 60 * time.Second
	}
	return &AutoFillHandler{svc: svc, runTimeout: runTimeout}
}

// RunRequest 全科自动排班请求
type RunRequest struct {
	FiscalYearID string `json:"fiscal_year_id" validate:"required,uuid4"`
}

// Run 全科模式自动排班
// 替换语义：既有自动排班行被整体重算，手工排班保持不动
func (h *AutoFillHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req RunRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	fiscalYearID, err := parseUUID(req.FiscalYearID, "财年ID")
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.runTimeout)
	defer cancel()

	result, err := h.svc.RunFullDepartment(ctx, fiscalYearID)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			respondError(w, errors.Wrap(err, errors.CodeInternal, "自动排班超时"))
			return
		}
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"assigned_count":      len(result.Assignments),
		"remaining_unstaffed": result.RemainingUnstaffed,
		"passes":              result.Passes,
		"duration":            result.Duration.String(),
		"metrics":             result.Metrics,
		"warnings":            result.Warnings,
		"decision_log_count":  len(result.DecisionLog),
	})
}

// RunPhysicianRequest 单医师自动排班请求
type RunPhysicianRequest struct {
	FiscalYearID    string `json:"fiscal_year_id" validate:"required,uuid4"`
	PhysicianID     string `json:"physician_id" validate:"required,uuid4"`
	ReplaceExisting bool   `json:"replace_existing"`
}

// RunPhysician 单医师模式自动排班
func (h *AutoFillHandler) RunPhysician(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req RunPhysicianRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	fiscalYearID, err := parseUUID(req.FiscalYearID, "财年ID")
	if err != nil {
		respondError(w, err)
		return
	}
	physicianID, err := parseUUID(req.PhysicianID, "医师ID")
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.runTimeout)
	defer cancel()

	result, err := h.svc.RunPhysician(ctx, fiscalYearID, physicianID, req.ReplaceExisting)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"assigned_count":      result.AssignedCount,
		"remaining_unstaffed": result.RemainingUnstaffed,
		"passes":              result.Passes,
		"duration":            result.Duration.String(),
		"cfte":                result.Cfte,
		"warnings":            result.Warnings,
	})
}

// ClearRequest 清除自动排班请求
type ClearRequest struct {
	FiscalYearID string `json:"fiscal_year_id" validate:"required,uuid4"`
}

// Clear 清除草稿日历中的全部自动排班（幂等）
func (h *AutoFillHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req ClearRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	fiscalYearID, err := parseUUID(req.FiscalYearID, "财年ID")
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := h.svc.ClearAutoFilled(r.Context(), fiscalYearID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// DecisionLog 查询决策日志
// GET /api/v1/decision-log?fiscal_year_id=...&week_id=...&rotation_id=...&physician_id=...
func (h *AutoFillHandler) DecisionLog(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	fiscalYearID, err := parseUUID(r.URL.Query().Get("fiscal_year_id"), "财年ID")
	if err != nil {
		respondError(w, err)
		return
	}

	filter := repository.DecisionLogFilter{Limit: 100}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, convErr := strconv.Atoi(v); convErr == nil && n > 0 && n <= 1000 {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, convErr := strconv.Atoi(v); convErr == nil && n >= 0 {
			filter.Offset = n
		}
	}
	if filter.WeekID, err = queryUUID(r, "week_id"); err != nil {
		respondError(w, err)
		return
	}
	if filter.RotationID, err = queryUUID(r, "rotation_id"); err != nil {
		respondError(w, err)
		return
	}
	if filter.PhysicianID, err = queryUUID(r, "physician_id"); err != nil {
		respondError(w, err)
		return
	}

	page, err := h.svc.GetDecisionLog(r.Context(), fiscalYearID, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// ConfigRequest 自动排班配置请求
type ConfigRequest struct {
	FiscalYearID             string                `json:"fiscal_year_id" validate:"required,uuid4"`
	Weights                  model.AutoFillWeights `json:"weights"`
	MajorHolidayNames        []string              `json:"major_holiday_names"`
	MinGapWeeksBetweenStints int                   `json:"min_gap_weeks_between_stints" validate:"min=0"`
	MaxPasses                int                   `json:"max_passes" validate:"min=1,max=50"`
}

// Config 自动排班配置：GET读取（无则返回默认值），PUT保存
func (h *AutoFillHandler) Config(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		fiscalYearID, err := parseUUID(r.URL.Query().Get("fiscal_year_id"), "财年ID")
		if err != nil {
			respondError(w, err)
			return
		}
		cfg, err := h.svc.GetConfig(r.Context(), fiscalYearID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, cfg)

	case http.MethodPut:
		var req ConfigRequest
		if err := decodeAndValidate(r, &req); err != nil {
			respondError(w, err)
			return
		}
		fiscalYearID, err := parseUUID(req.FiscalYearID, "财年ID")
		if err != nil {
			respondError(w, err)
			return
		}

		cfg := &model.AutoFillConfig{
			BaseModel:                model.NewBaseModel(),
			FiscalYearID:             fiscalYearID,
			Weights:                  req.Weights,
			MajorHolidayNames:        req.MajorHolidayNames,
			MinGapWeeksBetweenStints: req.MinGapWeeksBetweenStints,
			MaxPasses:                req.MaxPasses,
		}
		if err := h.svc.UpsertConfig(r.Context(), cfg); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, cfg)

	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET和PUT方法"))
	}
}

// AssignManualRequest 手工排班请求
type AssignManualRequest struct {
	CalendarID  string `json:"calendar_id" validate:"required,uuid4"`
	WeekID      string `json:"week_id" validate:"required,uuid4"`
	RotationID  string `json:"rotation_id" validate:"required,uuid4"`
	PhysicianID string `json:"physician_id" validate:"omitempty,uuid4"` // 为空表示撤销该格子
	AssignedBy  string `json:"assigned_by" validate:"required"`
}

// AssignManual 手工排班单个格子
func (h *AutoFillHandler) AssignManual(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req AssignManualRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	calendarID, err := parseUUID(req.CalendarID, "日历ID")
	if err != nil {
		respondError(w, err)
		return
	}
	weekID, err := parseUUID(req.WeekID, "周ID")
	if err != nil {
		respondError(w, err)
		return
	}
	rotationID, err := parseUUID(req.RotationID, "轮转ID")
	if err != nil {
		respondError(w, err)
		return
	}
	var physicianID *uuid.UUID
	if req.PhysicianID != "" {
		id, err := parseUUID(req.PhysicianID, "医师ID")
		if err != nil {
			respondError(w, err)
			return
		}
		physicianID = &id
	}

	if err := h.svc.AssignManual(r.Context(), calendarID, weekID, rotationID, physicianID, req.AssignedBy); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// PublishRequest 发布日历请求
type PublishRequest struct {
	CalendarID string `json:"calendar_id" validate:"required,uuid4"`
}

// Publish 发布日历并冻结财年
func (h *AutoFillHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req PublishRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	calendarID, err := parseUUID(req.CalendarID, "日历ID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.svc.PublishCalendar(r.Context(), calendarID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
