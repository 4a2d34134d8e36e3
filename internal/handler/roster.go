package handler

import (
	"net/http"

	"github.com/yipai/yipai/internal/repository"
	"github.com/yipai/yipai/internal/service"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/model"
)

// RosterHandler 基础数据处理器：财年、医师、轮转、偏好
type RosterHandler struct {
	svc *service.RosterService
}

// NewRosterHandler 创建基础数据处理器
func NewRosterHandler(svc *service.RosterService) *RosterHandler {
	return &RosterHandler{svc: svc}
}

// CreateFiscalYearRequest 创建财年请求
type CreateFiscalYearRequest struct {
	Label     string `json:"label" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	WeekCount int    `json:"week_count" validate:"required,min=1,max=53"`
}

// FiscalYears 财年：POST创建，GET列表
func (h *RosterHandler) FiscalYears(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req CreateFiscalYearRequest
		if err := decodeAndValidate(r, &req); err != nil {
			respondError(w, err)
			return
		}
		fy, err := h.svc.CreateFiscalYear(r.Context(), req.Label, req.StartDate, req.WeekCount)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, fy)

	case http.MethodGet:
		list, err := h.svc.ListFiscalYears(r.Context(), repository.DefaultListFilter())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, list)

	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET和POST方法"))
	}
}

// AdvanceFiscalYearRequest 财年状态推进请求
type AdvanceFiscalYearRequest struct {
	FiscalYearID string `json:"fiscal_year_id" validate:"required,uuid4"`
	Target       string `json:"target" validate:"required,oneof=collecting building published archived"`
}

// AdvanceFiscalYear 推进财年状态
func (h *RosterHandler) AdvanceFiscalYear(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req AdvanceFiscalYearRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	fiscalYearID, err := parseUUID(req.FiscalYearID, "财年ID")
	if err != nil {
		respondError(w, err)
		return
	}

	fy, err := h.svc.AdvanceFiscalYear(r.Context(), fiscalYearID, model.FiscalYearStatus(req.Target))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fy)
}

// PhysicianRequest 医师创建/更新请求
type PhysicianRequest struct {
	ID          string  `json:"id" validate:"omitempty,uuid4"`
	Name        string  `json:"name" validate:"required"`
	Initials    string  `json:"initials" validate:"required,max=8"`
	Role        string  `json:"role" validate:"omitempty,oneof=physician admin"`
	IsActive    *bool   `json:"is_active"`
	ActiveFrom  *string `json:"active_from" validate:"omitempty,datetime=2006-01-02"`
	ActiveUntil *string `json:"active_until" validate:"omitempty,datetime=2006-01-02"`
}

// Physicians 医师：POST创建，PUT更新，GET列表
func (h *RosterHandler) Physicians(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost, http.MethodPut:
		var req PhysicianRequest
		if err := decodeAndValidate(r, &req); err != nil {
			respondError(w, err)
			return
		}

		p := &model.Physician{
			Name:        req.Name,
			Initials:    req.Initials,
			Role:        req.Role,
			IsActive:    true,
			ActiveFrom:  req.ActiveFrom,
			ActiveUntil: req.ActiveUntil,
		}
		if p.Role == "" {
			p.Role = "physician"
		}
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}

		if r.Method == http.MethodPut {
			id, err := parseUUID(req.ID, "医师ID")
			if err != nil {
				respondError(w, err)
				return
			}
			p.ID = id
			if err := h.svc.UpdatePhysician(r.Context(), p); err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, p)
			return
		}

		if err := h.svc.CreatePhysician(r.Context(), p); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, p)

	case http.MethodGet:
		filter := repository.DefaultListFilter()
		filter.Status = r.URL.Query().Get("status")
		filter.Search = r.URL.Query().Get("search")
		list, err := h.svc.ListPhysicians(r.Context(), filter)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, list)

	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET、POST和PUT方法"))
	}
}

// RotationRequest 轮转创建/更新请求
type RotationRequest struct {
	ID                  string  `json:"id" validate:"omitempty,uuid4"`
	FiscalYearID        string  `json:"fiscal_year_id" validate:"required,uuid4"`
	Name                string  `json:"name" validate:"required"`
	Abbreviation        string  `json:"abbreviation" validate:"required,max=8"`
	CftePerWeek         float64 `json:"cfte_per_week" validate:"min=0,max=1"`
	MinStaff            int     `json:"min_staff" validate:"min=0"`
	MaxConsecutiveWeeks int     `json:"max_consecutive_weeks" validate:"min=1,max=53"`
	SortOrder           int     `json:"sort_order" validate:"min=0"`
	IsActive            *bool   `json:"is_active"`
}

// Rotations 轮转：POST创建，PUT更新，GET列表
func (h *RosterHandler) Rotations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost, http.MethodPut:
		var req RotationRequest
		if err := decodeAndValidate(r, &req); err != nil {
			respondError(w, err)
			return
		}
		fiscalYearID, err := parseUUID(req.FiscalYearID, "财年ID")
		if err != nil {
			respondError(w, err)
			return
		}

		rot := &model.Rotation{
			FiscalYearID:        fiscalYearID,
			Name:                req.Name,
			Abbreviation:        req.Abbreviation,
			CftePerWeek:         req.CftePerWeek,
			MinStaff:            req.MinStaff,
			MaxConsecutiveWeeks: req.MaxConsecutiveWeeks,
			SortOrder:           req.SortOrder,
			IsActive:            true,
		}
		if req.IsActive != nil {
			rot.IsActive = *req.IsActive
		}

		if r.Method == http.MethodPut {
			id, err := parseUUID(req.ID, "轮转ID")
			if err != nil {
				respondError(w, err)
				return
			}
			rot.ID = id
			if err := h.svc.UpdateRotation(r.Context(), rot); err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, rot)
			return
		}

		if err := h.svc.CreateRotation(r.Context(), rot); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, rot)

	case http.MethodGet:
		fiscalYearID, err := parseUUID(r.URL.Query().Get("fiscal_year_id"), "财年ID")
		if err != nil {
			respondError(w, err)
			return
		}
		list, err := h.svc.ListRotations(r.Context(), fiscalYearID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, list)

	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET、POST和PUT方法"))
	}
}

// ScheduleRequestInput 可用性申请请求
type ScheduleRequestInput struct {
	FiscalYearID string                `json:"fiscal_year_id" validate:"required,uuid4"`
	PhysicianID  string                `json:"physician_id" validate:"required,uuid4"`
	Preferences  []WeekPreferenceInput `json:"preferences" validate:"dive"`
}

// WeekPreferenceInput 周偏好输入
type WeekPreferenceInput struct {
	WeekID         string `json:"week_id" validate:"required,uuid4"`
	Availability   string `json:"availability" validate:"required,oneof=green yellow red"`
	ReasonCategory string `json:"reason_category"`
	ReasonText     string `json:"reason_text"`
}

// SubmitScheduleRequest 提交可用性申请（含周偏好）
// PUT 用于在征集期内修改单周偏好
func (h *RosterHandler) SubmitScheduleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPut {
		h.updateWeekPreference(w, r)
		return
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req ScheduleRequestInput
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

	request := &model.ScheduleRequest{
		FiscalYearID: fiscalYearID,
		PhysicianID:  physicianID,
		Status:       model.ApprovalPending,
	}
	for _, p := range req.Preferences {
		weekID, err := parseUUID(p.WeekID, "周ID")
		if err != nil {
			respondError(w, err)
			return
		}
		request.Preferences = append(request.Preferences, model.WeekPreference{
			WeekID:         weekID,
			Availability:   model.Availability(p.Availability),
			ReasonCategory: p.ReasonCategory,
			ReasonText:     p.ReasonText,
		})
	}

	if err := h.svc.SubmitScheduleRequest(r.Context(), request); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, request)
}

// WeekPreferenceUpdateInput 单周偏好修改请求
type WeekPreferenceUpdateInput struct {
	ScheduleRequestID string `json:"schedule_request_id" validate:"required,uuid4"`
	WeekID            string `json:"week_id" validate:"required,uuid4"`
	Availability      string `json:"availability" validate:"required,oneof=green yellow red"`
	ReasonCategory    string `json:"reason_category"`
	ReasonText        string `json:"reason_text"`
}

func (h *RosterHandler) updateWeekPreference(w http.ResponseWriter, r *http.Request) {
	var req WeekPreferenceUpdateInput
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	requestID, err := parseUUID(req.ScheduleRequestID, "申请ID")
	if err != nil {
		respondError(w, err)
		return
	}
	weekID, err := parseUUID(req.WeekID, "周ID")
	if err != nil {
		respondError(w, err)
		return
	}

	pref := &model.WeekPreference{
		BaseModel:         model.NewBaseModel(),
		ScheduleRequestID: requestID,
		WeekID:            weekID,
		Availability:      model.Availability(req.Availability),
		ReasonCategory:    req.ReasonCategory,
		ReasonText:        req.ReasonText,
	}
	if err := h.svc.SetWeekPreference(r.Context(), requestID, pref); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pref)
}

// RotationPreferenceInput 轮转偏好请求
type RotationPreferenceInput struct {
	FiscalYearID string `json:"fiscal_year_id" validate:"required,uuid4"`
	PhysicianID  string `json:"physician_id" validate:"required,uuid4"`
	RotationID   string `json:"rotation_id" validate:"required,uuid4"`
	Type         string `json:"type" validate:"required,oneof=preferred willing avoid deprioritize"`
	Rank         int    `json:"rank" validate:"min=0"`
	AvoidReason  string `json:"avoid_reason"`
}

// UpsertRotationPreference 保存轮转偏好
func (h *RosterHandler) UpsertRotationPreference(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req RotationPreferenceInput
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
	rotationID, err := parseUUID(req.RotationID, "轮转ID")
	if err != nil {
		respondError(w, err)
		return
	}

	pref := &model.RotationPreference{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: fiscalYearID,
		PhysicianID:  physicianID,
		RotationID:   rotationID,
		Type:         model.RotationPreferenceType(req.Type),
		Rank:         req.Rank,
		AvoidReason:  req.AvoidReason,
		Status:       model.ApprovalPending,
	}
	if err := h.svc.UpsertRotationPreference(r.Context(), pref); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, pref)
}

// ApproveRequest 审批请求
type ApproveRequest struct {
	Kind string `json:"kind" validate:"required,oneof=schedule_request rotation_preference"`
	ID   string `json:"id" validate:"required,uuid4"`
}

// Approve 审批可用性申请或轮转偏好
func (h *RosterHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req ApproveRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	id, err := parseUUID(req.ID, "审批对象ID")
	if err != nil {
		respondError(w, err)
		return
	}

	switch req.Kind {
	case "schedule_request":
		err = h.svc.ApproveScheduleRequest(r.Context(), id)
	case "rotation_preference":
		err = h.svc.ApproveRotationPreference(r.Context(), id)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// CfteTargetRequest cFTE目标请求
type CfteTargetRequest struct {
	FiscalYearID string  `json:"fiscal_year_id" validate:"required,uuid4"`
	PhysicianID  string  `json:"physician_id" validate:"required,uuid4"`
	TargetCfte   float64 `json:"target_cfte" validate:"min=0,max=2"`
}

// UpsertCfteTarget 设置医师年度cFTE目标
func (h *RosterHandler) UpsertCfteTarget(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}

	var req CfteTargetRequest
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

	target := &model.PhysicianCfteTarget{
		BaseModel:    model.NewBaseModel(),
		FiscalYearID: fiscalYearID,
		PhysicianID:  physicianID,
		TargetCfte:   req.TargetCfte,
	}
	if err := h.svc.UpsertCfteTarget(r.Context(), target); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, target)
}

// RotationRuleRequest 医师级别连续周数规则请求
type RotationRuleRequest struct {
	FiscalYearID        string `json:"fiscal_year_id" validate:"required,uuid4"`
	PhysicianID         string `json:"physician_id" validate:"required,uuid4"`
	RotationID          string `json:"rotation_id" validate:"required,uuid4"`
	MaxConsecutiveWeeks int    `json:"max_consecutive_weeks" validate:"required,min=1,max=53"`
}

// UpsertRotationRule 设置医师级别的连续周数覆盖规则
func (h *RosterHandler) UpsertRotationRule(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}

	var req RotationRuleRequest
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
	rotationID, err := parseUUID(req.RotationID, "轮转ID")
	if err != nil {
		respondError(w, err)
		return
	}

	rule := &model.PhysicianRotationRule{
		BaseModel:           model.NewBaseModel(),
		FiscalYearID:        fiscalYearID,
		PhysicianID:         physicianID,
		RotationID:          rotationID,
		MaxConsecutiveWeeks: req.MaxConsecutiveWeeks,
	}
	if err := h.svc.UpsertRotationRule(r.Context(), rule); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

// Calendar 日历视图：GET查看草稿日历及排班格子
func (h *RosterHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	fiscalYearID, err := parseUUID(r.URL.Query().Get("fiscal_year_id"), "财年ID")
	if err != nil {
		respondError(w, err)
		return
	}

	cal, err := h.svc.CreateDraftCalendar(r.Context(), fiscalYearID)
	if err != nil {
		respondError(w, err)
		return
	}
	weeks, err := h.svc.GetWeeks(r.Context(), fiscalYearID)
	if err != nil {
		respondError(w, err)
		return
	}
	assignments, err := h.svc.ListAssignments(r.Context(), cal.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"calendar":    cal,
		"weeks":       weeks,
		"assignments": assignments,
	})
}
