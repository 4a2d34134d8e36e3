package handler

import (
	"net/http"

	"github.com/yipai/yipai/internal/service"
	"github.com/yipai/yipai/pkg/swap"
)

// SwapHandler 换班候选建议处理器
type SwapHandler struct {
	svc *service.SwapService
}

// NewSwapHandler 创建换班处理器
func NewSwapHandler(svc *service.SwapService) *SwapHandler {
	return &SwapHandler{svc: svc}
}

// SuggestRequest 换班候选请求
type SuggestRequest struct {
	AssignmentID      string   `json:"assignment_id" validate:"required,uuid4"`
	MaxSuggestions    int      `json:"max_suggestions" validate:"min=0,max=50"`
	MinScore          float64  `json:"min_score" validate:"min=0,max=100"`
	ExcludePhysicians []string `json:"exclude_physicians" validate:"dive,uuid4"`
}

// Suggest 为排班格子推荐能接手的候选医师（只读）
func (h *SwapHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req SuggestRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	assignmentID, err := parseUUID(req.AssignmentID, "排班格子ID")
	if err != nil {
		respondError(w, err)
		return
	}

	options := swap.DefaultOptions()
	if req.MaxSuggestions > 0 {
		options.MaxSuggestions = req.MaxSuggestions
	}
	options.MinScore = req.MinScore
	for _, raw := range req.ExcludePhysicians {
		id, err := parseUUID(raw, "排除医师ID")
		if err != nil {
			respondError(w, err)
			return
		}
		options.ExcludePhysicians = append(options.ExcludePhysicians, id)
	}

	result, err := h.svc.SuggestCandidates(r.Context(), assignmentID, options)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
