// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

// PreferenceRepository 偏好仓储
// 覆盖可用性申请（含周偏好）与轮转偏好
type PreferenceRepository struct {
	db DB
}

// NewPreferenceRepository 创建偏好仓储
func NewPreferenceRepository(db DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// CreateScheduleRequest 创建可用性申请
func (r *PreferenceRepository) CreateScheduleRequest(ctx context.Context, req *model.ScheduleRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now

	query := `
		INSERT INTO schedule_requests (id, fiscal_year_id, physician_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.FiscalYearID, req.PhysicianID, req.Status, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建可用性申请失败: %w", err)
	}

	for i := range req.Preferences {
		if err := r.upsertWeekPreference(ctx, req.ID, &req.Preferences[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetScheduleRequest 获取医师在某财年的可用性申请（含周偏好）
func (r *PreferenceRepository) GetScheduleRequest(ctx context.Context, fiscalYearID, physicianID uuid.UUID) (*model.ScheduleRequest, error) {
	query := `
		SELECT id, fiscal_year_id, physician_id, status, created_at, updated_at
		FROM schedule_requests
		WHERE fiscal_year_id = $1 AND physician_id = $2 AND deleted_at IS NULL
	`

	req := &model.ScheduleRequest{}
	err := r.db.QueryRowContext(ctx, query, fiscalYearID, physicianID).Scan(
		&req.ID, &req.FiscalYearID, &req.PhysicianID, &req.Status, &req.CreatedAt, &req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询可用性申请失败: %w", err)
	}

	if err := r.loadWeekPreferences(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListScheduleRequests 列出财年的全部可用性申请（含周偏好）
func (r *PreferenceRepository) ListScheduleRequests(ctx context.Context, fiscalYearID uuid.UUID) ([]*model.ScheduleRequest, error) {
	query := `
		SELECT id, fiscal_year_id, physician_id, status, created_at, updated_at
		FROM schedule_requests
		WHERE fiscal_year_id = $1 AND deleted_at IS NULL
	`

	rows, err := r.db.QueryContext(ctx, query, fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("查询可用性申请列表失败: %w", err)
	}
	defer rows.Close()

	var result []*model.ScheduleRequest
	for rows.Next() {
		req := &model.ScheduleRequest{}
		if err := rows.Scan(&req.ID, &req.FiscalYearID, &req.PhysicianID, &req.Status,
			&req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("扫描可用性申请失败: %w", err)
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, req := range result {
		if err := r.loadWeekPreferences(ctx, req); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// SetWeekPreference 设置某周的可用性偏好
func (r *PreferenceRepository) SetWeekPreference(ctx context.Context, requestID uuid.UUID, pref *model.WeekPreference) error {
	return r.upsertWeekPreference(ctx, requestID, pref)
}

// UpdateRequestStatus 更新申请审批状态
func (r *PreferenceRepository) UpdateRequestStatus(ctx context.Context, id uuid.UUID, status model.ApprovalStatus) error {
	query := `UPDATE schedule_requests SET status = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("更新申请状态失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("可用性申请不存在")
	}
	return nil
}

// UpsertRotationPreference 创建或更新轮转偏好
func (r *PreferenceRepository) UpsertRotationPreference(ctx context.Context, pref *model.RotationPreference) error {
	if !pref.Validate() {
		return fmt.Errorf("轮转偏好记录不完整")
	}
	if pref.ID == uuid.Nil {
		pref.ID = uuid.New()
	}
	now := time.Now()
	pref.UpdatedAt = now

	query := `
		INSERT INTO rotation_preferences (
			id, fiscal_year_id, physician_id, rotation_id, type, rank, avoid_reason, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (fiscal_year_id, physician_id, rotation_id)
		DO UPDATE SET type = $5, rank = $6, avoid_reason = $7, status = $8, updated_at = $9
	`

	_, err := r.db.ExecContext(ctx, query,
		pref.ID, pref.FiscalYearID, pref.PhysicianID, pref.RotationID,
		pref.Type, pref.Rank, pref.AvoidReason, pref.Status, now,
	)
	if err != nil {
		return fmt.Errorf("保存轮转偏好失败: %w", err)
	}
	return nil
}

// ListRotationPreferences 列出财年的轮转偏好
func (r *PreferenceRepository) ListRotationPreferences(ctx context.Context, fiscalYearID uuid.UUID) ([]*model.RotationPreference, error) {
	query := `
		SELECT id, fiscal_year_id, physician_id, rotation_id, type, rank, avoid_reason, status, created_at, updated_at
		FROM rotation_preferences
		WHERE fiscal_year_id = $1 AND deleted_at IS NULL
	`

	rows, err := r.db.QueryContext(ctx, query, fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("查询轮转偏好失败: %w", err)
	}
	defer rows.Close()

	var result []*model.RotationPreference
	for rows.Next() {
		pref := &model.RotationPreference{}
		if err := rows.Scan(&pref.ID, &pref.FiscalYearID, &pref.PhysicianID, &pref.RotationID,
			&pref.Type, &pref.Rank, &pref.AvoidReason, &pref.Status,
			&pref.CreatedAt, &pref.UpdatedAt); err != nil {
			return nil, fmt.Errorf("扫描轮转偏好失败: %w", err)
		}
		result = append(result, pref)
	}
	return result, rows.Err()
}

// ApproveRotationPreference 审批轮转偏好
func (r *PreferenceRepository) ApproveRotationPreference(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE rotation_preferences SET status = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, model.ApprovalApproved, time.Now())
	if err != nil {
		return fmt.Errorf("审批轮转偏好失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("轮转偏好不存在")
	}
	return nil
}

// loadWeekPreferences 加载申请的周偏好
func (r *PreferenceRepository) loadWeekPreferences(ctx context.Context, req *model.ScheduleRequest) error {
	query := `
		SELECT id, schedule_request_id, week_id, availability, reason_category, reason_text, created_at, updated_at
		FROM week_preferences
		WHERE schedule_request_id = $1 AND deleted_at IS NULL
	`

	rows, err := r.db.QueryContext(ctx, query, req.ID)
	if err != nil {
		return fmt.Errorf("查询周偏好失败: %w", err)
	}
	defer rows.Close()

	req.Preferences = req.Preferences[:0]
	for rows.Next() {
		var p model.WeekPreference
		if err := rows.Scan(&p.ID, &p.ScheduleRequestID, &p.WeekID, &p.Availability,
			&p.ReasonCategory, &p.ReasonText, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return fmt.Errorf("扫描周偏好失败: %w", err)
		}
		req.Preferences = append(req.Preferences, p)
	}
	return rows.Err()
}

// upsertWeekPreference 写入或更新周偏好
func (r *PreferenceRepository) upsertWeekPreference(ctx context.Context, requestID uuid.UUID, pref *model.WeekPreference) error {
	if pref.ID == uuid.Nil {
		pref.ID = uuid.New()
	}
	pref.ScheduleRequestID = requestID
	now := time.Now()
	pref.UpdatedAt = now

	query := `
		INSERT INTO week_preferences (
			id, schedule_request_id, week_id, availability, reason_category, reason_text, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (schedule_request_id, week_id)
		DO UPDATE SET availability = $4, reason_category = $5, reason_text = $6, updated_at = $7
	`

	_, err := r.db.ExecContext(ctx, query,
		pref.ID, pref.ScheduleRequestID, pref.WeekID, pref.Availability,
		pref.ReasonCategory, pref.ReasonText, now,
	)
	if err != nil {
		return fmt.Errorf("保存周偏好失败: %w", err)
	}
	return nil
}
