// Package repository 提供数据访问层
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

// DecisionLogRepository 决策日志仓储
// 只追加：条目随整轮重跑整体删除重建，不支持单条修改
type DecisionLogRepository struct {
	db DB
}

// NewDecisionLogRepository 创建决策日志仓储
func NewDecisionLogRepository(db DB) *DecisionLogRepository {
	return &DecisionLogRepository{db: db}
}

// CreateEntries 批量写入决策日志
func (r *DecisionLogRepository) CreateEntries(ctx context.Context, entries []*model.DecisionLogEntry) error {
	query := `
		INSERT INTO decision_log_entries (
			id, master_calendar_id, week_id, rotation_id, physician_id,
			score, breakdown, alternatives_considered, pass_number, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		breakdownJSON, _ := json.Marshal(e.Breakdown)

		_, err := r.db.ExecContext(ctx, query,
			e.ID, e.MasterCalendarID, e.WeekID, e.RotationID, e.PhysicianID,
			e.Score, breakdownJSON, e.AlternativesConsidered, e.PassNumber, e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("写入决策日志失败: %w", err)
		}
	}
	return nil
}

// DecisionLogFilter 决策日志查询过滤器
type DecisionLogFilter struct {
	WeekID      *uuid.UUID
	RotationID  *uuid.UUID
	PhysicianID *uuid.UUID
	Offset      int
	Limit       int
}

// List 查询日历的决策日志（可按周/轮转/医师过滤）
func (r *DecisionLogRepository) List(ctx context.Context, calendarID uuid.UUID, filter DecisionLogFilter) ([]*model.DecisionLogEntry, int, error) {
	where := "WHERE master_calendar_id = $1"
	args := []interface{}{calendarID}

	if filter.WeekID != nil {
		args = append(args, *filter.WeekID)
		where += fmt.Sprintf(" AND week_id = $%d", len(args))
	}
	if filter.RotationID != nil {
		args = append(args, *filter.RotationID)
		where += fmt.Sprintf(" AND rotation_id = $%d", len(args))
	}
	if filter.PhysicianID != nil {
		args = append(args, *filter.PhysicianID)
		where += fmt.Sprintf(" AND physician_id = $%d", len(args))
	}

	countQuery := "SELECT COUNT(*) FROM decision_log_entries " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计决策日志失败: %w", err)
	}

	query := `
		SELECT id, master_calendar_id, week_id, rotation_id, physician_id,
			score, breakdown, alternatives_considered, pass_number, created_at
		FROM decision_log_entries ` + where + `
		ORDER BY created_at ASC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询决策日志失败: %w", err)
	}
	defer rows.Close()

	var result []*model.DecisionLogEntry
	for rows.Next() {
		e := &model.DecisionLogEntry{}
		var breakdownJSON []byte
		if err := rows.Scan(&e.ID, &e.MasterCalendarID, &e.WeekID, &e.RotationID, &e.PhysicianID,
			&e.Score, &breakdownJSON, &e.AlternativesConsidered, &e.PassNumber, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("扫描决策日志失败: %w", err)
		}
		if len(breakdownJSON) > 0 {
			if err := json.Unmarshal(breakdownJSON, &e.Breakdown); err != nil {
				return nil, 0, fmt.Errorf("解析评分明细失败: %w", err)
			}
		}
		result = append(result, e)
	}
	return result, total, rows.Err()
}

// DeleteByCalendar 删除日历的全部决策日志
func (r *DecisionLogRepository) DeleteByCalendar(ctx context.Context, calendarID uuid.UUID) error {
	query := `DELETE FROM decision_log_entries WHERE master_calendar_id = $1`

	if _, err := r.db.ExecContext(ctx, query, calendarID); err != nil {
		return fmt.Errorf("删除决策日志失败: %w", err)
	}
	return nil
}
