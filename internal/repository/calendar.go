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

// CalendarRepository 主日历与排班格子仓储
type CalendarRepository struct {
	db DB
}

// NewCalendarRepository 创建日历仓储
func NewCalendarRepository(db DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// Create 创建日历草稿
func (r *CalendarRepository) Create(ctx context.Context, cal *model.MasterCalendar) error {
	if cal.ID == uuid.Nil {
		cal.ID = uuid.New()
	}
	now := time.Now()
	cal.CreatedAt = now
	cal.UpdatedAt = now

	query := `
		INSERT INTO master_calendars (id, fiscal_year_id, version, status, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		cal.ID, cal.FiscalYearID, cal.Version, cal.Status, cal.PublishedAt, cal.CreatedAt, cal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建日历失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取日历
func (r *CalendarRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MasterCalendar, error) {
	query := `
		SELECT id, fiscal_year_id, version, status, published_at, created_at, updated_at
		FROM master_calendars
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanCalendar(r.db.QueryRowContext(ctx, query, id))
}

// GetDraft 获取财年当前的草稿日历（最新版本）
func (r *CalendarRepository) GetDraft(ctx context.Context, fiscalYearID uuid.UUID) (*model.MasterCalendar, error) {
	query := `
		SELECT id, fiscal_year_id, version, status, published_at, created_at, updated_at
		FROM master_calendars
		WHERE fiscal_year_id = $1 AND status = $2 AND deleted_at IS NULL
		ORDER BY version DESC
		LIMIT 1
	`

	return r.scanCalendar(r.db.QueryRowContext(ctx, query, fiscalYearID, model.CalendarDraft))
}

// ListVersions 列出财年的全部日历版本
func (r *CalendarRepository) ListVersions(ctx context.Context, fiscalYearID uuid.UUID) ([]*model.MasterCalendar, error) {
	query := `
		SELECT id, fiscal_year_id, version, status, published_at, created_at, updated_at
		FROM master_calendars
		WHERE fiscal_year_id = $1 AND deleted_at IS NULL
		ORDER BY version DESC
	`

	rows, err := r.db.QueryContext(ctx, query, fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("查询日历版本失败: %w", err)
	}
	defer rows.Close()

	var result []*model.MasterCalendar
	for rows.Next() {
		cal, err := r.scanCalendar(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, cal)
	}
	return result, rows.Err()
}

// Publish 发布日历（冻结）
func (r *CalendarRepository) Publish(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	query := `
		UPDATE master_calendars SET status = $2, published_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, model.CalendarPublished, now, model.CalendarDraft)
	if err != nil {
		return fmt.Errorf("发布日历失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("日历不存在或非草稿状态")
	}
	return nil
}

// GetAssignment 根据ID获取排班格子（不存在返回nil）
func (r *CalendarRepository) GetAssignment(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	query := `
		SELECT id, master_calendar_id, week_id, rotation_id, physician_id,
			is_auto_filled, assigned_by, assigned_at, created_at, updated_at
		FROM assignments
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanAssignment(r.db.QueryRowContext(ctx, query, id))
}

// ListAssignments 列出日历的全部排班格子
func (r *CalendarRepository) ListAssignments(ctx context.Context, calendarID uuid.UUID) ([]*model.Assignment, error) {
	query := `
		SELECT id, master_calendar_id, week_id, rotation_id, physician_id,
			is_auto_filled, assigned_by, assigned_at, created_at, updated_at
		FROM assignments
		WHERE master_calendar_id = $1 AND deleted_at IS NULL
	`

	rows, err := r.db.QueryContext(ctx, query, calendarID)
	if err != nil {
		return nil, fmt.Errorf("查询排班列表失败: %w", err)
	}
	defer rows.Close()

	var result []*model.Assignment
	for rows.Next() {
		a, err := r.scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// CreateAssignments 批量写入排班格子
// 手工撤销会在格子留下 physician 为空的行，与 UpsertAssignment 同一冲突键覆盖
func (r *CalendarRepository) CreateAssignments(ctx context.Context, assignments []*model.Assignment) error {
	query := `
		INSERT INTO assignments (
			id, master_calendar_id, week_id, rotation_id, physician_id,
			is_auto_filled, assigned_by, assigned_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (master_calendar_id, week_id, rotation_id)
		DO UPDATE SET physician_id = $5, is_auto_filled = $6, assigned_by = $7, assigned_at = $8, updated_at = $10
	`

	now := time.Now()
	for _, a := range assignments {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now

		_, err := r.db.ExecContext(ctx, query,
			a.ID, a.MasterCalendarID, a.WeekID, a.RotationID, a.PhysicianID,
			a.IsAutoFilled, a.AssignedBy, a.AssignedAt, a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("写入排班格子失败: %w", err)
		}
	}
	return nil
}

// UpsertAssignment 写入或覆盖单个排班格子（手工排班入口）
func (r *CalendarRepository) UpsertAssignment(ctx context.Context, a *model.Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.UpdatedAt = now

	query := `
		INSERT INTO assignments (
			id, master_calendar_id, week_id, rotation_id, physician_id,
			is_auto_filled, assigned_by, assigned_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (master_calendar_id, week_id, rotation_id)
		DO UPDATE SET physician_id = $5, is_auto_filled = $6, assigned_by = $7, assigned_at = $8, updated_at = $9
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.MasterCalendarID, a.WeekID, a.RotationID, a.PhysicianID,
		a.IsAutoFilled, a.AssignedBy, a.AssignedAt, now,
	)
	if err != nil {
		return fmt.Errorf("保存排班格子失败: %w", err)
	}
	return nil
}

// DeleteAutoFilled 删除日历的全部自动排班（整轮重跑前清场）
func (r *CalendarRepository) DeleteAutoFilled(ctx context.Context, calendarID uuid.UUID) (int64, error) {
	query := `DELETE FROM assignments WHERE master_calendar_id = $1 AND is_auto_filled = true`

	result, err := r.db.ExecContext(ctx, query, calendarID)
	if err != nil {
		return 0, fmt.Errorf("清除自动排班失败: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// DeleteAutoFilledForPhysician 删除某医师在日历中的自动排班
func (r *CalendarRepository) DeleteAutoFilledForPhysician(ctx context.Context, calendarID, physicianID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM assignments
		WHERE master_calendar_id = $1 AND physician_id = $2 AND is_auto_filled = true
	`

	result, err := r.db.ExecContext(ctx, query, calendarID, physicianID)
	if err != nil {
		return 0, fmt.Errorf("清除医师自动排班失败: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// scanCalendar 扫描日历记录
func (r *CalendarRepository) scanCalendar(row Scanner) (*model.MasterCalendar, error) {
	cal := &model.MasterCalendar{}
	err := row.Scan(&cal.ID, &cal.FiscalYearID, &cal.Version, &cal.Status,
		&cal.PublishedAt, &cal.CreatedAt, &cal.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描日历记录失败: %w", err)
	}
	return cal, nil
}

// scanAssignment 扫描排班格子
func (r *CalendarRepository) scanAssignment(row Scanner) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := row.Scan(&a.ID, &a.MasterCalendarID, &a.WeekID, &a.RotationID, &a.PhysicianID,
		&a.IsAutoFilled, &a.AssignedBy, &a.AssignedAt, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描排班格子失败: %w", err)
	}
	return a, nil
}
