// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/yipai/yipai/pkg/model"
)

// FiscalYearRepository 财年仓储
type FiscalYearRepository struct {
	db DB
}

// NewFiscalYearRepository 创建财年仓储
func NewFiscalYearRepository(db DB) *FiscalYearRepository {
	return &FiscalYearRepository{db: db}
}

// Create 创建财年
func (r *FiscalYearRepository) Create(ctx context.Context, fy *model.FiscalYear) error {
	if fy.ID == uuid.Nil {
		fy.ID = uuid.New()
	}
	now := time.Now()
	fy.CreatedAt = now
	fy.UpdatedAt = now

	query := `
		INSERT INTO fiscal_years (id, label, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		fy.ID, fy.Label, fy.StartDate, fy.EndDate, fy.Status, fy.CreatedAt, fy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建财年失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取财年
func (r *FiscalYearRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.FiscalYear, error) {
	query := `
		SELECT id, label, start_date, end_date, status, created_at, updated_at
		FROM fiscal_years
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanFiscalYear(r.db.QueryRowContext(ctx, query, id))
}

// List 列出财年
func (r *FiscalYearRepository) List(ctx context.Context, filter ListFilter) ([]*model.FiscalYear, error) {
	query := `
		SELECT id, label, start_date, end_date, status, created_at, updated_at
		FROM fiscal_years
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY start_date DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询财年列表失败: %w", err)
	}
	defer rows.Close()

	var result []*model.FiscalYear
	for rows.Next() {
		fy, err := r.scanFiscalYear(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, fy)
	}
	return result, rows.Err()
}

// UpdateStatus 更新财年状态
func (r *FiscalYearRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.FiscalYearStatus) error {
	query := `UPDATE fiscal_years SET status = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("更新财年状态失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("财年不存在")
	}
	return nil
}

// CreateWeeks 批量创建财年的周
func (r *FiscalYearRepository) CreateWeeks(ctx context.Context, weeks []*model.Week) error {
	query := `
		INSERT INTO weeks (id, fiscal_year_id, week_number, start_date, end_date, holidays)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, w := range weeks {
		if w.ID == uuid.Nil {
			w.ID = uuid.New()
		}
		_, err := r.db.ExecContext(ctx, query,
			w.ID, w.FiscalYearID, w.WeekNumber, w.StartDate, w.EndDate, pq.Array(w.Holidays),
		)
		if err != nil {
			return fmt.Errorf("创建周记录失败: %w", err)
		}
	}
	return nil
}

// GetWeeks 获取财年的全部周（按周数升序）
func (r *FiscalYearRepository) GetWeeks(ctx context.Context, fiscalYearID uuid.UUID) ([]*model.Week, error) {
	query := `
		SELECT id, fiscal_year_id, week_number, start_date, end_date, holidays
		FROM weeks
		WHERE fiscal_year_id = $1
		ORDER BY week_number ASC
	`

	rows, err := r.db.QueryContext(ctx, query, fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("查询周列表失败: %w", err)
	}
	defer rows.Close()

	var result []*model.Week
	for rows.Next() {
		w := &model.Week{}
		if err := rows.Scan(&w.ID, &w.FiscalYearID, &w.WeekNumber, &w.StartDate, &w.EndDate, pq.Array(&w.Holidays)); err != nil {
			return nil, fmt.Errorf("扫描周记录失败: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// scanFiscalYear 扫描财年记录
func (r *FiscalYearRepository) scanFiscalYear(row Scanner) (*model.FiscalYear, error) {
	fy := &model.FiscalYear{}
	err := row.Scan(&fy.ID, &fy.Label, &fy.StartDate, &fy.EndDate, &fy.Status, &fy.CreatedAt, &fy.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描财年记录失败: %w", err)
	}
	return fy, nil
}
