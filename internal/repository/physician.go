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

// PhysicianRepository 医师仓储
type PhysicianRepository struct {
	db DB
}

// NewPhysicianRepository 创建医师仓储
func NewPhysicianRepository(db DB) *PhysicianRepository {
	return &PhysicianRepository{db: db}
}

// Create 创建医师
func (r *PhysicianRepository) Create(ctx context.Context, p *model.Physician) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO physicians (
			id, name, initials, role, is_active, active_from, active_until, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Initials, p.Role, p.IsActive, p.ActiveFrom, p.ActiveUntil, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建医师失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取医师
func (r *PhysicianRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Physician, error) {
	query := `
		SELECT id, name, initials, role, is_active, active_from, active_until, created_at, updated_at
		FROM physicians
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanPhysician(r.db.QueryRowContext(ctx, query, id))
}

// List 列出医师
func (r *PhysicianRepository) List(ctx context.Context, filter ListFilter) ([]*model.Physician, error) {
	query := `
		SELECT id, name, initials, role, is_active, active_from, active_until, created_at, updated_at
		FROM physicians
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}

	if filter.Status == "active" {
		query += " AND is_active = true"
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (name ILIKE $%d OR initials ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY name ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询医师列表失败: %w", err)
	}
	defer rows.Close()

	var result []*model.Physician
	for rows.Next() {
		p, err := r.scanPhysician(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Update 更新医师
func (r *PhysicianRepository) Update(ctx context.Context, p *model.Physician) error {
	p.UpdatedAt = time.Now()

	query := `
		UPDATE physicians SET
			name = $2, initials = $3, role = $4, is_active = $5,
			active_from = $6, active_until = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Initials, p.Role, p.IsActive, p.ActiveFrom, p.ActiveUntil, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新医师失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("医师不存在")
	}
	return nil
}

// scanPhysician 扫描医师记录
func (r *PhysicianRepository) scanPhysician(row Scanner) (*model.Physician, error) {
	p := &model.Physician{}
	err := row.Scan(&p.ID, &p.Name, &p.Initials, &p.Role, &p.IsActive,
		&p.ActiveFrom, &p.ActiveUntil, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描医师记录失败: %w", err)
	}
	return p, nil
}
