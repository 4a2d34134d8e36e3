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

// RotationRepository 轮转仓储
// 覆盖轮转、医师级别规则、门诊类型/安排与cFTE目标，
// 这些都是按财年配置的静态版图数据
type RotationRepository struct {
	db DB
}

// NewRotationRepository 创建轮转仓储
func NewRotationRepository(db DB) *RotationRepository {
	return &RotationRepository{db: db}
}

// Create 创建轮转
func (r *RotationRepository) Create(ctx context.Context, rot *model.Rotation) error {
	if rot.ID == uuid.Nil {
		rot.ID = uuid.New()
	}
	now := time.Now()
	rot.CreatedAt = now
	rot.UpdatedAt = now

	query := `
		INSERT INTO rotations (
			id, fiscal_year_id, name, abbreviation, cfte_per_week,
			min_staff, max_consecutive_weeks, sort_order, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		rot.ID, rot.FiscalYearID, rot.Name, rot.Abbreviation, rot.CftePerWeek,
		rot.MinStaff, rot.MaxConsecutiveWeeks, rot.SortOrder, rot.IsActive, rot.CreatedAt, rot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建轮转失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取轮转
func (r *RotationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Rotation, error) {
	query := `
		SELECT id, fiscal_year_id, name, abbreviation, cfte_per_week,
			min_staff, max_consecutive_weeks, sort_order, is_active, created_at, updated_at
		FROM rotations
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanRotation(r.db.QueryRowContext(ctx, query, id))
}

// ListByFiscalYear 列出财年的轮转（按排序值升序）
func (r *RotationRepository) ListByFiscalYear(ctx context.Context, fiscalYearID uuid.UUID) ([]*model.Rotation, error) {
	query := `
		SELECT id, fiscal_year_id, name, abbreviation, cfte_per_week,
			min_staff, max_consecutive_weeks, sort_order, is_active, created_at, updated_at
		FROM rotations
		WHERE fiscal_year_id = $1 AND deleted_at IS NULL
		ORDER BY sort_order ASC
	`

	rows, err := r.db.QueryContext(ctx, query, fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("查询轮转列表失败: %w", err)
	}
	defer rows.Close()

	var result []*model.Rotation
	for rows.Next() {
		rot, err := r.scanRotation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rot)
	}
	return result, rows.Err()
}

// Update 更新轮转
func (r *RotationRepository) Update(ctx context.Context, rot *model.Rotation) error {
	rot.UpdatedAt = time.Now()

	query := `
		UPDATE rotations SET
			name = $2, abbreviation = $3, cfte_per_week = $4, min_staff = $5,
			max_consecutive_weeks = $6, sort_order = $7, is_active = $8, updated_at = $9
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		rot.ID, rot.Name, rot.Abbreviation, rot.CftePerWeek, rot.MinStaff,
		rot.MaxConsecutiveWeeks, rot.SortOrder, rot.IsActive, rot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新轮转失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("轮转不存在")
	}
	return nil
}

// ListRules 列出财年的医师级别连续周数规则
func (r *RotationRepository) ListRules(ctx context.Context, fiscalYearID uuid.UUID) ([]*model.PhysicianRotationRule, error) {
	query := `
		SELECT id, fiscal_year_id, physician_id, rotation_id, max_consecutive_weeks, created_at, updated_at
		FROM physician_rotation_rules
		WHERE fiscal_year_id = $1 AND deleted_at IS NULL
	`

	rows, err := r.db.QueryContext(ctx, query, fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("查询轮转规则失败: %w", err)
	}
	defer rows.Close()

	var result []*model.PhysicianRotationRule
	for rows.Next() {
		rule := &model.PhysicianRotationRule{}
		if err := rows.Scan(&rule.ID, &rule.FiscalYearID, &rule.PhysicianID, &rule.RotationID,
			&rule.MaxConsecutiveWeeks, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("扫描轮转规则失败: %w", err)
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

// UpsertRule 创建或更新医师级别规则
func (r *RotationRepository) UpsertRule(ctx context.Context, rule *model.PhysicianRotationRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	now := time.Now()
	rule.UpdatedAt = now

	query := `
		INSERT INTO physician_rotation_rules (
			id, fiscal_year_id, physician_id, rotation_id, max_consecutive_weeks, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (fiscal_year_id, physician_id, rotation_id)
		DO UPDATE SET max_consecutive_weeks = $5, updated_at = $6
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.FiscalYearID, rule.PhysicianID, rule.RotationID, rule.MaxConsecutiveWeeks, now,
	)
	if err != nil {
		return fmt.Errorf("保存轮转规则失败: %w", err)
	}
	return nil
}

// ListClinicTypes 列出财年的门诊类型
func (r *RotationRepository) ListClinicTypes(ctx context.Context, fiscalYearID uuid.UUID) ([]*model.ClinicType, error) {
	query := `
		SELECT id, fiscal_year_id, name, cfte_per_half_day, created_at, updated_at
		FROM clinic_types
		WHERE fiscal_year_id = $1 AND deleted_at IS NULL
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("查询门诊类型失败: %w", err)
	}
	defer rows.Close()

	var result []*model.ClinicType
	for rows.Next() {
		ct := &model.ClinicType{}
		if err := rows.Scan(&ct.ID, &ct.FiscalYearID, &ct.Name, &ct.CftePerHalfDay,
			&ct.CreatedAt, &ct.UpdatedAt); err != nil {
			return nil, fmt.Errorf("扫描门诊类型失败: %w", err)
		}
		result = append(result, ct)
	}
	return result, rows.Err()
}

// ListClinicAssignments 列出财年的医师门诊安排
func (r *RotationRepository) ListClinicAssignments(ctx context.Context, fiscalYearID uuid.UUID) ([]*model.PhysicianClinicAssignment, error) {
	query := `
		SELECT id, fiscal_year_id, physician_id, clinic_type_id, half_days_per_week, active_weeks, created_at, updated_at
		FROM physician_clinic_assignments
		WHERE fiscal_year_id = $1 AND deleted_at IS NULL
	`

	rows, err := r.db.QueryContext(ctx, query, fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("查询门诊安排失败: %w", err)
	}
	defer rows.Close()

	var result []*model.PhysicianClinicAssignment
	for rows.Next() {
		ca := &model.PhysicianClinicAssignment{}
		if err := rows.Scan(&ca.ID, &ca.FiscalYearID, &ca.PhysicianID, &ca.ClinicTypeID,
			&ca.HalfDaysPerWeek, &ca.ActiveWeeks, &ca.CreatedAt, &ca.UpdatedAt); err != nil {
			return nil, fmt.Errorf("扫描门诊安排失败: %w", err)
		}
		result = append(result, ca)
	}
	return result, rows.Err()
}

// ListCfteTargets 列出财年的医师cFTE目标
func (r *RotationRepository) ListCfteTargets(ctx context.Context, fiscalYearID uuid.UUID) ([]*model.PhysicianCfteTarget, error) {
	query := `
		SELECT id, fiscal_year_id, physician_id, target_cfte, created_at, updated_at
		FROM physician_cfte_targets
		WHERE fiscal_year_id = $1 AND deleted_at IS NULL
	`

	rows, err := r.db.QueryContext(ctx, query, fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("查询cFTE目标失败: %w", err)
	}
	defer rows.Close()

	var result []*model.PhysicianCfteTarget
	for rows.Next() {
		t := &model.PhysicianCfteTarget{}
		if err := rows.Scan(&t.ID, &t.FiscalYearID, &t.PhysicianID, &t.TargetCfte,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("扫描cFTE目标失败: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// UpsertCfteTarget 创建或更新医师cFTE目标
func (r *RotationRepository) UpsertCfteTarget(ctx context.Context, t *model.PhysicianCfteTarget) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.UpdatedAt = now

	query := `
		INSERT INTO physician_cfte_targets (
			id, fiscal_year_id, physician_id, target_cfte, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (fiscal_year_id, physician_id)
		DO UPDATE SET target_cfte = $4, updated_at = $5
	`

	_, err := r.db.ExecContext(ctx, query, t.ID, t.FiscalYearID, t.PhysicianID, t.TargetCfte, now)
	if err != nil {
		return fmt.Errorf("保存cFTE目标失败: %w", err)
	}
	return nil
}

// scanRotation 扫描轮转记录
func (r *RotationRepository) scanRotation(row Scanner) (*model.Rotation, error) {
	rot := &model.Rotation{}
	err := row.Scan(&rot.ID, &rot.FiscalYearID, &rot.Name, &rot.Abbreviation, &rot.CftePerWeek,
		&rot.MinStaff, &rot.MaxConsecutiveWeeks, &rot.SortOrder, &rot.IsActive,
		&rot.CreatedAt, &rot.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描轮转记录失败: %w", err)
	}
	return rot, nil
}
