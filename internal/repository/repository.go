// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// ListFilter 列表查询过滤器
type ListFilter struct {
	FiscalYearID *uuid.UUID `json:"fiscal_year_id,omitempty"`
	PhysicianID  *uuid.UUID `json:"physician_id,omitempty"`
	Status       string     `json:"status,omitempty"`
	Search       string     `json:"search,omitempty"`
	Offset       int        `json:"offset"`
	Limit        int        `json:"limit"`
	OrderBy      string     `json:"order_by,omitempty"`
	OrderDir     string     `json:"order_dir,omitempty"` // asc/desc
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset:   0,
		Limit:    20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithFiscalYear 设置财年过滤
func (f ListFilter) WithFiscalYear(id uuid.UUID) ListFilter {
	f.FiscalYearID = &id
	return f
}

// WithPhysician 设置医师过滤
func (f ListFilter) WithPhysician(id uuid.UUID) ListFilter {
	f.PhysicianID = &id
	return f
}

// WithStatus 设置状态过滤
func (f ListFilter) WithStatus(status string) ListFilter {
	f.Status = status
	return f
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx 事务接口
type Tx interface {
	DB
	Commit() error
	Rollback() error
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}
