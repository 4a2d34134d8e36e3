// Package logger 提供统一的日志框架
package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// AutoFillLogger 自动排班专用日志器
type AutoFillLogger struct {
	base *zerolog.Logger
}

// NewAutoFillLogger 创建自动排班日志器
func NewAutoFillLogger() *AutoFillLogger {
	l := Get().With().Str("component", "autofill").Logger()
	return &AutoFillLogger{base: &l}
}

// StartRun 记录自动排班开始
func (l *AutoFillLogger) StartRun(calendarID, mode string, physicians, cells int) {
	l.base.Info().
		Str("calendar_id", calendarID).
		Str("mode", mode).
		Int("physicians", physicians).
		Int("unfilled_cells", cells).
		Msg("开始自动排班")
}

// PassComplete 记录一轮遍历完成
func (l *AutoFillLogger) PassComplete(calendarID string, pass, filled int) {
	l.base.Debug().
		Str("calendar_id", calendarID).
		Int("pass", pass).
		Int("filled", filled).
		Msg("本轮遍历完成")
}

// CellUnfilled 记录无候选人的格子
func (l *AutoFillLogger) CellUnfilled(weekNumber int, rotation string) {
	l.base.Warn().
		Int("week_number", weekNumber).
		Str("rotation", rotation).
		Msg("格子无可用候选医师")
}

// RunComplete 记录自动排班完成
func (l *AutoFillLogger) RunComplete(calendarID string, duration time.Duration, filled, unfilled, passes int) {
	l.base.Info().
		Str("calendar_id", calendarID).
		Dur("duration", duration).
		Int("filled", filled).
		Int("unfilled", unfilled).
		Int("passes", passes).
		Msg("自动排班完成")
}
