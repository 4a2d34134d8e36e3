// Package stats 提供排班工作量与公平性统计
package stats

import (
	"math"
	"sort"
)

// PhysicianWorkload 单个医师的工作量采样
type PhysicianWorkload struct {
	PhysicianID     string  `json:"physician_id"`
	AssignedWeeks   int     `json:"assigned_weeks"`
	HolidayWeeks    int     `json:"holiday_weeks"`
	TotalCfte       float64 `json:"total_cfte"`
	GreenWeekCount  int     `json:"green_week_count"`  // 已排周中偏好为green的数量
	FilledWeekCount int     `json:"filled_week_count"` // 已排周总数（含yellow）
}

// GridMetrics 整网格聚合指标（全科模式求解结果的一部分）
type GridMetrics struct {
	TotalCells              int     `json:"total_cells"`
	FilledCells             int     `json:"filled_cells"`
	UnfilledCells           int     `json:"unfilled_cells"`
	AverageScore            float64 `json:"average_score"`
	HolidayParityScore      float64 `json:"holiday_parity_score"` // 0-100，越高越均衡
	CfteVariance            float64 `json:"cfte_variance"`
	PreferenceSatisfiedRate float64 `json:"preference_satisfied_rate"` // 已排周中green占比
	WorkloadStdDev          float64 `json:"workload_std_dev"`
}

// Analyze 从工作量采样计算聚合指标
// 平均得分由调用方从决策日志累计后填入
func Analyze(workloads []PhysicianWorkload, totalCells, filledCells int, averageScore float64) GridMetrics {
	metrics := GridMetrics{
		TotalCells:    totalCells,
		FilledCells:   filledCells,
		UnfilledCells: totalCells - filledCells,
		AverageScore:  averageScore,
	}
	if len(workloads) == 0 {
		metrics.HolidayParityScore = 100
		return metrics
	}

	weeks := make([]float64, len(workloads))
	holidays := make([]float64, len(workloads))
	cftes := make([]float64, len(workloads))
	greenTotal, filledTotal := 0, 0
	for i, w := range workloads {
		weeks[i] = float64(w.AssignedWeeks)
		holidays[i] = float64(w.HolidayWeeks)
		cftes[i] = w.TotalCfte
		greenTotal += w.GreenWeekCount
		filledTotal += w.FilledWeekCount
	}

	metrics.WorkloadStdDev = StdDev(weeks)
	metrics.CfteVariance = Variance(cftes)
	metrics.HolidayParityScore = (1 - Gini(holidays)) * 100
	if filledTotal > 0 {
		metrics.PreferenceSatisfiedRate = float64(greenTotal) / float64(filledTotal)
	}

	return metrics
}

// Mean 计算平均值
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance 计算方差
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// StdDev 计算标准差
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Gini 计算基尼系数 (0=完全均衡, 1=完全不均衡)
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}
	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}
