// YiPai 医师轮转排班引擎服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/yipai/yipai/internal/config"
	"github.com/yipai/yipai/internal/database"
	"github.com/yipai/yipai/internal/handler"
	"github.com/yipai/yipai/internal/metrics"
	"github.com/yipai/yipai/internal/service"
	"github.com/yipai/yipai/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 开发环境下从 .env 加载环境变量（文件不存在则忽略）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	format := "json"
	if cfg.IsDevelopment() {
		format = "console"
	}
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: format,
	})

	// 打印版本信息
	fmt.Printf("YiPai 医师排班引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 连接数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Error().Err(err).Msg("数据库连接失败")
		os.Exit(1)
	}
	defer db.Close()

	// 创建服务与处理器
	services := service.New(db)
	autofillHandler := handler.NewAutoFillHandler(services.AutoFill, cfg.AutoFill.RunTimeout)
	swapHandler := handler.NewSwapHandler(services.Swap)
	rosterHandler := handler.NewRosterHandler(services.Roster)

	// 创建 HTTP 服务器
	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	// 健康检查端点（含数据库探活）
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"degraded","service":"yipai","database":"%v"}`, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"yipai"}`))
	})

	// 版本信息端点
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	// API 根路由
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "YiPai 医师排班引擎 API v1",
			"endpoints": {
				"autofill": {
					"run": "POST /api/v1/autofill/run",
					"physician": "POST /api/v1/autofill/physician",
					"clear": "POST /api/v1/autofill/clear"
				},
				"calendar": {
					"view": "GET /api/v1/calendar",
					"assign": "POST /api/v1/calendar/assign",
					"publish": "POST /api/v1/calendar/publish"
				},
				"decision_log": "GET /api/v1/decision-log",
				"swap": {
					"suggest": "POST /api/v1/swap/suggest"
				},
				"config": {
					"autofill": "GET|PUT /api/v1/config/autofill"
				},
				"roster": {
					"fiscal_years": "GET|POST /api/v1/fiscal-years",
					"advance": "POST /api/v1/fiscal-years/advance",
					"physicians": "GET|POST|PUT /api/v1/physicians",
					"rotations": "GET|POST|PUT /api/v1/rotations",
					"schedule_requests": "POST /api/v1/schedule-requests",
					"rotation_preferences": "POST /api/v1/rotation-preferences",
					"approve": "POST /api/v1/approvals",
					"cfte_targets": "PUT /api/v1/cfte-targets",
					"rotation_rules": "PUT /api/v1/rotation-rules"
				}
			}
		}`))
	})

	// 自动排班 API
	mux.HandleFunc("/api/v1/autofill/run", autofillHandler.Run)
	mux.HandleFunc("/api/v1/autofill/physician", autofillHandler.RunPhysician)
	mux.HandleFunc("/api/v1/autofill/clear", autofillHandler.Clear)

	// 决策日志 API
	mux.HandleFunc("/api/v1/decision-log", autofillHandler.DecisionLog)

	// 自动排班配置 API
	mux.HandleFunc("/api/v1/config/autofill", autofillHandler.Config)

	// 日历 API
	mux.HandleFunc("/api/v1/calendar", rosterHandler.Calendar)
	mux.HandleFunc("/api/v1/calendar/assign", autofillHandler.AssignManual)
	mux.HandleFunc("/api/v1/calendar/publish", autofillHandler.Publish)

	// 换班候选 API
	mux.HandleFunc("/api/v1/swap/suggest", swapHandler.Suggest)

	// 基础数据 API
	mux.HandleFunc("/api/v1/fiscal-years", rosterHandler.FiscalYears)
	mux.HandleFunc("/api/v1/fiscal-years/advance", rosterHandler.AdvanceFiscalYear)
	mux.HandleFunc("/api/v1/physicians", rosterHandler.Physicians)
	mux.HandleFunc("/api/v1/rotations", rosterHandler.Rotations)
	mux.HandleFunc("/api/v1/schedule-requests", rosterHandler.SubmitScheduleRequest)
	mux.HandleFunc("/api/v1/rotation-preferences", rosterHandler.UpsertRotationPreference)
	mux.HandleFunc("/api/v1/approvals", rosterHandler.Approve)
	mux.HandleFunc("/api/v1/cfte-targets", rosterHandler.UpsertCfteTarget)
	mux.HandleFunc("/api/v1/rotation-rules", rosterHandler.UpsertRotationRule)

	// ========================================
	// 监控端点
	// ========================================

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// ========================================
	// 中间件
	// ========================================

	// 中间件执行顺序：requestID -> rateLimit -> cors -> logging -> handler
	rateLimiter := NewRateLimiter(float64(cfg.API.RateLimit))
	root := requestIDMiddleware(rateLimitMiddleware(rateLimiter, corsMiddleware(loggingMiddleware(mux))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AutoFill.RunTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// requestIDMiddleware 请求ID追踪中间件
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 尝试从请求头获取 Request ID，没有则生成新的
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// 设置响应头
		w.Header().Set("X-Request-ID", requestID)

		// 将 Request ID 存储到 context 中
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

// loggingMiddleware 日志中间件
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 获取 Request ID
		requestID, _ := r.Context().Value(requestIDKey{}).(string)

		// 包装ResponseWriter以捕获状态码
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("请求处理")

		// 记录Prometheus指标
		metrics.RecordRequestMetrics(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// responseWriter 包装ResponseWriter以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RateLimiter 简单的令牌桶限流器
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // 每秒添加的令牌数
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2, // 允许突发流量
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// rateLimitMiddleware 限流中间件
func rateLimitMiddleware(limiter *RateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   true,
				"code":    "RATE_LIMITED",
				"message": "请求过于频繁，请稍后重试",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware CORS中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
