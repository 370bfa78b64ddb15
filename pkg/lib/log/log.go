// Package log 提供 go-mailx 统一日志接口
//
// 基于 Go 标准库 log/slog 封装，提供简洁的日志 API。
//
// 支持通过环境变量配置：
//   - MAILX_LOG_LEVEL: debug / info / warn / error（默认 info）
//   - MAILX_LOG_FORMAT: text 或 json（默认 text）
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// 环境变量名
const (
	EnvLogLevel  = "MAILX_LOG_LEVEL"
	EnvLogFormat = "MAILX_LOG_FORMAT"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format 日志输出格式
type Format int

const (
	// FormatText 文本格式（默认）
	FormatText Format = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// Config 日志配置
type Config struct {
	Level  slog.Level
	Format Format
}

// ConfigFromEnv 从环境变量解析配置
func ConfigFromEnv() Config {
	cfg := Config{Level: slog.LevelInfo, Format: FormatText}
	if v := os.Getenv(EnvLogLevel); v != "" {
		if level, ok := ParseLevel(v); ok {
			cfg.Level = level
		}
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(EnvLogFormat)), "json") {
		cfg.Format = FormatJSON
	}
	return cfg
}

// ParseLevel 解析日志级别名称
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Setup 按配置重建默认 logger，输出到 w
func Setup(w io.Writer, cfg Config) {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.Format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// SetOutput 设置日志输出目标，保留环境变量中的级别与格式
//
// 示例：
//
//	file, _ := os.OpenFile("mailx.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
//	log.SetOutput(file)
func SetOutput(w io.Writer) {
	Setup(w, ConfigFromEnv())
}

// SetLevel 设置日志级别（输出到 stderr）
func SetLevel(level slog.Level) {
	cfg := ConfigFromEnv()
	cfg.Level = level
	Setup(os.Stderr, cfg)
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次日志调用时都从 slog.Default() 获取最新的 handler，
// 支持在运行时动态切换日志输出目标。
//
// 使用方式：
//
//	var logger = log.Logger("dht")  // 返回 *LazyLogger
//	logger.Info("hello")             // 动态使用当前的 default logger
type LazyLogger struct {
	component string
}

func (l *LazyLogger) base() *slog.Logger {
	return slog.Default().With("component", l.component)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	l.base().Debug(msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	l.base().Info(msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	l.base().Warn(msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	l.base().Error(msg, args...)
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

// ============================================================================
//                              初始化
// ============================================================================

func init() {
	Setup(os.Stderr, ConfigFromEnv())
}
