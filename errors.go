package mailx

import "errors"

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 会话生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 会话未启动
	ErrNotStarted = errors.New("mailx: session not started")

	// ErrAlreadyStarted 会话已启动
	ErrAlreadyStarted = errors.New("mailx: session already started")

	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("mailx: session closed")

	// ────────────────────────────────────────────────────────────────────────
	// 配置错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNilConfig 传入了空配置
	ErrNilConfig = errors.New("mailx: nil config")

	// ErrNilOverlay 传入了空覆盖网络
	ErrNilOverlay = errors.New("mailx: nil overlay")
)
