// Package events carries session lifecycle notifications to observers
// (logging, the UI handoff, tests).
package events

import (
	"time"

	"maskbrowser/backend/domain"
)

// EventType 事件类型
type EventType string

const (
	// EventTransition the session entered a new state
	EventTransition EventType = "session.transition"

	// EventProxyApplyFailed the desired proxy could not be written; the session continues
	EventProxyApplyFailed EventType = "proxy.apply_failed"

	// EventProxyRestoreFailed the original proxy could not be written back
	EventProxyRestoreFailed EventType = "proxy.restore_failed"

	// 通配符事件（用于订阅所有事件）
	EventAll EventType = "*"
)

// Event 事件接口
type Event interface {
	Type() EventType
}

// TransitionEvent records one state change.
type TransitionEvent struct {
	SessionID string
	From      domain.SessionState
	To        domain.SessionState
	At        time.Time
	// Err is set when To is a terminal failure state.
	Err error
}

func (e TransitionEvent) Type() EventType { return EventTransition }

// ProxyEvent reports a proxy write failure.
type ProxyEvent struct {
	EventType EventType
	SessionID string
	State     domain.ProxyState
	Err       error
}

func (e ProxyEvent) Type() EventType { return e.EventType }
