package diag

import (
	"context"
	"errors"
	"net"
)

// Code is a coarse error class used only for log aggregation.
type Code string

const (
	CodeUnknown  Code = "unknown"
	CodeConfig   Code = "config"
	CodeNetwork  Code = "network"
	CodeProtocol Code = "protocol"
	CodeUpstream Code = "upstream"
	CodeCancel   Code = "cancel"
	CodeCapture  Code = "capture"
)

// classifier lets packages report their own class without diag importing them.
type classifier interface {
	ErrorCode() Code
}

// Classify maps err to a Code. It only looks at sentinel wrapping and error
// types, never at message text.
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	var c classifier
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return CodeNetwork
	}
	return CodeUnknown
}

// Kind is a sentinel error that carries its own Code. Packages declare their
// sentinels with it so Classify can see through %w wrapping.
type Kind struct {
	Msg  string
	Code Code
}

func (k *Kind) Error() string   { return k.Msg }
func (k *Kind) ErrorCode() Code { return k.Code }

// NewKind declares a classified sentinel error.
func NewKind(code Code, msg string) error { return &Kind{Msg: msg, Code: code} }
