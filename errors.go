package gainmap

import (
	"errors"
	"fmt"
)

var (
	// ErrShaderCompile is returned when a shader stage fails to compile.
	ErrShaderCompile = errors.New("shader compile failed")
	// ErrShaderLink is returned when the program fails to link.
	ErrShaderLink = errors.New("shader link failed")
	// ErrUnsupportedPixelFormat is returned for pixel buffers that cannot be read back for upload.
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")
	// ErrMalformedCurve is returned when a transfer function is discontinuous at its threshold.
	ErrMalformedCurve = errors.New("malformed transfer function")
	// ErrNegativeSlope is returned when a transfer function is not invertible.
	ErrNegativeSlope = errors.New("transfer function has negative slope")
	// ErrGPU is returned when the platform reports an error after a state-changing call.
	ErrGPU = errors.New("gpu error")
)

// Scope tells how far a render failure reaches.
type Scope int

const (
	// ScopeSession failures leave the renderer unusable; the caller should fall back to SDR display.
	ScopeSession Scope = iota
	// ScopeFrame failures skip the current frame only; the previous frame stays on screen.
	ScopeFrame
)

func (s Scope) String() string {
	switch s {
	case ScopeSession:
		return "session"
	case ScopeFrame:
		return "frame"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// RenderError is returned by renderer operations.
type RenderError struct {
	Scope Scope
	Op    string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s (%s fatal): %v", e.Op, e.Scope, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func sessionError(op string, err error) error {
	return &RenderError{Scope: ScopeSession, Op: op, Err: err}
}

func frameError(op string, err error) error {
	return &RenderError{Scope: ScopeFrame, Op: op, Err: err}
}

// IsFrameError reports whether err only invalidates the current frame.
func IsFrameError(err error) bool {
	var re *RenderError
	return errors.As(err, &re) && re.Scope == ScopeFrame
}

// IsSessionError reports whether err invalidates the whole render session.
func IsSessionError(err error) bool {
	var re *RenderError
	return errors.As(err, &re) && re.Scope == ScopeSession
}
