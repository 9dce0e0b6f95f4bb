// Package errors defines the coded error type shared by the gbdx engine and
// its command-line surface.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes. Each code names one class of failure a caller can react to.
const (
	CodeInvalidPort              = "InvalidPort"
	CodeUnsupportedContainerType = "UnsupportedContainerType"
	CodeTaskAPI                  = "TaskAPIError"
	CodeContainerRuntime         = "ContainerRuntimeError"
	CodeInvalidWorkflow          = "InvalidWorkflow"
	CodeNotImplemented           = "NotImplemented"
)

type GbdxError struct {
	Code    string
	Message string
	Err     error
}

func (e *GbdxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GbdxError) Unwrap() error {
	return e.Err
}

func New(code, message string) *GbdxError {
	return &GbdxError{Code: code, Message: message}
}

func Wrap(err error, code, message string) *GbdxError {
	return &GbdxError{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in err's chain is a *GbdxError with the given code.
func HasCode(err error, code string) bool {
	var ge *GbdxError
	for err != nil {
		if !stderrors.As(err, &ge) {
			return false
		}
		if ge.Code == code {
			return true
		}
		err = ge.Err
	}
	return false
}

// InvalidPort reports a port binding that cannot be resolved.
func InvalidPort(name, reason string) *GbdxError {
	if reason == "" {
		return New(CodeInvalidPort, name)
	}
	return New(CodeInvalidPort, fmt.Sprintf("%s: %s", name, reason))
}

// UnsupportedContainerType reports a task descriptor that cannot run on the local Docker runtime.
func UnsupportedContainerType(kind string) *GbdxError {
	return New(CodeUnsupportedContainerType, kind)
}

// TaskAPI reports a non-success response from the task registry; the body is kept verbatim.
func TaskAPI(status int, body string) *GbdxError {
	return Wrap(fmt.Errorf("status %d", status), CodeTaskAPI, body)
}

// ContainerRuntime wraps a failure from the container runtime client.
func ContainerRuntime(err error, step string) *GbdxError {
	return Wrap(err, CodeContainerRuntime, step)
}
