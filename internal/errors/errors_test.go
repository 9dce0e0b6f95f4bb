package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGbdxError(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := New(CodeInvalidPort, "msg")
		assert.Equal(t, "InvalidPort: msg", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := stderrors.New("boom")
		err := Wrap(cause, CodeContainerRuntime, "start")
		assert.Equal(t, "ContainerRuntimeError: start - boom", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}

func TestHasCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{name: "nil", err: nil, code: CodeInvalidPort, want: false},
		{name: "plain error", err: stderrors.New("x"), code: CodeInvalidPort, want: false},
		{name: "direct match", err: InvalidPort("in", ""), code: CodeInvalidPort, want: true},
		{name: "wrapped by fmt", err: fmt.Errorf("ctx: %w", UnsupportedContainerType("GCE")), code: CodeUnsupportedContainerType, want: true},
		{name: "different code", err: TaskAPI(404, "not found"), code: CodeContainerRuntime, want: false},
		{
			name: "nested coded errors",
			err:  Wrap(ContainerRuntime(stderrors.New("x"), "wait"), CodeInvalidWorkflow, "outer"),
			code: CodeContainerRuntime,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCode(tt.err, tt.code))
		})
	}
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, "InvalidPort: data: must be a valid directory", InvalidPort("data", "must be a valid directory").Error())
	assert.Equal(t, "TaskAPIError: {\"error\":\"nope\"} - status 500", TaskAPI(500, `{"error":"nope"}`).Error())
	assert.Equal(t, "UnsupportedContainerType: GCE", UnsupportedContainerType("GCE").Error())
}
