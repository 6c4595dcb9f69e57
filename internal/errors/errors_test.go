package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		expect []string
	}{
		{
			name:   "message only",
			err:    New(ErrConfig, "Bad interval", ""),
			expect: []string{"✗ Bad interval"},
		},
		{
			name:   "with suggestion",
			err:    New(ErrConfig, "Bad interval", "Use a positive duration like 1s"),
			expect: []string{"✗ Bad interval", "Use a positive duration like 1s"},
		},
		{
			name:   "with cause",
			err:    WrapWithCode(fmt.Errorf("permission denied"), ErrProviderInit, "Cannot read stats", ""),
			expect: []string{"✗ Cannot read stats", "permission denied"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.err.Error()
			for _, want := range tt.expect {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("output closed")
	err := Render(cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, ErrRender, err.Code)
}

func TestIsCode(t *testing.T) {
	wrapped := fmt.Errorf("tick 3: %w", Provider("cpu", fmt.Errorf("boom")))

	assert.True(t, IsCode(wrapped, ErrProvider))
	assert.False(t, IsCode(wrapped, ErrRender))
	assert.False(t, IsCode(nil, ErrProvider))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrProvider))
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(Provider("disk /", fmt.Errorf("gone"))))
	assert.True(t, IsFatal(ProviderInit(fmt.Errorf("no proc"))))
	assert.True(t, IsFatal(Render(fmt.Errorf("EPIPE"))))
	assert.True(t, IsFatal(fmt.Errorf("unknown")))
}

func TestProvider_Message(t *testing.T) {
	err := Provider("memory", fmt.Errorf("EACCES"))
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "Failed to read memory")
}
