package sdk

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with underlying error",
			err: &Error{
				Op:   "framework.Load",
				Kind: KindNotFound,
				Err:  ErrFrameworkNotFound,
			},
			want: "sdk: framework.Load (not_found): framework not found",
		},
		{
			name: "without underlying error",
			err: &Error{
				Op:   "state.DocumentControl",
				Kind: KindValidation,
			},
			want: "sdk: state.DocumentControl: validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_ErrorWithContext(t *testing.T) {
	err := NewNotFoundError("framework.Load", ErrFrameworkNotFound).
		WithContext(map[string]any{"framework_id": "nist-csf-2.0"})

	msg := err.Error()
	if !strings.Contains(msg, "framework_id") {
		t.Errorf("Error() = %q, want context included", msg)
	}
}

func TestError_Unwrap(t *testing.T) {
	err := NewValidationError("state.LinkEvidence", ErrNotDocumented)

	if !errors.Is(err, ErrNotDocumented) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
}

func TestError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		target error
		want   bool
	}{
		{
			name:   "matching kind, empty op",
			err:    NewMalformedError("framework.Load", ErrMalformedDocument),
			target: &Error{Kind: KindMalformed},
			want:   true,
		},
		{
			name:   "matching kind and op",
			err:    NewMalformedError("framework.Load", ErrMalformedDocument),
			target: &Error{Op: "framework.Load", Kind: KindMalformed},
			want:   true,
		},
		{
			name:   "different kind",
			err:    NewMalformedError("framework.Load", ErrMalformedDocument),
			target: &Error{Kind: KindNotFound},
			want:   false,
		},
		{
			name:   "nil target",
			err:    NewMalformedError("framework.Load", ErrMalformedDocument),
			target: nil,
			want:   false,
		},
		{
			name:   "wrapped sentinel",
			err:    NewNotFoundError("framework.Load", fmt.Errorf("loading: %w", ErrFrameworkNotFound)),
			target: ErrFrameworkNotFound,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_WithContextDoesNotMutate(t *testing.T) {
	base := NewNotFoundError("framework.Load", ErrFrameworkNotFound)
	derived := base.WithContext(map[string]any{"framework_id": "nist-csf-2.0"})

	if base.Context != nil {
		t.Error("WithContext must not mutate the receiver")
	}
	if derived.Context["framework_id"] != "nist-csf-2.0" {
		t.Error("WithContext should carry the added context")
	}
}
