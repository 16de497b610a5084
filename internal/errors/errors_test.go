package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		wantParts []string
	}{
		{
			name:      "with cause",
			err:       Pool(errors.New("database is closed")),
			wantParts: []string{"POOL_ERROR", "acquire connection", "database is closed"},
		},
		{
			name:      "without cause",
			err:       New(InternalError, "boom", nil),
			wantParts: []string{"INTERNAL_ERROR", "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := Write(context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("handler: %w", Read(errors.New("no rows")))

	if !errors.Is(err, &Error{Code: ReadError}) {
		t.Error("expected wrapped error to match ReadError")
	}
	if errors.Is(err, &Error{Code: WriteError}) {
		t.Error("did not expect wrapped error to match WriteError")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("x"), InternalError},
		{"schema", Schema(errors.New("x")), SchemaError},
		{"wrapped write", fmt.Errorf("outer: %w", Write(nil)), WriteError},
		{"cancelled", New(Cancelled, "caller gone", context.Canceled), Cancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCodesAreDistinct(t *testing.T) {
	seen := make(map[ErrorCode]bool)
	for _, c := range Codes {
		if seen[c] {
			t.Errorf("duplicate code %q", c)
		}
		seen[c] = true
	}
}
