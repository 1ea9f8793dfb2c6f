package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/docmigrate/internal/sink"
	"github.com/JonMunkholm/docmigrate/internal/source"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "mongo server selection maps correctly",
			err:         errors.New("ping mongodb: server selection error: context deadline exceeded"),
			wantCode:    "SRC001",
			wantMessage: "Unable to reach MongoDB",
		},
		{
			name:        "missing collection maps correctly",
			err:         fmt.Errorf("%w: shop.orders", source.ErrCollectionNotFound),
			wantCode:    "SRC003",
			wantMessage: "The requested collection does not exist",
		},
		{
			name:        "empty database maps correctly",
			err:         fmt.Errorf("%w in database shop", ErrNoCollections),
			wantCode:    "SRC004",
			wantMessage: "The database has no collections",
		},
		{
			name:        "sqlite unique constraint maps correctly",
			err:         errors.New("UNIQUE constraint failed: users._id"),
			wantCode:    "SNK001",
			wantMessage: "A row with this _id already exists",
		},
		{
			name:        "mysql duplicate entry maps correctly",
			err:         errors.New("Error 1062 (23000): Duplicate entry '1' for key 'PRIMARY'"),
			wantCode:    "SNK001",
			wantMessage: "A row with this _id already exists",
		},
		{
			name:        "batch error keeps driver cause",
			err:         newBatchError("users", 2, &sink.RowError{Index: 4, Err: errors.New("UNIQUE constraint failed: users._id")}),
			wantCode:    "SNK001",
			wantMessage: "A row with this _id already exists",
		},
		{
			name:        "batch error without known cause",
			err:         newBatchError("users", 1, errors.New("disk I/O error")),
			wantCode:    "MIG003",
			wantMessage: "A batch was rolled back",
		},
		{
			name:        "sqlite missing table maps correctly",
			err:         errors.New("no such table: users"),
			wantCode:    "SNK002",
			wantMessage: "The target table does not exist",
		},
		{
			name:        "postgres missing relation maps correctly",
			err:         errors.New(`ERROR: relation "users" does not exist (SQLSTATE 42P01)`),
			wantCode:    "SNK002",
			wantMessage: "The target table does not exist",
		},
		{
			name:        "schema drift maps correctly",
			err:         errors.New("table users has no column named email"),
			wantCode:    "SNK003",
			wantMessage: "The existing table has different columns",
		},
		{
			name:        "cancellation maps correctly",
			err:         fmt.Errorf("read collection users: %w", context.Canceled),
			wantCode:    "MIG001",
			wantMessage: "The migration was interrupted",
		},
		{
			name:        "config validation maps correctly",
			err:         errors.New("validation failed:\n  - --batch-size must be greater than 0"),
			wantCode:    "CFG001",
			wantMessage: "One or more options are invalid",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DATABASE IS LOCKED"),
			wantCode:    "SNK004",
			wantMessage: "The output database is in use by another process",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := errors.New("no such table: users")
	result := FormatUserError(err)

	expected := "The target table does not exist (Code: SNK002). Run without --data-only so tables are created first"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  errors.New("duplicate key value violates unique constraint"),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := errors.New("UNIQUE constraint failed: users._id")
		userErr := NewUserError(techErr)

		if userErr.Error() != "A row with this _id already exists" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}
