package aggregates

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"record not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), CodeNotFound},
		{"pg unique", &pgconn.PgError{Code: "23505"}, CodeConflict},
		{"pg foreign key", &pgconn.PgError{Code: "23503"}, CodePreconditionFailed},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, CodeRetryable},
		{"sqlite unique", errors.New("UNIQUE constraint failed: lookup_type.key"), CodeConflict},
		{"sqlite busy", errors.New("database is locked"), CodeRetryable},
		{"other", errors.New("boom"), CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(MapError("op", tc.err)); got != tc.want {
				t.Fatalf("want=%s got=%s", tc.want, got)
			}
		})
	}
	if MapError("op", nil) != nil {
		t.Fatalf("nil error mapped to non-nil")
	}
}
