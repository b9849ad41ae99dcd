package aggregates

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/catalog-backend/internal/platform/dbctx"
)

// CASGuard performs compare-and-set writes keyed on lock_version.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx == nil && g.db == nil {
		return nil, NewError(CodeValidation, "cas", "missing db transaction context", nil)
	}
	return dbc.DB(g.db), nil
}

// UpdateByVersion applies updates only when id and lock_version match, and
// bumps lock_version in the same statement.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, id uuid.UUID, expected int, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, NewError(CodeValidation, "cas", "table and id are required for UpdateByVersion", nil)
	}
	if expected < 0 {
		return false, NewError(CodeValidation, "cas", "expected version must be >= 0", nil)
	}
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["lock_version"] = expected + 1
	res := db.Table(table).
		Where("id = ? AND lock_version = ?", id, expected).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a failed compare-and-set into a conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}
