package response

import (
	"errors"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
)

var errInternal = errors.New("internal error")

func asRule(err error, target **catalog.RuleError) bool {
	return errors.As(err, target) && *target != nil
}
