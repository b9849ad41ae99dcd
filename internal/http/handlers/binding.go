package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/http/response"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
)

// headerIfMatch carries the lock_version the client last read.
const headerIfMatch = "If-Match"

var registerOnce sync.Once

// catalogTags are the binding tags for request payloads: attrkey for
// snake_case schema keys and policy for allow policies.
var catalogTags = map[string]validator.Func{
	"attrkey": func(fl validator.FieldLevel) bool {
		return catalog.ValidKey(fl.Field().String())
	},
	"policy": func(fl validator.FieldLevel) bool {
		_, err := parsePolicy(fl.Field().String())
		return err == nil
	},
}

// RegisterValidators adds the catalog tags to gin's validator. It panics if a
// tag does not register.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := registerTags(v, catalogTags); err != nil {
			panic(fmt.Sprintf("handlers: %v", err))
		}
	})
}

func registerTags(v *validator.Validate, tags map[string]validator.Func) error {
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := v.RegisterValidation(name, tags[name]); err != nil {
			return fmt.Errorf("register %q validator: %w", name, err)
		}
	}
	return nil
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", bindError(err))
		return false
	}
	return true
}

// bindError flattens validator errors into "field: tag" pairs.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, err)
		return uuid.Nil, false
	}
	return id, true
}

// expectedLock reads If-Match. Absent means unconditional.
func expectedLock(c *gin.Context) (*int, bool) {
	raw := strings.Trim(strings.TrimSpace(c.GetHeader(headerIfMatch)), `"`)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_if_match", fmt.Errorf("If-Match must be a lock version, got %q", raw))
		return nil, false
	}
	return &n, true
}

func parsePolicy(raw string) (index.AllowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "allow_all":
		return index.AllowAllWhenEmpty, nil
	case "allow_none":
		return index.AllowNoneWhenEmpty, nil
	default:
		return 0, fmt.Errorf("unknown allow policy %q", raw)
	}
}
