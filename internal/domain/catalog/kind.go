package catalog

import (
	"regexp"
	"strings"
)

// AttributeKind tags the payload carried by an AttributeDefinition.
type AttributeKind string

const (
	KindInt     AttributeKind = "int"
	KindDecimal AttributeKind = "decimal"
	KindString  AttributeKind = "string"
	KindBool    AttributeKind = "bool"
	KindDate    AttributeKind = "date"
	KindEnum    AttributeKind = "enum"
	KindLookup  AttributeKind = "lookup"
	KindGroup   AttributeKind = "group"
)

func ParseKind(raw string) (AttributeKind, error) {
	k := AttributeKind(strings.ToLower(strings.TrimSpace(raw)))
	if !k.Valid() {
		return "", NewRuleError(CodeInvalidInput, "ParseKind", "unknown attribute kind", "kind", raw)
	}
	return k, nil
}

func (k AttributeKind) Valid() bool {
	switch k {
	case KindInt, KindDecimal, KindString, KindBool, KindDate, KindEnum, KindLookup, KindGroup:
		return true
	default:
		return false
	}
}

func (k AttributeKind) IsNumeric() bool { return k == KindInt || k == KindDecimal }

// IsOptionBacked reports whether values are option codes; only these kinds take
// part in dependencies.
func (k AttributeKind) IsOptionBacked() bool { return k == KindEnum || k == KindLookup }

// CanBeAxis reports whether a single (non-group) variant axis may use the kind.
func (k AttributeKind) CanBeAxis() bool { return k.IsOptionBacked() || k.IsNumeric() }

// Status is the ProductType lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// ValidKey reports whether s is a lower_snake identifier.
func ValidKey(s string) bool { return keyPattern.MatchString(s) }

var codePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)

// ValidCode reports whether s is usable as an option code.
func ValidCode(s string) bool { return codePattern.MatchString(s) }
