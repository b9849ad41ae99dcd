package catalog

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// LookupCatalog is the cross-product-type catalog of reusable reference values.
// Product types hold a materialized view of the types they reference.
type LookupCatalog struct {
	Types []*LookupType
	Links []*LookupLink
}

type LookupType struct {
	ID   uuid.UUID
	Key  string
	Name string
	// OpenConstraint lets product types reference the type without an
	// explicit allow-list.
	OpenConstraint bool
	Options        []*LookupOption
}

type LookupOption struct {
	ID           uuid.UUID
	LookupTypeID uuid.UUID
	Code         string
	Label        string
	Position     int
}

// LookupLink says choosing ParentOptionID permits ChildOptionID; the two options
// belong to different lookup types.
type LookupLink struct {
	ID             uuid.UUID
	ParentOptionID uuid.UUID
	ChildOptionID  uuid.UUID
}

func NewLookupCatalog() *LookupCatalog { return &LookupCatalog{} }

func (c *LookupCatalog) Type(id uuid.UUID) *LookupType {
	if c == nil {
		return nil
	}
	for _, t := range c.Types {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (c *LookupCatalog) TypeByKey(key string) *LookupType {
	if c == nil {
		return nil
	}
	for _, t := range c.Types {
		if t.Key == key {
			return t
		}
	}
	return nil
}

// Option resolves an option ID to the option and its owning type.
func (c *LookupCatalog) Option(id uuid.UUID) (*LookupOption, *LookupType) {
	if c == nil {
		return nil, nil
	}
	for _, t := range c.Types {
		for _, o := range t.Options {
			if o.ID == id {
				return o, t
			}
		}
	}
	return nil, nil
}

func (t *LookupType) OptionByCode(code string) *LookupOption {
	if t == nil {
		return nil
	}
	for _, o := range t.Options {
		if o.Code == code {
			return o
		}
	}
	return nil
}

// Codes returns option codes in display order.
func (t *LookupType) Codes() []string {
	if t == nil {
		return nil
	}
	opts := append([]*LookupOption(nil), t.Options...)
	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].Position != opts[j].Position {
			return opts[i].Position < opts[j].Position
		}
		return opts[i].Code < opts[j].Code
	})
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Code)
	}
	return out
}

// LinksBetween returns the option-to-option links from parentTypeID to childTypeID.
func (c *LookupCatalog) LinksBetween(parentTypeID, childTypeID uuid.UUID) []*LookupLink {
	if c == nil {
		return nil
	}
	var out []*LookupLink
	for _, l := range c.Links {
		_, pt := c.Option(l.ParentOptionID)
		_, ct := c.Option(l.ChildOptionID)
		if pt != nil && ct != nil && pt.ID == parentTypeID && ct.ID == childTypeID {
			out = append(out, l)
		}
	}
	return out
}

func (c *LookupCatalog) AddType(key, name string, open bool) (*LookupType, error) {
	const op = "LookupCatalog.AddType"
	key = strings.TrimSpace(key)
	if !ValidKey(key) {
		return nil, NewRuleError(CodeInvalidKey, op, "lookup type key must be lower_snake", "lookup_type", key)
	}
	if c.TypeByKey(key) != nil {
		return nil, NewRuleError(CodeDuplicateKey, op, "lookup type already exists", "lookup_type", key)
	}
	t := &LookupType{ID: uuid.New(), Key: key, Name: strings.TrimSpace(name), OpenConstraint: open}
	c.Types = append(c.Types, t)
	return t, nil
}

func (c *LookupCatalog) AddOption(typeKey, code, label string, position int) (*LookupOption, error) {
	const op = "LookupCatalog.AddOption"
	t := c.TypeByKey(typeKey)
	if t == nil {
		return nil, NewRuleError(CodeLookupTypeNotFound, op, "lookup type not found", "lookup_type", typeKey)
	}
	code = strings.TrimSpace(code)
	if !ValidCode(code) {
		return nil, NewRuleError(CodeInvalidKey, op, "invalid option code", "lookup_type", typeKey, "code", code)
	}
	if t.OptionByCode(code) != nil {
		return nil, NewRuleError(CodeDuplicateCode, op, "option code already exists", "lookup_type", typeKey, "code", code)
	}
	for _, o := range t.Options {
		if o.Position == position {
			return nil, NewRuleError(CodeDuplicatePosition, op, "option position already used",
				"lookup_type", typeKey, "code", code, "conflicts_with", o.Code)
		}
	}
	o := &LookupOption{ID: uuid.New(), LookupTypeID: t.ID, Code: code, Label: strings.TrimSpace(label), Position: position}
	t.Options = append(t.Options, o)
	return o, nil
}

func (c *LookupCatalog) AddLink(parentTypeKey, parentCode, childTypeKey, childCode string) (*LookupLink, error) {
	const op = "LookupCatalog.AddLink"
	pt := c.TypeByKey(parentTypeKey)
	if pt == nil {
		return nil, NewRuleError(CodeLookupTypeNotFound, op, "parent lookup type not found", "lookup_type", parentTypeKey)
	}
	ct := c.TypeByKey(childTypeKey)
	if ct == nil {
		return nil, NewRuleError(CodeLookupTypeNotFound, op, "child lookup type not found", "lookup_type", childTypeKey)
	}
	if pt.ID == ct.ID {
		return nil, NewRuleError(CodeInvalidDependency, op, "links must join two different lookup types", "lookup_type", parentTypeKey)
	}
	po := pt.OptionByCode(parentCode)
	if po == nil {
		return nil, NewRuleError(CodeOptionNotFound, op, "parent option not found", "lookup_type", parentTypeKey, "code", parentCode)
	}
	co := ct.OptionByCode(childCode)
	if co == nil {
		return nil, NewRuleError(CodeOptionNotFound, op, "child option not found", "lookup_type", childTypeKey, "code", childCode)
	}
	for _, l := range c.Links {
		if l.ParentOptionID == po.ID && l.ChildOptionID == co.ID {
			return l, nil
		}
	}
	l := &LookupLink{ID: uuid.New(), ParentOptionID: po.ID, ChildOptionID: co.ID}
	c.Links = append(c.Links, l)
	return l, nil
}
