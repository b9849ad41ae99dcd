package handlers

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	types "github.com/yungbote/catalog-backend/internal/domain/catalog"
)

type productTypeView struct {
	ID            uuid.UUID           `json:"id"`
	ParentID      *uuid.UUID          `json:"parent_id,omitempty"`
	Key           string              `json:"key"`
	Name          string              `json:"name"`
	Status        types.Status        `json:"status"`
	Version       int                 `json:"version"`
	LockVersion   int                 `json:"lock_version"`
	PublishedAt   *time.Time          `json:"published_at,omitempty"`
	Attributes    []attributeView     `json:"attributes"`
	Inherited     []attributeView     `json:"inherited,omitempty"`
	LookupAllowed map[string][]string `json:"lookup_allowed,omitempty"`
}

type attributeView struct {
	ID         uuid.UUID           `json:"id"`
	Key        string              `json:"key"`
	Name       string              `json:"name"`
	Kind       types.AttributeKind `json:"kind"`
	IsRequired bool                `json:"required"`
	IsVariant  bool                `json:"variant"`
	Position   int                 `json:"position"`
	DependsOn  string              `json:"depends_on,omitempty"`
	Unit       string              `json:"unit,omitempty"`
	Min        *decimal.Decimal    `json:"min,omitempty"`
	Max        *decimal.Decimal    `json:"max,omitempty"`
	LookupType string              `json:"lookup_type,omitempty"`
	Members    []string            `json:"members,omitempty"`
	Options    []optionView        `json:"options,omitempty"`
}

type optionView struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Label      string    `json:"label"`
	Position   int       `json:"position"`
	ParentCode string    `json:"parent_code,omitempty"`
}

type lookupTypeView struct {
	ID      uuid.UUID          `json:"id"`
	Key     string             `json:"key"`
	Name    string             `json:"name"`
	Open    bool               `json:"open"`
	Options []lookupOptionView `json:"options"`
}

type lookupOptionView struct {
	ID       uuid.UUID `json:"id"`
	Code     string    `json:"code"`
	Label    string    `json:"label"`
	Position int       `json:"position"`
}

type lookupLinkView struct {
	ID     uuid.UUID `json:"id"`
	Parent string    `json:"parent"`
	Child  string    `json:"child"`
}

func newProductTypeView(pt *types.ProductType) productTypeView {
	v := productTypeView{
		ID:          pt.ID,
		ParentID:    pt.ParentID,
		Key:         pt.Key,
		Name:        pt.Name,
		Status:      pt.Status,
		Version:     pt.Version,
		LockVersion: pt.LockVersion,
		PublishedAt: pt.PublishedAt,
		Attributes:  make([]attributeView, 0, len(pt.Attributes)),
	}
	for _, d := range sortedDefs(pt.Attributes) {
		v.Attributes = append(v.Attributes, newAttributeView(pt, d))
	}
	for _, d := range sortedDefs(pt.Inherited) {
		v.Inherited = append(v.Inherited, newAttributeView(pt, d))
	}
	if len(pt.LookupAllowed) > 0 {
		v.LookupAllowed = make(map[string][]string, len(pt.LookupAllowed))
		for id, codes := range pt.LookupAllowed {
			key := id.String()
			if pt.Lookups != nil {
				if t := pt.Lookups.Type(id); t != nil {
					key = t.Key
				}
			}
			v.LookupAllowed[key] = append([]string{}, codes...)
		}
	}
	return v
}

func sortedDefs(defs []*types.AttributeDefinition) []*types.AttributeDefinition {
	out := append([]*types.AttributeDefinition(nil), defs...)
	types.SortDefinitions(out)
	return out
}

func newAttributeView(pt *types.ProductType, d *types.AttributeDefinition) attributeView {
	v := attributeView{
		ID:         d.ID,
		Key:        d.Key,
		Name:       d.Name,
		Kind:       d.Kind,
		IsRequired: d.IsRequired,
		IsVariant:  d.IsVariant,
		Position:   d.Position,
	}
	parent := pt.DependsOn(d)
	if parent != nil {
		v.DependsOn = parent.Key
	}
	if d.Numeric != nil {
		v.Unit, v.Min, v.Max = d.Numeric.Unit, d.Numeric.Min, d.Numeric.Max
	}
	if t := pt.LookupType(d); t != nil {
		v.LookupType = t.Key
	}
	if d.Group != nil {
		for _, m := range pt.GroupMembers(d) {
			v.Members = append(v.Members, m.Key)
		}
	}
	if d.Enum != nil {
		opts := append([]*types.EnumAttributeOption(nil), d.Enum.Options...)
		sort.SliceStable(opts, func(i, j int) bool {
			if opts[i].Position != opts[j].Position {
				return opts[i].Position < opts[j].Position
			}
			return opts[i].Code < opts[j].Code
		})
		for _, o := range opts {
			ov := optionView{ID: o.ID, Code: o.Code, Label: o.Label, Position: o.Position}
			if o.ParentOptionID != nil && parent != nil && parent.Enum != nil {
				if po := parent.Enum.OptionByID(*o.ParentOptionID); po != nil {
					ov.ParentCode = po.Code
				}
			}
			v.Options = append(v.Options, ov)
		}
	}
	return v
}

func newLookupTypeView(t *types.LookupType) lookupTypeView {
	v := lookupTypeView{ID: t.ID, Key: t.Key, Name: t.Name, Open: t.OpenConstraint, Options: make([]lookupOptionView, 0, len(t.Options))}
	for _, o := range t.Options {
		v.Options = append(v.Options, lookupOptionView{ID: o.ID, Code: o.Code, Label: o.Label, Position: o.Position})
	}
	return v
}

// newLookupLinkView renders both ends as "type.code".
func newLookupLinkView(c *types.LookupCatalog, l *types.LookupLink) lookupLinkView {
	return lookupLinkView{ID: l.ID, Parent: optionRef(c, l.ParentOptionID), Child: optionRef(c, l.ChildOptionID)}
}

func optionRef(c *types.LookupCatalog, id uuid.UUID) string {
	o, t := c.Option(id)
	if o == nil || t == nil {
		return id.String()
	}
	return t.Key + "." + o.Code
}
