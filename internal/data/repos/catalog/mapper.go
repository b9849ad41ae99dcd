package catalog

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/yungbote/catalog-backend/internal/data/models"
	types "github.com/yungbote/catalog-backend/internal/domain/catalog"
)

// schemaRows is the relational form of a product type's own schema.
type schemaRows struct {
	attributes []*models.AttributeDefinition
	options    []*models.EnumAttributeOption
	members    []*models.AttributeGroupMember
	allowed    []*models.LookupAllowed
}

func productTypeRow(pt *types.ProductType) *models.ProductType {
	return &models.ProductType{
		ID:          pt.ID,
		ParentID:    pt.ParentID,
		Key:         pt.Key,
		Version:     pt.Version,
		Name:        pt.Name,
		Status:      string(pt.Status),
		LockVersion: pt.LockVersion,
		PublishedAt: pt.PublishedAt,
	}
}

func toSchemaRows(pt *types.ProductType) (*schemaRows, error) {
	out := &schemaRows{}
	for _, d := range pt.Attributes {
		row := &models.AttributeDefinition{
			ID:            d.ID,
			ProductTypeID: pt.ID,
			Key:           d.Key,
			Name:          d.Name,
			Kind:          string(d.Kind),
			IsRequired:    d.IsRequired,
			IsVariant:     d.IsVariant,
			Position:      d.Position,
			DependsOnID:   d.DependsOnID,
		}
		if d.Numeric != nil {
			row.Unit = d.Numeric.Unit
			row.Min = nullDecimal(d.Numeric.Min)
			row.Max = nullDecimal(d.Numeric.Max)
		}
		if d.Lookup != nil {
			id := d.Lookup.LookupTypeID
			row.LookupTypeID = &id
		}
		out.attributes = append(out.attributes, row)
		if d.Enum != nil {
			for _, o := range d.Enum.Options {
				out.options = append(out.options, &models.EnumAttributeOption{
					ID:             o.ID,
					AttributeID:    d.ID,
					Code:           o.Code,
					Label:          o.Label,
					Position:       o.Position,
					ParentOptionID: o.ParentOptionID,
				})
			}
		}
		if d.Group != nil {
			for i, m := range d.Group.MemberIDs {
				out.members = append(out.members, &models.AttributeGroupMember{GroupID: d.ID, MemberID: m, Ordinal: i})
			}
		}
	}
	ids := make([]uuid.UUID, 0, len(pt.LookupAllowed))
	for id := range pt.LookupAllowed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		codes := pt.LookupAllowed[id]
		if codes == nil {
			codes = []string{}
		}
		raw, err := json.Marshal(codes)
		if err != nil {
			return nil, err
		}
		out.allowed = append(out.allowed, &models.LookupAllowed{ProductTypeID: pt.ID, LookupTypeID: id, Codes: datatypes.JSON(raw)})
	}
	return out, nil
}

// fromRows rebuilds the own schema of a product type. Inherited attributes and
// the lookup catalog are attached by the caller.
func fromRows(row *models.ProductType, rows *schemaRows, lookups *types.LookupCatalog) (*types.ProductType, error) {
	pt := &types.ProductType{
		ID:            row.ID,
		ParentID:      row.ParentID,
		Key:           row.Key,
		Name:          row.Name,
		Status:        types.Status(row.Status),
		Version:       row.Version,
		LockVersion:   row.LockVersion,
		PublishedAt:   row.PublishedAt,
		LookupAllowed: map[uuid.UUID][]string{},
		Lookups:       lookups,
	}
	optionsByAttr := map[uuid.UUID][]*types.EnumAttributeOption{}
	for _, o := range rows.options {
		optionsByAttr[o.AttributeID] = append(optionsByAttr[o.AttributeID], &types.EnumAttributeOption{
			ID:             o.ID,
			AttributeID:    o.AttributeID,
			Code:           o.Code,
			Label:          o.Label,
			Position:       o.Position,
			ParentOptionID: o.ParentOptionID,
		})
	}
	members := append([]*models.AttributeGroupMember(nil), rows.members...)
	sort.SliceStable(members, func(i, j int) bool { return members[i].Ordinal < members[j].Ordinal })
	membersByGroup := map[uuid.UUID][]uuid.UUID{}
	for _, m := range members {
		membersByGroup[m.GroupID] = append(membersByGroup[m.GroupID], m.MemberID)
	}

	for _, r := range rows.attributes {
		kind, err := types.ParseKind(r.Kind)
		if err != nil {
			return nil, types.NewStateError("repos.fromRows", "stored attribute has an unknown kind", "attribute", r.Key, "kind", r.Kind)
		}
		d := &types.AttributeDefinition{
			ID:            r.ID,
			ProductTypeID: r.ProductTypeID,
			Key:           r.Key,
			Name:          r.Name,
			Kind:          kind,
			IsRequired:    r.IsRequired,
			IsVariant:     r.IsVariant,
			Position:      r.Position,
			DependsOnID:   r.DependsOnID,
		}
		switch kind {
		case types.KindInt, types.KindDecimal:
			d.Numeric = &types.NumericSpec{Unit: r.Unit, Min: decimalPtr(r.Min), Max: decimalPtr(r.Max)}
		case types.KindEnum:
			d.Enum = &types.EnumSpec{Options: optionsByAttr[r.ID]}
		case types.KindLookup:
			if r.LookupTypeID == nil {
				return nil, types.NewStateError("repos.fromRows", "lookup attribute has no lookup type", "attribute", r.Key)
			}
			d.Lookup = &types.LookupSpec{LookupTypeID: *r.LookupTypeID}
		case types.KindGroup:
			d.Group = &types.GroupSpec{MemberIDs: membersByGroup[r.ID]}
		}
		pt.Attributes = append(pt.Attributes, d)
	}
	types.SortDefinitions(pt.Attributes)

	for _, a := range rows.allowed {
		var codes []string
		if len(a.Codes) > 0 {
			if err := json.Unmarshal(a.Codes, &codes); err != nil {
				return nil, types.NewStateError("repos.fromRows", "stored allow-list is not a JSON array", "lookup_type_id", a.LookupTypeID.String())
			}
		}
		if codes == nil {
			codes = []string{}
		}
		pt.LookupAllowed[a.LookupTypeID] = codes
	}
	return pt, nil
}

func lookupCatalogFromRows(ts []*models.LookupType, opts []*models.LookupOption, links []*models.LookupLink) *types.LookupCatalog {
	c := types.NewLookupCatalog()
	byID := make(map[uuid.UUID]*types.LookupType, len(ts))
	for _, t := range ts {
		lt := &types.LookupType{ID: t.ID, Key: t.Key, Name: t.Name, OpenConstraint: t.OpenConstraint}
		byID[t.ID] = lt
		c.Types = append(c.Types, lt)
	}
	for _, o := range opts {
		lt := byID[o.LookupTypeID]
		if lt == nil {
			continue
		}
		lt.Options = append(lt.Options, &types.LookupOption{
			ID:           o.ID,
			LookupTypeID: o.LookupTypeID,
			Code:         o.Code,
			Label:        o.Label,
			Position:     o.Position,
		})
	}
	for _, l := range links {
		c.Links = append(c.Links, &types.LookupLink{ID: l.ID, ParentOptionID: l.ParentOptionID, ChildOptionID: l.ChildOptionID})
	}
	return c
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}
