// Package models holds the relational rows backing the catalog aggregates.
// IDs are assigned by the domain, never by the database.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ProductType struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index;column:parent_id" json:"parent_id,omitempty"`
	Key         string     `gorm:"not null;uniqueIndex:idx_product_type_key_version;column:key" json:"key"`
	Version     int        `gorm:"not null;uniqueIndex:idx_product_type_key_version;column:version" json:"version"`
	Name        string     `gorm:"not null;column:name" json:"name"`
	Status      string     `gorm:"not null;index;column:status" json:"status"`
	LockVersion int        `gorm:"not null;default:0;column:lock_version" json:"lock_version"`
	PublishedAt *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ProductType) TableName() string { return "product_type" }

type AttributeDefinition struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	ProductTypeID uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_attribute_type_key;column:product_type_id" json:"product_type_id"`
	Key           string              `gorm:"not null;uniqueIndex:idx_attribute_type_key;column:key" json:"key"`
	Name          string              `gorm:"not null;column:name" json:"name"`
	Kind          string              `gorm:"not null;column:kind" json:"kind"`
	IsRequired    bool                `gorm:"not null;default:false;column:is_required" json:"is_required"`
	IsVariant     bool                `gorm:"not null;default:false;column:is_variant" json:"is_variant"`
	Position      int                 `gorm:"not null;column:position" json:"position"`
	DependsOnID   *uuid.UUID          `gorm:"type:uuid;index;column:depends_on_id" json:"depends_on_id,omitempty"`
	Unit          string              `gorm:"column:unit" json:"unit,omitempty"`
	Min           decimal.NullDecimal `gorm:"type:numeric;column:min_value" json:"min,omitempty"`
	Max           decimal.NullDecimal `gorm:"type:numeric;column:max_value" json:"max,omitempty"`
	LookupTypeID  *uuid.UUID          `gorm:"type:uuid;index;column:lookup_type_id" json:"lookup_type_id,omitempty"`
}

func (AttributeDefinition) TableName() string { return "attribute_definition" }

type EnumAttributeOption struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AttributeID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_enum_option_attr_code;column:attribute_id" json:"attribute_id"`
	Code           string     `gorm:"not null;uniqueIndex:idx_enum_option_attr_code;column:code" json:"code"`
	Label          string     `gorm:"not null;column:label" json:"label"`
	Position       int        `gorm:"not null;column:position" json:"position"`
	ParentOptionID *uuid.UUID `gorm:"type:uuid;index;column:parent_option_id" json:"parent_option_id,omitempty"`
}

func (EnumAttributeOption) TableName() string { return "enum_attribute_option" }

type AttributeGroupMember struct {
	GroupID  uuid.UUID `gorm:"type:uuid;primaryKey;column:group_id" json:"group_id"`
	MemberID uuid.UUID `gorm:"type:uuid;primaryKey;column:member_id" json:"member_id"`
	Ordinal  int       `gorm:"not null;column:ordinal" json:"ordinal"`
}

func (AttributeGroupMember) TableName() string { return "attribute_group_member" }

type LookupType struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Key            string    `gorm:"not null;uniqueIndex;column:key" json:"key"`
	Name           string    `gorm:"not null;column:name" json:"name"`
	OpenConstraint bool      `gorm:"not null;default:false;column:open_constraint" json:"open_constraint"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (LookupType) TableName() string { return "lookup_type" }

type LookupOption struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LookupTypeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lookup_option_type_code;column:lookup_type_id" json:"lookup_type_id"`
	Code         string    `gorm:"not null;uniqueIndex:idx_lookup_option_type_code;column:code" json:"code"`
	Label        string    `gorm:"not null;column:label" json:"label"`
	Position     int       `gorm:"not null;column:position" json:"position"`
}

func (LookupOption) TableName() string { return "lookup_option" }

type LookupLink struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParentOptionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lookup_link_pair;column:parent_option_id" json:"parent_option_id"`
	ChildOptionID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lookup_link_pair;column:child_option_id" json:"child_option_id"`
}

func (LookupLink) TableName() string { return "lookup_link" }

// LookupAllowed stores the permitted codes as a JSON array.
type LookupAllowed struct {
	ProductTypeID uuid.UUID      `gorm:"type:uuid;primaryKey;column:product_type_id" json:"product_type_id"`
	LookupTypeID  uuid.UUID      `gorm:"type:uuid;primaryKey;column:lookup_type_id" json:"lookup_type_id"`
	Codes         datatypes.JSON `gorm:"not null;column:codes" json:"codes"`
}

func (LookupAllowed) TableName() string { return "lookup_allowed" }

// CatalogIndexSnapshot keeps the latest compiled snapshot per product type version.
type CatalogIndexSnapshot struct {
	ProductTypeID uuid.UUID      `gorm:"type:uuid;primaryKey;column:product_type_id" json:"product_type_id"`
	Version       int            `gorm:"not null;column:version" json:"version"`
	Payload       datatypes.JSON `gorm:"not null;column:payload" json:"payload"`
	BuiltAt       time.Time      `gorm:"not null;column:built_at" json:"built_at"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CatalogIndexSnapshot) TableName() string { return "catalog_index_snapshot" }

type Listing struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProductTypeID uuid.UUID      `gorm:"type:uuid;not null;index;column:product_type_id" json:"product_type_id"`
	SellerID      string         `gorm:"not null;index;column:seller_id" json:"seller_id"`
	Name          string         `gorm:"not null;column:name" json:"name"`
	Inputs        datatypes.JSON `gorm:"not null;column:inputs" json:"inputs"`
	Axes          datatypes.JSON `gorm:"not null;column:axes" json:"axes"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Listing) TableName() string { return "listing" }

type ListingVariant struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID uuid.UUID      `gorm:"type:uuid;not null;index;column:listing_id" json:"listing_id"`
	SKU       string         `gorm:"not null;uniqueIndex;column:sku" json:"sku"`
	Values    datatypes.JSON `gorm:"not null;column:attribute_values" json:"values"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ListingVariant) TableName() string { return "listing_variant" }

// All lists every model in migration order.
func All() []any {
	return []any{
		&ProductType{},
		&AttributeDefinition{},
		&EnumAttributeOption{},
		&AttributeGroupMember{},
		&LookupType{},
		&LookupOption{},
		&LookupLink{},
		&LookupAllowed{},
		&CatalogIndexSnapshot{},
		&Listing{},
		&ListingVariant{},
	}
}
