package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	types "github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/http/response"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
	"github.com/yungbote/catalog-backend/internal/services"
)

type ProductTypeHandler struct {
	schema services.SchemaService
	log    *logger.Logger
}

func NewProductTypeHandler(schema services.SchemaService, log *logger.Logger) *ProductTypeHandler {
	return &ProductTypeHandler{schema: schema, log: log.With("handler", "ProductTypeHandler")}
}

type createProductTypeRequest struct {
	Key       string `json:"key" binding:"required,attrkey"`
	Name      string `json:"name" binding:"required"`
	ParentKey string `json:"parent_key" binding:"omitempty,attrkey"`
}

type addAttributeRequest struct {
	Key        string           `json:"key" binding:"required,attrkey"`
	Name       string           `json:"name"`
	Kind       string           `json:"kind" binding:"required,oneof=int decimal string bool date enum lookup group"`
	Required   bool             `json:"required"`
	Variant    bool             `json:"variant"`
	Position   int              `json:"position" binding:"min=0"`
	DependsOn  string           `json:"depends_on" binding:"omitempty,attrkey"`
	Unit       string           `json:"unit"`
	Min        *decimal.Decimal `json:"min"`
	Max        *decimal.Decimal `json:"max"`
	LookupType string           `json:"lookup_type" binding:"omitempty,attrkey"`
	Members    []string         `json:"members" binding:"omitempty,dive,attrkey"`
}

type addOptionRequest struct {
	Code       string `json:"code" binding:"required"`
	Label      string `json:"label"`
	Position   int    `json:"position" binding:"min=0"`
	ParentCode string `json:"parent_code"`
}

type dependsOnRequest struct {
	ParentKey string            `json:"parent_key" binding:"required,attrkey"`
	Scopes    map[string]string `json:"scopes"`
}

type lookupAllowedRequest struct {
	Codes []string `json:"codes" binding:"required,dive,required"`
}

// POST /api/product-types
func (h *ProductTypeHandler) Create(c *gin.Context) {
	var req createProductTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	pt, err := h.schema.CreateProductType(c.Request.Context(), services.CreateProductTypeInput{
		Key:       req.Key,
		Name:      strings.TrimSpace(req.Name),
		ParentKey: req.ParentKey,
	})
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"product_type": newProductTypeView(pt)})
}

// GET /api/product-types[?key=phone]
func (h *ProductTypeHandler) List(c *gin.Context) {
	if key := strings.TrimSpace(c.Query("key")); key != "" {
		pt, err := h.schema.GetLatestProductType(c.Request.Context(), key)
		if err != nil {
			response.RespondErr(c, h.log, err)
			return
		}
		response.RespondOK(c, gin.H{"product_type": newProductTypeView(pt)})
		return
	}
	rows, err := h.schema.ListProductTypes(c.Request.Context())
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"product_types": rows})
}

// GET /api/product-types/:id
func (h *ProductTypeHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	pt, err := h.schema.GetProductType(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"product_type": newProductTypeView(pt)})
}

// GET /api/product-types/:id/versions
func (h *ProductTypeHandler) Versions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	pt, err := h.schema.GetProductType(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	rows, err := h.schema.ListVersions(c.Request.Context(), pt.Key)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"versions": rows})
}

// mutation runs one If-Match guarded schema edit and renders the result.
func (h *ProductTypeHandler) mutation(c *gin.Context, fn func(c *gin.Context, expected *int) (*types.ProductType, error)) {
	expected, ok := expectedLock(c)
	if !ok {
		return
	}
	pt, err := fn(c, expected)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"product_type": newProductTypeView(pt)})
}

// POST /api/product-types/:id/attributes
func (h *ProductTypeHandler) AddAttribute(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req addAttributeRequest
	if !bindJSON(c, &req) {
		return
	}
	kind, err := types.ParseKind(req.Kind)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	h.mutation(c, func(c *gin.Context, expected *int) (*types.ProductType, error) {
		return h.schema.AddAttribute(c.Request.Context(), id, expected, types.AttributeSpec{
			Key:             req.Key,
			Name:            req.Name,
			Kind:            kind,
			IsRequired:      req.Required,
			IsVariant:       req.Variant,
			Position:        req.Position,
			DependsOnKey:    req.DependsOn,
			Unit:            req.Unit,
			Min:             req.Min,
			Max:             req.Max,
			LookupTypeKey:   req.LookupType,
			GroupMemberKeys: req.Members,
		})
	})
}

// DELETE /api/product-types/:id/attributes/:key
func (h *ProductTypeHandler) RemoveAttribute(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h.mutation(c, func(c *gin.Context, expected *int) (*types.ProductType, error) {
		return h.schema.RemoveAttribute(c.Request.Context(), id, expected, c.Param("key"))
	})
}

// POST /api/product-types/:id/attributes/:key/options
func (h *ProductTypeHandler) AddOption(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req addOptionRequest
	if !bindJSON(c, &req) {
		return
	}
	h.mutation(c, func(c *gin.Context, expected *int) (*types.ProductType, error) {
		return h.schema.AddEnumOption(c.Request.Context(), id, expected, c.Param("key"), types.OptionSpec{
			Code:       req.Code,
			Label:      req.Label,
			Position:   req.Position,
			ParentCode: req.ParentCode,
		})
	})
}

// DELETE /api/product-types/:id/attributes/:key/options/:code
func (h *ProductTypeHandler) RemoveOption(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h.mutation(c, func(c *gin.Context, expected *int) (*types.ProductType, error) {
		return h.schema.RemoveEnumOption(c.Request.Context(), id, expected, c.Param("key"), c.Param("code"))
	})
}

// PUT /api/product-types/:id/attributes/:key/depends-on
func (h *ProductTypeHandler) SetDependsOn(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dependsOnRequest
	if !bindJSON(c, &req) {
		return
	}
	h.mutation(c, func(c *gin.Context, expected *int) (*types.ProductType, error) {
		return h.schema.SetDependsOn(c.Request.Context(), id, expected, c.Param("key"), req.ParentKey, req.Scopes)
	})
}

// DELETE /api/product-types/:id/attributes/:key/depends-on
func (h *ProductTypeHandler) ClearDependsOn(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h.mutation(c, func(c *gin.Context, expected *int) (*types.ProductType, error) {
		return h.schema.ClearDependsOn(c.Request.Context(), id, expected, c.Param("key"))
	})
}

// PUT /api/product-types/:id/lookup-allowed/:lookup
func (h *ProductTypeHandler) SetLookupAllowed(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req lookupAllowedRequest
	if !bindJSON(c, &req) {
		return
	}
	h.mutation(c, func(c *gin.Context, expected *int) (*types.ProductType, error) {
		return h.schema.SetLookupAllowed(c.Request.Context(), id, expected, c.Param("lookup"), req.Codes)
	})
}

// POST /api/product-types/:id/publish
func (h *ProductTypeHandler) Publish(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	expected, ok := expectedLock(c)
	if !ok {
		return
	}
	pt, snap, err := h.schema.Publish(c.Request.Context(), id, expected)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"product_type": newProductTypeView(pt), "snapshot": snap})
}

// POST /api/product-types/:id/clone
func (h *ProductTypeHandler) Clone(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	pt, err := h.schema.Clone(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"product_type": newProductTypeView(pt)})
}

// GET /api/product-types/:id/snapshot
func (h *ProductTypeHandler) Snapshot(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	snap, err := h.schema.GetSnapshot(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"snapshot": snap})
}
