package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/catalog-backend/internal/http/middleware"
	"github.com/yungbote/catalog-backend/internal/http/response"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/manifest"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
	"github.com/yungbote/catalog-backend/internal/services"
)

type ValidationHandler struct {
	validation services.ValidationService
	log        *logger.Logger
}

func NewValidationHandler(validation services.ValidationService, log *logger.Logger) *ValidationHandler {
	return &ValidationHandler{validation: validation, log: log.With("handler", "ValidationHandler")}
}

type comboRequest struct {
	Inputs     map[string]manifest.InputDoc `json:"inputs"`
	Selections map[string]string            `json:"selections" binding:"required"`
	Policy     string                       `json:"policy" binding:"omitempty,policy"`
}

type reachabilityRequest struct {
	Inputs    map[string]manifest.InputDoc `json:"inputs"`
	Attribute string                       `json:"attribute" binding:"required,attrkey"`
	Code      string                       `json:"code" binding:"required"`
	Policy    string                       `json:"policy" binding:"omitempty,policy"`
}

type combinationsRequest struct {
	Inputs map[string]manifest.InputDoc `json:"inputs"`
	Policy string                       `json:"policy" binding:"omitempty,policy"`
}

type listingRequest struct {
	ProductTypeID uuid.UUID                    `json:"product_type_id" binding:"required"`
	Name          string                       `json:"name"`
	Inputs        map[string]manifest.InputDoc `json:"inputs" binding:"required"`
	Variants      []manifest.VariantDoc        `json:"variants"`
	RequireAll    bool                         `json:"require_all"`
	Policy        string                       `json:"policy" binding:"omitempty,policy"`
}

func (r listingRequest) input(c *gin.Context) services.ListingInput {
	return services.ListingInput{
		ProductTypeID: r.ProductTypeID,
		SellerID:      strings.TrimSpace(c.GetHeader(middleware.HeaderSellerID)),
		Name:          strings.TrimSpace(r.Name),
		Inputs:        r.Inputs,
		Variants:      r.Variants,
		RequireAll:    r.RequireAll,
		Policy:        policyOf(r.Policy),
	}
}

func policyOf(raw string) index.AllowPolicy {
	p, _ := parsePolicy(raw)
	return p
}

// POST /api/product-types/:id/combinations/check
func (h *ValidationHandler) CheckCombination(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req comboRequest
	if !bindJSON(c, &req) {
		return
	}
	valid, err := h.validation.ValidateCombination(c.Request.Context(), id, req.Inputs, req.Selections, policyOf(req.Policy))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"valid": valid})
}

// POST /api/product-types/:id/reachability
func (h *ValidationHandler) CheckReachability(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req reachabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	reachable, err := h.validation.CheckReachability(c.Request.Context(), id, req.Inputs, req.Attribute, req.Code, policyOf(req.Policy))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"reachable": reachable})
}

// POST /api/product-types/:id/combinations
func (h *ValidationHandler) Combinations(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req combinationsRequest
	if !bindJSON(c, &req) {
		return
	}
	combos, err := h.validation.ValidCombinations(c.Request.Context(), id, req.Inputs, policyOf(req.Policy))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	if combos == nil {
		combos = []index.Combination{}
	}
	response.RespondOK(c, gin.H{"combinations": combos})
}

// POST /api/listings/validate
func (h *ValidationHandler) ValidateListing(c *gin.Context) {
	var req listingRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.validation.ValidateListing(c.Request.Context(), req.input(c))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"valid": report.Valid(), "report": report})
}

// POST /api/listings
func (h *ValidationHandler) SaveListing(c *gin.Context) {
	var req listingRequest
	if !bindJSON(c, &req) {
		return
	}
	saved, report, err := h.validation.SaveListing(c.Request.Context(), req.input(c))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	if saved == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  response.APIError{Message: "listing has invalid variants", Code: "invalid_listing"},
			"report": report,
		})
		return
	}
	response.RespondCreated(c, gin.H{"listing": saved, "report": report})
}

// GET /api/listings/:id
func (h *ValidationHandler) GetListing(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	l, err := h.validation.GetListing(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"listing": l})
}

// GET /api/listings
func (h *ValidationHandler) ListListings(c *gin.Context) {
	sellerID := strings.TrimSpace(c.GetHeader(middleware.HeaderSellerID))
	if sellerID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_seller_id", errors.New(middleware.HeaderSellerID+" header is required"))
		return
	}
	out, err := h.validation.ListListings(c.Request.Context(), sellerID)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"listings": out})
}
