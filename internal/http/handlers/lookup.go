package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/catalog-backend/internal/http/response"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
	"github.com/yungbote/catalog-backend/internal/services"
)

type LookupHandler struct {
	lookups services.LookupService
	log     *logger.Logger
}

func NewLookupHandler(lookups services.LookupService, log *logger.Logger) *LookupHandler {
	return &LookupHandler{lookups: lookups, log: log.With("handler", "LookupHandler")}
}

type createLookupTypeRequest struct {
	Key  string `json:"key" binding:"required,attrkey"`
	Name string `json:"name" binding:"required"`
	Open bool   `json:"open"`
}

type addLookupOptionRequest struct {
	Code     string `json:"code" binding:"required"`
	Label    string `json:"label"`
	Position int    `json:"position" binding:"min=0"`
}

type addLookupLinkRequest struct {
	ParentType string `json:"parent_type" binding:"required,attrkey"`
	ParentCode string `json:"parent_code" binding:"required"`
	ChildType  string `json:"child_type" binding:"required,attrkey"`
	ChildCode  string `json:"child_code" binding:"required"`
}

// GET /api/lookups
func (h *LookupHandler) Catalog(c *gin.Context) {
	cat, err := h.lookups.Catalog(c.Request.Context())
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	out := make([]lookupTypeView, 0, len(cat.Types))
	for _, t := range cat.Types {
		out = append(out, newLookupTypeView(t))
	}
	links := make([]lookupLinkView, 0, len(cat.Links))
	for _, l := range cat.Links {
		links = append(links, newLookupLinkView(cat, l))
	}
	response.RespondOK(c, gin.H{"lookup_types": out, "links": links})
}

// POST /api/lookups
func (h *LookupHandler) CreateType(c *gin.Context) {
	var req createLookupTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.lookups.CreateType(c.Request.Context(), req.Key, strings.TrimSpace(req.Name), req.Open)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"lookup_type": newLookupTypeView(t)})
}

// POST /api/lookups/:key/options
func (h *LookupHandler) AddOption(c *gin.Context) {
	var req addLookupOptionRequest
	if !bindJSON(c, &req) {
		return
	}
	label := req.Label
	if label == "" {
		label = req.Code
	}
	o, err := h.lookups.AddOption(c.Request.Context(), c.Param("key"), req.Code, label, req.Position)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"option": lookupOptionView{ID: o.ID, Code: o.Code, Label: o.Label, Position: o.Position}})
}

// POST /api/lookup-links
func (h *LookupHandler) AddLink(c *gin.Context) {
	var req addLookupLinkRequest
	if !bindJSON(c, &req) {
		return
	}
	l, err := h.lookups.AddLink(c.Request.Context(), req.ParentType, req.ParentCode, req.ChildType, req.ChildCode)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"link": lookupLinkView{
		ID:     l.ID,
		Parent: req.ParentType + "." + req.ParentCode,
		Child:  req.ChildType + "." + req.ChildCode,
	}})
}
