package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/catalog-backend/internal/http/response"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/manifest"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
	"github.com/yungbote/catalog-backend/internal/services"
)

const maxManifestBytes = 4 << 20

type ImportHandler struct {
	imports services.ImportService
	log     *logger.Logger
}

func NewImportHandler(imports services.ImportService, log *logger.Logger) *ImportHandler {
	return &ImportHandler{imports: imports, log: log.With("handler", "ImportHandler")}
}

// POST /api/import (application/yaml manifest body)
func (h *ImportHandler) Import(c *gin.Context) {
	doc, err := manifest.Load(io.LimitReader(c.Request.Body, maxManifestBytes))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_manifest", err)
		return
	}
	res, err := h.imports.Import(c.Request.Context(), doc)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"import": res})
}
