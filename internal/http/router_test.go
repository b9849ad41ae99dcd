package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	repocatalog "github.com/yungbote/catalog-backend/internal/data/repos/catalog"
	"github.com/yungbote/catalog-backend/internal/data/repos/testutil"
	apihttp "github.com/yungbote/catalog-backend/internal/http"
	httpH "github.com/yungbote/catalog-backend/internal/http/handlers"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/manifest"
	"github.com/yungbote/catalog-backend/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := testutil.Fresh(t)
	log := testutil.Logger(t)

	productTypes := repocatalog.NewProductTypeRepo(g, log)
	lookups := repocatalog.NewLookupRepo(g, log)
	snapshots := repocatalog.NewSnapshotRepo(g, log)
	listings := repocatalog.NewListingRepo(g, log)

	schema := services.NewSchemaService(g, log, nil, productTypes, lookups, snapshots, nil)
	return apihttp.NewRouter(apihttp.RouterConfig{
		Log:                log,
		ProductTypeHandler: httpH.NewProductTypeHandler(schema, log),
		LookupHandler:      httpH.NewLookupHandler(services.NewLookupService(g, log, nil, lookups), log),
		ValidationHandler:  httpH.NewValidationHandler(services.NewValidationService(g, log, nil, schema, listings, 2), log),
		ImportHandler:      httpH.NewImportHandler(services.NewImportService(g, log, nil, productTypes, lookups, snapshots, nil), log),
		HealthHandler:      httpH.NewHealthHandler(g),
	})
}

type apiResponse struct {
	Code int
	Body map[string]any
}

func do(t *testing.T, r *gin.Engine, method, path string, body any, headers ...string) apiResponse {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	out := apiResponse{Code: rec.Code}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out.Body), rec.Body.String())
	}
	return out
}

func errorCode(t *testing.T, res apiResponse) string {
	t.Helper()
	e, ok := res.Body["error"].(map[string]any)
	require.True(t, ok, "missing error envelope: %v", res.Body)
	code, _ := e["code"].(string)
	return code
}

func productTypeID(t *testing.T, res apiResponse) string {
	t.Helper()
	pt, ok := res.Body["product_type"].(map[string]any)
	require.True(t, ok, "missing product_type: %v", res.Body)
	id, _ := pt["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealthcheck(t *testing.T) {
	r := newTestRouter(t)
	res := do(t, r, http.MethodGet, "/healthcheck", nil)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestImportAndValidateListing(t *testing.T) {
	r := newTestRouter(t)

	res := do(t, r, http.MethodPost, "/api/import", manifest.SampleYAML())
	require.Equal(t, http.StatusCreated, res.Code, res.Body)

	res = do(t, r, http.MethodPost, "/api/import", manifest.SampleYAML())
	require.Equal(t, http.StatusConflict, res.Code)
	require.Equal(t, "duplicate_key", errorCode(t, res))

	res = do(t, r, http.MethodGet, "/api/product-types?key=phone", nil)
	require.Equal(t, http.StatusOK, res.Code)
	phoneID := productTypeID(t, res)

	doc, err := manifest.Sample()
	require.NoError(t, err)
	listing := doc.Listings[0]
	res = do(t, r, http.MethodPost, "/api/listings/validate", map[string]any{
		"product_type_id": phoneID,
		"name":            listing.Name,
		"inputs":          listing.Inputs,
		"variants":        listing.Variants,
		"require_all":     true,
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	require.Equal(t, true, res.Body["valid"])

	res = do(t, r, http.MethodPost, "/api/product-types/"+phoneID+"/combinations/check", map[string]any{
		"inputs":     listing.Inputs,
		"selections": map[string]string{"brand": "acme", "model": "zeta_y"},
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	require.Equal(t, false, res.Body["valid"])

	res = do(t, r, http.MethodPost, "/api/product-types/"+phoneID+"/combinations", map[string]any{
		"inputs": listing.Inputs,
		"policy": "bogus",
	})
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = do(t, r, http.MethodPost, "/api/listings", map[string]any{
		"product_type_id": phoneID,
		"name":            listing.Name,
		"inputs":          listing.Inputs,
		"variants":        listing.Variants,
	}, "X-Seller-Id", "seller-42")
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	saved, ok := res.Body["listing"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "seller-42", saved["seller_id"])

	res = do(t, r, http.MethodGet, "/api/listings/"+saved["id"].(string), nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = do(t, r, http.MethodGet, "/api/listings", nil, "X-Seller-Id", "seller-42")
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, res.Body["listings"], 1)

	res = do(t, r, http.MethodGet, "/api/listings", nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "missing_seller_id", errorCode(t, res))
}

func TestAuthoringErrors(t *testing.T) {
	r := newTestRouter(t)

	res := do(t, r, http.MethodPost, "/api/product-types", map[string]any{"key": "Bad Key", "name": "x"})
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "invalid_request", errorCode(t, res))

	res = do(t, r, http.MethodPost, "/api/product-types", map[string]any{"key": "lamp", "name": "Lamp"})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	id := productTypeID(t, res)

	attr := map[string]any{"key": "style", "kind": "enum", "variant": true, "position": 1}
	res = do(t, r, http.MethodPost, "/api/product-types/"+id+"/attributes", attr, "If-Match", "not-a-number")
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "invalid_if_match", errorCode(t, res))

	res = do(t, r, http.MethodPost, "/api/product-types/"+id+"/attributes", attr, "If-Match", "0")
	require.Equal(t, http.StatusOK, res.Code, res.Body)

	attr["key"] = "finish"
	res = do(t, r, http.MethodPost, "/api/product-types/"+id+"/attributes", attr, "If-Match", "0")
	require.Equal(t, http.StatusConflict, res.Code)
	require.Equal(t, "conflict", errorCode(t, res))

	res = do(t, r, http.MethodPost, "/api/product-types/"+id+"/attributes/missing/options", map[string]any{"code": "a"})
	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, "attribute_not_found", errorCode(t, res))

	res = do(t, r, http.MethodGet, "/api/product-types/"+id+"/snapshot", nil)
	require.Equal(t, http.StatusConflict, res.Code)
	require.Equal(t, "wrong_state", errorCode(t, res))

	res = do(t, r, http.MethodGet, "/api/product-types/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, res.Code)

	res = do(t, r, http.MethodGet, "/api/product-types/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "invalid_id", errorCode(t, res))
}
