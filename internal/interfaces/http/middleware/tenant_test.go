package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTenantRouter(cfg TenantMiddlewareConfig, capture *uuid.UUID) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), TenantMiddlewareWithConfig(cfg))
	handler := func(c *gin.Context) {
		*capture = GetTenantUUID(c)
		c.String(http.StatusOK, logger.TenantID(c.Request.Context()))
	}
	router.GET("/api/v1/ledger/summaries", handler)
	router.GET("/health", handler)
	return router
}

func TestTenantMiddleware(t *testing.T) {
	tenantID := uuid.New()

	t.Run("valid header is stored", func(t *testing.T) {
		var got uuid.UUID
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ledger/summaries", nil)
		req.Header.Set(TenantHeaderKey, tenantID.String())
		w := httptest.NewRecorder()
		newTenantRouter(DefaultTenantConfig(), &got).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tenantID, got)
		assert.Equal(t, tenantID.String(), w.Body.String(), "tenant reaches the logging context")
	})

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", dto.ErrCodeTenantRequired},
		{"not a uuid", "acme", dto.ErrCodeTenantInvalid},
		{"nil uuid", uuid.Nil.String(), dto.ErrCodeTenantInvalid},
		{"oversized", strings.Repeat("a", MaxTenantIDLength+1), dto.ErrCodeTenantInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got uuid.UUID
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ledger/summaries", nil)
			if tt.header != "" {
				req.Header.Set(TenantHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			newTenantRouter(DefaultTenantConfig(), &got).ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, uuid.Nil, got)
		})
	}

	t.Run("skip path needs no tenant", func(t *testing.T) {
		var got uuid.UUID
		w := httptest.NewRecorder()
		newTenantRouter(DefaultTenantConfig(), &got).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, uuid.Nil, got)
	})

	t.Run("optional tenant passes through", func(t *testing.T) {
		cfg := DefaultTenantConfig()
		cfg.Required = false
		var got uuid.UUID
		w := httptest.NewRecorder()
		newTenantRouter(cfg, &got).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/summaries", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, uuid.Nil, got)
	})
}

func TestGetTenantID_Absent(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", GetTenantID(c))
	assert.Equal(t, uuid.Nil, GetTenantUUID(c))
}
