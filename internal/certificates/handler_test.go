package certificates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// stubService covers only the endpoints under test; everything else panics
// through the embedded nil interface.
type stubService struct {
	Service
	verify func(ctx context.Context, certificateID string) (*Certificate, error)
}

func (s *stubService) Verify(ctx context.Context, certificateID string) (*Certificate, error) {
	return s.verify(ctx, certificateID)
}

func newVerifyRouter(verify func(ctx context.Context, certificateID string) (*Certificate, error)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(&stubService{verify: verify}, nil, zap.NewNop())
	api := router.Group("/api/v1")
	handler.RegisterPublicRoutes(api)
	handler.RegisterRoutes(api)
	return router
}

func TestVerifyRoute(t *testing.T) {
	now := time.Now().UTC()
	router := newVerifyRouter(func(_ context.Context, certificateID string) (*Certificate, error) {
		assert.Equal(t, "NH-2026-00001", certificateID)
		return &Certificate{
			ID:            uuid.New(),
			CertificateID: certificateID,
			Data: datatypes.JSONMap{
				"student_name":      "Ada Lovelace",
				"course_name":       "CCNA",
				"issue_date":        "2026-08-31",
				"issuing_authority": "NetworkersHome",
			},
			Status:      StatusGenerated,
			GeneratedAt: &now,
		}, nil
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/verify/NH-2026-00001", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "Ada Lovelace", body["student_name"])
}

func TestVerifyRouteRevoked(t *testing.T) {
	reason := "issued in error"
	router := newVerifyRouter(func(_ context.Context, certificateID string) (*Certificate, error) {
		return &Certificate{
			ID:            uuid.New(),
			CertificateID: certificateID,
			Data:          datatypes.JSONMap{"student_name": "Ada"},
			Status:        StatusGenerated,
			IsRevoked:     true,
			RevokeReason:  &reason,
		}, nil
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/verify/NH-2026-00002", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, reason, body["revoke_reason"])
}

func TestVerifyRouteNotFound(t *testing.T) {
	router := newVerifyRouter(func(context.Context, string) (*Certificate, error) {
		return nil, ErrCertificateNotFound
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/verify/NH-0000-00000", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":false`)
}
