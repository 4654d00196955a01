package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bclabs/school-portal-api/internal/models"
	"github.com/bclabs/school-portal-api/internal/service"
	"github.com/bclabs/school-portal-api/internal/syscfg"
)

type stubSetupUsers struct {
	created []*models.User
}

func (s *stubSetupUsers) Create(_ context.Context, user *models.User) error {
	user.ID = "admin-1"
	s.created = append(s.created, user)
	return nil
}

func (s *stubSetupUsers) CreateAuditLog(_ context.Context, _ *models.AuditLog) error {
	return nil
}

func newSetupHandler(cfg models.SystemConfig) (*SetupHandler, *stubSetupUsers) {
	users := &stubSetupUsers{}
	svc := service.NewSetupService(syscfg.NewMemStore(cfg), users, "BC-", nil, zap.NewNop())
	return NewSetupHandler(svc), users
}

func TestSetupHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newSetupHandler(models.SystemConfig{Installed: true})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/api/setup/status", nil)
	c.Request = req

	handler.Status(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"installed":true}`, w.Body.String())
}

func TestSetupHandlerInstall(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, users := newSetupHandler(models.SystemConfig{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/api/setup", `{"schoolName":"Bright College","adminUsername":"admin","adminPassword":"adminpass","productKey":"BC-2026-XYZ"}`)

	handler.Install(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "System setup completed")
	require.Len(t, users.created, 1)
	assert.Equal(t, models.TypeAdmin, users.created[0].Role)
}

func TestSetupHandlerInstallAlreadyInstalled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newSetupHandler(models.SystemConfig{Installed: true})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/api/setup", `{"schoolName":"Bright College","adminUsername":"admin","adminPassword":"adminpass","productKey":"BC-2026-XYZ"}`)

	handler.Install(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSetupHandlerInstallMissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newSetupHandler(models.SystemConfig{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/api/setup", `{"schoolName":"Bright College"}`)

	handler.Install(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
