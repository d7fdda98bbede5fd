package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/assignment"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

type testServer struct {
	app       *fiber.App
	tokens    *auth.TokenManager
	serviceID int64
	anaID     int64
	benID     int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	anaID := store.AddTechnician(domain.Technician{Name: "Ana", Active: true})
	benID := store.AddTechnician(domain.Technician{Name: "Ben", Active: true})
	store.AddSpecialty(domain.Specialty{TechnicianID: anaID, Area: assignment.AreaInternet, Level: domain.ExpertisePrincipal, Active: true})
	serviceID := store.AddService(domain.Service{
		Category:           "Internet",
		TargetTime:         "2 días",
		DefaultPriority:    domain.TicketPriorityMedium,
		InitialResponsible: "RITO",
		Active:             true,
	})

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	assignments := service.NewAssignmentService(service.AssignmentDependencies{Store: store, Metrics: metrics, Logger: logger})
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Assignment: assignments,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Engine:     config.DefaultEngineConfig(),
	})
	tokens := auth.NewTokenManager("test-secret", 5)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk", "test", map[string]handlers.Pinger{"postgres": nil}),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Assignment:     handlers.NewAssignmentHandler(assignments),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Technicians()),
		Metrics:        metrics,
	})
	return &testServer{app: app, tokens: tokens, serviceID: serviceID, anaID: anaID, benID: benID}
}

func (s *testServer) token(t *testing.T, id int64, role domain.Role) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(domain.Principal{UserID: id, Role: role})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func data(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	req := httptest.NewRequest(nethttp.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	employee := s.token(t, 100, domain.RoleEmployee)
	ana := s.token(t, s.anaID, domain.RoleTechnician)

	status, body := s.do(t, nethttp.MethodPost, "/api/v1/tickets", employee, map[string]any{
		"service_id":  s.serviceID,
		"description": "no internet",
	})
	require.Equal(t, nethttp.StatusCreated, status)
	ticket := data(body)
	assert.Equal(t, "Abierto", ticket["status"])
	assert.EqualValues(t, s.anaID, ticket["technician_id"])
	assert.InDelta(t, 172800, ticket["remaining_seconds"], 2)
	id := int64(ticket["id"].(float64))
	base := fmt.Sprintf("/api/v1/tickets/%d", id)

	status, body = s.do(t, nethttp.MethodPatch, base+"/status", employee, map[string]any{"status": "Finalizado"})
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = s.do(t, nethttp.MethodPatch, base+"/status", ana, map[string]any{"status": "Pendiente", "reason": "waiting"})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, nethttp.MethodPatch, base+"/status", ana, map[string]any{"status": "Finalizado", "version": 99})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "CONCURRENT_MODIFICATION", errorCode(body))

	status, body = s.do(t, nethttp.MethodPatch, base+"/status", ana, map[string]any{"status": "Finalizado"})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "Finalizado", data(body)["status"])
	assert.Equal(t, true, data(body)["awaiting_evaluation"])

	status, body = s.do(t, nethttp.MethodPost, base+"/evaluation", employee, map[string]any{"rating": 5})
	require.Equal(t, nethttp.StatusCreated, status)
	assert.Equal(t, "Cerrado", data(body)["status"])

	status, body = s.do(t, nethttp.MethodPost, base+"/evaluation", employee, map[string]any{"rating": 4})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "ALREADY_EVALUATED", errorCode(body))

	status, body = s.do(t, nethttp.MethodGet, base+"/history", employee, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.NotEmpty(t, body["data"])
}

func TestEscalationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	employee := s.token(t, 100, domain.RoleEmployee)
	ana := s.token(t, s.anaID, domain.RoleTechnician)

	status, body := s.do(t, nethttp.MethodPost, "/api/v1/tickets", employee, map[string]any{
		"service_id":  s.serviceID,
		"description": "no internet",
	})
	require.Equal(t, nethttp.StatusCreated, status)
	id := int64(data(body)["id"].(float64))
	base := fmt.Sprintf("/api/v1/tickets/%d", id)

	status, body = s.do(t, nethttp.MethodPost, base+"/escalations", ana, map[string]any{
		"technician_id": s.benID,
		"reason":        "needs fiber team",
	})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "Escalado", data(body)["status"])
	assert.EqualValues(t, s.benID, data(body)["technician_id"])

	status, body = s.do(t, nethttp.MethodGet, base+"/escalations", employee, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = s.do(t, nethttp.MethodGet,
		fmt.Sprintf("/api/v1/services/%d/technician?exclude=%d", s.serviceID, s.anaID), ana, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, false, data(body)["assigned"])
	assert.Equal(t, "none", data(body)["source"])
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodGet, "/api/v1/tickets", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = s.do(t, nethttp.MethodGet, "/api/v1/tickets/abc", s.token(t, 1, domain.RoleAdmin), nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}
