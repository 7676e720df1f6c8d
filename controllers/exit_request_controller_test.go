package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"exit_permit_tool/models"
	"exit_permit_tool/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// ── 引擎端口的最小内存实现，handler 测试不碰 Postgres ──

type stubStore struct {
	mu   sync.Mutex
	reqs map[string]*models.ExitRequest
}

func newStubStore() *stubStore { return &stubStore{reqs: make(map[string]*models.ExitRequest)} }

func (s *stubStore) CreateRequest(_ context.Context, req *models.ExitRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs[req.ID] = req
	return nil
}

func (s *stubStore) GetRequest(_ context.Context, id string) (*models.ExitRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reqs[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *stubStore) GetRequestByTracking(_ context.Context, tracking string) (*models.ExitRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reqs {
		if r.TrackingNumber == tracking {
			cp := *r
			return &cp, nil
		}
	}
	return nil, workflow.ErrNotFound
}

func (s *stubStore) ListRequestsByTenant(_ context.Context, tenantID string) ([]models.ExitRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ExitRequest
	for _, r := range s.reqs {
		if r.TenantID == tenantID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubStore) ListRequestsByStatus(_ context.Context, status workflow.Status, page, limit int) ([]models.ExitRequest, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ExitRequest
	for _, r := range s.reqs {
		if r.Status == string(status) {
			out = append(out, *r)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubStore) Transition(_ context.Context, id string, from workflow.Status, patch workflow.TransitionPatch) (*models.ExitRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reqs[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	if r.Status != string(from) {
		return nil, workflow.ErrConflict
	}
	r.Status = string(patch.To)
	if patch.AdminReviewerID != nil {
		r.AdminReviewerID = patch.AdminReviewerID
		r.AdminNote = patch.AdminNote
		r.AdminReviewDate = patch.AdminReviewDate
	}
	if patch.SecurityOfficerID != nil {
		r.SecurityOfficerID = patch.SecurityOfficerID
		r.SecurityNote = patch.SecurityNote
		r.VerifiedAt = patch.VerifiedAt
	}
	cp := *r
	return &cp, nil
}

type stubSeq struct {
	mu sync.Mutex
	n  int64
}

func (s *stubSeq) NextTrackingSeq(context.Context, string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n, nil
}

type stubDir struct{}

func (stubDir) UserIDsByRoles(context.Context, ...workflow.Role) ([]string, error) {
	return nil, nil
}

type stubDisp struct{}

func (stubDisp) Notify(context.Context, []string, string, string, string, *string) error {
	return nil
}

type stubAudit struct{}

func (stubAudit) RecordTransition(context.Context, models.TransitionAudit) error { return nil }

// ── 路由装配 ──

type testEnv struct {
	router *gin.Engine
	store  *stubStore
}

// actorMW 替代会话中间件：直接注入身份
func actorMW(uid string, role workflow.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid != "" {
			c.Set("userID", uid)
			c.Set("username", "test")
			c.Set("role", string(role))
		}
		c.Next()
	}
}

func newTestEnv(t *testing.T, uid string, role workflow.Role) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)
	store := newStubStore()
	engine := workflow.NewEngine(store, &stubSeq{}, stubDir{}, stubDisp{}, stubAudit{}, log)
	ec := NewExitController(&Srv{Engine: engine, Log: log})

	r := gin.New()
	r.Use(actorMW(uid, role))
	r.POST("/api/exit", ec.Create)
	r.GET("/api/exit/mine", ec.ListMine)
	r.GET("/api/exit/security/approved", ec.SecurityQueue)
	r.GET("/api/exit/tracking/:tracking", ec.GetByTracking)
	r.GET("/api/exit/:id", ec.Get)
	r.PATCH("/api/exit/:id/decide", ec.Decide)
	r.PATCH("/api/exit/:id/verify", ec.Verify)
	r.POST("/api/exit/:id/cancel", ec.Cancel)
	return &testEnv{router: r, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

const (
	testTenantID  = "aaaaaaaa-0000-0000-0000-000000000001"
	testAdminID   = "aaaaaaaa-0000-0000-0000-000000000002"
	testOfficerID = "aaaaaaaa-0000-0000-0000-000000000003"
)

func createBody() gin.H {
	return gin.H{
		"rentId":   uuid.NewString(),
		"exitDate": "2099-01-15",
		"purpose":  "Moving out furniture",
		"type":     "permanent",
		"items": []gin.H{
			{"itemName": "Desk", "quantity": 1, "estimatedValue": "150"},
			{"itemName": "Chair", "quantity": 3, "estimatedValue": "20"},
		},
	}
}

// seedRequest 直接往 stub 仓储塞一条指定状态的单
func (e *testEnv) seedRequest(t *testing.T, tenantID string, status workflow.Status) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, e.store.CreateRequest(context.Background(), &models.ExitRequest{
		ID:             id,
		TrackingNumber: "EX-20990101-" + id[:4],
		TenantID:       tenantID,
		Status:         string(status),
	}))
	return id
}

// ── Create ──

func TestCreateReturns201WithTotals(t *testing.T) {
	env := newTestEnv(t, testTenantID, workflow.RoleTenant)

	w := env.do(t, http.MethodPost, "/api/exit", createBody())
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	require.NotEmpty(t, body["requestId"])
	require.Regexp(t, `^EX-\d{8}-0001$`, body["trackingNumber"])
	require.Equal(t, "pending", body["status"])
	require.EqualValues(t, 4, body["totalQuantity"])
	require.Equal(t, "210", body["totalValue"])
}

func TestCreateRejectsMissingFields(t *testing.T) {
	env := newTestEnv(t, testTenantID, workflow.RoleTenant)

	w := env.do(t, http.MethodPost, "/api/exit", gin.H{"purpose": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "validation_error", decodeBody(t, w)["code"])
}

func TestCreateRejectsBadDate(t *testing.T) {
	env := newTestEnv(t, testTenantID, workflow.RoleTenant)

	body := createBody()
	body["exitDate"] = "15/01/2099"
	w := env.do(t, http.MethodPost, "/api/exit", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "exitDate", decodeBody(t, w)["field"])
}

func TestCreateItemValidationCarriesIndex(t *testing.T) {
	env := newTestEnv(t, testTenantID, workflow.RoleTenant)

	body := createBody()
	body["items"] = []gin.H{
		{"itemName": "Desk", "quantity": 1},
		{"itemName": "", "quantity": 1},
	}
	w := env.do(t, http.MethodPost, "/api/exit", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody(t, w)
	require.Equal(t, "validation_error", resp["code"])
	require.EqualValues(t, 1, resp["itemIndex"])
}

func TestCreateUnauthenticated(t *testing.T) {
	env := newTestEnv(t, "", "")

	w := env.do(t, http.MethodPost, "/api/exit", createBody())
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

// ── Get / 查询 ──

func TestGetOwnRequest(t *testing.T) {
	env := newTestEnv(t, testTenantID, workflow.RoleTenant)
	id := env.seedRequest(t, testTenantID, workflow.StatusPending)

	w := env.do(t, http.MethodGet, "/api/exit/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, id, decodeBody(t, w)["id"])
}

func TestGetForeignRequestForbiddenForTenant(t *testing.T) {
	env := newTestEnv(t, testTenantID, workflow.RoleTenant)
	id := env.seedRequest(t, uuid.NewString(), workflow.StatusPending)

	w := env.do(t, http.MethodGet, "/api/exit/"+id, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "forbidden", decodeBody(t, w)["code"])
}

func TestGetBadUUID(t *testing.T) {
	env := newTestEnv(t, testAdminID, workflow.RoleAdmin)

	w := env.do(t, http.MethodGet, "/api/exit/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNotFound(t *testing.T) {
	env := newTestEnv(t, testAdminID, workflow.RoleAdmin)

	w := env.do(t, http.MethodGet, "/api/exit/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "not_found", decodeBody(t, w)["code"])
}

func TestGetByTrackingRejectsBadFormat(t *testing.T) {
	env := newTestEnv(t, testOfficerID, workflow.RoleSecurityOfficer)

	w := env.do(t, http.MethodGet, "/api/exit/tracking/bogus-123", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "trackingNumber", decodeBody(t, w)["field"])
}

// ── Decide / Verify / Cancel 错误映射 ──

func TestDecideAsTenantForbidden(t *testing.T) {
	env := newTestEnv(t, testTenantID, workflow.RoleTenant)
	id := env.seedRequest(t, testTenantID, workflow.StatusPending)

	w := env.do(t, http.MethodPatch, "/api/exit/"+id+"/decide", gin.H{"decision": "approved"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "forbidden", decodeBody(t, w)["code"])
}

func TestDecideOnApprovedConflicts(t *testing.T) {
	env := newTestEnv(t, testAdminID, workflow.RoleAdmin)
	id := env.seedRequest(t, testTenantID, workflow.StatusApproved)

	w := env.do(t, http.MethodPatch, "/api/exit/"+id+"/decide", gin.H{"decision": "rejected"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "invalid_state_transition", decodeBody(t, w)["code"])
}

func TestDecideApproveOK(t *testing.T) {
	env := newTestEnv(t, testAdminID, workflow.RoleAdmin)
	id := env.seedRequest(t, testTenantID, workflow.StatusPending)

	w := env.do(t, http.MethodPatch, "/api/exit/"+id+"/decide", gin.H{"decision": "approved", "note": "ok"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "approved", decodeBody(t, w)["status"])
}

func TestVerifyBlockedWithoutNote(t *testing.T) {
	env := newTestEnv(t, testOfficerID, workflow.RoleSecurityOfficer)
	id := env.seedRequest(t, testTenantID, workflow.StatusApproved)

	w := env.do(t, http.MethodPatch, "/api/exit/"+id+"/verify", gin.H{"outcome": "blocked"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "securityNote", decodeBody(t, w)["field"])
}

func TestVerifyOK(t *testing.T) {
	env := newTestEnv(t, testOfficerID, workflow.RoleSecurityOfficer)
	id := env.seedRequest(t, testTenantID, workflow.StatusApproved)

	w := env.do(t, http.MethodPatch, "/api/exit/"+id+"/verify", gin.H{"outcome": "verified"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "verified", decodeBody(t, w)["status"])
}

func TestCancelOwnPending(t *testing.T) {
	env := newTestEnv(t, testTenantID, workflow.RoleTenant)
	id := env.seedRequest(t, testTenantID, workflow.StatusPending)

	w := env.do(t, http.MethodPost, "/api/exit/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "cancelled", decodeBody(t, w)["status"])
}

func TestCancelForeignForbidden(t *testing.T) {
	env := newTestEnv(t, testTenantID, workflow.RoleTenant)
	id := env.seedRequest(t, uuid.NewString(), workflow.StatusPending)

	w := env.do(t, http.MethodPost, "/api/exit/"+id+"/cancel", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

// ── 错误分类直测：两种 409 的 code 必须不同 ──

func TestWriteWorkflowErrorCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{workflow.ErrForbidden, http.StatusForbidden, "forbidden"},
		{workflow.ErrInvalidTransition, http.StatusConflict, "invalid_state_transition"},
		{workflow.ErrConflict, http.StatusConflict, "conflict"},
		{workflow.ErrNotFound, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeWorkflowError(c, tc.err)
		require.Equal(t, tc.status, w.Code, tc.code)
		require.Equal(t, tc.code, decodeBody(t, w)["code"])
	}
}
