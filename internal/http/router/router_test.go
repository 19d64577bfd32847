package router_test

import (
	"bytes"
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

	"github.com/ignatzorin/report-moderation/internal/config"
	"github.com/ignatzorin/report-moderation/internal/domain/entity"
	"github.com/ignatzorin/report-moderation/internal/http/middleware"
	"github.com/ignatzorin/report-moderation/internal/http/router"
	"github.com/ignatzorin/report-moderation/internal/infrastructure/content"
	"github.com/ignatzorin/report-moderation/internal/infrastructure/memory"
	"github.com/ignatzorin/report-moderation/internal/infrastructure/notify"
	"github.com/ignatzorin/report-moderation/internal/interface/http/handler"
	"github.com/ignatzorin/report-moderation/internal/service"
	"github.com/ignatzorin/report-moderation/internal/usecase/moderation"
	"github.com/ignatzorin/report-moderation/internal/usecase/report"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code       string            `json:"code"`
		Message    string            `json:"message"`
		ReasonCode string            `json:"reason_code"`
		Fields     map[string]string `json:"fields"`
	} `json:"error"`
}

type testServer struct {
	engine     *gin.Engine
	tokens     *service.TokenManager
	dispatcher *notify.Dispatcher
	admin      uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Env:              "test",
		AllowedOrigins:   []string{"http://localhost:3000"},
		Moderation:       entity.DefaultPenaltyPolicy(),
		RecentReports:    10,
		ReportRateLimit:  100,
		ReportRatePeriod: time.Minute,
	}
	admin := uuid.New()
	cfg.AdminUserIDs = []uuid.UUID{admin}

	store := memory.NewStore()
	resolver := content.NewStaticResolver()
	notifications := service.NewNotificationService(memory.NewNotificationRepository())
	dispatcher := notify.NewDispatcher(notifications, nil, notify.Options{MaxAttempts: 1, InitialInterval: time.Millisecond})

	guard := report.NewEligibilityGuard(store, cfg.Moderation)
	listUC := report.NewListReportsUseCase(store, resolver)
	ledger := moderation.NewPenaltyLedger(store, cfg.Moderation, dispatcher)
	decideUC := moderation.NewDecideReportUseCase(store, ledger, dispatcher, cfg.AllowRedecision)

	tokens := service.NewTokenManager("router-test-secret", time.Hour)
	limiterStore, err := middleware.NewLimiterStore(nil)
	require.NoError(t, err)

	engine := router.SetupRouter(cfg, tokens, limiterStore, router.Handlers{
		Report:       handler.NewReportHandler(report.NewSubmitReportUseCase(store, guard, resolver), listUC, guard, cfg.RecentReports),
		Moderation:   handler.NewModerationHandler(listUC, decideUC, ledger, guard, cfg.RecentReports),
		Notification: handler.NewNotificationHandler(notifications),
		Health:       handler.NewHealthHandler(nil),
	})

	return &testServer{engine: engine, tokens: tokens, dispatcher: dispatcher, admin: admin}
}

func (s *testServer) do(t *testing.T, method, path string, userID uuid.UUID, role string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		token, _, err := s.tokens.IssueAccess(userID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (s *testServer) submitPostReport(t *testing.T, reporter uuid.UUID) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/reports", reporter, "user", map[string]interface{}{
		"report_type":      "post",
		"reported_post_id": uuid.NewString(),
		"reason":           "spam",
	})
}

func (s *testServer) createdID(t *testing.T, env envelope) uuid.UUID {
	t.Helper()
	var data struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEqual(t, uuid.Nil, data.ID)
	return data.ID
}

func TestSubmitReport_PendingCap(t *testing.T) {
	s := newTestServer(t)
	reporter := uuid.New()

	for i := 0; i < 3; i++ {
		w, env := s.submitPostReport(t, reporter)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		s.createdID(t, env)
	}

	w, env := s.submitPostReport(t, reporter)
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "PENDING_CAP", env.Error.ReasonCode)
}

func TestSubmitReport_Validation(t *testing.T) {
	s := newTestServer(t)
	reporter := uuid.New()

	tests := []struct {
		name      string
		body      map[string]interface{}
		wantField string
	}{
		{
			name:      "неизвестный тип",
			body:      map[string]interface{}{"report_type": "comment", "reported_post_id": uuid.NewString(), "reason": "spam"},
			wantField: "report_type",
		},
		{
			name:      "неизвестная причина",
			body:      map[string]interface{}{"report_type": "post", "reported_post_id": uuid.NewString(), "reason": "boring"},
			wantField: "reason",
		},
		{
			name:      "некорректный uuid",
			body:      map[string]interface{}{"report_type": "post", "reported_post_id": "123", "reason": "spam"},
			wantField: "reported_post_id",
		},
		{
			name:      "лишняя ссылка",
			body:      map[string]interface{}{"report_type": "post", "reported_post_id": uuid.NewString(), "reported_user_id": uuid.NewString(), "reason": "spam"},
			wantField: "reported_user_id",
		},
		{
			name:      "жалоба на себя",
			body:      map[string]interface{}{"report_type": "user", "reported_user_id": reporter.String(), "reason": "spam"},
			wantField: "reported_user_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodPost, "/api/reports", reporter, "user", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
			assert.Contains(t, env.Error.Fields, tt.wantField)
		})
	}
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/admin/reports", uuid.Nil, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/admin/reports", uuid.New(), "user", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/admin/reports", uuid.New(), "admin", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/admin/reports", s.admin, "user", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestModerationFlow(t *testing.T) {
	s := newTestServer(t)
	reporter := uuid.New()

	decide := func(id uuid.UUID, body map[string]interface{}) (*httptest.ResponseRecorder, envelope) {
		return s.do(t, http.MethodPut, "/api/admin/reports/"+id.String()+"/decision", s.admin, "user", body)
	}

	// Три ложные жалобы подряд приводят к временной блокировке.
	var lastID uuid.UUID
	for i := 0; i < 3; i++ {
		w, env := s.submitPostReport(t, reporter)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		lastID = s.createdID(t, env)

		w, _ = decide(lastID, map[string]interface{}{"status": "dismissed", "is_false_report": true, "admin_note": "  ложная  "})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w, env := s.do(t, http.MethodGet, "/api/reports/me/status", reporter, "user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		WarningCount  int     `json:"warning_count"`
		IsBanned      bool    `json:"is_banned"`
		CanReport     bool    `json:"can_report"`
		ReasonCode    *string `json:"reason_code"`
		RecentReports []struct {
			AdminNote *string `json:"admin_note"`
		} `json:"recent_reports"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, 3, status.WarningCount)
	assert.True(t, status.IsBanned)
	assert.False(t, status.CanReport)
	require.NotNil(t, status.ReasonCode)
	assert.Equal(t, "TEMP_BAN", *status.ReasonCode)
	require.Len(t, status.RecentReports, 3)
	require.NotNil(t, status.RecentReports[0].AdminNote)
	assert.Equal(t, "ложная", *status.RecentReports[0].AdminNote)

	w, env = s.submitPostReport(t, reporter)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "TEMP_BAN", env.Error.ReasonCode)

	// Повторное решение по закрытой жалобе запрещено.
	w, _ = decide(lastID, map[string]interface{}{"status": "resolved"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = decide(uuid.New(), map[string]interface{}{"status": "resolved"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Снижение штрафа снимает блокировку.
	w, _ = s.do(t, http.MethodPost, "/api/admin/users/"+reporter.String()+"/penalty/reduce", s.admin, "user", map[string]interface{}{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/admin/users/"+reporter.String()+"/penalty/reduce", s.admin, "user", map[string]interface{}{"amount": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var penalty struct {
		WarningCount int  `json:"warning_count"`
		IsBanned     bool `json:"is_banned"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &penalty))
	assert.Equal(t, 1, penalty.WarningCount)
	assert.False(t, penalty.IsBanned)

	w, env = s.do(t, http.MethodGet, "/api/admin/users/"+reporter.String()+"/penalty", s.admin, "user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		History []struct {
			Kind  string `json:"kind"`
			Delta int    `json:"delta"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Len(t, view.History, 4)
	assert.Equal(t, "reduction", view.History[0].Kind)
	assert.Equal(t, -2, view.History[0].Delta)

	// Уведомления доставляются после коммита.
	s.dispatcher.Wait()
	w, env = s.do(t, http.MethodGet, "/api/notifications/unread/count", reporter, "user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var unread struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &unread))
	assert.Equal(t, 4, unread.Count)

	w, _ = s.do(t, http.MethodPut, "/api/notifications/read-all", reporter, "user", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = s.do(t, http.MethodGet, "/api/notifications?unread_only=true", reporter, "user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestListReports_Enriched(t *testing.T) {
	s := newTestServer(t)
	reporter := uuid.New()

	w, env := s.submitPostReport(t, reporter)
	require.Equal(t, http.StatusCreated, w.Code)
	id := s.createdID(t, env)

	w, env = s.do(t, http.MethodGet, "/api/admin/reports?status=pending&report_type=post", s.admin, "user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []struct {
		ID       uuid.UUID `json:"id"`
		Reporter struct {
			DisplayName string `json:"display_name"`
		} `json:"reporter"`
		Target struct {
			DisplayName string `json:"display_name"`
			URL         string `json:"url"`
		} `json:"target"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, "user-"+reporter.String()[:8], items[0].Reporter.DisplayName)
	assert.Contains(t, items[0].Target.URL, "/posts/")

	w, _ = s.do(t, http.MethodGet, "/api/admin/reports?status=archived", s.admin, "user", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/admin/reports/"+id.String(), s.admin, "user", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/admin/reports/not-a-uuid", s.admin, "user", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.submitPostReport(t, uuid.New())
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "moderation_reports_submitted_total")
}

func TestHealth_FailingDependency(t *testing.T) {
	h := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": handler.PingFunc(func(ctx context.Context) error { return context.DeadlineExceeded }),
	})
	engine := gin.New()
	engine.GET("/health", h.Health)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
