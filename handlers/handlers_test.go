package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/middlewares"
	"github.com/mmdatafocus/contacts_backend/models"
	"github.com/mmdatafocus/contacts_backend/models/reports"
	"github.com/mmdatafocus/contacts_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type mockStatistics struct {
	mock.Mock
}

func (m *mockStatistics) CachedAccountStatistics(ctx context.Context, userId int, now time.Time) (*reports.AccountStatistics, error) {
	args := m.Called(ctx, userId, now)
	stats, _ := args.Get(0).(*reports.AccountStatistics)
	return stats, args.Error(1)
}

func (m *mockStatistics) CachedGlobalStatistics(ctx context.Context, now time.Time) (*reports.GlobalStatistics, error) {
	args := m.Called(ctx, now)
	stats, _ := args.Get(0).(*reports.GlobalStatistics)
	return stats, args.Error(1)
}

var fixedNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	stats  *mockStatistics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), config.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	prevDB := config.GetDB()
	config.SetDB(db)
	prevNow := now
	now = func() time.Time { return fixedNow }
	t.Cleanup(func() {
		config.SetDB(prevDB)
		now = prevNow
		_ = sqlDB.Close()
	})
	require.NoError(t, models.AutoMigrate())

	stats := &mockStatistics{}
	r := gin.New()
	r.Use(middlewares.CorrelationIdMiddleware())
	r.Use(middlewares.ReadinessGate())
	r.Use(middlewares.AuthMiddleware())
	r.Use(middlewares.LoaderMiddleware())
	RegisterRoutes(r, stats)
	r.NoRoute(NotFoundHandler)
	return &testServer{router: r, stats: stats}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signup registers and logs in, returning the user id and bearer token.
func (s *testServer) signup(t *testing.T, username string) (int, string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/register", "", gin.H{"username": username, "name": username, "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return s.login(t, username, "secret123")
}

func (s *testServer) login(t *testing.T, username, password string) (int, string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var info models.LoginInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	return info.UserId, info.Token
}

func (s *testServer) adminToken(t *testing.T) (int, string) {
	t.Helper()
	_, _, err := models.SeedAdmin(context.Background(), &models.NewUser{Username: "admin", Name: "Admin", Password: "admin123"})
	require.NoError(t, err)
	return s.login(t, "admin", "admin123")
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRespondError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{utils.NewValidationError("name", "required"), http.StatusBadRequest},
		{utils.ErrorRecordNotFound, http.StatusNotFound},
		{fmt.Errorf("load person: %w", utils.ErrorRecordNotFound), http.StatusNotFound},
		{utils.ErrorForbidden, http.StatusForbidden},
		{utils.ErrorUnauthorized, http.StatusUnauthorized},
		{utils.ErrorInvalidCredentials, http.StatusUnauthorized},
		{utils.ErrorUserDisabled, http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		respondError(c, tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}

func TestInternalErrorIsNotLeaked(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondError(c, errors.New("dial tcp 10.0.0.3:3306: i/o timeout"))
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/register", "", gin.H{"username": "nay"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id, token := s.signup(t, "nay")
	w = s.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[models.User](t, w)
	assert.Equal(t, id, me.ID)
	assert.Empty(t, me.Password)

	w = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "nay", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPut, "/auth/password", token, gin.H{"old_password": "secret123", "new_password": "changed1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.login(t, "nay", "changed1")
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup(t, "plain")

	for _, path := range []string{"/admin/stats", "/admin/users", "/admin/stats/export"} {
		assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, path, token, nil).Code, path)
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, path, "", nil).Code, path)
	}
}

func TestDisabledUserTokenRejected(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.adminToken(t)
	id, token := s.signup(t, "kyi")

	w := s.do(t, http.MethodPut, fmt.Sprintf("/admin/users/%d/active", id), adminToken, gin.H{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/persons", token, nil).Code)
}

func TestPersonAndReportLifecycle(t *testing.T) {
	s := newTestServer(t)
	ownerId, owner := s.signup(t, "owner")
	_, other := s.signup(t, "other")
	_, admin := s.adminToken(t)

	w := s.do(t, http.MethodPost, "/persons", owner, gin.H{"name": "Daw Hla"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	person := decode[models.Person](t, w)
	assert.Equal(t, ownerId, person.UserId)

	w = s.do(t, http.MethodPost, "/persons", owner, gin.H{"phone": "09"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, fmt.Sprintf("/persons/%d", person.ID), other, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/persons/9999", owner, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/persons/abc", owner, nil).Code)

	w = s.do(t, http.MethodPost, "/reports", owner, gin.H{"person_id": person.ID, "report_week": "2024-01-08", "has_contact": true, "content": "visited"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, "Daw Hla", created["person_name"])
	assert.Equal(t, "owner", created["filed_by"])

	future := time.Now().UTC().AddDate(0, 0, 10).Format("2006-01-02")
	w = s.do(t, http.MethodPost, "/reports", owner, gin.H{"person_id": person.ID, "report_week": future, "has_contact": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/reports", other, gin.H{"person_id": person.ID, "report_week": "2024-01-08", "has_contact": false})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/reports", admin, gin.H{"person_id": person.ID, "report_week": "2024-01-01", "has_contact": false})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, fmt.Sprintf("/persons/%d/reports", person.ID), owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	listed := decode[[]map[string]any](t, w)
	require.Len(t, listed, 2)
	assert.Equal(t, "owner", listed[0]["filed_by"])
	assert.Equal(t, "Admin", listed[1]["filed_by"])

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/persons/%d", person.ID), owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/reports", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]map[string]any](t, w))
}

func TestAccountStatisticsHandler(t *testing.T) {
	s := newTestServer(t)
	id, token := s.signup(t, "stats")

	want := &reports.AccountStatistics{UserId: id, Totals: reports.Totals{ReportCompletionRate: "50.0"}}
	s.stats.On("CachedAccountStatistics", mock.Anything, id, fixedNow).Return(want, nil).Once()

	w := s.do(t, http.MethodGet, "/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.Equal(t, "50.0", body["reportCompletionRate"])
	s.stats.AssertExpectations(t)

	s.stats.On("CachedAccountStatistics", mock.Anything, id, fixedNow).Return(nil, errors.New("db down")).Once()
	assert.Equal(t, http.StatusInternalServerError, s.do(t, http.MethodGet, "/stats", token, nil).Code)
}

func TestGlobalStatisticsAndExport(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.adminToken(t)

	global := &reports.GlobalStatistics{
		TotalAccounts: 1,
		Totals:        reports.Totals{TotalPersons: 2, TotalExpectedReports: 4, TotalActualReports: 3, TotalMissingReports: 1, ReportCompletionRate: "75.0"},
		WeekStats:     []reports.WeekStat{{WeekStart: "2024-01-08", Expected: 2, Actual: 1, Missing: 1, CompletionRate: "50.0"}},
		AccountBreakdown: []reports.AccountBreakdown{
			{UserId: 2, Username: "zaw", Name: "Zaw", TotalPersons: 2, TotalExpectedReports: 4, TotalActualReports: 3, TotalMissingReports: 1, ReportCompletionRate: "75.0"},
		},
		RecentReports: []reports.RecentReport{},
	}
	s.stats.On("CachedGlobalStatistics", mock.Anything, fixedNow).Return(global, nil)

	w := s.do(t, http.MethodGet, "/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, body["totalAccounts"])
	assert.Equal(t, "75.0", body["reportCompletionRate"])

	w = s.do(t, http.MethodGet, "/admin/stats/export", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "statistics-2024-01-08.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "Accounts", "Weeks"}, f.GetSheetList())
	name, err := f.GetCellValue("Accounts", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Zaw", name)
	rate, err := f.GetCellValue("Weeks", "E2")
	require.NoError(t, err)
	assert.Equal(t, "50.0", rate)
}

func TestUserStatisticsHandler_UnknownUser(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.adminToken(t)

	w := s.do(t, http.MethodGet, "/admin/users/4242/stats", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	s.stats.AssertNotCalled(t, "CachedAccountStatistics", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get(middlewares.CorrelationIdHeader))
}
