package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-core/internal/api/dto"
	"github.com/cuongbtq/booking-core/internal/api/handler"
	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/intake"
	"github.com/cuongbtq/booking-core/internal/booking/lifecycle"
	"github.com/cuongbtq/booking-core/internal/booking/matching"
	"github.com/cuongbtq/booking-core/internal/booking/memstore"
	"github.com/cuongbtq/booking-core/internal/booking/notify"
	"github.com/cuongbtq/booking-core/internal/booking/timeutil"
	"github.com/cuongbtq/booking-core/internal/metrics"
	"github.com/cuongbtq/booking-core/shared/logger"
)

const (
	adminID      int64 = 1
	translatorID int64 = 2
	otherID      int64 = 3
	customerID   int64 = 100
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type testServer struct {
	engine *gin.Engine
	store  *memstore.Store
	outbox *memstore.Outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loc, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)
	clock := fixedClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, loc)}

	store := memstore.New()
	outbox := memstore.NewOutbox()
	profile := func() *domain.UserProfile {
		return &domain.UserProfile{
			TranslatorType:  domain.TranslatorProfessional,
			TranslatorLevel: domain.LevelCertified,
			Languages:       []int{5},
			City:            "Stockholm",
		}
	}
	store.AddUser(domain.User{ID: adminID, Email: "admin@example.com", Role: domain.RoleAdmin, Active: true}, nil)
	store.AddUser(domain.User{ID: customerID, Email: "kund@example.com", Name: "Kund", Role: domain.RoleCustomer, Active: true},
		&domain.UserProfile{City: "Stockholm", ConsumerType: "paid"})
	store.AddUser(domain.User{ID: translatorID, Email: "anna@example.com", Name: "Anna", Role: domain.RoleTranslator, Active: true}, profile())
	store.AddUser(domain.User{ID: otherID, Email: "bo@example.com", Name: "Bo", Role: domain.RoleTranslator, Active: true}, profile())

	hours, err := timeutil.NewBusinessHours(timeutil.BusinessHoursConfig{Location: loc, NightStart: 22, NightEnd: 7})
	require.NoError(t, err)
	cat, err := notify.NewCatalog()
	require.NoError(t, err)

	log := logger.NewNop().Logger
	reg := prometheus.NewRegistry()
	rec := metrics.NewCollector("booking", reg)
	engine := matching.NewEngine(store, store)
	dispatcher := notify.NewDispatcher(notify.Deps{
		Users:     store,
		Engine:    engine,
		Transport: outbox,
		Hours:     hours,
		Clock:     clock,
		Printers:  notify.NewPrinters(cat),
		Metrics:   rec,
		Logger:    log,
	}, notify.Config{Languages: map[int]string{5: "Svenska"}})

	manager := lifecycle.NewManager(lifecycle.Deps{
		Users:      store,
		Jobs:       store,
		Engine:     engine,
		Dispatcher: dispatcher,
		Builder:    intake.NewBuilder(loc, 0),
		Events:     outbox,
		Clock:      clock,
		Metrics:    rec,
		Logger:     log,
	}, lifecycle.Config{})

	r := SetupRouter(&handler.Dependencies{Logger: log, Manager: manager, Location: loc}, Options{Gatherer: reg})
	return &testServer{engine: r, store: store, outbox: outbox}
}

func (s *testServer) do(t *testing.T, method, path string, actor int64, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != 0 {
		req.Header.Set(ActorHeader, strconv.FormatInt(actor, 10))
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

var validBooking = intake.Request{
	FromLanguageID:    5,
	DueDate:           "03/13/2026",
	DueTime:           "13:00",
	CustomerPhoneType: "yes",
	Duration:          30,
	Immediate:         "no",
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	s.do(t, http.MethodPost, "/api/v1/jobs", customerID, validBooking)

	w = s.do(t, http.MethodGet, "/metrics", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `booking_jobs_created_total{job_type="paid"} 1`)
}

func TestActorHeaderRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/jobs", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAcceptFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/jobs", customerID, validBooking)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.CreateJobResponse](t, w)
	require.NotNil(t, created.Job)
	assert.Equal(t, domain.StatusPending, created.Job.Status)
	assert.Equal(t, 2, created.NotifiedNow)

	jobPath := "/api/v1/jobs/" + strconv.FormatInt(created.Job.ID, 10)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/potential", translatorID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":`+strconv.FormatInt(created.Job.ID, 10))

	w = s.do(t, http.MethodPost, jobPath+"/accept", translatorID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decode[lifecycle.AcceptResult](t, w)
	assert.Equal(t, domain.StatusAssigned, accepted.Job.Status)

	w = s.do(t, http.MethodPost, jobPath+"/accept", otherID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	failure := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, "fail", failure.Status)
	assert.NotEmpty(t, failure.Message)

	w = s.do(t, http.MethodGet, "/api/v1/jobs", customerID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[lifecycle.UserJobs](t, w)
	require.Len(t, listed.Normal, 1)
	assert.Equal(t, domain.StatusAssigned, listed.Normal[0].Status)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		actor  int64
		body   any
		want   int
	}{
		{name: "translator cannot book", method: http.MethodPost, path: "/api/v1/jobs", actor: translatorID, body: validBooking, want: http.StatusForbidden},
		{name: "missing field", method: http.MethodPost, path: "/api/v1/jobs", actor: customerID, body: intake.Request{DueDate: "03/13/2026"}, want: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, path: "/api/v1/jobs", actor: customerID, body: "nope", want: http.StatusBadRequest},
		{name: "bad job id", method: http.MethodPost, path: "/api/v1/jobs/abc/cancel", actor: customerID, want: http.StatusBadRequest},
		{name: "unknown job", method: http.MethodPost, path: "/api/v1/jobs/999/cancel", actor: customerID, want: http.StatusNotFound},
		{name: "bad due on update", method: http.MethodPatch, path: "/api/v1/jobs/1", actor: adminID, body: dto.UpdateJobRequest{Due: "tomorrow"}, want: http.StatusBadRequest},
		{name: "bad history cursor", method: http.MethodGet, path: "/api/v1/jobs/history?cursor=abc", actor: customerID, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			w := s.do(t, tt.method, tt.path, tt.actor, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestHistoryCursor(t *testing.T) {
	s := newTestServer(t)
	due := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 16; i++ {
		s.store.PutJob(domain.Job{ID: i, UserID: customerID, Status: domain.StatusCompleted, Due: due.Add(time.Duration(i) * time.Hour)})
	}

	w := s.do(t, http.MethodGet, "/api/v1/jobs/history", customerID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[dto.HistoryResponse](t, w)
	assert.Len(t, first.Jobs, 15)
	assert.Equal(t, 16, first.Total)
	require.NotEmpty(t, first.NextCursor)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/history?cursor="+first.NextCursor, customerID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[dto.HistoryResponse](t, w)
	assert.Len(t, second.Jobs, 1)
	assert.Equal(t, 2, second.Page)
	assert.Empty(t, second.NextCursor)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/history?cursor="+first.NextCursor, translatorID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
