package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pot-code/progress-engine/internal/catalog"
	"github.com/pot-code/progress-engine/internal/course"
	"github.com/pot-code/progress-engine/internal/dashboard"
	"github.com/pot-code/progress-engine/internal/domain"
	infra "github.com/pot-code/progress-engine/internal/infrastructure"
	"github.com/pot-code/progress-engine/internal/infrastructure/auth"
	"github.com/pot-code/progress-engine/internal/infrastructure/driver"
	"github.com/pot-code/progress-engine/internal/infrastructure/uuid"
	"github.com/pot-code/progress-engine/internal/lesson"
	"go.uber.org/zap"
)

const secret = "test-secret"

type testServer struct {
	app     *echo.Echo
	kv      *driver.MemoryKV
	catalog *catalog.CatalogMemory
	lessons *lesson.LessonUseCaseImpl
	jwt     *auth.JWTUtil
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	option := new(infra.AppConfig)
	option.AppID = "progress"
	option.Env = infra.EnvProduction
	option.SessionTimeout = time.Hour
	option.Security.JWTMethod = "HS256"
	option.Security.JWTSecret = secret
	option.Security.TokenName = "token"

	gw := catalog.NewCatalogMemory()
	gw.PutUser(&domain.UserModel{ID: "learner", Role: domain.RoleLearner, PurchasedCourseIDs: map[string]struct{}{"c1": {}}})
	gw.PutUser(&domain.UserModel{ID: "stranger", Role: domain.RoleLearner})
	gw.PutUser(&domain.UserModel{ID: "admin", Role: domain.RoleAdmin})
	gw.PutCourse(&domain.CourseModel{
		ID:    "c1",
		Title: "Go",
		Lessons: []*domain.LessonModel{
			{ID: "l1", Index: 0, DurationSeconds: 60},
			{ID: "l2", Index: 1, DurationSeconds: 120},
		},
	})
	gw.Enroll(&domain.EnrollmentModel{UserID: "learner", CourseID: "c1", EnrolledAt: time.Now()})

	kv := driver.NewMemoryKV()
	cache := catalog.NewCatalogCache(gw, kv, time.Minute)
	store := lesson.NewLessonMemory()
	lessons := lesson.NewLessonUseCase(store, cache, uuid.NewNanoIDGenerator(12), lesson.DefaultPolicy())
	deps := &Dependencies{
		KV:               kv,
		Catalog:          cache,
		CatalogCache:     cache,
		LessonUseCase:    lessons,
		CourseUseCase:    course.NewCourseUseCase(store, cache),
		DashboardUseCase: dashboard.NewRanker(store, cache, 2),
	}
	return &testServer{
		app:     NewApp(deps, option, zap.NewNop()),
		kv:      kv,
		catalog: gw,
		lessons: lessons,
		jwt:     auth.NewJWTUtil("HS256", secret, "token", time.Hour),
	}
}

func (ts *testServer) do(t *testing.T, uid, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if uid != "" {
		token, err := ts.jwt.GenerateTokenStr(uid)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.app.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func heartbeatBody(pos float64, at time.Time) string {
	b, _ := json.Marshal(map[string]interface{}{"position_seconds": pos, "reported_at": at.Format(time.RFC3339Nano)})
	return string(b)
}

func TestHeartbeatEndpoint(t *testing.T) {
	ts := newTestServer(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	path := "/api/v1/courses/c1/lessons/l1/heartbeat"

	rec := ts.do(t, "learner", http.MethodPost, path, heartbeatBody(30, at))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var ap domain.AcceptedPosition
	decode(t, rec, &ap)
	if !ap.Applied || ap.Outcome != domain.OutcomeAccepted || ap.LastPositionSeconds != 30 {
		t.Fatalf("unexpected reply %+v", ap)
	}

	rec = ts.do(t, "learner", http.MethodPost, path, heartbeatBody(30, at))
	decode(t, rec, &ap)
	if ap.Applied || ap.Outcome != domain.OutcomeDuplicate {
		t.Fatalf("replay reply %+v", ap)
	}

	rec = ts.do(t, "learner", http.MethodPost, path, heartbeatBody(50, at.Add(-time.Minute)))
	decode(t, rec, &ap)
	if rec.Code != http.StatusOK || ap.Outcome != domain.OutcomeStale || ap.Reason != domain.StaleOutOfOrder {
		t.Fatalf("stale reply %d %+v", rec.Code, ap)
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	at := time.Now().UTC()
	cases := map[string]struct {
		uid, method, path, body string
		code                    int
	}{
		"missing token":    {"", http.MethodGet, "/api/v1/courses/c1/progress", "", http.StatusUnauthorized},
		"access denied":    {"stranger", http.MethodPost, "/api/v1/courses/c1/lessons/l1/heartbeat", heartbeatBody(1, at), http.StatusForbidden},
		"unknown course":   {"learner", http.MethodGet, "/api/v1/courses/c9/progress", "", http.StatusNotFound},
		"unknown lesson":   {"learner", http.MethodPut, "/api/v1/courses/c1/lessons/l9/completion", "", http.StatusNotFound},
		"past duration":    {"learner", http.MethodPost, "/api/v1/courses/c1/lessons/l1/heartbeat", heartbeatBody(90, at), http.StatusBadRequest},
		"malformed body":   {"learner", http.MethodPost, "/api/v1/courses/c1/lessons/l1/heartbeat", "{", http.StatusBadRequest},
		"bad limit":        {"learner", http.MethodGet, "/api/v1/continue-learning?limit=x", "", http.StatusBadRequest},
		"learner evicting": {"learner", http.MethodDelete, "/api/v1/catalog/courses/c1/cache", "", http.StatusForbidden},
		"unknown route":    {"learner", http.MethodGet, "/nowhere", "", http.StatusNotFound},
	}
	for name, c := range cases {
		rec := ts.do(t, c.uid, c.method, c.path, c.body)
		if rec.Code != c.code {
			t.Fatalf("%s: status = %d, want %d, body = %s", name, rec.Code, c.code, rec.Body.String())
		}
	}
}

func TestValidationErrorBody(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "learner", http.MethodPost, "/api/v1/courses/c1/lessons/l1/heartbeat", `{"position_seconds": -1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body RESTValidationError
	decode(t, rec, &body)
	if len(body.InvalidParams) != 2 || body.Code != http.StatusBadRequest {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestRevokedTokenIsRejected(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.jwt.GenerateTokenStr("learner")
	_ = ts.kv.SetEX(context.Background(), tokenBlacklistPrefix+token, "1", time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/c1/progress", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := httptest.NewRecorder()
	ts.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProgressFlow(t *testing.T) {
	ts := newTestServer(t)
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ts.lessons.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	at := clock

	if rec := ts.do(t, "learner", http.MethodPost, "/api/v1/courses/c1/lessons/l2/heartbeat", heartbeatBody(40, at)); rec.Code != http.StatusOK {
		t.Fatalf("heartbeat status = %d", rec.Code)
	}

	rec := ts.do(t, "learner", http.MethodPut, "/api/v1/courses/c1/lessons/l1/completion", "")
	var lp domain.LessonProgressModel
	decode(t, rec, &lp)
	if rec.Code != http.StatusOK || !lp.Completed {
		t.Fatalf("completion %d %+v", rec.Code, lp)
	}

	rec = ts.do(t, "learner", http.MethodGet, "/api/v1/courses/c1/lessons/l2/progress", "")
	decode(t, rec, &lp)
	if lp.LastPositionSeconds != 40 || lp.Completed {
		t.Fatalf("lesson progress %+v", lp)
	}

	rec = ts.do(t, "learner", http.MethodGet, "/api/v1/courses/c1/progress", "")
	var summary domain.CourseProgressSummary
	decode(t, rec, &summary)
	if summary.Percentage != 50 || summary.LastWatchedLessonID != "l1" || summary.TotalLessonCount != 2 {
		t.Fatalf("summary %+v", summary)
	}

	rec = ts.do(t, "learner", http.MethodGet, "/api/v1/continue-learning?limit=5", "")
	var entries []*domain.ContinueLearningEntry
	decode(t, rec, &entries)
	if len(entries) != 1 || entries[0].CourseID != "c1" || entries[0].ProgressPercentage != 50 || entries[0].Title != "Go" {
		t.Fatalf("continue learning %s", rec.Body.String())
	}
}

func TestInvalidateCourseCache(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, "learner", http.MethodGet, "/api/v1/courses/c1/progress", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	ts.catalog.PutCourse(&domain.CourseModel{ID: "c1", Title: "Go", Lessons: []*domain.LessonModel{{ID: "l1", DurationSeconds: 60}}})
	var summary domain.CourseProgressSummary
	decode(t, ts.do(t, "learner", http.MethodGet, "/api/v1/courses/c1/progress", ""), &summary)
	if summary.TotalLessonCount != 2 {
		t.Fatalf("expected cached course, total = %d", summary.TotalLessonCount)
	}

	if rec := ts.do(t, "admin", http.MethodDelete, "/api/v1/catalog/courses/c1/cache", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("invalidate status = %d", rec.Code)
	}
	decode(t, ts.do(t, "learner", http.MethodGet, "/api/v1/courses/c1/progress", ""), &summary)
	if summary.TotalLessonCount != 1 {
		t.Fatalf("expected refreshed course, total = %d", summary.TotalLessonCount)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "", http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPlaybackWebsocket(t *testing.T) {
	ts := newTestServer(t)
	server := httptest.NewServer(ts.app)
	defer server.Close()

	token, _ := ts.jwt.GenerateTokenStr("learner")
	header := http.Header{}
	header.Set(echo.HeaderAuthorization, "Bearer "+token)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws/playback"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	at := time.Now().UTC()
	frame := map[string]interface{}{"course_id": "c1", "lesson_id": "l1", "position_seconds": 12, "reported_at": at}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatal(err)
	}
	var ap domain.AcceptedPosition
	if err := conn.ReadJSON(&ap); err != nil {
		t.Fatal(err)
	}
	if !ap.Applied || ap.LastPositionSeconds != 12 {
		t.Fatalf("unexpected reply %+v", ap)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"course_id":"c1"}`)); err != nil {
		t.Fatal(err)
	}
	var reply struct {
		Error RESTValidationError `json:"error"`
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Error.Code != http.StatusBadRequest || len(reply.Error.InvalidParams) == 0 {
		t.Fatalf("unexpected error reply %+v", reply)
	}

	frame["lesson_id"] = "l9"
	_ = conn.WriteJSON(frame)
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Error.Code != http.StatusNotFound {
		t.Fatalf("unexpected error reply %+v", reply)
	}
}
