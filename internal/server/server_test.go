package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	appdomain "github.com/dfund/marketplace/internal/application/domain"
	auditdomain "github.com/dfund/marketplace/internal/audit/domain"
	authdomain "github.com/dfund/marketplace/internal/auth/domain"
	"github.com/dfund/marketplace/internal/auth/session"
	"github.com/dfund/marketplace/internal/config"
	oppdomain "github.com/dfund/marketplace/internal/opportunity/domain"
	"github.com/dfund/marketplace/internal/principal"
	"github.com/dfund/marketplace/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

const (
	testUserID    = snowflake.ID(1001)
	testSessionID = snowflake.ID(2001)
	testToken     = "access-token"
)

type fakeAuthService struct {
	registered []authdomain.RegisterRequest
}

func (f *fakeAuthService) Register(ctx context.Context, req authdomain.RegisterRequest) (*authdomain.User, error) {
	f.registered = append(f.registered, req)
	return &authdomain.User{ID: testUserID, Email: req.Email, FirstName: req.FirstName, LastName: req.LastName, Role: req.Role}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	if req.Password != "correct-horse" {
		return nil, authdomain.ErrInvalidCredentials
	}
	expires := time.Now().Add(time.Hour)
	return &authdomain.LoginResult{
		Session:     &authdomain.SessionView{UserID: testUserID.String(), Email: req.Email},
		RawToken:    "session-token",
		AccessToken: testToken,
		ExpiresAt:   expires,
		SessionID:   testSessionID,
	}, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, rawToken string) error {
	return nil
}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (*authdomain.Session, error) {
	if rawToken != "session-token" {
		return nil, authdomain.ErrInvalidSession
	}
	return &authdomain.Session{ID: testSessionID, UserID: testUserID}, nil
}

func (f *fakeAuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*authdomain.Session, error) {
	if accessToken != testToken {
		return nil, authdomain.ErrInvalidToken
	}
	return &authdomain.Session{ID: testSessionID, UserID: testUserID}, nil
}

func (f *fakeAuthService) GetUser(ctx context.Context, id snowflake.ID) (*authdomain.User, error) {
	if id != testUserID {
		return nil, authdomain.ErrUserNotFound
	}
	return &authdomain.User{ID: id, Email: "ada@example.com", FirstName: "Ada"}, nil
}

type fakeApplicationService struct {
	err        error
	lastCaller snowflake.ID
	lastCreate appdomain.CreateRequest
	lastReview appdomain.ReviewRequest
}

func (f *fakeApplicationService) record(ctx context.Context) {
	f.lastCaller, _ = principal.UserIDFromContext(ctx)
}

func (f *fakeApplicationService) Create(ctx context.Context, req appdomain.CreateRequest) (appdomain.Application, error) {
	f.record(ctx)
	f.lastCreate = req
	if f.err != nil {
		return appdomain.Application{}, f.err
	}
	return appdomain.Application{ID: 77, OpportunityID: req.OpportunityID, CandidateID: f.lastCaller, Stage: appdomain.StageDraft, IsDraft: true}, nil
}

func (f *fakeApplicationService) Update(ctx context.Context, req appdomain.UpdateRequest) (appdomain.Application, error) {
	f.record(ctx)
	if f.err != nil {
		return appdomain.Application{}, f.err
	}
	return appdomain.Application{ID: req.ID, Title: req.Title, Stage: appdomain.StageDraft, IsDraft: true}, nil
}

func (f *fakeApplicationService) Submit(ctx context.Context, req appdomain.SubmitRequest) (appdomain.Application, error) {
	f.record(ctx)
	if f.err != nil {
		return appdomain.Application{}, f.err
	}
	return appdomain.Application{ID: req.ID, Stage: appdomain.StageSubmitted}, nil
}

func (f *fakeApplicationService) Review(ctx context.Context, req appdomain.ReviewRequest) (appdomain.Application, error) {
	f.record(ctx)
	f.lastReview = req
	if f.err != nil {
		return appdomain.Application{}, f.err
	}
	return appdomain.Application{ID: req.ID, Stage: req.Stage, IsClosed: req.Stage.IsTerminal()}, nil
}

func (f *fakeApplicationService) ListByOpportunityForOwner(ctx context.Context, req appdomain.ListByOpportunityRequest) ([]appdomain.ApplicationWithCandidate, error) {
	f.record(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return []appdomain.ApplicationWithCandidate{}, nil
}

func (f *fakeApplicationService) ListForCandidate(ctx context.Context, req appdomain.ListForCandidateRequest) ([]appdomain.ApplicationWithOpportunity, error) {
	f.record(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return []appdomain.ApplicationWithOpportunity{}, nil
}

type fakeOpportunityService struct {
	lastList  oppdomain.ListRequest
	deleteErr error
}

func (f *fakeOpportunityService) Create(ctx context.Context, req oppdomain.CreateRequest) (oppdomain.OpportunityWithOwner, error) {
	return oppdomain.OpportunityWithOwner{}, oppdomain.ErrInvalidType
}

func (f *fakeOpportunityService) Update(ctx context.Context, req oppdomain.UpdateRequest) (oppdomain.OpportunityWithOwner, error) {
	return oppdomain.OpportunityWithOwner{}, oppdomain.ErrForbidden
}

func (f *fakeOpportunityService) Delete(ctx context.Context, id snowflake.ID) error {
	return f.deleteErr
}

func (f *fakeOpportunityService) GetByID(ctx context.Context, id snowflake.ID) (oppdomain.OpportunityWithOwner, error) {
	return oppdomain.OpportunityWithOwner{}, oppdomain.ErrNotFound
}

func (f *fakeOpportunityService) List(ctx context.Context, req oppdomain.ListRequest) (oppdomain.ListResponse, error) {
	f.lastList = req
	return oppdomain.ListResponse{Opportunities: []oppdomain.OpportunityWithOwner{}, Skip: req.Skip, Take: req.Take}, nil
}

func (f *fakeOpportunityService) GetOwnerID(ctx context.Context, id snowflake.ID) (snowflake.ID, error) {
	return 0, oppdomain.ErrNotFound
}

type fakeAuditService struct{}

func (fakeAuditService) AuditLog(ctx context.Context, actorType auditdomain.ActorType, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	return nil
}

func (fakeAuditService) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type testServer struct {
	engine *gin.Engine
	apps   *fakeApplicationService
	opps   *fakeOpportunityService
	auth   *fakeAuthService
}

func newTestServer(t *testing.T, limiter *ratelimit.ApplicationWriteLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{Environment: "test"}
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	ts := &testServer{
		engine: engine,
		apps:   &fakeApplicationService{},
		opps:   &fakeOpportunityService{},
		auth:   &fakeAuthService{},
	}
	NewServer(ServerParams{
		Gin:            engine,
		Cfg:            cfg,
		Log:            zap.NewNop(),
		Authsvc:        ts.auth,
		Sessions:       session.NewManager(cfg),
		OpportunitySvc: ts.opps,
		ApplicationSvc: ts.apps,
		AuditSvc:       fakeAuditService{},
		WriteLimiter:   limiter,
	})
	return ts
}

func (ts *testServer) do(method, path string, body any, authed bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestApplicationRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/applications", gin.H{"opportunity_id": "5"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)

	req := httptest.NewRequest(http.MethodGet, "/api/applications/user/1001", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateApplicationPassesCaller(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/applications", gin.H{
		"opportunity_id": "5",
		"title":          "Backend role",
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, testUserID, ts.apps.lastCaller)
	assert.Equal(t, snowflake.ID(5), ts.apps.lastCreate.OpportunityID)
	require.NotNil(t, ts.apps.lastCreate.Title)
	assert.Equal(t, "Backend role", *ts.apps.lastCreate.Title)

	var body struct {
		Data appdomain.Application `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, appdomain.StageDraft, body.Data.Stage)
	assert.Equal(t, testUserID, body.Data.CandidateID)
}

func TestCreateApplicationRejectsBadOpportunityID(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/applications", gin.H{"opportunity_id": "abc"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_opportunity", payload.Errors[0].Code)

	rec = ts.do(http.MethodPost, "/api/applications", gin.H{}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload = decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "opportunity_id", payload.Errors[0].Field)
	assert.Equal(t, "required", payload.Errors[0].Code)
}

func TestApplicationErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{"not found", appdomain.ErrNotFound, http.MethodPut, "/api/applications/9", gin.H{"title": "x"}, http.StatusNotFound, "not_found"},
		{"forbidden", appdomain.ErrForbiddenReview, http.MethodPut, "/api/applications/9/review", gin.H{"stage": "SUCCESS"}, http.StatusForbidden, "forbidden"},
		{"conflict", appdomain.ErrConflict, http.MethodPost, "/api/applications", gin.H{"opportunity_id": "5"}, http.StatusConflict, "conflict"},
		{"not draft", appdomain.ErrNotDraftSubmit, http.MethodPost, "/api/applications/9/submit", nil, http.StatusBadRequest, "validation_error"},
		{"too long", appdomain.FieldTooLong("title"), http.MethodPut, "/api/applications/9", gin.H{"title": "x"}, http.StatusBadRequest, "validation_error"},
		{"store failure", context.DeadlineExceeded, http.MethodGet, "/api/applications/user/1001", nil, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.apps.err = tc.err

			rec := ts.do(tc.method, tc.path, tc.body, true)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.kind, decodeError(t, rec).Type)
		})
	}
}

func TestFieldTooLongNamesField(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.apps.err = appdomain.FieldTooLong("goal_letter")

	rec := ts.do(http.MethodPut, "/api/applications/9", gin.H{"goal_letter": "x"}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "goal_letter", payload.Errors[0].Field)
	assert.Equal(t, "field_too_long", payload.Errors[0].Code)
}

func TestReviewNormalizesStage(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPut, "/api/applications/9/review", gin.H{
		"stage":           "owner_review",
		"review_feedback": "Looks promising",
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, appdomain.StageOwnerReview, ts.apps.lastReview.Stage)
	assert.Equal(t, snowflake.ID(9), ts.apps.lastReview.ID)
}

func TestInvalidApplicationIDParam(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/applications/not-a-number/submit", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_id", payload.Errors[0].Code)
}

func TestCookieSessionAuthenticates(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "session-token"})
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"email":"ada@example.com"`)
}

func TestLoginSetsCookieAndReturnsAccessToken(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/auth/login", gin.H{"email": "ada@example.com", "password": "correct-horse"}, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Set-Cookie"), session.DefaultCookieName+"=session-token")

	var body struct {
		Data loginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, testToken, body.Data.AccessToken)
	assert.Equal(t, "Bearer", body.Data.TokenType)

	rec = ts.do(http.MethodPost, "/auth/login", gin.H{"email": "ada@example.com", "password": "nope"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidatesBody(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/auth/register", gin.H{
		"email":      "not-an-email",
		"password":   "short",
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"role":       "wizard",
	}, false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := map[string]string{}
	for _, e := range decodeError(t, rec).Errors {
		fields[e.Field] = e.Code
	}
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "min", fields["password"])
	assert.Equal(t, "oneof", fields["role"])
	assert.Empty(t, ts.auth.registered)

	rec = ts.do(http.MethodPost, "/auth/register", gin.H{
		"email":      "ada@example.com",
		"password":   "long-enough",
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"role":       "talent",
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, ts.auth.registered, 1)
	assert.Equal(t, authdomain.RoleTalent, ts.auth.registered[0].Role)
}

func TestOpportunityRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/opportunities?status=active&type=event&search=%20fin%20&skip=10&take=5", nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, oppdomain.StatusActive, ts.opps.lastList.Status)
	assert.Equal(t, oppdomain.TypeEvent, ts.opps.lastList.Type)
	assert.Equal(t, "fin", ts.opps.lastList.Search)
	assert.Equal(t, 10, ts.opps.lastList.Skip)
	assert.Equal(t, 5, ts.opps.lastList.Take)

	rec = ts.do(http.MethodGet, "/api/opportunities?take=lots", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/opportunities/user/1001", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testUserID, ts.opps.lastList.OwnerID)

	rec = ts.do(http.MethodGet, "/api/opportunities/42", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/opportunities", gin.H{"name": "Fintech CTO", "type": "NOPE"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "type", payload.Errors[0].Field)

	rec = ts.do(http.MethodPut, "/api/opportunities/42", gin.H{"name": "Other"}, true)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/opportunities/42", nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	ts.opps.deleteErr = oppdomain.ErrHasApplications
	rec = ts.do(http.MethodDelete, "/api/opportunities/42", nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Type)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/nothing-here", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestRateLimitStoreFailureIsUnavailable(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	limiter, err := ratelimit.NewApplicationWriteLimiter(lc, config.Config{
		RateLimit: config.RateLimitConfig{
			Enabled:               true,
			RedisAddr:             "127.0.0.1:1",
			ApplicationWriteRate:  1,
			ApplicationWriteBurst: 1,
		},
	}, zap.NewNop())
	require.NoError(t, err)
	lc.RequireStart()
	defer lc.RequireStop()

	ts := newTestServer(t, limiter)

	rec := ts.do(http.MethodPost, "/api/applications", gin.H{"opportunity_id": "5"}, true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "service_unavailable", decodeError(t, rec).Type)
	assert.Zero(t, ts.apps.lastCaller)

	// review is not throttled
	rec = ts.do(http.MethodPut, "/api/applications/9/review", gin.H{"stage": "ARCHIVED"}, true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", retryAfterSeconds(0))
	assert.Equal(t, "1", retryAfterSeconds(300*time.Millisecond))
	assert.Equal(t, "3", retryAfterSeconds(2100*time.Millisecond))
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(appdomain.ErrNotDraftUpdate)
	assert.Equal(t, "bad_request", kind)
	assert.Equal(t, "not_draft", code)

	kind, code = classifyErrorForLog(oppdomain.ErrInvalidStatus)
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "invalid_status", code)

	kind, _ = classifyErrorForLog(ErrTooManyRequests)
	assert.Equal(t, "too_many_requests", kind)
}
