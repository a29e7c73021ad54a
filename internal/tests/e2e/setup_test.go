package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kai426/Dignus-sub001/domain"
	"github.com/kai426/Dignus-sub001/internal/app"
	"github.com/kai426/Dignus-sub001/internal/config"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/auth"
	"github.com/kai426/Dignus-sub001/internal/mocks"
	"github.com/kai426/Dignus-sub001/internal/testutil"
)

const webhookSecret = "e2e-webhook-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// TestServer runs the fully assembled application over sqlite and miniredis
type TestServer struct {
	t         *testing.T
	Container *app.Container
	Server    *httptest.Server
	DB        *gorm.DB
	Redis     *miniredis.Miniredis
	Clock     *clockwork.FakeClock
	Notifier  *mocks.MockNotificationService
	Storage   *mocks.MockVideoStorage
	AIAgent   *mocks.MockAIAgent
}

// NewTestServer assembles the application and serves it until the test ends
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.NewTestDB(t)
	rdb, mr := testutil.NewTestRedis(t)
	enforcer, err := auth.NewInMemoryEnforcer(auth.RBACModel)
	require.NoError(t, err, "casbin enforcer should load")

	ts := &TestServer{
		t:        t,
		DB:       db,
		Redis:    mr,
		Clock:    clockwork.NewFakeClockAt(testutil.BaseTime),
		Notifier: mocks.NewMockNotificationService(),
		Storage:  mocks.NewMockVideoStorage(),
		AIAgent:  mocks.NewMockAIAgent(),
	}

	ts.Container = app.Assemble(testConfig(), zap.NewNop(), ts.Clock, app.Infrastructure{
		DB:       db,
		Redis:    rdb,
		Enforcer: enforcer,
		Storage:  ts.Storage,
		AIAgent:  ts.AIAgent,
		Notifier: ts.Notifier,
	})
	ts.Server = httptest.NewServer(ts.Container.Router)
	t.Cleanup(ts.Server.Close)
	return ts
}

func testConfig() *config.Config {
	owner := func(name, path string) config.ValidationRule {
		return config.ValidationRule{
			Name:    name,
			Method:  http.MethodPost,
			Path:    path,
			Logic:   "all",
			Enabled: true,
			Conditions: []config.ValidationCondition{{
				RequestField: config.FieldSource{Source: "body", Name: "candidateId"},
				TokenField:   config.FieldSource{Source: "token", Name: "user_id"},
				Operator:     "equals",
			}},
		}
	}
	return &config.Config{
		JWTSecret:         "e2e-secret",
		JWTIssuer:         "dignus-e2e",
		AccessTTL:         time.Hour,
		RefreshTTL:        24 * time.Hour,
		AIWebhookSecret:   webhookSecret,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		QuestionCounts: map[domain.TestType]int{
			domain.TestTypeMath:      2,
			domain.TestTypeInterview: 1,
		},
		ValidationRules: []config.ValidationRule{
			owner("create-test-owner", "/tests"),
			owner("start-test-owner", "/tests/:id/start"),
			owner("submit-test-owner", "/tests/submit"),
		},
	}
}

// Do sends a JSON request and decodes the JSON response, if any
func (ts *TestServer) Do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	ts.t.Helper()
	var headers map[string]string
	if token != "" {
		headers = map[string]string{"Authorization": "Bearer " + token}
	}
	return ts.DoWithHeaders(method, path, headers, body)
}

// DoWithHeaders is Do with arbitrary request headers
func (ts *TestServer) DoWithHeaders(method, path string, headers map[string]string, body interface{}) (int, map[string]interface{}) {
	ts.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, ts.Server.URL+path, reader)
	require.NoError(ts.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return ts.send(req, "")
}

func (ts *TestServer) send(req *http.Request, token string) (int, map[string]interface{}) {
	ts.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Server.Client().Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(ts.t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(ts.t, json.Unmarshal(raw, &decoded), "response should be JSON: %s", raw)
	}
	return resp.StatusCode, decoded
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

// LastCode extracts the access code from the most recent email
func (ts *TestServer) LastCode() string {
	ts.t.Helper()
	msg, ok := ts.Notifier.LastEmail()
	require.True(ts.t, ok, "an access code email should have been sent")
	m := codePattern.FindStringSubmatch(msg.Body)
	require.Len(ts.t, m, 2, "email body should carry a six digit code: %q", msg.Body)
	return m[1]
}

// LoginCandidate runs request-token and validate-token and returns the access token
func (ts *TestServer) LoginCandidate(cpf, email string) (string, map[string]interface{}) {
	ts.t.Helper()

	status, body := ts.Do(http.MethodPost, "/auth/request-token", "", map[string]string{"cpf": cpf, "email": email})
	require.Equal(ts.t, http.StatusOK, status, "request-token should succeed: %v", body)

	status, body = ts.Do(http.MethodPost, "/auth/validate-token", "", map[string]string{"cpf": cpf, "code": ts.LastCode()})
	require.Equal(ts.t, http.StatusOK, status, "validate-token should succeed: %v", body)

	data := body["data"].(map[string]interface{})
	return data["access_token"].(string), data
}

// LoginAdmin stores an admin and signs them in
func (ts *TestServer) LoginAdmin(email, password string) string {
	ts.t.Helper()

	hash, err := auth.NewPasswordService(0).Hash(password)
	require.NoError(ts.t, err)
	require.NoError(ts.t, ts.Container.AdminRepo.Create(context.Background(), &domain.Admin{
		Name:         "Recruiter",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}))

	status, body := ts.Do(http.MethodPost, "/admin/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(ts.t, http.StatusOK, status, "admin login should succeed: %v", body)
	return body["data"].(map[string]interface{})["access_token"].(string)
}

func dataOf(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response should carry a data object: %v", body)
	return data
}

// idPath fills the {id} placeholder with a JSON id, numeric or string
func idPath(format string, id interface{}) string {
	var v string
	switch x := id.(type) {
	case float64:
		v = strconv.FormatFloat(x, 'f', -1, 64)
	default:
		v = fmt.Sprint(x)
	}
	return strings.Replace(format, "{id}", v, 1)
}
