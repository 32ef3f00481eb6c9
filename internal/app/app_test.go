package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kengoodridge/ai-chatbot/internal/config"
	"github.com/kengoodridge/ai-chatbot/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		DSN:              "sqlite://" + filepath.Join(t.TempDir(), "app.db"),
		Env:              "test",
		Port:             1,
		HandlerTimeoutMS: 500,
		PythonBin:        "python3",
	}
	db, err := database.Connect(cfg)
	require.NoError(t, err)

	application, err := New(zap.NewNop(), cfg, db)
	require.NoError(t, err)
	return application.Router()
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func registerUser(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func createProject(t *testing.T, router http.Handler, token, name string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/projects", token, gin.H{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id, _ := decodeBody(t, rec)["id"].(string)
	require.NotEmpty(t, id)
	return id
}

// S1: create, call, delete a JavaScript endpoint.
func TestCreateCallDeleteJSEndpoint(t *testing.T) {
	router := newTestApp(t)
	token := registerUser(t, router, "u1@example.com")
	projectID := createProject(t, router, token, "Math Utils")

	rec := doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path":       "/sum",
		"code":       "function endpoint_function(p){return {s: Number(p.a)+Number(p.b)};}",
		"parameters": []string{"a", "b"},
		"httpMethod": "GET",
		"language":   "javascript",
		"projectId":  projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	assert.Equal(t, "/api/math-utils/sum", created["path"])
	endpointID := created["id"].(string)

	rec = doJSON(t, router, http.MethodGet, "/api/math-utils/sum?a=2&b=3", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"s":5}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodDelete, "/api/endpoints/"+endpointID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/math-utils/sum?a=2&b=3", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
}

// Query-string values arrive as strings; JSON body values keep their types.
func TestParameterMarshalling(t *testing.T) {
	router := newTestApp(t)
	token := registerUser(t, router, "u1@example.com")
	projectID := createProject(t, router, token, "Echo")

	rec := doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path":       "/get",
		"code":       "function endpoint_function(p) { return p; }",
		"parameters": []string{"x"},
		"httpMethod": "GET",
		"projectId":  projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/echo/get?x=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"x":"5"}`, rec.Body.String())

	// Undeclared query parameters are ignored, missing ones are null.
	rec = doJSON(t, router, http.MethodGet, "/api/echo/get?other=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"x":null}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path":       "/post",
		"code":       "function endpoint_function(p) { return p; }",
		"httpMethod": "POST",
		"projectId":  projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/echo/post", "", gin.H{"x": 5, "y": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"x":5,"y":true}`, rec.Body.String())

	// Malformed JSON body.
	req := httptest.NewRequest(http.MethodPost, "/api/echo/post", bytes.NewReader([]byte("{not json")))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
	assert.JSONEq(t, `{"error":"Invalid JSON body"}`, rec2.Body.String())
}

// S2: identical paths from two owners collide.
func TestPathConflictAcrossOwners(t *testing.T) {
	router := newTestApp(t)
	token1 := registerUser(t, router, "o1@example.com")
	token2 := registerUser(t, router, "o2@example.com")
	project1 := createProject(t, router, token1, "x")
	project2 := createProject(t, router, token2, "X")

	body := func(projectID string) gin.H {
		return gin.H{
			"path":      "/y",
			"code":      "function endpoint_function(p){ return 1; }",
			"projectId": projectID,
		}
	}
	rec := doJSON(t, router, http.MethodPost, "/api/endpoints", token1, body(project1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/endpoints", token2, body(project2))
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

// S3: a broken handler registers anyway and reports its compile error.
func TestBrokenHandlerIsVisible(t *testing.T) {
	router := newTestApp(t)
	token := registerUser(t, router, "u1@example.com")
	projectID := createProject(t, router, token, "Broken")

	rec := doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path":      "/bad",
		"code":      "garbage syntax!",
		"projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/broken/bad", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body, "error")
	details, _ := body["details"].(string)
	assert.NotEmpty(t, details)
}

// S4: pages may not live under /api/, but a page and an endpoint with the
// same tail coexist on their separate namespaces.
func TestPageAPIPrefixRules(t *testing.T) {
	router := newTestApp(t)
	token := registerUser(t, router, "u1@example.com")
	projectID := createProject(t, router, token, "foo")

	rec := doJSON(t, router, http.MethodPost, "/api/pages", token, gin.H{
		"path": "/api/foo/bar", "htmlContent": "<p>x</p>", "projectId": projectID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path": "/bar", "code": "function endpoint_function(p){ return {ok: true}; }",
		"projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/pages", token, gin.H{
		"path": "/bar", "htmlContent": "<p>page</p>", "projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/foo/bar", decodeBody(t, rec)["path"])

	rec = doJSON(t, router, http.MethodGet, "/api/foo/bar", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/foo/bar", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>page</p>", rec.Body.String())
}

// S5: updating the path migrates the registration.
func TestUpdatePathMigratesRegistration(t *testing.T) {
	router := newTestApp(t)
	token := registerUser(t, router, "u1@example.com")
	projectID := createProject(t, router, token, "s")

	rec := doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path": "/a", "code": "function endpoint_function(p){ return {v: 1}; }",
		"projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	endpointID := decodeBody(t, rec)["id"].(string)

	rec = doJSON(t, router, http.MethodGet, "/api/s/a", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/endpoints/"+endpointID, token, gin.H{
		"path": "/api/s/b",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/s/a", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/s/b", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// S6: pages serve their HTML verbatim.
func TestPageServesHTMLVerbatim(t *testing.T) {
	router := newTestApp(t)
	token := registerUser(t, router, "u1@example.com")
	projectID := createProject(t, router, token, "Hello World")

	rec := doJSON(t, router, http.MethodPost, "/api/pages", token, gin.H{
		"path": "/home", "htmlContent": "<h1>hi</h1>", "projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/hello-world/home", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<h1>hi</h1>", rec.Body.String())
}

func TestEndpointTimeout(t *testing.T) {
	router := newTestApp(t)
	token := registerUser(t, router, "u1@example.com")
	projectID := createProject(t, router, token, "slow")

	rec := doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path": "/spin", "code": "function endpoint_function(p){ while (true) {} }",
		"projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/slow/spin", "", nil)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.JSONEq(t, `{"error":"Endpoint timed out"}`, rec.Body.String())
}

func TestRuntimeErrorSurfacesWithDetails(t *testing.T) {
	router := newTestApp(t)
	token := registerUser(t, router, "u1@example.com")
	projectID := createProject(t, router, token, "boom")

	rec := doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path": "/throw", "code": `function endpoint_function(p){ throw new Error("kaput"); }`,
		"projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/boom/throw", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Error executing endpoint", body["error"])
	assert.Contains(t, body["details"], "kaput")
}

// Ownership isolation: foreign resources answer 403 or 404.
func TestOwnershipIsolation(t *testing.T) {
	router := newTestApp(t)
	token1 := registerUser(t, router, "o1@example.com")
	token2 := registerUser(t, router, "o2@example.com")
	projectID := createProject(t, router, token1, "Mine")

	rec := doJSON(t, router, http.MethodPost, "/api/endpoints", token1, gin.H{
		"path": "/e", "code": "function endpoint_function(p){ return 1; }",
		"projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	endpointID := decodeBody(t, rec)["id"].(string)

	for _, tc := range []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, "/api/projects/" + projectID, nil},
		{http.MethodPut, "/api/projects/" + projectID, gin.H{"name": "stolen"}},
		{http.MethodDelete, "/api/projects/" + projectID, nil},
		{http.MethodGet, "/api/endpoints/" + endpointID, nil},
		{http.MethodPut, "/api/endpoints/" + endpointID, gin.H{"code": "x"}},
		{http.MethodDelete, "/api/endpoints/" + endpointID, nil},
		{http.MethodPost, "/api/endpoints", gin.H{
			"path": "/sneak", "code": "function endpoint_function(p){}", "projectId": projectID,
		}},
	} {
		rec := doJSON(t, router, tc.method, tc.path, token2, tc.body)
		assert.Contains(t, []int{http.StatusForbidden, http.StatusNotFound}, rec.Code,
			"%s %s: %s", tc.method, tc.path, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/endpoints", token2, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestCRUDRequiresAuth(t *testing.T) {
	router := newTestApp(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/projects"},
		{http.MethodGet, "/api/projects"},
		{http.MethodPost, "/api/endpoints"},
		{http.MethodGet, "/api/pages"},
		{http.MethodGet, "/api/debug/routes"},
	} {
		rec := doJSON(t, router, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestDebugRoutesAdminOnly(t *testing.T) {
	router := newTestApp(t)
	adminToken := registerUser(t, router, "admin@example.com") // first user is admin
	userToken := registerUser(t, router, "pleb@example.com")
	projectID := createProject(t, router, adminToken, "dbg")

	rec := doJSON(t, router, http.MethodPost, "/api/endpoints", adminToken, gin.H{
		"path": "/e", "code": "function endpoint_function(p){ return 1; }",
		"projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/debug/routes", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/debug/routes", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["count"])
}

func TestReservedPathRejectedAtCreation(t *testing.T) {
	router := newTestApp(t)
	token := registerUser(t, router, "u1@example.com")
	projectID := createProject(t, router, token, "debug")

	// Project slug "debug" would compose onto the reserved /api/debug space.
	rec := doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path": "/routes", "code": "function endpoint_function(p){}", "projectId": projectID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestProjectCascadeDelete(t *testing.T) {
	router := newTestApp(t)
	token := registerUser(t, router, "u1@example.com")
	projectID := createProject(t, router, token, "gone")

	rec := doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path": "/e", "code": "function endpoint_function(p){ return 1; }",
		"projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = doJSON(t, router, http.MethodPost, "/api/pages", token, gin.H{
		"path": "/home", "htmlContent": "<p>x</p>", "projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodDelete, "/api/projects/"+projectID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/gone/e", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/gone/home", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/endpoints", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestGenerateUnavailableWithoutKey(t *testing.T) {
	router := newTestApp(t)
	token := registerUser(t, router, "u1@example.com")
	projectID := createProject(t, router, token, "gen")

	rec := doJSON(t, router, http.MethodPost, "/api/generate/endpoint", token, gin.H{
		"prompt": "add two numbers", "projectId": projectID, "path": "/sum",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
}

func TestProjectValidation(t *testing.T) {
	router := newTestApp(t)
	token := registerUser(t, router, "u1@example.com")

	rec := doJSON(t, router, http.MethodPost, "/api/projects", token, gin.H{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path": "/x", "code": "function endpoint_function(p){}", "projectId": "missing",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	projectID := createProject(t, router, token, "v")
	rec = doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path": "/x", "code": "function endpoint_function(p){}", "projectId": projectID,
		"httpMethod": "PATCH",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path": "/x", "code": "function endpoint_function(p){}", "projectId": projectID,
		"language": "ruby",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	endpointRec := doJSON(t, router, http.MethodPost, "/api/endpoints", token, gin.H{
		"path": "/x", "code": "function endpoint_function(p){}", "projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, endpointRec.Code)
	endpointID := decodeBody(t, endpointRec)["id"].(string)

	rec = doJSON(t, router, http.MethodPut, "/api/endpoints/"+endpointID, token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no fields")
}
