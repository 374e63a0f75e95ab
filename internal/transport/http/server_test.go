package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appsvc "myapp-api/internal/app"
	"myapp-api/internal/app/apptest"
	"myapp-api/internal/config"
	"myapp-api/internal/logging"
	"myapp-api/internal/pkg/jwtutil"
	"myapp-api/internal/pkg/password"
)

type testEnv struct {
	router *gin.Engine
	store  *apptest.Store
	blobs  *apptest.Blobs
	events *apptest.Publisher
	now    time.Time
}

func newTestEnv(t *testing.T, env string) *testEnv {
	t.Helper()
	e := &testEnv{
		store:  apptest.NewStore(),
		blobs:  &apptest.Blobs{},
		events: &apptest.Publisher{},
		now:    time.Now().Truncate(time.Second),
	}
	cfg := &config.Config{
		App: config.AppConfig{
			Name:        "myapp-api",
			Env:         env,
			GinMode:     gin.TestMode,
			CORSOrigins: []string{"http://localhost:3000"},
		},
	}

	codec, err := jwtutil.NewCodec("test-secret", "HS256", 30*time.Minute,
		jwtutil.WithClock(func() time.Time { return e.now }))
	require.NoError(t, err)
	hasher := password.NewHasher(bcrypt.MinCost)
	cache := apptest.NewCache()
	log := logging.Discard()

	router, err := Routes(Services{
		Auth:   appsvc.NewAuthService(e.store, cache, hasher, codec, 30*time.Minute, log),
		Users:  appsvc.NewUserService(e.store, hasher, e.blobs, cache, e.events, 5*1024*1024, log),
		Events: appsvc.NewEventService(e.events),
		Config: cfg,
		Logger: log,
	})
	require.NoError(t, err)
	e.router = router
	return e
}

func (e *testEnv) do(req *nethttp.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body any, token string) *nethttp.Request {
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
	return req
}

func tokenRequest(email, pw string) *nethttp.Request {
	form := url.Values{"username": {email}, "password": {pw}}
	req := httptest.NewRequest(nethttp.MethodPost, "/api/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *testEnv) register(t *testing.T, email, username string) uint {
	t.Helper()
	w := e.do(jsonRequest(t, nethttp.MethodPost, "/api/users/", map[string]any{
		"email": email, "username": username, "password": "pw12345678",
	}, ""))
	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())
	return uint(decode(t, w)["id"].(float64))
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	w := e.do(tokenRequest(email, "pw12345678"))
	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["access_token"].(string)
}

func userPath(id uint) string {
	return "/api/users/" + strconv.FormatUint(uint64(id), 10)
}

func TestRegisterLoginMe(t *testing.T) {
	e := newTestEnv(t, "dev")
	e.register(t, "alice@example.com", "alice")

	w := e.do(tokenRequest("alice@example.com", "pw12345678"))
	require.Equal(t, nethttp.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "bearer", body["token_type"])
	token := body["access_token"].(string)
	assert.NotEmpty(t, token)

	w = e.do(jsonRequest(t, nethttp.MethodGet, "/api/auth/me", nil, token))
	require.Equal(t, nethttp.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, "alice@example.com", me["email"])
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, true, me["is_active"])
	assert.Equal(t, false, me["is_superuser"])
	assert.Nil(t, me["updated_at"])
	assert.NotContains(t, me, "hashed_password")
	assert.NotContains(t, w.Body.String(), "$2a$")
}

func TestLoginJSON(t *testing.T) {
	e := newTestEnv(t, "dev")
	e.register(t, "alice@example.com", "alice")

	w := e.do(jsonRequest(t, nethttp.MethodPost, "/api/auth/login",
		map[string]string{"email": "alice@example.com", "password": "pw12345678"}, ""))
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.Equal(t, "bearer", decode(t, w)["token_type"])

	w = e.do(jsonRequest(t, nethttp.MethodPost, "/api/auth/login",
		map[string]string{"email": "alice@example.com", "password": "wrong-password"}, ""))
	assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"detail":"Incorrect email or password"}`, w.Body.String())
	assert.Empty(t, w.Header().Get("WWW-Authenticate"))

	w = e.do(jsonRequest(t, nethttp.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com"}, ""))
	assert.Equal(t, nethttp.StatusUnprocessableEntity, w.Code)
}

func TestTokenFailuresAreIdentical(t *testing.T) {
	e := newTestEnv(t, "dev")
	e.register(t, "alice@example.com", "alice")

	wrongPassword := e.do(tokenRequest("alice@example.com", "not-the-password"))
	unknownEmail := e.do(tokenRequest("ghost@example.com", "pw12345678"))

	for _, w := range []*httptest.ResponseRecorder{wrongPassword, unknownEmail} {
		assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	}
	assert.Equal(t, wrongPassword.Body.Bytes(), unknownEmail.Body.Bytes())
	assert.JSONEq(t, `{"detail":"Incorrect email or password"}`, wrongPassword.Body.String())
}

func TestMe_MissingOrMalformedHeader(t *testing.T) {
	e := newTestEnv(t, "dev")

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer   "} {
		req := httptest.NewRequest(nethttp.MethodGet, "/api/auth/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := e.do(req)
		assert.Equal(t, nethttp.StatusUnauthorized, w.Code, header)
		assert.JSONEq(t, `{"detail":"Not authenticated"}`, w.Body.String())
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	}
}

func TestMe_RejectedTokensShareOneResponse(t *testing.T) {
	e := newTestEnv(t, "dev")
	aliceID := e.register(t, "alice@example.com", "alice")
	e.register(t, "bob@example.com", "bob")
	aliceToken := e.login(t, "alice@example.com")
	bobToken := e.login(t, "bob@example.com")

	garbage := e.do(jsonRequest(t, nethttp.MethodGet, "/api/auth/me", nil, "not-a-jwt"))
	tampered := e.do(jsonRequest(t, nethttp.MethodGet, "/api/auth/me", nil, bobToken+"x"))

	w := e.do(jsonRequest(t, nethttp.MethodDelete, userPath(aliceID), nil, aliceToken))
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"User deleted successfully"}`, w.Body.String())
	deleted := e.do(jsonRequest(t, nethttp.MethodGet, "/api/auth/me", nil, aliceToken))

	e.now = e.now.Add(31 * time.Minute)
	expired := e.do(jsonRequest(t, nethttp.MethodGet, "/api/auth/me", nil, bobToken))

	for name, w := range map[string]*httptest.ResponseRecorder{
		"garbage": garbage, "tampered": tampered, "deleted": deleted, "expired": expired,
	} {
		assert.Equal(t, nethttp.StatusUnauthorized, w.Code, name)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"), name)
		assert.Equal(t, garbage.Body.Bytes(), w.Body.Bytes(), name)
	}
	assert.JSONEq(t, `{"detail":"Could not validate credentials"}`, garbage.Body.String())
}

func TestMe_InactiveAccount(t *testing.T) {
	e := newTestEnv(t, "dev")
	id := e.register(t, "alice@example.com", "alice")
	token := e.login(t, "alice@example.com")

	w := e.do(jsonRequest(t, nethttp.MethodGet, "/api/auth/me", nil, token))
	require.Equal(t, nethttp.StatusOK, w.Code)

	w = e.do(jsonRequest(t, nethttp.MethodPut, userPath(id), map[string]any{"is_active": false}, token))
	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())
	assert.NotNil(t, decode(t, w)["updated_at"])

	w = e.do(jsonRequest(t, nethttp.MethodGet, "/api/auth/me", nil, token))
	assert.Equal(t, nethttp.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Inactive user"}`, w.Body.String())
}

func TestRegister_Validation(t *testing.T) {
	e := newTestEnv(t, "dev")
	e.register(t, "alice@example.com", "alice")

	tests := []struct {
		name   string
		body   map[string]any
		status int
		detail string
	}{
		{
			name:   "email taken",
			body:   map[string]any{"email": "alice@example.com", "username": "alice2", "password": "pw12345678"},
			status: nethttp.StatusBadRequest,
			detail: "Email already registered",
		},
		{
			name:   "username taken",
			body:   map[string]any{"email": "other@example.com", "username": "alice", "password": "pw12345678"},
			status: nethttp.StatusBadRequest,
			detail: "Username already taken",
		},
		{
			name:   "bad username",
			body:   map[string]any{"email": "bob@example.com", "username": "bo b", "password": "pw12345678"},
			status: nethttp.StatusUnprocessableEntity,
			detail: "Username must contain only letters, numbers, hyphens, and underscores",
		},
		{
			name:   "short password",
			body:   map[string]any{"email": "bob@example.com", "username": "bob", "password": "short"},
			status: nethttp.StatusUnprocessableEntity,
			detail: "Password must be at least 8 characters long",
		},
		{
			name:   "bad email",
			body:   map[string]any{"email": "bob", "username": "bob", "password": "pw12345678"},
			status: nethttp.StatusUnprocessableEntity,
			detail: "value is not a valid email address",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(jsonRequest(t, nethttp.MethodPost, "/api/users/", tt.body, ""))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.detail, decode(t, w)["detail"])
		})
	}
}

func TestUsers_ListIsPublic(t *testing.T) {
	e := newTestEnv(t, "dev")
	e.register(t, "alice@example.com", "alice")
	e.register(t, "bob@example.com", "bob")

	w := e.do(httptest.NewRequest(nethttp.MethodGet, "/api/users/?skip=1&limit=10", nil))
	require.Equal(t, nethttp.StatusOK, w.Code)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0]["username"])

	w = e.do(httptest.NewRequest(nethttp.MethodGet, "/api/users/?limit=0", nil))
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = e.do(httptest.NewRequest(nethttp.MethodGet, "/api/users/", nil))
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 2)
}

func TestUsers_Permissions(t *testing.T) {
	e := newTestEnv(t, "dev")
	aliceID := e.register(t, "alice@example.com", "alice")
	e.register(t, "bob@example.com", "bob")
	bobToken := e.login(t, "bob@example.com")

	w := e.do(jsonRequest(t, nethttp.MethodGet, userPath(aliceID), nil, bobToken))
	assert.Equal(t, nethttp.StatusOK, w.Code)

	w = e.do(jsonRequest(t, nethttp.MethodGet, userPath(999), nil, bobToken))
	assert.Equal(t, nethttp.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"User not found"}`, w.Body.String())

	w = e.do(jsonRequest(t, nethttp.MethodPut, userPath(aliceID), map[string]any{"full_name": "Mallory"}, bobToken))
	assert.Equal(t, nethttp.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"detail":"Not enough permissions"}`, w.Body.String())

	w = e.do(jsonRequest(t, nethttp.MethodDelete, userPath(aliceID), nil, bobToken))
	assert.Equal(t, nethttp.StatusForbidden, w.Code)

	w = e.do(jsonRequest(t, nethttp.MethodGet, "/api/users/abc", nil, bobToken))
	assert.Equal(t, nethttp.StatusUnprocessableEntity, w.Code)

	w = e.do(jsonRequest(t, nethttp.MethodGet, userPath(aliceID), nil, ""))
	assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
}

func TestUsers_UpdateConflict(t *testing.T) {
	e := newTestEnv(t, "dev")
	e.register(t, "alice@example.com", "alice")
	bobID := e.register(t, "bob@example.com", "bob")
	bobToken := e.login(t, "bob@example.com")

	w := e.do(jsonRequest(t, nethttp.MethodPut, userPath(bobID), map[string]any{"username": "alice"}, bobToken))
	assert.Equal(t, nethttp.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Username already taken"}`, w.Body.String())
}

func uploadRequest(t *testing.T, id uint, filename string, content []byte, token string) *nethttp.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(nethttp.MethodPost, userPath(id)+"/upload-profile-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadProfileImage(t *testing.T) {
	e := newTestEnv(t, "dev")
	id := e.register(t, "alice@example.com", "alice")
	token := e.login(t, "alice@example.com")

	w := e.do(uploadRequest(t, id, "me.PNG", []byte("\x89PNG fake"), token))
	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Profile image uploaded successfully", body["message"])
	path := body["file_path"].(string)
	assert.True(t, strings.HasPrefix(path, "uploads/profile_images/"), path)
	assert.True(t, strings.HasSuffix(path, ".png"), path)
	assert.Equal(t, path, body["user"].(map[string]any)["profile_image"])
	assert.Len(t, e.blobs.Objects, 1)

	w = e.do(uploadRequest(t, id, "notes.txt", []byte("hello"), token))
	assert.Equal(t, nethttp.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Invalid file type. Only JPG, PNG, and GIF are allowed."}`, w.Body.String())

	w = e.do(uploadRequest(t, id, "huge.gif", bytes.Repeat([]byte("a"), 5*1024*1024+1), token))
	assert.Equal(t, nethttp.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"File too large. Maximum size is 5MB."}`, w.Body.String())
}

func TestUploadProfileImage_StoreFailure(t *testing.T) {
	e := newTestEnv(t, "dev")
	id := e.register(t, "alice@example.com", "alice")
	token := e.login(t, "alice@example.com")
	e.blobs.Err = assert.AnError

	w := e.do(uploadRequest(t, id, "me.jpg", []byte("jpeg"), token))
	assert.Equal(t, nethttp.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Failed to save file"}`, w.Body.String())
}

func TestCreateTestUser(t *testing.T) {
	dev := newTestEnv(t, "dev")
	w := dev.do(httptest.NewRequest(nethttp.MethodPost, "/api/auth/create-test-user", nil))
	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Test user created: test@example.com", decode(t, w)["message"])

	w = dev.do(tokenRequest("test@example.com", "password123"))
	assert.Equal(t, nethttp.StatusOK, w.Code)

	w = dev.do(httptest.NewRequest(nethttp.MethodPost, "/api/auth/create-test-user", nil))
	assert.Equal(t, nethttp.StatusBadRequest, w.Code)

	prod := newTestEnv(t, "prod")
	w = prod.do(httptest.NewRequest(nethttp.MethodPost, "/api/auth/create-test-user", nil))
	assert.Equal(t, nethttp.StatusNotFound, w.Code)
}

func TestRootAndHealth(t *testing.T) {
	e := newTestEnv(t, "dev")

	w := e.do(httptest.NewRequest(nethttp.MethodGet, "/", nil))
	assert.Equal(t, nethttp.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"My App API is running!"}`, w.Body.String())

	w = e.do(httptest.NewRequest(nethttp.MethodGet, "/health", nil))
	assert.Equal(t, nethttp.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t, "dev")

	req := httptest.NewRequest(nethttp.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := e.do(req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestUserEvents(t *testing.T) {
	e := newTestEnv(t, "dev")
	aliceID := e.register(t, "alice@example.com", "alice")
	e.register(t, "bob@example.com", "bob")
	aliceToken := e.login(t, "alice@example.com")
	bobToken := e.login(t, "bob@example.com")

	w := e.do(jsonRequest(t, nethttp.MethodPut, userPath(aliceID), map[string]any{"full_name": "Alice"}, aliceToken))
	require.Equal(t, nethttp.StatusOK, w.Code)

	w = e.do(jsonRequest(t, nethttp.MethodGet, userPath(aliceID)+"/events?limit=10", nil, aliceToken))
	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())
	var events []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "account.updated", events[0]["type"])
	assert.Equal(t, "account.registered", events[1]["type"])

	w = e.do(jsonRequest(t, nethttp.MethodGet, userPath(aliceID)+"/events", nil, bobToken))
	assert.Equal(t, nethttp.StatusForbidden, w.Code)
}
