package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/storefront-orders/bus"
	"github.com/yeremiapane/storefront-orders/config"
	"github.com/yeremiapane/storefront-orders/database"
	"github.com/yeremiapane/storefront-orders/middlewares"
	"github.com/yeremiapane/storefront-orders/models"
	"github.com/yeremiapane/storefront-orders/router"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/session"
	"github.com/yeremiapane/storefront-orders/utils"
)

const adminPassword = "secret-password"

type testEnv struct {
	t        *testing.T
	db       *gorm.DB
	bus      *bus.Bus
	tokens   *utils.TokenIssuer
	sessions *session.Store
	router   *gin.Engine
	tenant   *models.Tenant
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitLogger("error", false)

	log, _ := test.NewNullLogger()
	env := &testEnv{
		t:        t,
		db:       setupTestDB(t),
		bus:      bus.New(8, log),
		tokens:   utils.NewTokenIssuer("test-secret", time.Hour),
		sessions: session.NewStore(time.Hour),
	}
	env.router = router.SetupRouter(router.Dependencies{
		Config: config.Config{
			RateLimitRPS:         1000,
			RateLimitBurst:       1000,
			RequestTimeout:       5 * time.Second,
			TrackingCodeAttempts: 10,
		},
		DB:       env.db,
		Bus:      env.bus,
		Sessions: env.sessions,
		Tokens:   env.tokens,
		Log:      log,
	})
	env.tenant = env.createTenant("taqueria")
	return env
}

func (e *testEnv) createTenant(slug string) *models.Tenant {
	tenant, err := services.NewTenantService(e.db).Create(context.Background(), slug, slug, adminPassword)
	require.NoError(e.t, err)
	return tenant
}

func (e *testEnv) adminToken() string {
	token, err := e.tokens.Generate(e.tenant.ID)
	require.NoError(e.t, err)
	return token
}

type call struct {
	method  string
	path    string
	body    interface{}
	headers map[string]string
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(c call) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()
	var body *bytes.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(e.t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(c.method, c.path, body)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (e *testEnv) admin(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	return e.do(call{
		method:  method,
		path:    "/t/" + e.tenant.Slug + "/admin" + path,
		body:    body,
		headers: map[string]string{"Authorization": "Bearer " + e.adminToken()},
	})
}

// shopper carries the session id between storefront calls.
type shopper struct {
	env       *testEnv
	sessionID string
}

func (s *shopper) do(method, path string, body interface{}, extra ...string) (*httptest.ResponseRecorder, envelope) {
	headers := map[string]string{}
	if s.sessionID != "" {
		headers[middlewares.SessionHeader] = s.sessionID
	}
	for i := 0; i+1 < len(extra); i += 2 {
		headers[extra[i]] = extra[i+1]
	}
	w, env := s.env.do(call{method: method, path: "/t/" + s.env.tenant.Slug + path, body: body, headers: headers})
	if id := w.Header().Get(middlewares.SessionHeader); id != "" {
		s.sessionID = id
	}
	return w, env
}

func decode(t *testing.T, raw json.RawMessage, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, into))
}
