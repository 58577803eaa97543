package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/printhaus/marketplace/internal/hash"
	"github.com/printhaus/marketplace/internal/models"
	"github.com/printhaus/marketplace/internal/payout"
	"github.com/printhaus/marketplace/internal/token"
	"github.com/printhaus/marketplace/pkg/db"
)

// recordedEvent captures a dispatch for assertions.
type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []recordedEvent
	fail   bool
}

func (f *fakeDispatcher) Dispatch(_ context.Context, topic, key string, event map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("dispatcher down")
	}
	f.events = append(f.events, recordedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (f *fakeDispatcher) byType(typ string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, ev := range f.events {
		if ev.Event["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	Tokens *token.Service
	Events *fakeDispatcher
}

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := initTestDB(t)
	env := &testEnv{
		T:  t,
		E:  echo.New(),
		DB: gdb,
		Tokens: &token.Service{
			DB:            gdb,
			JWTSecret:     []byte("test-access-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
		},
		Events: &fakeDispatcher{},
	}
	return env
}

func (env *testEnv) payoutService() *payout.Service {
	return &payout.Service{DB: env.DB}
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) doRawRequest(method, path string, body []byte, headers map[string]string) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) createUser(username, role string) *models.User {
	env.T.Helper()
	pw, err := hash.HashPassword("password123")
	require.NoError(env.T, err)
	user := models.User{Username: username, PasswordHash: pw, Role: role}
	require.NoError(env.T, env.DB.Create(&user).Error)
	return &user
}

func (env *testEnv) createArtist(name, slug string) *models.Artist {
	env.T.Helper()
	user := env.createUser(slug+"@printhaus.test", "artist")
	artist := models.Artist{
		UserID: user.ID,
		Name:   name,
		Slug:   slug,
		Email:  slug + "@printhaus.test",
	}
	require.NoError(env.T, env.DB.Create(&artist).Error)
	return &artist
}

func (env *testEnv) createArtwork(artist *models.Artist, slug, title string, markup int64) *models.Artwork {
	env.T.Helper()
	artwork := models.Artwork{
		ArtistID:    artist.ID,
		Slug:        slug,
		Title:       title,
		ImageURL:    "https://img.printhaus.test/" + slug + ".jpg",
		MarkupCents: markup,
		Published:   true,
	}
	require.NoError(env.T, env.DB.Create(&artwork).Error)
	return &artwork
}

func requireHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, code, he.Code)
}

// loginCookies issues a real token pair for a user, as the login handler
// would.
func (env *testEnv) loginCookies(user *models.User) []*http.Cookie {
	env.T.Helper()
	access, refresh, err := env.Tokens.IssuePair(user.ID, user.Role)
	require.NoError(env.T, err)
	return []*http.Cookie{
		{Name: token.AccessCookie, Value: access, Path: "/"},
		{Name: token.RefreshCookie, Value: refresh, Path: "/"},
	}
}
