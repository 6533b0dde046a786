package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sitecms/internal/config"
	"github.com/sitecms/internal/db"
	"github.com/sitecms/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:client-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	require.NoError(t, db.EnsureUser(gdb, "admin", "admin123"))

	engine, err := router.SetupRouter(gdb, config.AppConfig{
		JWTSecret:        "client-secret",
		TokenTTL:         time.Hour,
		GinMode:          "release",
		FormSubmitPerMin: 600,
		FormSubmitBurst:  100,
	}, nil, nil)
	require.NoError(t, err)

	server := httptest.NewServer(engine)
	t.Cleanup(func() {
		server.Close()
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return server
}

func loggedInClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	c, err := New(server.URL)
	require.NoError(t, err)
	result, err := c.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, "admin", result.Username)
	return c
}

func ptr[T any](v T) *T { return &v }

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New("localhost")
	assert.Error(t, err)
	_, err = New("")
	assert.Error(t, err)
}

func TestContentWorkflowAgainstAPI(t *testing.T) {
	server := newAPIServer(t)
	c := loggedInClient(t, server)
	ctx := context.Background()

	hero, err := c.UpdateHero(ctx, "home", HeroUpdate{Title: ptr("Welcome")})
	require.NoError(t, err)
	assert.Equal(t, "hero", hero.ContentType)

	bundle, err := c.GetPageContent(ctx, "home")
	require.NoError(t, err)
	require.NotNil(t, bundle.Hero)
	assert.Equal(t, "Welcome", bundle.Hero.Title)

	nested := json.RawMessage(`{"stats":[{"label":"Funds","value":"3"}],"meta":{"tags":["a","b"]}}`)
	section, err := c.AddSection(ctx, "home", NewSection{ContentType: "statistics", Title: "Numbers", Content: nested})
	require.NoError(t, err)

	bundle, err = c.GetPageContent(ctx, "home")
	require.NoError(t, err, "writes clear the cached bundle")
	found, ok := bundle.Find(section.ID)
	require.True(t, ok)
	assert.Equal(t, "statistics", found.ContentType)
	assert.JSONEq(t, string(nested), string(found.Content))

	_, err = c.UpdateSection(ctx, "home", section.ID, SectionUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	bundle, err = c.GetPageContent(ctx, "home")
	require.NoError(t, err)
	_, ok = bundle.Find(section.ID)
	assert.False(t, ok, "inactive sections are hidden from the public bundle")

	admin, err := c.GetAdminPageContent(ctx, "home")
	require.NoError(t, err)
	_, ok = admin.Find(section.ID)
	assert.True(t, ok)

	pages, err := c.ListPages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.True(t, pages[0].HasHero)

	err = c.ReorderSections(ctx, "home", []Position{{ID: section.ID, Position: 3}, {ID: 9999, Position: 4}})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.DeleteSection(ctx, "home", section.ID))
	assert.ErrorIs(t, c.DeleteSection(ctx, "home", section.ID), ErrNotFound)
}

func TestSlugCaseSharesCacheEntries(t *testing.T) {
	server := newAPIServer(t)
	c := loggedInClient(t, server)
	ctx := context.Background()

	_, err := c.UpdateHero(ctx, "home", HeroUpdate{Title: ptr("Welcome")})
	require.NoError(t, err)

	bundle, err := c.GetPageContent(ctx, "Home")
	require.NoError(t, err)
	require.NotNil(t, bundle.Hero)
	assert.Equal(t, "Welcome", bundle.Hero.Title)
	_, cached := c.Cache().Peek(ctx, server.URL+"/api/content/home")
	assert.True(t, cached)

	_, err = c.UpdateHero(ctx, " HOME ", HeroUpdate{Title: ptr("Changed")})
	require.NoError(t, err)

	bundle, err = c.GetPageContent(ctx, "Home")
	require.NoError(t, err)
	require.NotNil(t, bundle.Hero)
	assert.Equal(t, "Changed", bundle.Hero.Title)
}

func TestValidationErrorsCarryField(t *testing.T) {
	server := newAPIServer(t)
	c := loggedInClient(t, server)
	ctx := context.Background()

	_, err := c.AddSection(ctx, "home", NewSection{})
	require.ErrorIs(t, err, ErrValidation)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "content_type", apiErr.Field)

	_, err = c.AddSection(ctx, "home", NewSection{ContentType: "statistics", LayoutType: "diagonal"})
	require.ErrorIs(t, err, ErrValidation)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "layout_type", apiErr.Field)
}

func TestAdminCallsNeedToken(t *testing.T) {
	server := newAPIServer(t)
	c, err := New(server.URL)
	require.NoError(t, err)

	_, err = c.UpdateHero(context.Background(), "home", HeroUpdate{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Login(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	c.SetToken("garbage")
	_, err = c.ListPages(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFormSchemaAndSubmit(t *testing.T) {
	server := newAPIServer(t)
	c := loggedInClient(t, server)
	ctx := context.Background()

	_, err := c.GetForm(ctx, "contact")
	require.ErrorIs(t, err, ErrNotFound)

	createForm(t, server.URL, c.Token())

	form, err := c.GetForm(ctx, "contact")
	require.NoError(t, err, "failed reads are not cached")
	require.Len(t, form.Fields, 1)
	assert.Equal(t, "email", form.Fields[0].Name)

	_, err = c.SubmitForm(ctx, "contact", map[string]string{"email": "x"})
	require.ErrorIs(t, err, ErrValidation)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Please enter a valid email address", apiErr.FieldErrors["email"])

	result, err := c.SubmitForm(ctx, "contact", map[string]string{"email": "a@b.com"})
	require.NoError(t, err)
	assert.NotZero(t, result.SubmissionID)
	assert.Equal(t, "Thank you for your submission.", result.Message)
}

func createForm(t *testing.T, base, token string) {
	t.Helper()
	body := `{"name":"Contact","slug":"contact","fields":[{"label":"Email","name":"email","type":"email","required":true}]}`
	req, err := http.NewRequest(http.MethodPost, base+"/api/forms", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestConcurrentReadsShareOneRequest(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			hits.Add(1)
			<-release
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"page":"home","hero":{"id":1,"title":"v%d"}}`, hits.Load())
		case http.MethodPut:
			fmt.Fprint(w, `{"message":"hero saved","content":{"id":1}}`)
		}
	}))
	defer server.Close()

	c, err := New(server.URL, WithToken("t"))
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	titles := make([]string, 2)
	for i := range titles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bundle, err := c.GetPageContent(ctx, "home")
			if assert.NoError(t, err) {
				titles[i] = bundle.Hero.Title
			}
		}(i)
	}
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, []string{"v1", "v1"}, titles)

	_, err = c.GetPageContent(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "memoized")

	require.NoError(t, c.Cache().ClearURL(ctx, server.URL+"/api/content/home"))
	bundle, err := c.GetPageContent(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "v2", bundle.Hero.Title)

	_, err = c.UpdateHero(ctx, "home", HeroUpdate{Title: ptr("new")})
	require.NoError(t, err)
	_, err = c.GetPageContent(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load(), "a write clears the page read")
}

func TestServerFailuresAreTransientAndNotCached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":"failed to load page content"}`)
			return
		}
		fmt.Fprint(w, `{"page":"home","sections":[]}`)
	}))
	defer server.Close()

	c, err := New(server.URL)
	require.NoError(t, err)

	_, err = c.GetPageContent(context.Background(), "home")
	require.ErrorIs(t, err, ErrTransient)
	assert.Contains(t, err.Error(), "failed to load page content")

	bundle, err := c.GetPageContent(context.Background(), "home")
	require.NoError(t, err)
	assert.Equal(t, "home", bundle.Page)
	assert.Equal(t, int32(2), hits.Load())
}

func TestNetworkFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	c, err := New(base, WithHTTPClient(&http.Client{Timeout: time.Second}))
	require.NoError(t, err)
	_, err = c.GetPageContent(context.Background(), "home")
	assert.ErrorIs(t, err, ErrTransient)
}

func TestAPIErrorUnwrap(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          ErrValidation,
		http.StatusUnauthorized:        ErrUnauthorized,
		http.StatusForbidden:           ErrUnauthorized,
		http.StatusNotFound:            ErrNotFound,
		http.StatusTooManyRequests:     ErrTransient,
		http.StatusBadGateway:          ErrTransient,
		http.StatusInternalServerError: ErrTransient,
	}
	for status, want := range cases {
		err := error(decodeAPIError(status, []byte(`{"error":"x"}`)))
		assert.ErrorIs(t, err, want, "status %d", status)
	}

	apiErr := decodeAPIError(http.StatusBadGateway, []byte("<html>bad gateway</html>"))
	assert.Equal(t, "<html>bad gateway</html>", apiErr.Message)
	assert.Nil(t, decodeAPIError(http.StatusConflict, nil).Unwrap())
}
