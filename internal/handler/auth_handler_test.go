package handler

import (
	"net/http"
	"testing"

	"github.com/sitecms/internal/db"
)

func TestLoginHandler(t *testing.T) {
	api, gdb := setupHandlerTest(t)
	if err := db.EnsureUser(gdb, "admin", "admin123"); err != nil {
		t.Fatalf("ensure user failed: %v", err)
	}

	w := performJSON(api.Login, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = performJSON(api.Login, http.MethodPost, "/api/auth/login", "not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = performJSON(api.Login, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "admin123"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, w, &body)
	if body.Token == "" {
		t.Fatal("expected a token")
	}
}
