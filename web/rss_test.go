package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/domain"
)

func TestGetRSS(t *testing.T) {
	server, store, _, acc := setupServer()

	public := &domain.Status{
		Id:         uuid.New(),
		AccountId:  acc.Id,
		CreatedBy:  acc.Username,
		Content:    "public post",
		Visibility: domain.VisibilityPublic,
		CreatedAt:  time.Now(),
	}
	store.statuses[public.Id] = public

	rss, err := server.GetRSS()
	if err != nil {
		t.Fatalf("GetRSS failed: %v", err)
	}
	if !strings.Contains(rss, "public post") {
		t.Errorf("Feed should contain the status content: %s", rss)
	}
	if !strings.Contains(rss, "<rss") {
		t.Errorf("Expected RSS XML, got %s", rss)
	}
}

func TestGetRSSItem(t *testing.T) {
	server, store, _, acc := setupServer()

	public := &domain.Status{
		Id:         uuid.New(),
		AccountId:  acc.Id,
		CreatedBy:  acc.Username,
		Content:    "single post",
		Visibility: domain.VisibilityPublic,
		CreatedAt:  time.Now(),
	}
	private := &domain.Status{
		Id:         uuid.New(),
		AccountId:  acc.Id,
		CreatedBy:  acc.Username,
		Content:    "hidden post",
		Visibility: domain.VisibilityFollowers,
		CreatedAt:  time.Now(),
	}
	store.statuses[public.Id] = public
	store.statuses[private.Id] = private

	rss, err := server.GetRSSItem(public.Id)
	if err != nil {
		t.Fatalf("GetRSSItem failed: %v", err)
	}
	if !strings.Contains(rss, "single post") {
		t.Errorf("Item feed should contain the content: %s", rss)
	}

	if _, err := server.GetRSSItem(private.Id); err == nil {
		t.Error("Non-public statuses must not be exposed over RSS")
	}
	if _, err := server.GetRSSItem(uuid.New()); err == nil {
		t.Error("Unknown status should fail")
	}
}

func TestFeedRoute(t *testing.T) {
	server, store, _, acc := setupServer()
	router := server.Router()

	status := &domain.Status{
		Id:         uuid.New(),
		AccountId:  acc.Id,
		CreatedBy:  acc.Username,
		Content:    "routed post",
		Visibility: domain.VisibilityPublic,
		CreatedAt:  time.Now(),
	}
	store.statuses[status.Id] = status

	req := httptest.NewRequest("GET", "/feed", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "application/xml") {
		t.Errorf("Expected XML content type, got %s", got)
	}

	req = httptest.NewRequest("GET", "/feed/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Bad feed id should give 404, got %d", rec.Code)
	}
}
