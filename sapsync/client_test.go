package sapsync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmdatafocus/portal_backend/config"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(config.SAPConfig{
		BaseURL:           srv.URL + "/b1s/v1",
		CompanyDB:         "SBODEMO",
		Username:          "manager",
		Password:          "secret",
		PageSize:          2,
		RequestsPerSecond: 1000,
		Timeout:           5 * time.Second,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestQueryFollowsNextLinkAndSendsPageSize(t *testing.T) {
	var logins int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/b1s/v1/Login":
			atomic.AddInt32(&logins, 1)
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["CompanyDB"] != "SBODEMO" || body["UserName"] != "manager" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "B1SESSION", Value: "abc", Path: "/"})
			io.WriteString(w, `{"SessionId":"abc"}`)
		case r.URL.Path == "/b1s/v1/SQLQueries('BPMaster')/List":
			if ck, err := r.Cookie("B1SESSION"); err != nil || ck.Value != "abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if got := r.Header.Get("Prefer"); got != "odata.maxpagesize=2" {
				t.Errorf("Prefer header = %q", got)
			}
			if r.URL.Query().Get("$skip") == "" {
				if got := r.URL.Query().Get("$filter"); got != "CardType='C'" {
					t.Errorf("filter = %q", got)
				}
				io.WriteString(w, `{"value":[{"CardCode":"C1"},{"CardCode":"C2"}],"odata.nextLink":"SQLQueries('BPMaster')/List?$filter=CardType%20eq%20'C'&$skip=2"}`)
				return
			}
			io.WriteString(w, `{"value":[{"CardCode":"C3"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	rows, err := newTestClient(t, srv).Query(context.Background(), "BPMaster", "CardType='C'")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows across pages, got %d", len(rows))
	}
	if n := atomic.LoadInt32(&logins); n != 1 {
		t.Fatalf("expected one login, got %d", n)
	}
}

func TestQueryRelogsInOnceAfterUnauthorized(t *testing.T) {
	var logins, queries int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/Login") {
			atomic.AddInt32(&logins, 1)
			io.WriteString(w, `{}`)
			return
		}
		if atomic.AddInt32(&queries, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"value":[{"CntctCode":1}]}`)
	}))
	defer srv.Close()

	rows, err := newTestClient(t, srv).Query(context.Background(), "ContactMaster", "")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 || atomic.LoadInt32(&logins) != 2 {
		t.Fatalf("expected 1 row and 2 logins, got %d rows and %d logins", len(rows), logins)
	}
}

func TestQueryReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/Login") {
			io.WriteString(w, `{}`)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"invalid query"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Query(context.Background(), "Nope", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected APIError 400, got %v", err)
	}
}
