package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestBasicRouter(t *testing.T) {
	ok := func(body string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(body)) })
	}

	t.Run("Dispatches By Method", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/rows", ok("get"))
		r.Handle(http.MethodPost, "/rows", ok("post"))

		for method, want := range map[string]string{http.MethodGet: "get", http.MethodPost: "post"} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(method, "/rows", nil))
			if rec.Body.String() != want {
				t.Errorf("%s: expected %q, got %q", method, want, rec.Body.String())
			}
		}
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/rows", ok("get"))
		r.Handle(http.MethodPost, "/rows", ok("post"))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/rows", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if allow := rec.Header().Get("Allow"); allow != "GET, POST" {
			t.Errorf("expected Allow header, got %q", allow)
		}
		if !strings.Contains(rec.Body.String(), `"error"`) {
			t.Errorf("expected JSON error body, got %q", rec.Body.String())
		}
	})

	t.Run("Head Falls Back To Get", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc(http.MethodGet, "/rows", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/rows", nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.Handle(http.MethodGet, "/rows", ok("get"))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rows", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("expected middleware in registration order, got %v", order)
		}
	})

	t.Run("Middleware Sees Unknown Paths", func(t *testing.T) {
		seen := false
		r := NewBasicRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				seen = true
				next.ServeHTTP(w, req)
			})
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		if !seen || rec.Code != http.StatusNotFound {
			t.Errorf("expected middleware to run before a 404, seen=%v code=%d", seen, rec.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("Request ID", func(t *testing.T) {
		var fromCtx string
		h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fromCtx = RequestIDFrom(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if fromCtx == "" || rec.Header().Get("X-Request-ID") != fromCtx {
			t.Errorf("expected generated id in context and header, got %q / %q", fromCtx, rec.Header().Get("X-Request-ID"))
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc")
		h.ServeHTTP(httptest.NewRecorder(), req)
		if fromCtx != "abc" {
			t.Errorf("expected incoming id to be kept, got %q", fromCtx)
		}
	})

	t.Run("Request ID Missing", func(t *testing.T) {
		if id := RequestIDFrom(context.Background()); id != "" {
			t.Errorf("expected empty id, got %q", id)
		}
	})

	t.Run("Logging", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)
		h := RequestID()(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))
		out := buf.String()
		for _, want := range []string{"path=/brew", "status=418", "request_id="} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in log line %q", want, out)
			}
		}
	})

	t.Run("Recover", func(t *testing.T) {
		var buf bytes.Buffer
		h := Recover(log.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "boom") {
			t.Errorf("expected panic to be logged, got %q", buf.String())
		}
	})
}

func TestStore(t *testing.T) {
	t.Run("Seed", func(t *testing.T) {
		s := NewStore(10, 42)
		if n := len(s.Rows("course", 0)); n != 42 {
			t.Errorf("expected 42 courses, got %d", n)
		}
		if n := len(s.Rows("experiment", 0)); n != 42 {
			t.Errorf("expected 42 experiments, got %d", n)
		}
		if s.Rows("planet", 0) != nil {
			t.Error("expected nil rows for an unknown kind")
		}
	})

	t.Run("Last Page", func(t *testing.T) {
		s := NewStore(10, 0)
		tests := map[int]int{0: 0, 1: 0, 10: 0, 11: 1, 42: 4}
		for n, want := range tests {
			if got := s.LastPage(n); got != want {
				t.Errorf("LastPage(%d) = %d, want %d", n, got, want)
			}
		}
	})

	t.Run("Slice", func(t *testing.T) {
		s := NewStore(10, 42)
		rows := s.Rows("course", 0)
		if page, ok := s.Slice(rows, 4); !ok || len(page) != 2 || page[0].ID != 41 {
			t.Errorf("unexpected last page %v", page)
		}
		if _, ok := s.Slice(rows, 5); ok {
			t.Error("expected page 5 to be out of range")
		}
		if _, ok := s.Slice(rows, -1); ok {
			t.Error("expected negative page to be out of range")
		}
		if page, ok := s.Slice(nil, 0); !ok || len(page) != 0 {
			t.Error("expected an empty first page for an empty table")
		}
	})

	t.Run("Mutate", func(t *testing.T) {
		s := NewStore(10, 42)
		if n, err := s.Mutate("course", -20); err != nil || n != 22 {
			t.Fatalf("expected 22 rows, got %d (%v)", n, err)
		}
		if first := s.Rows("course", 0)[0].ID; first != 21 {
			t.Errorf("expected rows removed from the front, first id %d", first)
		}
		if n, _ := s.Mutate("course", -100); n != 0 {
			t.Errorf("expected removal to stop at zero, got %d", n)
		}
		if n, _ := s.Mutate("course", 3); n != 3 {
			t.Errorf("expected 3 rows, got %d", n)
		}
		if _, err := s.Mutate("planet", 1); err == nil {
			t.Error("expected an error for an unknown kind")
		}
	})

	t.Run("Course Scope", func(t *testing.T) {
		s := NewStore(10, 42)
		for _, e := range s.Rows("experiment", 2) {
			if e.Course != 2 {
				t.Errorf("experiment %d belongs to course %d", e.ID, e.Course)
			}
		}
	})

	t.Run("Snapshots", func(t *testing.T) {
		s := NewStore(10, 42)
		snaps := s.Snapshots(43, 1)
		if len(snaps) != 9 {
			t.Fatalf("expected 9 snapshots, got %d", len(snaps))
		}
		for i := 1; i < len(snaps); i++ {
			if !snaps[i].Date.After(snaps[i-1].Date) {
				t.Errorf("snapshot %d is not after its predecessor", i)
			}
		}
		if s.Snapshots(43, 4) != nil || s.Snapshots(1, 1) != nil {
			t.Error("expected no snapshots for unknown participants")
		}
	})
}
