package server_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/navigator"
	"github.com/desertthunder/tablenav/internal/paging"
	"github.com/desertthunder/tablenav/internal/server"
	"github.com/desertthunder/tablenav/internal/services"
	"github.com/desertthunder/tablenav/internal/shared"
	tu "github.com/desertthunder/tablenav/internal/testing"
)

func newDevServer(t *testing.T, pageSize, rows int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(server.NewDevServer(
		shared.DevServerConfig{PageSize: pageSize, Rows: rows},
		shared.NewLogger(io.Discard),
	))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, body
}

func zipEntries(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("not a zip archive: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestPages(t *testing.T) {
	srv := newDevServer(t, 10, 42)

	t.Run("Page Fragment", func(t *testing.T) {
		resp, body := get(t, srv.URL+"/page/course?page=1")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var page models.TablePage
		if err := json.Unmarshal(body, &page); err != nil {
			t.Fatalf("invalid fragment: %v", err)
		}
		if page.Collection != "courses" || page.Page != 1 || page.Last != 4 || len(page.Rows) != 10 {
			t.Errorf("unexpected page %+v", page)
		}
		if page.Rows[0].ID != 11 {
			t.Errorf("expected page 1 to start at id 11, got %d", page.Rows[0].ID)
		}
		for _, id := range []string{"coursesFirst", "coursesPrev", "coursesNext", "coursesLast", navigator.OpenControl("courses")} {
			if !page.HasControl(id) {
				t.Errorf("expected control %s", id)
			}
		}
	})

	t.Run("Count", func(t *testing.T) {
		tests := []struct {
			path string
			want string
		}{
			{"/pages/home/course", "4"},
			{"/pages/home/experiment", "4"},
			{"/pages/course/experiment?id=2", "0"},
			{"/pages/course/experiment?id=999", "-1"},
			{"/pages/course/experiment", "-1"},
		}
		for _, tt := range tests {
			t.Run(tt.path, func(t *testing.T) {
				_, body := get(t, srv.URL+tt.path)
				if string(body) != tt.want {
					t.Errorf("expected %s, got %s", tt.want, body)
				}
			})
		}
	})

	t.Run("Errors", func(t *testing.T) {
		tests := []struct {
			path   string
			status int
		}{
			{"/page/course?page=5", http.StatusNotFound},
			{"/page/course?page=-1", http.StatusNotFound},
			{"/page/course?page=x", http.StatusBadRequest},
			{"/page/course/experiment?id=999", http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.path, func(t *testing.T) {
				resp, body := get(t, srv.URL+tt.path)
				if resp.StatusCode != tt.status {
					t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
				}
				if !strings.Contains(string(body), `"error"`) {
					t.Errorf("expected JSON error, got %s", body)
				}
			})
		}
	})

	t.Run("Wrong Method", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/page/course", "text/plain", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})
}

func TestSearch(t *testing.T) {
	srv := newDevServer(t, 2, 42)
	client := services.NewClient(services.ClientOptions{BaseURL: srv.URL, Logger: shared.NewLogger(io.Discard)})
	ctx := context.Background()

	t.Run("Suggestions", func(t *testing.T) {
		got, err := client.Suggest(ctx, "loops", 0)
		if err != nil {
			t.Fatalf("Suggest failed: %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("expected 5 suggestions, got %d", len(got))
		}
		for _, s := range got {
			if !strings.HasPrefix(s.Title, "Loops") {
				t.Errorf("unexpected suggestion %q", s.Title)
			}
		}
		if got[0].Category != "courses" {
			t.Errorf("expected the closest match to be a course, got %+v", got[0])
		}
	})

	t.Run("Suggestions Exclude", func(t *testing.T) {
		got, err := client.Suggest(ctx, "loops", 10)
		if err != nil {
			t.Fatalf("Suggest failed: %v", err)
		}
		for _, s := range got {
			if s.ID == 10 {
				t.Error("expected id 10 to be excluded")
			}
		}
	})

	t.Run("Empty Query", func(t *testing.T) {
		got, err := client.Suggest(ctx, "  ", 0)
		if err != nil || len(got) != 0 {
			t.Errorf("expected no suggestions, got %v (%v)", got, err)
		}
	})

	t.Run("Load More", func(t *testing.T) {
		first, err := client.Search(ctx, "courses", "loops", 1)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if first.Count != 4 || len(first.Results) != 2 {
			t.Fatalf("unexpected first page %+v", first)
		}
		if !paging.HasMore(first.Count, 1, 2) {
			t.Error("expected more results after page 1")
		}

		second, err := client.Search(ctx, "courses", "loops", 2)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(second.Results) != 2 || second.Results[0].ID == first.Results[0].ID {
			t.Errorf("unexpected second page %+v", second)
		}
		if paging.HasMore(second.Count, 2, 2) {
			t.Error("expected no more results after page 2")
		}
	})

	t.Run("Unknown Category", func(t *testing.T) {
		if _, err := client.Search(ctx, "planets", "x", 1); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSnapshots(t *testing.T) {
	srv := newDevServer(t, 10, 42)
	client := services.NewClient(services.ClientOptions{BaseURL: srv.URL, Logger: shared.NewLogger(io.Discard)})
	ctx := context.Background()

	t.Run("Count And Pages", func(t *testing.T) {
		n, err := client.SnapshotCount(ctx, 43, 2)
		if err != nil || n != 12 {
			t.Fatalf("expected 12 snapshots, got %d (%v)", n, err)
		}
		first, err := client.Snapshots(ctx, 43, 2, 0)
		if err != nil || len(first) != 10 {
			t.Fatalf("expected a full first page, got %d (%v)", len(first), err)
		}
		second, err := client.Snapshots(ctx, 43, 2, 1)
		if err != nil || len(second) != 2 {
			t.Fatalf("expected 2 snapshots on page 1, got %d (%v)", len(second), err)
		}
	})

	t.Run("Unknown Participant", func(t *testing.T) {
		n, err := client.SnapshotCount(ctx, 43, 9)
		if err != nil || n != 0 {
			t.Errorf("expected no snapshots, got %d (%v)", n, err)
		}
		if _, err := client.SnapshotCount(ctx, 999, 1); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound for an unknown experiment, got %v", err)
		}
	})
}

func TestExports(t *testing.T) {
	srv := newDevServer(t, 10, 42)
	client := services.NewClient(services.ClientOptions{BaseURL: srv.URL, Logger: shared.NewLogger(io.Discard)})
	ctx := context.Background()

	t.Run("Range Selections", func(t *testing.T) {
		tests := []struct {
			name    string
			req     models.ExportRequest
			entries int
		}{
			{"all", models.ExportRequest{Experiment: 43, User: 1}, 9},
			{"inclusive range", models.ExportRequest{Experiment: 43, User: 1, Start: 2, End: 4, IncludeEnd: true}, 3},
			{"exclusive range", models.ExportRequest{Experiment: 43, User: 1, Start: 2, End: 4}, 2},
			{"step", models.ExportRequest{Experiment: 43, User: 1, Step: 5}, 4},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				d, err := client.ExportRange(ctx, tt.req)
				if err != nil {
					t.Fatalf("ExportRange failed: %v", err)
				}
				if d.Name != "sb3s_eid_43_uid_1.zip" {
					t.Errorf("unexpected name %s", d.Name)
				}
				if got := zipEntries(t, d.Content); len(got) != tt.entries {
					t.Errorf("expected %d entries, got %v", tt.entries, got)
				}
			})
		}
	})

	t.Run("Range Past End", func(t *testing.T) {
		req := models.ExportRequest{Experiment: 43, User: 1, Start: 2, End: 40, IncludeEnd: true}
		if _, err := client.ExportRange(ctx, req); !errors.Is(err, shared.ErrServerError) {
			t.Errorf("expected ErrServerError for a 400, got %v", err)
		}
	})

	t.Run("Single Snapshot", func(t *testing.T) {
		d, err := client.ExportSnapshot(ctx, 43, 1, 43102)
		if err != nil {
			t.Fatalf("ExportSnapshot failed: %v", err)
		}
		if d.Name != "sb3_43102_eid_43_uid_1.sb3" {
			t.Errorf("unexpected name %s", d.Name)
		}
		if got := zipEntries(t, d.Content); len(got) != 1 || got[0] != "project.json" {
			t.Errorf("expected a project archive, got %v", got)
		}
	})

	t.Run("Unknown Snapshot", func(t *testing.T) {
		if _, err := client.ExportSnapshot(ctx, 43, 1, 1); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func mutate(t *testing.T, srv *httptest.Server, query string) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/dev/rows?"+query, "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mutation %s failed with %d", query, resp.StatusCode)
	}
}

func TestMutateRows(t *testing.T) {
	srv := newDevServer(t, 10, 42)

	resp, err := http.Post(srv.URL+"/dev/rows?collection=courses&delta=-20", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got struct {
		Rows int `json:"rows"`
		Last int `json:"last"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Rows != 22 || got.Last != 2 {
		t.Errorf("expected 22 rows and last page 2, got %+v", got)
	}

	resp2, err := http.Post(srv.URL+"/dev/rows?collection=planets&delta=1", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown collection, got %d", resp2.StatusCode)
	}
}

func TestNavigatorAgainstDevBackend(t *testing.T) {
	srv := newDevServer(t, 10, 42)
	client := services.NewClient(services.ClientOptions{BaseURL: srv.URL, Logger: shared.NewLogger(io.Discard)})
	desc := navigator.Descriptor{
		Name:          "courses",
		PageEndpoint:  "/page/course",
		CountEndpoint: "/pages/home/course",
		ContainerID:   "course_table",
		Controls:      navigator.DefaultControls("courses"),
	}
	start, err := paging.NewCursorWithLast(3, 4)
	if err != nil {
		t.Fatal(err)
	}
	renderer := &tu.RecordingRenderer{}
	nav := navigator.New(desc, client, renderer, navigator.Options{Start: start, Logger: shared.NewLogger(io.Discard)})

	t.Run("Last After Shrink", func(t *testing.T) {
		mutate(t, srv, "collection=courses&delta=-20")

		out, err := nav.Goto(context.Background(), paging.LastAction)
		if err != nil {
			t.Fatalf("Goto failed: %v", err)
		}
		if out.Page != 2 {
			t.Errorf("expected the resynced last page 2, got %d", out.Page)
		}
		if last, ok := nav.Cursor().Last(); !ok || last != 2 {
			t.Errorf("expected cursor last 2, got %d (%v)", last, ok)
		}

		renders := renderer.Renders()
		page, err := services.DecodePage([]byte(renders[len(renders)-1].Fragment))
		if err != nil {
			t.Fatal(err)
		}
		if page.Page != 2 || page.Last != 2 {
			t.Errorf("unexpected rendered page %+v", page)
		}
	})

	t.Run("Next After Growth", func(t *testing.T) {
		mutate(t, srv, "collection=courses&delta=25")

		out, err := nav.Goto(context.Background(), paging.NextAction)
		if err != nil {
			t.Fatalf("Goto failed: %v", err)
		}
		if out.Page != 3 || !out.Controls.Next {
			t.Errorf("expected page 3 with next enabled, got %+v", out)
		}
	})
}
