package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/navigator"
	"github.com/desertthunder/tablenav/internal/shared"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

const maxSuggestions = 5

// collection ties a served table to the name its controls are rendered under.
type collection struct {
	name   string
	kind   string
	scoped bool
}

var (
	courses           = collection{name: "courses", kind: "course"}
	experiments       = collection{name: "experiments", kind: "experiment"}
	courseExperiments = collection{name: "course_experiments", kind: "experiment", scoped: true}
)

var categories = map[string]string{
	courses.name:     courses.kind,
	experiments.name: experiments.kind,
}

// Backend serves the paged collection, search, snapshot and export endpoints from a [Store].
type Backend struct {
	store  *Store
	logger *log.Logger
}

// NewBackend creates a [Backend] over store.
func NewBackend(store *Store, logger *log.Logger) *Backend {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Backend{store: store, logger: logger}
}

// Register adds the backend routes to r.
func (b *Backend) Register(r Router) {
	r.Handle(http.MethodGet, "/page/course", b.page(courses))
	r.Handle(http.MethodGet, "/pages/home/course", b.count(courses))
	r.Handle(http.MethodGet, "/page/experiment", b.page(experiments))
	r.Handle(http.MethodGet, "/pages/home/experiment", b.count(experiments))
	r.Handle(http.MethodGet, "/page/course/experiment", b.page(courseExperiments))
	r.Handle(http.MethodGet, "/pages/course/experiment", b.count(courseExperiments))

	r.Handle(http.MethodGet, "/search/suggestions", http.HandlerFunc(b.suggestions))
	r.Handle(http.MethodGet, "/search/", http.HandlerFunc(b.search))

	r.Handle(http.MethodGet, "/result/count", http.HandlerFunc(b.snapshotCount))
	r.Handle(http.MethodGet, "/result/codes", http.HandlerFunc(b.snapshotPage))
	r.Handle(http.MethodGet, "/result/sb3s", http.HandlerFunc(b.exportArchive))
	r.Handle(http.MethodGet, "/result/generate", http.HandlerFunc(b.exportSnapshot))

	r.Handle(http.MethodPost, "/dev/rows", http.HandlerFunc(b.mutateRows))
}

// NewDevServer builds a router serving a fresh store seeded from cfg.
func NewDevServer(cfg shared.DevServerConfig, logger *log.Logger) *BasicRouter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = logger.WithPrefix("devserver")

	router := NewBasicRouter()
	router.Use(RequestID(), Logging(logger), Recover(logger))
	NewBackend(NewStore(cfg.PageSize, cfg.Rows), logger).Register(router)
	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	data, _ := json.Marshal(map[string]string{"error": msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(s))
}

func writeFile(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// intParam parses a query parameter, falling back to def when it is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// rows returns the rows of c, or false when a scoped collection names no known course.
func (b *Backend) rows(c collection, r *http.Request) ([]Entry, bool) {
	if !c.scoped {
		return b.store.Rows(c.kind, 0), true
	}
	id, err := intParam(r, "id", 0)
	if err != nil || id < 1 {
		return nil, false
	}
	if _, ok := b.store.Find("course", id); !ok {
		return nil, false
	}
	return b.store.Rows(c.kind, id), true
}

func (b *Backend) tablePage(c collection, page, last int, rows []Entry) models.TablePage {
	ids := navigator.DefaultControls(c.name)
	p := models.TablePage{
		Collection: c.name,
		Page:       page,
		Last:       last,
		Columns:    []string{"ID", "Title", "Status"},
		Rows:       make([]models.Row, 0, len(rows)),
		Controls:   []string{ids.First, ids.Prev, ids.Next, ids.Last},
	}
	for _, e := range rows {
		status := "inactive"
		if e.Active {
			status = "active"
		}
		p.Rows = append(p.Rows, models.Row{ID: e.ID, Cells: []string{strconv.Itoa(e.ID), e.Title, status}})
	}
	if len(rows) > 0 {
		p.Controls = append(p.Controls, navigator.OpenControl(c.name))
	}
	return p
}

func (b *Backend) page(c collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, ok := b.rows(c, r)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown course")
			return
		}
		page, err := intParam(r, "page", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slice, ok := b.store.Slice(rows, page)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("page %d out of range", page))
			return
		}
		writeJSON(w, http.StatusOK, b.tablePage(c, page, b.store.LastPage(len(rows)), slice))
	}
}

// count answers the last page index, or -1 for an unknown scoped collection.
func (b *Backend) count(c collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, ok := b.rows(c, r)
		if !ok {
			writeText(w, "-1")
			return
		}
		writeText(w, strconv.Itoa(b.store.LastPage(len(rows))))
	}
}

type candidate struct {
	entry    Entry
	category string
}

// rank returns the candidates matching query, closest first.
func (b *Backend) rank(query string, kinds map[string]string) []candidate {
	var pool []candidate
	for category, kind := range kinds {
		for _, e := range b.store.Rows(kind, 0) {
			pool = append(pool, candidate{entry: e, category: category})
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].entry.ID < pool[j].entry.ID })

	titles := make([]string, len(pool))
	for i, c := range pool {
		titles[i] = c.entry.Title
	}

	ranks := fuzzy.RankFindFold(query, titles)
	sort.Stable(ranks)

	out := make([]candidate, 0, len(ranks))
	for _, rk := range ranks {
		out = append(out, pool[rk.OriginalIndex])
	}
	return out
}

func (b *Backend) suggestions(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	exclude, err := intParam(r, "exclude", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := make([]models.Suggestion, 0, maxSuggestions)
	if query != "" {
		for _, c := range b.rank(query, categories) {
			if c.entry.ID == exclude {
				continue
			}
			out = append(out, models.Suggestion{ID: c.entry.ID, Title: c.entry.Title, Category: c.category})
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// search serves /search/{category}; page counts loaded result pages and starts at 1.
func (b *Backend) search(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimPrefix(r.URL.Path, "/search/")
	kind, ok := categories[category]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown category %q", category))
		return
	}
	page, err := intParam(r, "page", 1)
	if err != nil || page < 1 {
		writeError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}

	matches := b.rank(r.URL.Query().Get("query"), map[string]string{category: kind})
	size := b.store.PageSize()
	start := min((page-1)*size, len(matches))
	end := min(start+size, len(matches))

	result := models.SearchPage{Category: category, Count: len(matches), Page: page, Results: make([]models.Suggestion, 0, end-start)}
	for _, c := range matches[start:end] {
		result.Results = append(result.Results, models.Suggestion{ID: c.entry.ID, Title: c.entry.Title, Category: category})
	}
	writeJSON(w, http.StatusOK, result)
}

// participant reads the experiment and user parameters and the snapshots they select.
func (b *Backend) participant(w http.ResponseWriter, r *http.Request) (int, int, []models.Snapshot, bool) {
	experiment, err := intParam(r, "experiment", 0)
	if err != nil || experiment < 1 {
		writeError(w, http.StatusBadRequest, "experiment must be a positive integer")
		return 0, 0, nil, false
	}
	user, err := intParam(r, "user", 0)
	if err != nil || user < 1 {
		writeError(w, http.StatusBadRequest, "user must be a positive integer")
		return 0, 0, nil, false
	}
	if _, ok := b.store.Find("experiment", experiment); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown experiment %d", experiment))
		return 0, 0, nil, false
	}
	return experiment, user, b.store.Snapshots(experiment, user), true
}

func (b *Backend) snapshotCount(w http.ResponseWriter, r *http.Request) {
	_, _, snapshots, ok := b.participant(w, r)
	if !ok {
		return
	}
	writeText(w, strconv.Itoa(len(snapshots)))
}

func (b *Backend) snapshotPage(w http.ResponseWriter, r *http.Request) {
	_, _, snapshots, ok := b.participant(w, r)
	if !ok {
		return
	}
	page, err := intParam(r, "page", 0)
	if err != nil || page < 0 {
		writeError(w, http.StatusBadRequest, "page must be a non-negative integer")
		return
	}

	size := b.store.PageSize()
	start := min(page*size, len(snapshots))
	end := min(start+size, len(snapshots))
	writeJSON(w, http.StatusOK, snapshots[start:end])
}

// selectSnapshots applies a range or step selection to snapshots.
func selectSnapshots(r *http.Request, snapshots []models.Snapshot) ([]models.Snapshot, error) {
	q := r.URL.Query()
	if q.Has("step") {
		step, err := intParam(r, "step", 0)
		if err != nil || step < 1 {
			return nil, fmt.Errorf("step must be a positive number of minutes")
		}
		var out []models.Snapshot
		var next time.Time
		for _, s := range snapshots {
			if len(out) == 0 || !s.Date.Before(next) {
				out = append(out, s)
				next = s.Date.Add(time.Duration(step) * time.Minute)
			}
		}
		return out, nil
	}

	if !q.Has("start") && !q.Has("end") {
		return snapshots, nil
	}

	start, err := intParam(r, "start", 0)
	if err != nil {
		return nil, err
	}
	end, err := intParam(r, "end", 0)
	if err != nil {
		return nil, err
	}
	include := q.Get("include") == "true"
	if !include {
		end--
	}
	if start < 1 || end > len(snapshots) || start > end {
		return nil, fmt.Errorf("range %s..%s does not fit %d snapshots", q.Get("start"), q.Get("end"), len(snapshots))
	}
	return snapshots[start-1 : end], nil
}

// projectArchive packs one snapshot as a project file.
func projectArchive(s models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("project.json")
	if err != nil {
		return nil, err
	}
	if _, err := f.Write([]byte(s.Code)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *Backend) exportArchive(w http.ResponseWriter, r *http.Request) {
	experiment, user, snapshots, ok := b.participant(w, r)
	if !ok {
		return
	}
	selected, err := selectSnapshots(r, snapshots)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(selected) == 0 {
		writeError(w, http.StatusNotFound, "no snapshots selected")
		return
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, s := range selected {
		project, err := projectArchive(s)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		f, err := zw.Create(fmt.Sprintf("%03d_sb3_%d.sb3", i+1, s.ID))
		if err == nil {
			_, err = f.Write(project)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if err := zw.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	b.logger.Debug("archive exported", "experiment", experiment, "user", user, "snapshots", len(selected))
	writeFile(w, fmt.Sprintf("sb3s_eid_%d_uid_%d.zip", experiment, user), "application/zip", buf.Bytes())
}

func (b *Backend) exportSnapshot(w http.ResponseWriter, r *http.Request) {
	experiment, user, snapshots, ok := b.participant(w, r)
	if !ok {
		return
	}
	id, err := intParam(r, "json", 0)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "json must name a snapshot id")
		return
	}

	for _, s := range snapshots {
		if s.ID != id {
			continue
		}
		project, err := projectArchive(s)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeFile(w, fmt.Sprintf("sb3_%d_eid_%d_uid_%d.sb3", id, experiment, user), "application/x.scratch.sb3", project)
		return
	}
	writeError(w, http.StatusNotFound, fmt.Sprintf("unknown snapshot %d", id))
}

type rowsResult struct {
	Collection string `json:"collection"`
	Rows       int    `json:"rows"`
	Last       int    `json:"last"`
}

// mutateRows adds or removes rows so clients can observe a collection changing under them.
func (b *Backend) mutateRows(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("collection")
	kind, ok := categories[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown collection %q", name))
		return
	}
	delta, err := intParam(r, "delta", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := b.store.Mutate(kind, delta)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b.logger.Info("rows changed", "collection", name, "delta", delta, "rows", n)
	writeJSON(w, http.StatusOK, rowsResult{Collection: name, Rows: n, Last: b.store.LastPage(n)})
}
