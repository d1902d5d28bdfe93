// Package graphiumtest runs an in-process Graphium API stub for tests.
package graphiumtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/dukerupert/graphium/internal/connection"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const BasePath = "/graphium/api"

// Recorded is one request seen by the stub.
type Recorded struct {
	Method string
	Path   string
	Query  string
	Body   string
	Auth   bool
}

// Server is a stub Graphium server holding graphs, versions and segments in memory.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	serverName   string
	capabilities any
	versions     map[string][]map[string]any
	segments     map[string][]map[string]any
	changesets   map[string][]map[string]any
	match        map[string]any
	route        map[string]any
	username     string
	password     string
	challenges   int
	requests     []Recorded
}

// New starts a stub reporting serverName. Capabilities default to the
// endpoint being absent.
func New(serverName string) *Server {
	s := &Server{
		serverName: serverName,
		versions:   make(map[string][]map[string]any),
		segments:   make(map[string][]map[string]any),
		changesets: make(map[string][]map[string]any),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// Conn returns a connection pointing at the stub.
func (s *Server) Conn(name string) connection.Connection {
	return connection.Connection{
		Name:     name,
		Kind:     connection.KindPostgres,
		Host:     s.URL,
		BasePath: strings.TrimPrefix(BasePath, "/"),
	}
}

// SetCapabilities sets the /capabilities document. nil makes the endpoint 404.
func (s *Server) SetCapabilities(caps any) {
	s.mu.Lock()
	s.capabilities = caps
	s.mu.Unlock()
}

// RequireAuth makes every endpoint answer a Basic challenge until the given
// credentials are sent.
func (s *Server) RequireAuth(username, password string) {
	s.mu.Lock()
	s.username, s.password = username, password
	s.mu.Unlock()
}

// AddVersion registers version metadata. Missing graphName/version/state fields are filled.
func (s *Server) AddVersion(graph, version string, meta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if meta == nil {
		meta = map[string]any{}
	}
	meta["graphName"] = graph
	meta["version"] = version
	if _, ok := meta["state"]; !ok {
		meta["state"] = "INITIAL"
	}
	if _, ok := meta["type"]; !ok {
		meta["type"] = "waysegment"
	}
	s.versions[graph] = append(s.versions[graph], meta)
}

// AddSegments registers segments for graph/version and updates segmentsCount.
func (s *Server) AddSegments(graph, version string, segs ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := graph + "/" + version
	s.segments[key] = append(s.segments[key], segs...)
	if meta := s.findLocked(graph, version); meta != nil {
		meta["segmentsCount"] = len(s.segments[key])
	}
}

func (s *Server) AddChangeset(graph string, cs map[string]any) {
	s.mu.Lock()
	s.changesets[graph] = append(s.changesets[graph], cs)
	s.mu.Unlock()
}

// SetMatchResult sets the document returned by matchtrack.
func (s *Server) SetMatchResult(m map[string]any) {
	s.mu.Lock()
	s.match = m
	s.mu.Unlock()
}

// SetRoute sets the document returned by route.do.
func (s *Server) SetRoute(r map[string]any) {
	s.mu.Lock()
	s.route = r
	s.mu.Unlock()
}

// Requests returns every request recorded so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// Challenges is the number of 401 challenges sent.
func (s *Server) Challenges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenges
}

// Version returns a copy of the stored metadata.
func (s *Server) Version(graph, version string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta := s.findLocked(graph, version)
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func (s *Server) findLocked(graph, version string) map[string]any {
	for _, v := range s.versions[graph] {
		if v["version"] == version {
			return v
		}
	}
	return nil
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.auth)

	r.Route(BasePath, func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/capabilities", s.handleCapabilities)

		r.Get("/metadata/graphs", s.handleGraphNames)
		r.Get("/metadata/graphs/{graph}/versions", s.handleVersions)
		r.Get("/metadata/graphs/{graph}/versions/{version}", s.handleVersion)
		r.Put("/metadata/graphs/{graph}/versions/{version}/{attr}/{value}", s.handleSetAttribute)

		for _, prefix := range []string{"/segments", "/hdwaysegments"} {
			r.Get(prefix+"/graphs/{graph}/versions/{version}", s.handleSegments)
			r.Post(prefix+"/graphs/{graph}/versions/{version}", s.handleUpload)
			r.Delete(prefix+"/graphs/{graph}/versions/{version}", s.handleRemove)
		}

		r.Get("/changes/graphs/{graph}", s.handleChangesets)
		r.Get("/changes/graphs/{graph}/from/{from}/to/{to}", s.handleChanges)
		r.Get("/changes/graphs/{graph}/from/{from}/to/{to}/dodetect", s.handleChanges)

		r.Post("/graphs/{graph}/matchtrack", s.handleMatch)
		r.Post("/graphs/{graph}/versions/current/matchtrack", s.handleMatch)
		r.Get("/routing/graphs/{graph}/versions/{version}/route.do", s.handleRoute)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		_, _, hasAuth := r.BasicAuth()

		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method: r.Method,
			Path:   strings.TrimPrefix(r.URL.Path, BasePath),
			Query:  r.URL.RawQuery,
			Body:   string(body),
			Auth:   hasAuth,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		wantUser, wantPass := s.username, s.password
		s.mu.Unlock()
		if wantUser == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if ok && user == wantUser && pass == wantPass {
			next.ServeHTTP(w, r)
			return
		}
		s.mu.Lock()
		s.challenges++
		s.mu.Unlock()
		w.Header().Set("WWW-Authenticate", `Basic realm="graphium"`)
		w.WriteHeader(http.StatusUnauthorized)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"msg": msg}})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	name := s.serverName
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"serverName": name, "serverVersion": "stub"})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	caps := s.capabilities
	s.mu.Unlock()
	if caps == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, caps)
}

func (s *Server) handleGraphNames(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	names := make([]string, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names)
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list, ok := s.versions[chi.URLParam(r, "graph")]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	meta := s.Version(chi.URLParam(r, "graph"), chi.URLParam(r, "version"))
	if meta == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

var stateOrder = map[string]int{"INITIAL": 0, "ACTIVE": 1, "DELETED": 2}

func (s *Server) handleSetAttribute(w http.ResponseWriter, r *http.Request) {
	attr, value := chi.URLParam(r, "attr"), chi.URLParam(r, "value")

	s.mu.Lock()
	defer s.mu.Unlock()
	meta := s.findLocked(chi.URLParam(r, "graph"), chi.URLParam(r, "version"))
	if meta == nil {
		http.NotFound(w, r)
		return
	}
	if attr == "state" {
		cur, _ := meta["state"].(string)
		next, known := stateOrder[value]
		if !known || next <= stateOrder[cur] {
			writeError(w, http.StatusUnprocessableEntity, "illegal state transition "+cur+" -> "+value)
			return
		}
	}
	meta[attr] = value
	writeJSON(w, http.StatusOK, map[string]any{attr: value})
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	graph, version := chi.URLParam(r, "graph"), chi.URLParam(r, "version")
	meta := s.Version(graph, version)
	if meta == nil {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	segs := s.segments[graph+"/"+version]
	s.mu.Unlock()

	if ids := r.URL.Query().Get("ids"); ids != "" {
		want := make(map[string]bool)
		for _, id := range strings.Split(ids, ",") {
			want[strings.TrimSpace(id)] = true
		}
		var filtered []map[string]any
		for _, seg := range segs {
			if want[jsonID(seg["id"])] {
				filtered = append(filtered, seg)
			}
		}
		segs = filtered
	}
	if segs == nil {
		segs = []map[string]any{}
	}

	typ, _ := meta["type"].(string)
	writeJSON(w, http.StatusOK, map[string]any{"graphVersionMetadata": meta, typ: segs})
}

func jsonID(v any) string {
	b, _ := json.Marshal(v)
	return strings.Trim(string(b), `"`)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	graph, version := chi.URLParam(r, "graph"), chi.URLParam(r, "version")
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	var doc struct {
		Segments []map[string]any `json:"waysegment"`
	}
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"exception": "GraphImportException", "message": err.Error()})
		return
	}

	override := r.FormValue("overrideIfExists") == "true"
	if existing := s.Version(graph, version); existing != nil && !override {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"exception": "GraphAlreadyExistException", "message": "graph version exists"})
		return
	}

	s.mu.Lock()
	delete(s.segments, graph+"/"+version)
	list := s.versions[graph]
	for i, v := range list {
		if v["version"] == version {
			s.versions[graph] = append(list[:i], list[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.AddVersion(graph, version, nil)
	s.AddSegments(graph, version, doc.Segments...)
	writeJSON(w, http.StatusOK, s.Version(graph, version))
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	graph, version := chi.URLParam(r, "graph"), chi.URLParam(r, "version")
	keep := r.URL.Query().Get("keepMetadata") == "true"

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.versions[graph]
	for i, v := range list {
		if v["version"] != version {
			continue
		}
		delete(s.segments, graph+"/"+version)
		if keep {
			v["state"] = "DELETED"
		} else {
			s.versions[graph] = append(list[:i], list[i+1:]...)
		}
		writeJSON(w, http.StatusOK, map[string]any{"graphName": graph, "version": version, "keepMetadata": keep})
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleChangesets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := s.changesets[chi.URLParam(r, "graph")]
	s.mu.Unlock()
	if list == nil {
		list = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"graphName":   chi.URLParam(r, "graph"),
		"fromVersion": chi.URLParam(r, "from"),
		"toVersion":   chi.URLParam(r, "to"),
		"changes":     []any{},
	})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	m := s.match
	s.mu.Unlock()
	if m == nil {
		writeError(w, http.StatusOK, "no match configured")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	route := s.route
	s.mu.Unlock()
	if route == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, route)
}
