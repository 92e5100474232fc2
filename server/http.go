package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/c360studio/sparqled/autocomplete"
	"github.com/c360studio/sparqled/editor"
	"github.com/c360studio/sparqled/examples"
	"github.com/c360studio/sparqled/prefix"
	"github.com/c360studio/sparqled/sparql"
)

// maxRequestBodySize limits POST body sizes.
const maxRequestBodySize = 1 << 20 // 1 MB

// RegisterHTTPHandlers registers the editor API under prefix, which should
// include the trailing slash (e.g., "/api/editor/"):
//
//	GET  <prefix>config
//	GET  <prefix>prefixes
//	GET  <prefix>examples
//	GET  <prefix>autocomplete/{class|property}
//	GET  <prefix>bootstrap?query=...
//	POST <prefix>inject
//	POST <prefix>add-prefixes
//	POST <prefix>use/{index}
//	POST <prefix>run
//	POST <prefix>refresh
func (s *Server) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	mux.HandleFunc(prefix+"config", s.handleConfig)
	mux.HandleFunc(prefix+"prefixes", s.handlePrefixes)
	mux.HandleFunc(prefix+"examples", s.handleExamples)
	mux.HandleFunc(prefix+"autocomplete/", s.handleAutocomplete)
	mux.HandleFunc(prefix+"bootstrap", s.handleBootstrap)
	mux.HandleFunc(prefix+"inject", s.handleInject)
	mux.HandleFunc(prefix+"add-prefixes", s.handleAddPrefixes)
	mux.HandleFunc(prefix+"use", s.handleUse)
	mux.HandleFunc(prefix+"use/", s.handleUse)
	mux.HandleFunc(prefix+"run", s.handleRun)
	mux.HandleFunc(prefix+"refresh", s.handleRefresh)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ConfigResponse is the JSON response for GET config.
type ConfigResponse struct {
	Endpoint    string            `json:"endpoint"`
	Prefixes    map[string]string `json:"prefixes"`
	InlineCount int               `json:"inline_count"`
}

// ExamplesResponse is the JSON response for GET examples.
type ExamplesResponse struct {
	Inline []examples.Example `json:"inline"`
	All    []examples.Example `json:"all"`
}

// QueryRequest carries the editor buffer.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is the buffer after an edit.
type QueryResponse struct {
	Query     string            `json:"query"`
	Added     []string          `json:"added,omitempty"`
	Collapsed bool              `json:"collapsed,omitempty"`
	Example   *examples.Example `json:"example,omitempty"`
}

// BootstrapResponse is the JSON response for GET bootstrap.
type BootstrapResponse struct {
	Query string `json:"query"`
	Run   bool   `json:"run"`
}

// RunResponse is the JSON response for POST run.
type RunResponse struct {
	editor.Response
	Error string `json:"error,omitempty"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	inline := 0
	if p := s.binder.Panel(); p != nil {
		inline = len(p.Inline())
	}
	writeJSON(w, http.StatusOK, ConfigResponse{
		Endpoint:    s.binder.Client().Endpoint(),
		Prefixes:    s.binder.ResultPrefixes(),
		InlineCount: inline,
	})
}

func (s *Server) handlePrefixes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries := s.binder.Table().Entries()
	if entries == nil {
		entries = []prefix.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	panel := s.binder.Panel()
	if panel == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, ExamplesResponse{
		Inline: panel.Inline(),
		All:    panel.All(),
	})
}

// handleAutocomplete serves GET autocomplete/{class|property}. The optional
// "token" parameter filters the list.
func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var name string
	switch strings.TrimPrefix(r.URL.Path, s.basePath+"autocomplete/") {
	case "class":
		name = autocomplete.ClassProviderName
	case "property":
		name = autocomplete.PropertyProviderName
	default:
		writeJSONError(w, http.StatusNotFound, "unknown_provider", "Autocomplete provider must be class or property")
		return
	}

	provider, ok := s.binder.Registry().Get(name)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown_provider", "Provider "+name+" is not registered")
		return
	}

	token := r.URL.Query().Get("token")
	terms := provider.Get(r.Context(), token)
	if provider.Bulk {
		terms = autocomplete.Filter(terms, token)
	}
	if terms == nil {
		terms = []string{}
	}
	writeJSON(w, http.StatusOK, terms)
}

// handleBootstrap serves GET bootstrap. The page runs the returned query
// itself when run is true.
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	page := &pageWidget{Buffer: editor.NewBuffer("", nil)}
	ran, err := s.binder.Bootstrap(r.Context(), page, r.URL.RawQuery)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "bootstrap_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, BootstrapResponse{
		Query: page.Value(),
		Run:   ran && page.runRequested,
	})
}

func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	buf := editor.NewBuffer(req.Query, nil)
	added := s.binder.InjectPrefixes(buf)
	writeJSON(w, http.StatusOK, QueryResponse{Query: buf.Value(), Added: added})
}

func (s *Server) handleAddPrefixes(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	buf := editor.NewBuffer(req.Query, nil)
	s.binder.AddAllPrefixes(buf)
	writeJSON(w, http.StatusOK, QueryResponse{Query: buf.Value(), Collapsed: buf.Collapsed()})
}

// handleUse serves POST use/{index}: load example index into the posted
// buffer and inject its prefixes.
// handleUse loads an example by index (use/{index}) or by ID (use?id=...).
func (s *Server) handleUse(w http.ResponseWriter, r *http.Request) {
	var use func(editor.Widget) (examples.Example, error)
	if r.URL.Path == s.basePath+"use" {
		id := r.URL.Query().Get("id")
		if id == "" {
			writeJSONError(w, http.StatusBadRequest, "missing_id", "Example id is required")
			return
		}
		use = func(wd editor.Widget) (examples.Example, error) {
			return s.binder.UseExampleID(wd, id)
		}
	} else {
		index, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, s.basePath+"use/"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_index", "Example index must be an integer")
			return
		}
		use = func(wd editor.Widget) (examples.Example, error) {
			return s.binder.UseExample(wd, index)
		}
	}

	req, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	buf := editor.NewBuffer(req.Query, nil)
	ex, err := use(buf)
	if err != nil {
		if errors.Is(err, examples.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "use_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{Query: buf.Value(), Example: &ex})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	buf := s.binder.NewBuffer(req.Query)
	runErr := s.binder.Run(r.Context(), buf)
	resp, _ := buf.Response()

	out := RunResponse{Response: resp}
	if runErr != nil {
		out.Error = runErr.Error()
		status := http.StatusBadGateway
		if errors.Is(runErr, sparql.ErrEmptyQuery) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.binder.Refresh(r.Context()); err != nil {
		s.logger.Warn("Refresh incomplete", "error", err)
		writeJSONError(w, http.StatusBadGateway, "refresh_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pageWidget defers execution to the browser: Run only records that the
// page should run the query.
type pageWidget struct {
	*editor.Buffer
	runRequested bool
}

func (p *pageWidget) Run(context.Context) error {
	p.runRequested = true
	return nil
}

func decodeQueryRequest(w http.ResponseWriter, r *http.Request) (QueryRequest, bool) {
	var req QueryRequest
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body: "+err.Error())
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeJSONError(w http.ResponseWriter, status int, errorCode, message string) {
	writeJSON(w, status, ErrorResponse{Error: errorCode, Message: message})
}
