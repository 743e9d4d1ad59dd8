package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/export"
	"github.com/helixir/oa-metasearch/internal/federation"
	"github.com/helixir/oa-metasearch/internal/observability"
)

// maxRequestBodySize caps JSON request bodies.
const maxRequestBodySize = 1 << 20

// sourceResponse describes one enabled connector.
type sourceResponse struct {
	Source domain.Source `json:"source"`
	Name   string        `json:"name"`
}

type listSourcesResponse struct {
	Sources []sourceResponse `json:"sources"`
}

// searchPost handles POST /api/search.
func (s *Server) searchPost(w http.ResponseWriter, r *http.Request) {
	var p domain.SearchParams
	if !decodeBody(w, r, &p) {
		return
	}
	s.runSearch(w, r, p)
}

// searchGet handles GET /api/search.
func (s *Server) searchGet(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearchQuery(r.URL.Query())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.runSearch(w, r, p)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, p domain.SearchParams) {
	resp, err := s.index.Search(r.Context(), p)
	if err != nil {
		s.logFailure(r, err, "search failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// getPaper handles GET /api/paper/{id}.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "id must be a valid source:sourceId")
		return
	}

	resp, err := s.resolver.Resolve(r.Context(), id)
	if err != nil {
		s.logFailure(r, err, "paper lookup failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// exportRecords handles POST /api/export?format=. It runs the search and
// renders the requested page of hits.
func (s *Server) exportRecords(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var p domain.SearchParams
	if !decodeBody(w, r, &p) {
		return
	}

	resp, err := s.index.Search(r.Context(), p)
	if err != nil {
		s.logFailure(r, err, "export search failed")
		writeDomainError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Render(&buf, format, resp.Hits); err != nil {
		s.logFailure(r, err, "export render failed")
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="oa-records.%s"`, format.Extension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// federatedSearch handles POST /api/federated.
func (s *Server) federatedSearch(w http.ResponseWriter, r *http.Request) {
	var req federation.SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.resolver.FederatedSearch(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// listSources handles GET /api/sources.
func (s *Server) listSources(w http.ResponseWriter, _ *http.Request) {
	enabled := s.sources.Enabled()
	out := listSourcesResponse{Sources: make([]sourceResponse, 0, len(enabled))}
	for _, c := range enabled {
		out.Sources = append(out.Sources, sourceResponse{Source: c.Source(), Name: c.Name()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) logFailure(r *http.Request, err error, msg string) {
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound) {
		return
	}
	logger := observability.LoggerFromContext(r.Context(), s.logger)
	logger.Error().Err(err).Msg(msg)
}

// decodeBody reads a size-limited JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if len(body) > maxRequestBodySize {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// parseSearchQuery builds SearchParams from GET /api/search query parameters.
// List parameters may repeat or be comma-separated.
func parseSearchQuery(q url.Values) (domain.SearchParams, error) {
	p := domain.SearchParams{
		Q:    q.Get("q"),
		DOI:  q.Get("doi"),
		Sort: domain.SortKey(q.Get("sort")),
	}

	var err error
	if p.Page, err = intParam(q, "page"); err != nil {
		return p, err
	}
	if p.PageSize, err = intParam(q, "pageSize"); err != nil {
		return p, err
	}
	if p.Filters.YearFrom, err = intPtrParam(q, "yearFrom"); err != nil {
		return p, err
	}
	if p.Filters.YearTo, err = intPtrParam(q, "yearTo"); err != nil {
		return p, err
	}
	if v := q.Get("openAccessOnly"); v != "" {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			return p, domain.NewValidationError("openAccessOnly", "must be a boolean")
		}
		p.Filters.OpenAccessOnly = b
	}

	for _, v := range listParam(q, "source") {
		p.Filters.Source = append(p.Filters.Source, domain.Source(v))
	}
	for _, v := range listParam(q, "oaStatus") {
		p.Filters.OAStatus = append(p.Filters.OAStatus, domain.OAStatus(v))
	}
	p.Filters.Venue = listParam(q, "venue")
	p.Filters.Publisher = listParam(q, "publisher")
	p.Filters.Topics = listParam(q, "topics")
	return p, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

func intPtrParam(q url.Values, name string) (*int, error) {
	if q.Get(name) == "" {
		return nil, nil
	}
	n, err := intParam(q, name)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func listParam(q url.Values, name string) []string {
	var out []string
	for _, raw := range q[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrBackendUnavailable):
		writeError(w, http.StatusBadGateway, "search error, try again")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
