package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/wzstats-client/pkg/client"
	"github.com/Sternrassler/wzstats-client/pkg/pagination"
	"github.com/Sternrassler/wzstats-client/pkg/provider"
)

const (
	defaultMinQualifying = 20
	defaultMode          = "br"
	maxMatchIDs          = 100
)

// errBadRequest marks input errors detected by the handlers.
var errBadRequest = errors.New("bad request")

type server struct {
	client  *client.Client
	timeout time.Duration
	logger  zerolog.Logger
}

func newServer(c *client.Client, timeout time.Duration, logger zerolog.Logger) *server {
	return &server{client: c, timeout: timeout, logger: logger}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /v1/profile/{platform}/{username}", s.handleProfile)
	mux.HandleFunc("GET /v1/history/{platform}/{username}", s.handleHistory)
	mux.HandleFunc("GET /v1/matches/{platform}", s.handleMatches)
	return mux
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) handleProfile(w http.ResponseWriter, r *http.Request) {
	platform, err := provider.ParsePlatform(r.PathValue("platform"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	profile, err := s.client.Profile(ctx, platform, r.PathValue("username"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

type historyResponse struct {
	Platform   provider.Platform       `json:"platform"`
	Username   string                  `json:"username"`
	Mode       string                  `json:"mode"`
	Min        int                     `json:"min"`
	Pages      int                     `json:"pages"`
	Qualifying int                     `json:"qualifying"`
	Reason     pagination.StopReason   `json:"reason"`
	Satisfied  bool                    `json:"satisfied"`
	Error      string                  `json:"error,omitempty"`
	Matches    []provider.MatchSummary `json:"matches"`
}

func newHistoryResponse(platform provider.Platform, username, mode string, minQualifying int, res *pagination.AccumulationResult[provider.MatchSummary]) historyResponse {
	out := historyResponse{
		Platform:   platform,
		Username:   username,
		Mode:       mode,
		Min:        minQualifying,
		Pages:      res.Pages,
		Qualifying: res.Qualifying,
		Reason:     res.Reason,
		Satisfied:  res.Satisfied(),
		Matches:    res.Records,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	if out.Matches == nil {
		out.Matches = []provider.MatchSummary{}
	}
	return out
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	platform, err := provider.ParsePlatform(r.PathValue("platform"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	q := r.URL.Query()
	minQualifying := defaultMinQualifying
	if v := q.Get("min"); v != "" {
		minQualifying, err = strconv.Atoi(v)
		if err != nil || minQualifying < 0 {
			s.writeError(w, fmt.Errorf("%w: min must be a non-negative integer", errBadRequest))
			return
		}
	}
	mode := q.Get("mode")
	if mode == "" {
		mode = defaultMode
	}
	isQualifying, err := provider.ModePredicate(mode)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	username := r.PathValue("username")
	res, err := s.client.History(ctx, platform, username, minQualifying, isQualifying)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newHistoryResponse(platform, username, mode, minQualifying, res))
}

type matchResult struct {
	MatchID string                `json:"match_id"`
	Cached  bool                  `json:"cached"`
	Detail  *provider.MatchDetail `json:"detail,omitempty"`
	Error   string                `json:"error,omitempty"`
	Class   string                `json:"class,omitempty"`
}

type matchesResponse struct {
	Platform provider.Platform `json:"platform"`
	Failed   int               `json:"failed"`
	Results  []matchResult     `json:"results"`
}

func newMatchesResponse(platform provider.Platform, ids []string, results []pagination.Result[*provider.MatchDetail]) matchesResponse {
	out := matchesResponse{Platform: platform, Results: make([]matchResult, len(results))}
	for i, res := range results {
		mr := matchResult{MatchID: ids[i], Cached: res.Cached, Detail: res.Value}
		if !res.OK() {
			_, mr.Class = errorStatus(res.Err)
			mr.Error = res.Err.Error()
			mr.Detail = nil
			out.Failed++
		}
		out.Results[i] = mr
	}
	return out
}

func (s *server) handleMatches(w http.ResponseWriter, r *http.Request) {
	platform, err := provider.ParsePlatform(r.PathValue("platform"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	ids, err := parseMatchIDs(r.URL.Query().Get("ids"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	results, err := s.client.MatchDetails(ctx, platform, ids)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newMatchesResponse(platform, ids, results))
}

func parseMatchIDs(raw string) ([]string, error) {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: ids must list at least one match id", errBadRequest)
	}
	if len(ids) > maxMatchIDs {
		return nil, fmt.Errorf("%w: at most %d match ids per request (got %d)", errBadRequest, maxMatchIDs, len(ids))
	}
	return ids, nil
}

func (s *server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

// errorStatus maps a client error to an HTTP status and a class label.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, pagination.ErrNoKeys), errors.Is(err, pagination.ErrInvalidKey):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, provider.ErrNotFound):
		return http.StatusNotFound, string(provider.ErrorClassNotFound)
	case errors.Is(err, provider.ErrForbidden):
		return http.StatusForbidden, string(provider.ErrorClassForbidden)
	case errors.Is(err, context.DeadlineExceeded), provider.ClassOf(err) == provider.ErrorClassTimeout:
		return http.StatusGatewayTimeout, string(provider.ErrorClassTimeout)
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cancelled"
	}
	if class := provider.ClassOf(err); class != "" {
		return http.StatusBadGateway, string(class)
	}
	return http.StatusBadGateway, "upstream"
}

type errorResponse struct {
	Error string `json:"error"`
	Class string `json:"class"`
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status, class := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn().Err(err).Int("status", status).Str("error_class", class).Msg("Request failed")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Class: class})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}
