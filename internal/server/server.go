package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"lol-stream-tracker/internal/capture"
	"lol-stream-tracker/internal/config"
	"lol-stream-tracker/internal/domain"
	"lol-stream-tracker/internal/record"
	"lol-stream-tracker/internal/repository"
	"lol-stream-tracker/internal/riot"
	"lol-stream-tracker/internal/tracker"

	"github.com/rs/zerolog"
)

type Server struct {
	tracker *tracker.Tracker
	capture *capture.Service
	cfg     *config.Config
	logger  zerolog.Logger
}

func NewServer(t *tracker.Tracker, c *capture.Service, cfg *config.Config, logger zerolog.Logger) *Server {
	return &Server{tracker: t, capture: c, cfg: cfg, logger: logger}
}

type rankJSON struct {
	Tier       *string `json:"tier"`
	Division   *string `json:"division"`
	RankPoints *int    `json:"rank_points"`
	DivisionLP *int    `json:"division_lp"`
}

type recordResponse struct {
	Wins                int      `json:"wins"`
	Losses              int      `json:"losses"`
	RankPointDelta      *int     `json:"rank_point_delta"`
	Rank                rankJSON `json:"rank"`
	BaselineApproximate bool     `json:"baseline_approximate"`
	NoGamesYet          bool     `json:"no_games_yet"`
	Response            string   `json:"response"`
}

type offlineResponse struct {
	Found          bool   `json:"found"`
	Wins           int    `json:"wins"`
	Losses         int    `json:"losses"`
	RankPointDelta *int   `json:"rank_point_delta"`
	Response       string `json:"response"`
}

// HandleRecord runs an online reconciliation.
// GET /v1/record?summoner=&tag=&stream_start=RFC3339[&region=][&game=][&test_start_lp=]
func (s *Server) HandleRecord(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	summoner, tag := q.Get("summoner"), q.Get("tag")
	if summoner == "" || tag == "" {
		httpError(w, http.StatusBadRequest, "summoner and tag are required")
		return
	}

	streamStart, err := time.Parse(time.RFC3339, q.Get("stream_start"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "stream_start must be RFC3339")
		return
	}

	params := tracker.RecordParams{
		GameType:    gameType(q.Get("game")),
		Summoner:    summoner,
		Tag:         tag,
		Region:      s.region(q.Get("region")),
		StreamStart: streamStart.UTC(),
	}
	if v := q.Get("test_start_lp"); v != "" {
		lp, err := strconv.Atoi(v)
		if err != nil {
			httpError(w, http.StatusBadRequest, "test_start_lp must be an integer")
			return
		}
		params.OverrideStartLP = &lp
	}

	summary, err := s.tracker.Record(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recordResponse{
		Wins:           summary.Wins,
		Losses:         summary.Losses,
		RankPointDelta: summary.RankPointDelta,
		Rank: rankJSON{
			Tier:       summary.Rank.Tier,
			Division:   summary.Rank.Division,
			RankPoints: summary.Rank.RankPoints,
			DivisionLP: summary.Rank.DivisionLP,
		},
		BaselineApproximate: summary.BaselineApproximate,
		NoGamesYet:          summary.NoGamesYet,
		Response:            summary.Response,
	})
}

// HandleOfflineRecord reports the last stored session.
// GET /v1/record/offline?summoner=&tag=[&game=]
func (s *Server) HandleOfflineRecord(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	summoner, tag := q.Get("summoner"), q.Get("tag")
	if summoner == "" || tag == "" {
		httpError(w, http.StatusBadRequest, "summoner and tag are required")
		return
	}

	summary, err := s.tracker.Offline(r.Context(), gameType(q.Get("game")), summoner, tag)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, offlineResponse{
		Found:          summary.Found,
		Wins:           summary.Wins,
		Losses:         summary.Losses,
		RankPointDelta: summary.RankPointDelta,
		Response:       summary.Response,
	})
}

type captureRequest struct {
	Summoner    string `json:"summoner"`
	Tag         string `json:"tag"`
	Region      string `json:"region"`
	StreamStart string `json:"stream_start"`
}

// HandleCapture records a starting baseline; meant to be hit by an external
// scheduler when the stream goes live.
// POST /v1/capture
func (s *Server) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Summoner == "" || req.Tag == "" {
		httpError(w, http.StatusBadRequest, "summoner and tag are required")
		return
	}
	streamStart, err := time.Parse(time.RFC3339, req.StreamStart)
	if err != nil {
		httpError(w, http.StatusBadRequest, "stream_start must be RFC3339")
		return
	}

	captured, err := s.capture.Capture(r.Context(), capture.Params{
		Summoner:    req.Summoner,
		Tag:         req.Tag,
		Region:      s.region(req.Region),
		StreamStart: streamStart.UTC(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"captured": captured})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	switch {
	case errors.Is(err, riot.ErrAccountNotFound):
		httpError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, riot.ErrUpstreamUnavailable), errors.Is(err, record.ErrMalformedMatch):
		logger.Error().Err(err).Msg("upstream failure")
		httpError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, repository.ErrStoreUnavailable):
		logger.Error().Err(err).Msg("store failure")
		httpError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error().Err(err).Msg("internal failure")
		httpError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) region(v string) string {
	if v == "" {
		return s.cfg.DefaultRegion
	}
	return v
}

func gameType(v string) domain.GameType {
	if v == "" {
		return domain.GameTypeLoL
	}
	return domain.GameType(v)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
