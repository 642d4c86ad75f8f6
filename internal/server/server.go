package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ladder-tracker/internal/domain"
	"ladder-tracker/internal/ingest"
	"ladder-tracker/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Server exposes the ingestion core and the ladder read side over JSON.
type Server struct {
	coordinator *ingest.Coordinator
	ladder      *service.LadderService
	profiles    *service.ProfileService
	stats       *service.StatsService
	logger      zerolog.Logger
}

func New(coordinator *ingest.Coordinator, ladder *service.LadderService, profiles *service.ProfileService, stats *service.StatsService, logger zerolog.Logger) *Server {
	return &Server{
		coordinator: coordinator,
		ladder:      ladder,
		profiles:    profiles,
		stats:       stats,
		logger:      logger,
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/reports", s.handleIngest)
	mux.HandleFunc("GET /api/v1/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /api/v1/games/latest", s.handleLatestGames)
	mux.HandleFunc("GET /api/v1/players/{id}", s.handleProfile)
	mux.HandleFunc("GET /api/v1/stats", s.handleGlobalStats)
	mux.HandleFunc("GET /api/v1/replays/{hash}", s.handleReplay)
	mux.HandleFunc("GET /api/v1/audit", s.handleAudit)
	return mux
}

type participantPayload struct {
	Fingerprint     string `json:"fingerprint"`
	ProfileName     string `json:"profile_name"`
	AvatarURL       string `json:"avatar_url"`
	Faction         string `json:"faction"`
	SelectedFaction string `json:"selected_faction"`
}

type reportPayload struct {
	Participant0 participantPayload `json:"participant0"`
	Participant1 participantPayload `json:"participant1"`
	Result       string             `json:"result"`
	StartTime    time.Time          `json:"start_time"`
	EndTime      time.Time          `json:"end_time"`
	Filename     string             `json:"filename"`
	MapUID       string             `json:"map_uid"`
	MapTitle     string             `json:"map_title"`
}

type ingestResponse struct {
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	Hash       string `json:"hash,omitempty"`
	ProfileID0 string `json:"profile_id0,omitempty"`
	ProfileID1 string `json:"profile_id1,omitempty"`
	NewRating0 int    `json:"new_rating0,omitempty"`
	NewRating1 int    `json:"new_rating1,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var payload reportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := payload.toDomain()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.coordinator.Ingest(r.Context(), report)
	if err != nil {
		var validationErr validator.ValidationErrors
		if errors.As(err, &validationErr) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("ingestion failed")
		s.writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	status := http.StatusOK
	if result.Status == domain.StatusRejected {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, ingestResponse{
		Status:     result.Status.String(),
		Reason:     string(result.Reason),
		Hash:       result.Hash,
		ProfileID0: result.ProfileID0,
		ProfileID1: result.ProfileID1,
		NewRating0: result.NewRating0,
		NewRating1: result.NewRating1,
	})
}

func (p reportPayload) toDomain() (domain.MatchReport, error) {
	var result domain.MatchResult
	switch p.Result {
	case "side0_won":
		result = domain.Side0Won
	case "side1_won":
		result = domain.Side1Won
	case "draw":
		result = domain.Draw
	default:
		return domain.MatchReport{}, errors.New("result must be side0_won, side1_won, or draw")
	}

	return domain.MatchReport{
		Participant0: domain.Participant{
			Fingerprint:     p.Participant0.Fingerprint,
			ProfileName:     p.Participant0.ProfileName,
			AvatarURL:       p.Participant0.AvatarURL,
			Faction:         p.Participant0.Faction,
			SelectedFaction: p.Participant0.SelectedFaction,
		},
		Participant1: domain.Participant{
			Fingerprint:     p.Participant1.Fingerprint,
			ProfileName:     p.Participant1.ProfileName,
			AvatarURL:       p.Participant1.AvatarURL,
			Faction:         p.Participant1.Faction,
			SelectedFaction: p.Participant1.SelectedFaction,
		},
		Result:    result,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Filename:  p.Filename,
		MapUID:    p.MapUID,
		MapTitle:  p.MapTitle,
	}, nil
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.ladder.Leaderboard(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleLatestGames(w http.ResponseWriter, r *http.Request) {
	rows, err := s.ladder.LatestGames(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load latest games")
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	page, err := s.profiles.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrProfileNotFound) {
		s.writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Global(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	filename, err := s.ladder.ReplayFilename(r.Context(), r.PathValue("hash"))
	if errors.Is(err, domain.ErrOutcomeNotFound) {
		s.writeError(w, http.StatusNotFound, "replay not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to look up replay")
		return
	}

	w.Header().Set("Content-Disposition", "attachment")
	http.ServeFile(w, r, filename)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	discrepancies, err := s.coordinator.AuditProjection(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "audit failed")
		return
	}

	lines := make([]string, len(discrepancies))
	for i, d := range discrepancies {
		lines[i] = d.String()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"clean":         len(discrepancies) == 0,
		"discrepancies": lines,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
