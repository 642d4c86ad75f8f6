package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"ladder-tracker/internal/config"
	"ladder-tracker/internal/database"
	"ladder-tracker/internal/ingest"
	"ladder-tracker/internal/rating"
	"ladder-tracker/internal/repository"
	"ladder-tracker/internal/resolver"
	"ladder-tracker/internal/service"

	"github.com/rs/zerolog"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{EloKFactor: 32, InitialRating: 1200, CommitTimeout: 5 * time.Second}
	logger := zerolog.Nop()
	accounts := repository.NewAccountRepository(db, logger)
	players := repository.NewPlayerRepository(db, logger)
	outcomes := repository.NewOutcomeRepository(db, logger)
	res := resolver.New(accounts, cfg, logger)
	calc := rating.NewCalculator(cfg.EloKFactor)
	coordinator := ingest.NewCoordinator(db, res, players, outcomes, calc, cfg, logger)

	return New(coordinator,
		service.NewLadderService(players, outcomes, logger),
		service.NewProfileService(players, outcomes, logger),
		service.NewStatsService(players, outcomes, logger),
		logger)
}

func postReport(t *testing.T, mux *http.ServeMux, payload reportPayload) (*httptest.ResponseRecorder, ingestResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v (body %s)", err, rec.Body.String())
	}
	return rec, resp
}

func validPayload() reportPayload {
	start := time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)
	return reportPayload{
		Participant0: participantPayload{
			Fingerprint:     "fp-http-a",
			ProfileName:     "Alpha",
			Faction:         "soviet",
			SelectedFaction: "soviet",
		},
		Participant1: participantPayload{
			Fingerprint:     "fp-http-b",
			ProfileName:     "Bravo",
			Faction:         "allies",
			SelectedFaction: "any",
		},
		Result:    "side0_won",
		StartTime: start,
		EndTime:   start.Add(10 * time.Minute),
		MapUID:    "map-1",
		MapTitle:  "Ore Lord",
	}
}

func TestHandleIngestCommitAndDuplicate(t *testing.T) {
	srv := testServer(t)
	mux := srv.Routes()

	rec, resp := postReport(t, mux, validPayload())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if resp.Status != "committed" {
		t.Fatalf("ingest status = %s, want committed", resp.Status)
	}
	if resp.NewRating0 != 1216 || resp.NewRating1 != 1184 {
		t.Errorf("ratings = %d/%d, want 1216/1184", resp.NewRating0, resp.NewRating1)
	}

	rec, resp = postReport(t, mux, validPayload())
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate status code = %d, want 200", rec.Code)
	}
	if resp.Status != "duplicate_ignored" {
		t.Errorf("duplicate status = %s, want duplicate_ignored", resp.Status)
	}
}

func TestHandleIngestRejection(t *testing.T) {
	srv := testServer(t)
	mux := srv.Routes()

	payload := validPayload()
	payload.EndTime = payload.StartTime

	rec, resp := postReport(t, mux, payload)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if resp.Status != "rejected" || resp.Reason != "invalid_timestamps" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleIngestBadResult(t *testing.T) {
	srv := testServer(t)
	mux := srv.Routes()

	payload := validPayload()
	payload.Result = "side2_won"

	rec, _ := postReport(t, mux, payload)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleLeaderboardAfterIngest(t *testing.T) {
	srv := testServer(t)
	mux := srv.Routes()

	if rec, _ := postReport(t, mux, validPayload()); rec.Code != http.StatusOK {
		t.Fatalf("seed ingest failed: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard status = %d, want 200", rec.Code)
	}

	var rows []service.LeaderboardRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("leaderboard rows = %d, want 2", len(rows))
	}
	if rows[0].ProfileName != "Alpha" || rows[0].Rating != 1216 {
		t.Errorf("top row = %+v", rows[0])
	}
}

func TestHandleProfileNotFound(t *testing.T) {
	srv := testServer(t)
	mux := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/players/nope", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleAuditClean(t *testing.T) {
	srv := testServer(t)
	mux := srv.Routes()

	if rec, _ := postReport(t, mux, validPayload()); rec.Code != http.StatusOK {
		t.Fatalf("seed ingest failed")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("audit status = %d, want 200", rec.Code)
	}

	var body struct {
		Clean bool `json:"clean"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !body.Clean {
		t.Errorf("audit not clean after single committed match: %s", rec.Body.String())
	}
}
