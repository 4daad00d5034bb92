package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/game-provider-platform/internal/games/engine"
	"github.com/radieske/game-provider-platform/internal/settlement/dto"
	"github.com/radieske/game-provider-platform/internal/shared/apperr"
	"github.com/radieske/game-provider-platform/internal/shared/auth"
	"github.com/radieske/game-provider-platform/internal/shared/httpx"
)

// Service is the settlement surface served over HTTP.
type Service interface {
	ListGames(kind engine.Kind) ([]dto.GameInfo, error)
	GameConfig(gameCode string) (dto.GameConfig, error)
	Init(ctx context.Context, operatorID string, req dto.InitRequest) (dto.InitResponse, error)
	Play(ctx context.Context, operatorID string, req dto.PlayRequest) (json.RawMessage, error)
	Verify(ctx context.Context, operatorID, roundID string) (dto.VerifyResponse, error)
	Recompute(req dto.FairnessVerifyRequest) (dto.FairnessVerifyResponse, error)
}

type Server struct {
	log *zap.Logger
	svc Service
}

func NewServer(log *zap.Logger, svc Service) *Server { return &Server{log: log, svc: svc} }

// Routes mounts the game endpoints. The operator comes from the auth
// middleware installed by the caller.
func (s *Server) Routes(r chi.Router) {
	r.Get("/games", s.listGames)                           // ?kind=SLOT|CRASH|DICE
	r.Post("/games/init", s.initRound)                     // opens a round
	r.Post("/games/play", s.play)                          // settles one action
	r.Get("/games/rounds/{id}/verify", s.verify)           // seed revealed once settled
	r.Get("/provider/games/{gameId}/config", s.gameConfig) // paytable, reels, ranges
	r.Post("/provider/fairness/verify", s.recompute)       // recompute from seeds
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	kind := engine.Kind(strings.ToUpper(r.URL.Query().Get("kind")))
	games, err := s.svc.ListGames(kind)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (s *Server) gameConfig(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.GameConfig(chi.URLParam(r, "gameId"))
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) initRound(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := auth.OperatorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, s.log, apperr.Validation("operator is required"))
		return
	}
	var req dto.InitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	out, err := s.svc.Init(r.Context(), operatorID, req)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

func (s *Server) play(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := auth.OperatorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, s.log, apperr.Validation("operator is required"))
		return
	}
	var req dto.PlayRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	body, err := s.svc.Play(r.Context(), operatorID, req)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteRaw(w, http.StatusOK, body)
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := auth.OperatorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, s.log, apperr.Validation("operator is required"))
		return
	}
	out, err := s.svc.Verify(r.Context(), operatorID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) recompute(w http.ResponseWriter, r *http.Request) {
	var req dto.FairnessVerifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	out, err := s.svc.Recompute(req)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
