package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bodega/internal/config"
	"bodega/internal/game"
	"bodega/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	game *game.Service
	mux  *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		game: gameSvc,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1/communities/{community_id}", func(r chi.Router) {
		r.Get("/leaderboard", s.handleLeaderboard)

		r.Route("/actors/{actor_id}", func(r chi.Router) {
			r.Post("/", s.handleEnsureActor)
			r.Get("/", s.handleActorView)
			r.Get("/board", s.handleBoardView)
			r.Get("/market", s.handleMarketView)

			r.Post("/board/refresh", s.handleRefreshBoard)
			r.Post("/orders/{task_id}/accept", s.handleAcceptOrder)
			r.Post("/orders/{task_id}/serve", s.handleServeOrder)
			r.Post("/market/buy", s.handleBuyItem)
			r.Post("/market/sell", s.handleSellItem)
			r.Post("/craft", s.handleCraftRecipe)
			r.Post("/upgrades/buy", s.handleBuyUpgrade)
			r.Post("/staff/hire", s.handleHireStaff)
			r.Post("/transfer", s.handleTransferCoins)
		})
	})
}

func (s *Server) command(r *http.Request) game.Command {
	return game.Command{
		CommunityID: chi.URLParam(r, "community_id"),
		ActorID:     chi.URLParam(r, "actor_id"),
		RequestID:   idempotencyKey(r),
	}
}

func (s *Server) handleEnsureActor(w http.ResponseWriter, r *http.Request) {
	communityID := chi.URLParam(r, "community_id")
	actorID := chi.URLParam(r, "actor_id")
	if err := s.game.EnsureActor(r.Context(), communityID, actorID); err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"actor_id": actorID})
}

func (s *Server) handleActorView(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.ActorView(r.Context(), chi.URLParam(r, "community_id"), chi.URLParam(r, "actor_id"))
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBoardView(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.BoardView(r.Context(), chi.URLParam(r, "community_id"), chi.URLParam(r, "actor_id"))
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMarketView(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.MarketView(r.Context(), chi.URLParam(r, "community_id"), chi.URLParam(r, "actor_id"))
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	out, err := s.game.Leaderboard(r.Context(), chi.URLParam(r, "community_id"), limit)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": out})
}

func (s *Server) handleRefreshBoard(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.RefreshBoard(r.Context(), game.RefreshBoardInput{Command: s.command(r)})
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAcceptOrder(w http.ResponseWriter, r *http.Request) {
	in := game.AcceptOrderInput{Command: s.command(r), TaskID: chi.URLParam(r, "task_id")}
	out, err := s.game.AcceptOrder(r.Context(), in)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleServeOrder(w http.ResponseWriter, r *http.Request) {
	in := game.ServeOrderInput{Command: s.command(r), TaskID: chi.URLParam(r, "task_id")}
	out, err := s.game.ServeOrder(r.Context(), in)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBuyItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ItemID   string `json:"item_id"`
		Quantity int    `json:"quantity"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in := game.TradeInput{Command: s.command(r), ItemID: body.ItemID, Quantity: body.Quantity}
	out, err := s.game.BuyItem(r.Context(), in)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSellItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ItemID   string `json:"item_id"`
		Quantity int    `json:"quantity"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in := game.TradeInput{Command: s.command(r), ItemID: body.ItemID, Quantity: body.Quantity}
	out, err := s.game.SellItem(r.Context(), in)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCraftRecipe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RecipeID string `json:"recipe_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in := game.CraftInput{Command: s.command(r), RecipeID: body.RecipeID}
	out, err := s.game.CraftRecipe(r.Context(), in)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBuyUpgrade(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UpgradeID string `json:"upgrade_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in := game.BuyUpgradeInput{Command: s.command(r), UpgradeID: body.UpgradeID}
	out, err := s.game.BuyUpgrade(r.Context(), in)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHireStaff(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StaffID string `json:"staff_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in := game.HireStaffInput{Command: s.command(r), StaffID: body.StaffID}
	out, err := s.game.HireStaff(r.Context(), in)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTransferCoins(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ToActorID string `json:"to_actor_id"`
		Amount    int64  `json:"amount"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in := game.TransferInput{Command: s.command(r), ToActorID: body.ToActorID, Amount: body.Amount}
	out, err := s.game.TransferCoins(r.Context(), in)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// writeGameError maps engine errors to transport status codes. Lock and
// revision contention are retryable conflicts, not failures.
func (s *Server) writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrLockBusy), errors.Is(err, store.ErrRevisionConflict):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "retryable": true})
	case game.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case game.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("command failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}
