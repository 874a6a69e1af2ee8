// Package main provides the game server binary: the combat session backend
// with its websocket gateway and lobby-facing HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ravenfell/gametable/internal/auth"
	"github.com/ravenfell/gametable/internal/config"
	"github.com/ravenfell/gametable/internal/game/battlefield"
	"github.com/ravenfell/gametable/internal/game/lobby"
	"github.com/ravenfell/gametable/internal/game/registry"
	"github.com/ravenfell/gametable/internal/gateway"
	"github.com/ravenfell/gametable/internal/observability"
	"github.com/ravenfell/gametable/internal/server"
	"github.com/ravenfell/gametable/internal/storage/mongostore"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server", zap.String("addr", cfg.Server.Addr()))

	dbStart := time.Now()
	store, err := mongostore.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("connecting to document store", zap.Error(err))
	}
	logger.Info("document store ready",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	tokens := auth.NewTokenService(cfg.Auth)
	reg := registry.New(logger, cfg.Websocket.SendBuffer)
	cooker := battlefield.NewCooker(store, store, logger)
	lobbies := lobby.NewService(store, cooker, reg, logger)
	admission := gateway.NewAdmission(reg, tokens, logger)

	mux := http.NewServeMux()
	mux.Handle("/combat", gateway.NewHandler(admission, cfg.Websocket, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/login", loginHandler(store, tokens, logger))
	mux.HandleFunc("/api/combats", combatsHandler(lobbies, tokens, logger))

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: mux,
	}

	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)

	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			logger.Info("http server listening", zap.String("addr", cfg.Server.Addr()))
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		},
	})

	lifecycle.Add("mongostore", &server.FuncService{
		StartFn: func() error {
			select {} // nothing to run; held open for ordered shutdown
		},
		StopFn: func() {
			if err := store.Close(context.Background()); err != nil {
				logger.Warn("closing document store", zap.Error(err))
			}
		},
	})

	logger.Info("game server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// loginHandler authenticates handle/password credentials and returns an
// access token for the socket gateway.
func loginHandler(store *mongostore.Store, tokens *auth.TokenService, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		Handle   string `json:"handle"`
		Password string `json:"password"`
	}
	type response struct {
		Token string `json:"token"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		user, err := store.Authenticate(r.Context(), req.Handle, req.Password)
		if err != nil {
			if errors.Is(err, mongostore.ErrInvalidCredentials) {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			logger.Error("authenticating user", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		token, err := tokens.IssueAccessToken(user.ID)
		if err != nil {
			logger.Error("issuing access token", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, response{Token: token}, logger)
	}
}

// combatsHandler serves the lobby combat surface: POST creates a combat for
// the authenticated gm, GET lists the lobby's live combat summaries.
func combatsHandler(lobbies *lobby.Service, tokens *auth.TokenService, logger *zap.Logger) http.HandlerFunc {
	type createRequest struct {
		LobbyID    string                  `json:"lobby_id"`
		Nickname   string                  `json:"nickname"`
		PresetID   string                  `json:"preset_id,omitempty"`
		Placements []battlefield.Placement `json:"placements,omitempty"`
		PlayerIDs  []string                `json:"player_ids"`
	}
	type createResponse struct {
		SessionID string `json:"session_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := tokens.VerifyAccessToken(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodGet:
			lobbyID := r.URL.Query().Get("lobby")
			if lobbyID == "" {
				http.Error(w, "missing lobby parameter", http.StatusBadRequest)
				return
			}
			writeJSON(w, lobbies.Summaries(r.Context(), lobbyID), logger)

		case http.MethodPost:
			var req createRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "malformed request body", http.StatusBadRequest)
				return
			}

			input := battlefield.Input{}
			if req.PresetID != "" {
				input.Importable = &battlefield.Importable{PresetID: req.PresetID}
			} else {
				input.Requested = &battlefield.Requested{Placements: req.Placements}
			}

			id, err := lobbies.CreateCombat(r.Context(), req.LobbyID, req.Nickname, input, claims.SubjectID, req.PlayerIDs)
			if err != nil {
				switch {
				case errors.Is(err, lobby.ErrLobbyNotFound):
					http.Error(w, err.Error(), http.StatusNotFound)
				case errors.Is(err, lobby.ErrNotOrganizer):
					http.Error(w, err.Error(), http.StatusForbidden)
				case errors.Is(err, battlefield.ErrDuplicateSquare),
					errors.Is(err, battlefield.ErrInvalidInput),
					errors.Is(err, battlefield.ErrUnknownSource),
					errors.Is(err, battlefield.ErrEntityNotFound),
					errors.Is(err, battlefield.ErrPresetNotFound):
					http.Error(w, err.Error(), http.StatusBadRequest)
				default:
					logger.Error("creating combat", zap.Error(err))
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
				return
			}
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, createResponse{SessionID: id}, logger)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func writeJSON(w http.ResponseWriter, v any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing response", zap.Error(err))
	}
}
