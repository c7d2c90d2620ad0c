// Command server runs the co-op platformer game server.
//
// Connection flow:
//  1. Client connects via WebSocket to /ws.
//  2. Client sends createRoom (becoming host) or joinRoom (with a
//     roomCode it already knows) as its first message.
//  3. The room broadcasts roomState to every member on any lobby change,
//     then gameState every tick once the host starts the round.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/platformco/coop-server/config"
	"github.com/platformco/coop-server/internal/registry"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)

	hub := registry.NewHub(cfg, logger)
	startedAt := time.Now()

	go cleanupSweep(hub, logger)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(logger))

	router.Get("/", handleRoot)
	router.Get("/health", handleHealth(hub, cfg, startedAt))
	router.Get("/ws", handleWebSocket(hub, cfg, logger))

	handler := withCORS(cfg, router)

	addr := cfg.Host + ":" + itoa(cfg.Port)
	logger.Info().
		Str("addr", addr).
		Str("env", cfg.Env).
		Int("tick_rate_hz", cfg.TickRateHz).
		Msg("starting coop-server")

	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

// newLogger mirrors the teacher's env-driven log setup: a human-readable
// console writer outside production, structured JSON on a real deploy.
func newLogger(cfg *config.ServerConfig) zerolog.Logger {
	if cfg.IsProduction() {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(console).With().Timestamp().Logger()
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// withCORS applies the origin policy of spec §6: no-Origin requests
// (native clients, curl) always pass, development allows any origin, and
// production allows only ClientURL's exact entries plus any *.vercel.app
// preview deployment.
func withCORS(cfg *config.ServerConfig, handler http.Handler) http.Handler {
	allowed := cfg.AllowedOrigins()
	isProd := cfg.IsProduction()

	c := cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			if origin == "" {
				return true
			}
			if !isProd {
				return true
			}
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return hasVercelSuffix(origin)
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(handler)
}

func hasVercelSuffix(origin string) bool {
	const suffix = ".vercel.app"
	if len(origin) <= len(suffix) {
		return false
	}
	return origin[len(origin)-len(suffix):] == suffix
}

// handleRoot serves the bare liveness probe spec §6 requires at the root
// path, distinct from the richer /health payload.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"message":"Game Server Running"}`))
}

// handleHealth reports process and room-table status for ops dashboards
// (spec §6).
func handleHealth(hub *registry.Hub, cfg *config.ServerConfig, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, players := hub.Stats()
		allowed := cfg.AllowedOrigins()
		if allowed == nil {
			allowed = []string{}
		}

		body := map[string]interface{}{
			"status":         "ok",
			"env":            cfg.Env,
			"uptime":         time.Since(startedAt).Seconds(),
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
			"rooms":          rooms,
			"players":        players,
			"tickRate":       cfg.TickRateHz,
			"allowedOrigins": allowed,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func cleanupSweep(hub *registry.Hub, logger zerolog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if removed := hub.CleanupClosedRooms(); removed > 0 {
			logger.Info().Int("removed", removed).Msg("swept closed rooms")
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
