package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/parlay-settlement/internal/settlement-service/dto"
	"github.com/radieske/parlay-settlement/internal/settlement-service/engine"
	"github.com/radieske/parlay-settlement/internal/settlement-service/repo"
	"github.com/radieske/parlay-settlement/internal/settlement-service/stats"
)

const maxBody = 64 << 10

type Settler interface {
	Settle(ctx context.Context, scope engine.Scope) (engine.Summary, error)
}

type SummaryReader interface {
	Last(ctx context.Context) (engine.Summary, bool, error)
}

type StatsReader interface {
	OwnerStats(ctx context.Context, ownerID string) (stats.OwnerStats, error)
}

// API expõe o gatilho de liquidação e as consultas de apoio.
// Token vazio desliga a autenticação (apenas ENV=local, ver config.Validate).
// O /ws tem credencial própria: quem só escuta não dispara passadas.
type API struct {
	Log       *zap.Logger
	Settler   Settler
	Summaries SummaryReader
	Stats     StatsReader
	Token     string
	WS        http.HandlerFunc // opcional
	WSToken   string
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(requireToken(a.Token, "X-Settlement-Token", false))
		r.Get("/v1/settlement/run", a.run)
		r.Post("/v1/settlement/run", a.run)
		r.Get("/v1/settlement/last", a.last)
		r.Get("/v1/owners/{ownerId}/stats", a.ownerStats)
	})

	if a.WS != nil {
		// navegador não manda header no handshake: aceita ?token=
		r.With(requireToken(a.WSToken, "X-WS-Token", true)).Get("/ws", a.WS)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

// requireToken roda antes de qualquer acesso ao banco
func requireToken(secret, header string, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(header)
			if got == "" {
				got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if got == "" && allowQuery {
				got = r.URL.Query().Get("token")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// run dispara uma passada; rodadas via ?round=R1&round=R2 e/ou corpo {"rounds":[...]}
func (a *API) run(w http.ResponseWriter, r *http.Request) {
	var req dto.RunRequest
	if r.Method == http.MethodPost && r.Body != nil {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
			return
		}
	}
	q := r.URL.Query()
	req.Rounds = append(req.Rounds, q["round"]...)
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		req.Limit = n
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sum, err := a.Settler.Settle(r.Context(), engine.Scope{Rounds: req.Rounds, Limit: req.Limit})
	switch {
	case errors.Is(err, engine.ErrInvalidScope):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		a.Log.Error("settlement run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) last(w http.ResponseWriter, r *http.Request) {
	sum, ok, err := a.Summaries.Last(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no settlement pass recorded")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) ownerStats(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerId")
	s, err := a.Stats.OwnerStats(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}
