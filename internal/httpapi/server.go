package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"profiled/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *manager.Manager implements it.
type Service interface {
	Status(ctx context.Context) types.StatusResponse
	ListProfiles() types.ProfilesResponse
	Switch(ctx context.Context, profileID string) (types.SwitchResponse, error)
	RecommendProfiles(ctx context.Context) (types.RecommendationsResponse, error)
	ReloadProfiles() types.ReloadResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if c := corsMiddleware(); c != nil {
		r.Use(c)
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/models", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			writeJSON(w, http.StatusOK, svc.Status(ctx))
		})

		r.Get("/profiles", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.ListProfiles())
		})

		r.Post("/switch", func(w http.ResponseWriter, r *http.Request) {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
				writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			var req types.SwitchRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			id := strings.TrimSpace(req.ProfileID)
			if id == "" {
				writeJSONError(w, http.StatusBadRequest, "profile_id is required")
				return
			}
			ctx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			resp, err := svc.Switch(ctx, id)
			if err != nil {
				status := statusFor(err)
				incrementSwitchRejected(status)
				writeJSONError(w, status, err.Error())
				return
			}
			// No operation id means the profile was already active.
			status := http.StatusAccepted
			if resp.OperationID == "" {
				status = http.StatusOK
			}
			writeJSON(w, status, resp)
		})

		r.Get("/hardware-recommendations", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			resp, err := svc.RecommendProfiles(ctx)
			if err != nil {
				writeJSONError(w, statusFor(err), err.Error())
				return
			}
			writeJSON(w, http.StatusOK, resp)
		})

		r.Post("/reload", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.ReloadProfiles())
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}
