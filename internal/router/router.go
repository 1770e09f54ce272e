package router

import (
	"net/http"

	"MapLayerStore/internal/config"
	"MapLayerStore/internal/handler"
	"MapLayerStore/internal/logger"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// InitRoutes registers every API endpoint on mux.
func InitRoutes(mux *http.ServeMux, cfg *config.Config, h *handler.Handler) {
	routes := map[string]http.HandlerFunc{
		"/api/portals/list":     h.ListPortals(),
		"/api/portals/ensure":   h.EnsurePortal(),
		"/api/portals/create":   h.CreatePortal(),
		"/api/portals/get":      h.GetPortal(),
		"/api/portals/delete":   h.DeletePortal(),
		"/api/layers/create":    h.CreateLayer(),
		"/api/layers/update":    h.UpdateLayer(),
		"/api/layers/get":       h.GetLayer(),
		"/api/layers/list":      h.ListLayers(),
		"/api/layers/delete":    h.DeleteLayer(),
		"/api/layers/clone":     h.CloneLayerConfig(),
		"/api/layers/promote":   h.PromoteLayers(),
		"/api/layers/effective": h.EffectiveLayer(),
		"/api/document":         h.Document(),
		"/api/tree/get":         h.GetTree(),
		"/api/tree/replace":     h.ReplaceTree(),
		"/api/grid/get":         h.GetGrid(),
		"/api/grid/replace":     h.ReplaceGrid(),
		"/api/styles/add":       h.AddStyle(),
		"/api/styles/remove":    h.RemoveStyle(),
		"/api/switch/set":       h.SetSwitchChildren(),
		"/api/defaults/set":     h.SetDefaults(),
		"/api/overrides/set":    h.SetOverride(),
	}
	for path, fn := range routes {
		mux.HandleFunc(path, withCORS(cfg.CORS.AllowOrigin, cfg.CORS.AllowCredentials, withLogging(fn)))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging tags the request with an id, unless the caller sent one, and
// logs the response status at a level matching it.
func withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		fields := map[string]any{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     sw.status,
		}
		switch {
		case sw.status >= 500:
			logger.Error("response", fields)
		case sw.status >= 400:
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	}
}
