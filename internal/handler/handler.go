// Package handler exposes the layer store over POST JSON endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"MapLayerStore/internal/logger"
	"MapLayerStore/internal/model"
	"MapLayerStore/internal/resolver"
	"MapLayerStore/internal/store"
)

// LayerStore is the part of *store.Store the endpoints use.
type LayerStore interface {
	ListPortals(ctx context.Context) ([]model.Portal, error)
	EnsurePortal(ctx context.Context, code string, title *string) (model.Portal, error)
	CreatePortal(ctx context.Context, code string, title *string) (model.Portal, error)
	GetPortal(ctx context.Context, code string) (model.Portal, error)
	DeletePortal(ctx context.Context, code string) (store.DeleteReport, error)
	CreateLayer(ctx context.Context, spec model.LayerSpec) (model.LayerDetail, error)
	UpdateLayer(ctx context.Context, spec model.LayerSpec) (model.LayerDetail, error)
	GetLayer(ctx context.Context, portalCode, key string) (model.LayerDetail, error)
	ListLayers(ctx context.Context, portalCode string) ([]model.Layer, error)
	DeleteLayer(ctx context.Context, portalCode, layerKey string) (store.DeleteReport, error)
	CloneLayerConfig(ctx context.Context, portalCode, sourceKey string, targetKeys []string) (store.CloneReport, error)
	PromoteLayers(ctx context.Context, req store.PromoteRequest) (store.PromoteResult, error)
	GetPortalTree(ctx context.Context, portalCode string) ([]model.TreeNode, error)
	ReplacePortalTree(ctx context.Context, portalCode string, nodes []model.TreeNode) error
	GetGridConfig(ctx context.Context, portalCode, layerKey string) (model.GridConfig, error)
	ReplaceGridConfig(ctx context.Context, portalCode, layerKey string, cfg model.GridConfig) error
	AddStyle(ctx context.Context, portalCode, layerKey string, st model.Style) error
	RemoveStyle(ctx context.Context, portalCode, layerKey, name string) error
	SetSwitchChildren(ctx context.Context, portalCode, parentKey string, childKeys []string) error
	SetGlobalDefault(ctx context.Context, portalCode string, d model.GlobalDefault) error
	SetLayerTypeDefaults(ctx context.Context, portalCode string, d model.TypeDefaults) error
	SetOverride(ctx context.Context, portalCode string, o model.Override) error
}

// Documents renders portal documents; *resolver.Resolver satisfies it.
type Documents interface {
	Document(ctx context.Context, portal, env string) (*resolver.Document, error)
	EffectiveLayer(ctx context.Context, portal, key, env string) (map[string]any, error)
}

type Handler struct {
	store LayerStore
	docs  Documents
	// env is used when a document request names no environment.
	env string
}

func New(st LayerStore, docs Documents, defaultEnv string) *Handler {
	return &Handler{store: st, docs: docs, env: defaultEnv}
}

// StatusFor maps store errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrPortalNotFound), errors.Is(err, store.ErrLayerNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateLayer), errors.Is(err, store.ErrDuplicatePortal), errors.Is(err, store.ErrConstraint):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidLayer), errors.Is(err, store.ErrInvalidRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// post wraps an endpoint body: POST only, JSON in, JSON out.
func post[Req any](endpoint string, fn func(ctx context.Context, req Req) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			logger.Warn("method_not_allowed", map[string]any{
				"endpoint": endpoint,
				"method":   r.Method,
			})
			http.Error(w, "Only POST allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Warn("read_body_failed", map[string]any{
				"endpoint": endpoint,
				"error":    err.Error(),
			})
			http.Error(w, "Failed to read body: "+err.Error(), http.StatusBadRequest)
			return
		}
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				logger.Warn("invalid_json", map[string]any{
					"endpoint": endpoint,
					"error":    err.Error(),
				})
				http.Error(w, "Invalid JSON body: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
		logger.Debug("request", map[string]any{
			"endpoint": endpoint,
			"payload":  json.RawMessage(body),
		})

		result, err := fn(r.Context(), req)
		if err != nil {
			status := StatusFor(err)
			fields := map[string]any{"endpoint": endpoint, "status": status, "error": err.Error()}
			if status >= http.StatusInternalServerError {
				logger.Error("handler_error", fields)
			} else {
				logger.Warn("handler_error", fields)
			}
			http.Error(w, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.Error("write_response_failed", map[string]any{
				"endpoint": endpoint,
				"error":    err.Error(),
			})
		}
	}
}

type portalRequest struct {
	Portal string `json:"portal"`
}

type ensurePortalRequest struct {
	Code  string  `json:"code"`
	Title *string `json:"title"`
}

type layerRequest struct {
	Portal   string `json:"portal"`
	LayerKey string `json:"layerKey"`
	Env      string `json:"env"`
}

type cloneRequest struct {
	Portal  string   `json:"portal"`
	Source  string   `json:"source"`
	Targets []string `json:"targets"`
}

type documentRequest struct {
	Portal string `json:"portal"`
	Env    string `json:"env"`
}

type treeRequest struct {
	Portal string           `json:"portal"`
	Nodes  []model.TreeNode `json:"nodes"`
}

type gridRequest struct {
	Portal   string           `json:"portal"`
	LayerKey string           `json:"layerKey"`
	Config   model.GridConfig `json:"config"`
}

type overrideRequest struct {
	Portal   string         `json:"portal"`
	Override model.Override `json:"override"`
}

type styleRequest struct {
	Portal   string      `json:"portal"`
	LayerKey string      `json:"layerKey"`
	Style    model.Style `json:"style"`
}

type removeStyleRequest struct {
	Portal   string `json:"portal"`
	LayerKey string `json:"layerKey"`
	Name     string `json:"name"`
}

type switchRequest struct {
	Portal   string   `json:"portal"`
	LayerKey string   `json:"layerKey"`
	Children []string `json:"children"`
}

// defaultsRequest sets one global default or one layer type's defaults.
type defaultsRequest struct {
	Portal    string               `json:"portal"`
	Global    *model.GlobalDefault `json:"global"`
	LayerType *model.TypeDefaults  `json:"layerType"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (h *Handler) envOr(env string) string {
	if env != "" {
		return env
	}
	return h.env
}

func (h *Handler) ListPortals() http.HandlerFunc {
	return post("/api/portals/list", func(ctx context.Context, _ struct{}) (any, error) {
		return h.store.ListPortals(ctx)
	})
}

func (h *Handler) EnsurePortal() http.HandlerFunc {
	return post("/api/portals/ensure", func(ctx context.Context, req ensurePortalRequest) (any, error) {
		return h.store.EnsurePortal(ctx, req.Code, req.Title)
	})
}

func (h *Handler) CreatePortal() http.HandlerFunc {
	return post("/api/portals/create", func(ctx context.Context, req ensurePortalRequest) (any, error) {
		return h.store.CreatePortal(ctx, req.Code, req.Title)
	})
}

func (h *Handler) GetPortal() http.HandlerFunc {
	return post("/api/portals/get", func(ctx context.Context, req portalRequest) (any, error) {
		return h.store.GetPortal(ctx, req.Portal)
	})
}

func (h *Handler) DeletePortal() http.HandlerFunc {
	return post("/api/portals/delete", func(ctx context.Context, req portalRequest) (any, error) {
		return h.store.DeletePortal(ctx, req.Portal)
	})
}

func (h *Handler) CreateLayer() http.HandlerFunc {
	return post("/api/layers/create", func(ctx context.Context, spec model.LayerSpec) (any, error) {
		return h.store.CreateLayer(ctx, spec)
	})
}

func (h *Handler) UpdateLayer() http.HandlerFunc {
	return post("/api/layers/update", func(ctx context.Context, spec model.LayerSpec) (any, error) {
		return h.store.UpdateLayer(ctx, spec)
	})
}

func (h *Handler) GetLayer() http.HandlerFunc {
	return post("/api/layers/get", func(ctx context.Context, req layerRequest) (any, error) {
		return h.store.GetLayer(ctx, req.Portal, req.LayerKey)
	})
}

func (h *Handler) ListLayers() http.HandlerFunc {
	return post("/api/layers/list", func(ctx context.Context, req portalRequest) (any, error) {
		return h.store.ListLayers(ctx, req.Portal)
	})
}

func (h *Handler) DeleteLayer() http.HandlerFunc {
	return post("/api/layers/delete", func(ctx context.Context, req layerRequest) (any, error) {
		return h.store.DeleteLayer(ctx, req.Portal, req.LayerKey)
	})
}

func (h *Handler) CloneLayerConfig() http.HandlerFunc {
	return post("/api/layers/clone", func(ctx context.Context, req cloneRequest) (any, error) {
		return h.store.CloneLayerConfig(ctx, req.Portal, req.Source, req.Targets)
	})
}

func (h *Handler) PromoteLayers() http.HandlerFunc {
	return post("/api/layers/promote", func(ctx context.Context, req store.PromoteRequest) (any, error) {
		return h.store.PromoteLayers(ctx, req)
	})
}

func (h *Handler) EffectiveLayer() http.HandlerFunc {
	return post("/api/layers/effective", func(ctx context.Context, req layerRequest) (any, error) {
		return h.docs.EffectiveLayer(ctx, req.Portal, req.LayerKey, h.envOr(req.Env))
	})
}

func (h *Handler) Document() http.HandlerFunc {
	return post("/api/document", func(ctx context.Context, req documentRequest) (any, error) {
		return h.docs.Document(ctx, req.Portal, h.envOr(req.Env))
	})
}

func (h *Handler) GetTree() http.HandlerFunc {
	return post("/api/tree/get", func(ctx context.Context, req portalRequest) (any, error) {
		return h.store.GetPortalTree(ctx, req.Portal)
	})
}

func (h *Handler) ReplaceTree() http.HandlerFunc {
	return post("/api/tree/replace", func(ctx context.Context, req treeRequest) (any, error) {
		return okResponse{OK: true}, h.store.ReplacePortalTree(ctx, req.Portal, req.Nodes)
	})
}

func (h *Handler) GetGrid() http.HandlerFunc {
	return post("/api/grid/get", func(ctx context.Context, req layerRequest) (any, error) {
		return h.store.GetGridConfig(ctx, req.Portal, req.LayerKey)
	})
}

func (h *Handler) ReplaceGrid() http.HandlerFunc {
	return post("/api/grid/replace", func(ctx context.Context, req gridRequest) (any, error) {
		return okResponse{OK: true}, h.store.ReplaceGridConfig(ctx, req.Portal, req.LayerKey, req.Config)
	})
}

func (h *Handler) SetOverride() http.HandlerFunc {
	return post("/api/overrides/set", func(ctx context.Context, req overrideRequest) (any, error) {
		return okResponse{OK: true}, h.store.SetOverride(ctx, req.Portal, req.Override)
	})
}

func (h *Handler) AddStyle() http.HandlerFunc {
	return post("/api/styles/add", func(ctx context.Context, req styleRequest) (any, error) {
		return okResponse{OK: true}, h.store.AddStyle(ctx, req.Portal, req.LayerKey, req.Style)
	})
}

func (h *Handler) RemoveStyle() http.HandlerFunc {
	return post("/api/styles/remove", func(ctx context.Context, req removeStyleRequest) (any, error) {
		return okResponse{OK: true}, h.store.RemoveStyle(ctx, req.Portal, req.LayerKey, req.Name)
	})
}

func (h *Handler) SetSwitchChildren() http.HandlerFunc {
	return post("/api/switch/set", func(ctx context.Context, req switchRequest) (any, error) {
		return okResponse{OK: true}, h.store.SetSwitchChildren(ctx, req.Portal, req.LayerKey, req.Children)
	})
}

func (h *Handler) SetDefaults() http.HandlerFunc {
	return post("/api/defaults/set", func(ctx context.Context, req defaultsRequest) (any, error) {
		switch {
		case req.Global != nil && req.LayerType != nil:
			return nil, fmt.Errorf("%w: set either global or layerType, not both", store.ErrInvalidRequest)
		case req.Global != nil:
			return okResponse{OK: true}, h.store.SetGlobalDefault(ctx, req.Portal, *req.Global)
		case req.LayerType != nil:
			return okResponse{OK: true}, h.store.SetLayerTypeDefaults(ctx, req.Portal, *req.LayerType)
		}
		return nil, fmt.Errorf("%w: global or layerType is required", store.ErrInvalidRequest)
	})
}
