package seed

import (
	"context"
	"errors"
	"fmt"

	"MapLayerStore/internal/logger"
	"MapLayerStore/internal/model"
	"MapLayerStore/internal/store"
)

// Writer runs a function inside one store transaction; *store.Store satisfies it.
type Writer interface {
	Write(ctx context.Context, fn func(w *store.Writer) error) error
}

type Importer struct {
	st Writer
}

func NewImporter(st Writer) *Importer {
	return &Importer{st: st}
}

type Report struct {
	Portal  string   `json:"portal"`
	Created []string `json:"created"`
	Updated []string `json:"updated"`
	Linked  int      `json:"linked"`
	Skipped []string `json:"skipped,omitempty"`
}

func (r *Report) record(key string, created bool) {
	if created {
		r.Created = append(r.Created, key)
	} else {
		r.Updated = append(r.Updated, key)
	}
}

// ImportDocument writes a portal document in one transaction: the portal,
// its defaults, every top-level layer, then inline switch children and the
// switch links. Nothing is written when any layer fails validation.
func (im *Importer) ImportDocument(ctx context.Context, portal string, doc *PortalDocument) (Report, error) {
	report := Report{Portal: portal, Created: []string{}, Updated: []string{}}
	p, err := buildPlan(portal, doc)
	if err != nil {
		return report, fmt.Errorf("%w: %v", store.ErrInvalidLayer, err)
	}
	err = im.st.Write(ctx, func(w *store.Writer) error {
		if _, err := w.EnsurePortal(ctx, portal, nil); err != nil {
			return err
		}
		if err := w.ReplaceDefaults(ctx, portal, p.globals, p.types); err != nil {
			return err
		}
		for _, specs := range [][]model.LayerSpec{p.top, p.inline} {
			for _, spec := range specs {
				_, created, err := w.UpsertLayer(ctx, spec)
				if err != nil {
					return fmt.Errorf("layer %q: %w", spec.Layer.Key, err)
				}
				report.record(spec.Layer.Key, created)
			}
		}
		for _, parent := range p.order {
			if err := w.SetSwitchChildren(ctx, portal, parent, p.links[parent]); err != nil {
				return fmt.Errorf("switch layer %q: %w", parent, err)
			}
			report.Linked += len(p.links[parent])
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	logger.Info("portal_document_imported", map[string]any{
		"portal": portal, "created": len(report.Created), "updated": len(report.Updated), "linked": report.Linked,
	})
	return report, nil
}

// ImportGrids replaces the grid config of every seeded layer. With
// skipMissing, seeds naming an unknown layer are reported instead of failing.
func (im *Importer) ImportGrids(ctx context.Context, portal string, seeds []GridSeed, skipMissing bool) (Report, error) {
	report := Report{Portal: portal, Created: []string{}, Updated: []string{}}
	err := im.st.Write(ctx, func(w *store.Writer) error {
		for _, s := range seeds {
			err := w.ReplaceGridConfig(ctx, portal, s.LayerKey, s.Config)
			if skipMissing && errors.Is(err, store.ErrLayerNotFound) {
				logger.Warn("grid_seed_layer_missing", map[string]any{"portal": portal, "layer_key": s.LayerKey, "source": s.Source})
				report.Skipped = append(report.Skipped, s.LayerKey)
				continue
			}
			if err != nil {
				return fmt.Errorf("grid %q from %s: %w", s.LayerKey, s.Source, err)
			}
			report.Updated = append(report.Updated, s.LayerKey)
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	logger.Info("grid_seeds_imported", map[string]any{"portal": portal, "updated": len(report.Updated), "skipped": len(report.Skipped)})
	return report, nil
}

// ImportTree replaces the portal's navigation tree.
func (im *Importer) ImportTree(ctx context.Context, portal string, nodes []model.TreeNode) error {
	err := im.st.Write(ctx, func(w *store.Writer) error {
		return w.ReplacePortalTree(ctx, portal, nodes)
	})
	if err != nil {
		return err
	}
	logger.Info("portal_tree_imported", map[string]any{"portal": portal, "leaves": len(model.LeafKeys(nodes))})
	return nil
}
