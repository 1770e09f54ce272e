package store

import (
	"context"
	"fmt"

	"MapLayerStore/internal/logger"
)

type CloneReport struct {
	Source  string       `json:"source"`
	Targets []string     `json:"targets"`
	Cleared []TableCount `json:"cleared"`
	Copied  []TableCount `json:"copied"`
}

// clearConfigSteps wipe what layerConfigSteps write, edits before their columns.
var clearConfigSteps = stepsFor("GridColumnEdit", "GridColumns", "GridSorters", "GridFilterDefinitions", "GridMData", "LayerStyles")

// CloneLayerConfig replaces the grid and style configuration of every target
// with a copy of the source's. Repeating it leaves the same rows behind.
func (w *Writer) CloneLayerConfig(ctx context.Context, portalCode, sourceKey string, targetKeys []string) (CloneReport, error) {
	report := CloneReport{Source: sourceKey, Targets: targetKeys}
	if len(targetKeys) == 0 {
		return report, fmt.Errorf("%w: at least one target layer is required", ErrInvalidRequest)
	}
	seen := map[string]bool{}
	for _, k := range targetKeys {
		if k == sourceKey {
			return report, fmt.Errorf("%w: target %q is the source layer", ErrInvalidRequest, k)
		}
		if seen[k] {
			return report, fmt.Errorf("%w: duplicate target %q", ErrInvalidRequest, k)
		}
		seen[k] = true
	}
	pid, err := portalID(ctx, w.q, portalCode)
	if err != nil {
		return report, err
	}
	src, err := findLayer(ctx, w.q, pid, sourceKey)
	if err != nil {
		return report, err
	}
	targets, err := layerIDs(ctx, w.q, pid, targetKeys)
	if err != nil {
		return report, err
	}
	var pairs layerPairs
	ids := make([]int64, 0, len(targetKeys))
	for _, k := range targetKeys {
		pairs.add(src.ID, targets[k].ID)
		ids = append(ids, targets[k].ID)
	}
	for _, st := range clearConfigSteps {
		n, err := exec(ctx, w.q, psql.Delete(st.table).Where(st.where(ids)))
		if err != nil {
			return report, fmt.Errorf("clear %s: %w", st.table, err)
		}
		report.Cleared = append(report.Cleared, TableCount{Table: st.table, Rows: n})
	}
	if err := runCopySteps(ctx, w.q, layerConfigSteps, pairs, &report.Copied); err != nil {
		return report, err
	}
	w.touch(portalCode)
	logger.Info("layer_config_cloned", map[string]any{
		"portal": portalCode, "source": sourceKey, "targets": targetKeys, "copied": report.Copied,
	})
	return report, nil
}

func (s *Store) CloneLayerConfig(ctx context.Context, portalCode, sourceKey string, targetKeys []string) (r CloneReport, err error) {
	err = s.Write(ctx, func(w *Writer) error {
		r, err = w.CloneLayerConfig(ctx, portalCode, sourceKey, targetKeys)
		return err
	})
	return r, err
}

