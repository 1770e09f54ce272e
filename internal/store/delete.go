package store

import (
	"context"
	"fmt"

	"MapLayerStore/internal/logger"
	"MapLayerStore/internal/model"

	"github.com/Masterminds/squirrel"
)

// DeleteReport lists the removed layer keys and the rows removed per table,
// in the order the tables were cleared.
type DeleteReport struct {
	Layers []string     `json:"layers"`
	Tables []TableCount `json:"tables"`
}

type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

func (r *DeleteReport) add(table string, n int64) {
	for i := range r.Tables {
		if r.Tables[i].Table == table {
			r.Tables[i].Rows += n
			return
		}
	}
	r.Tables = append(r.Tables, TableCount{Table: table, Rows: n})
}

// Rows returns the count recorded for table.
func (r DeleteReport) Rows(table string) int64 {
	for _, t := range r.Tables {
		if t.Table == table {
			return t.Rows
		}
	}
	return 0
}

// deleteStep is one table cleared before the Layers rows go.
type deleteStep struct {
	table string
	where func(ids []int64) squirrel.Sqlizer
}

func byLayerID(col string) func([]int64) squirrel.Sqlizer {
	return func(ids []int64) squirrel.Sqlizer { return squirrel.Eq{col: ids} }
}

// deleteSteps clears dependents leaf-first so no restrict FK fires mid-way.
var deleteSteps = []deleteStep{
	{"PortalTreeNodes", byLayerID("LayerId")},
	{"SwitchLayerChildren", func(ids []int64) squirrel.Sqlizer {
		return squirrel.Or{squirrel.Eq{"ParentLayerId": ids}, squirrel.Eq{"ChildLayerId": ids}}
	}},
	{"LayerStyles", byLayerID("LayerId")},
	{"LayerWmsOptions", byLayerID("LayerId")},
	{"LayerWfsOptions", byLayerID("LayerId")},
	{"LayerXyzOptions", byLayerID("LayerId")},
	{"LayerArcGisRestOptions", byLayerID("LayerId")},
	{"GridColumnEdit", func(ids []int64) squirrel.Sqlizer {
		return squirrel.Expr("GridColumnId IN (SELECT GridColumnId FROM GridColumns WHERE LayerId = ANY(?))", ids)
	}},
	{"GridColumns", byLayerID("LayerId")},
	{"GridSorters", byLayerID("LayerId")},
	{"GridFilterDefinitions", byLayerID("LayerId")},
	{"GridMData", byLayerID("LayerId")},
	{"Layers", byLayerID("LayerId")},
}

func stepsFor(tables ...string) []deleteStep {
	out := make([]deleteStep, 0, len(tables))
	for _, t := range tables {
		for _, st := range deleteSteps {
			if st.table == t {
				out = append(out, st)
			}
		}
	}
	return out
}

func deleteLayerSQL(ids []int64) ([]squirrel.DeleteBuilder, []string) {
	stmts := make([]squirrel.DeleteBuilder, len(deleteSteps))
	tables := make([]string, len(deleteSteps))
	for i, st := range deleteSteps {
		stmts[i] = psql.Delete(st.table).Where(st.where(ids))
		tables[i] = st.table
	}
	return stmts, tables
}

// layerOverridesSQL drops the layer-scope overrides of keys, which reference
// layers by key rather than by foreign key.
func layerOverridesSQL(portalID int64, keys []string) squirrel.DeleteBuilder {
	return psql.Delete("EnvironmentOverrides").Where(squirrel.Eq{
		"PortalId": portalID,
		"scope":    string(model.ScopeLayer),
		"scopeId":  keys,
	})
}

func deleteLayers(ctx context.Context, q querier, ids []int64, report *DeleteReport) error {
	if len(ids) == 0 {
		return nil
	}
	stmts, tables := deleteLayerSQL(ids)
	for i, stmt := range stmts {
		n, err := exec(ctx, q, stmt)
		if err != nil {
			return fmt.Errorf("delete from %s: %w", tables[i], classify(err))
		}
		report.add(tables[i], n)
	}
	return nil
}

// DeleteLayer removes a layer and every row that references it.
func (w *Writer) DeleteLayer(ctx context.Context, portalCode, layerKey string) (DeleteReport, error) {
	report := DeleteReport{Layers: []string{}}
	pid, err := portalID(ctx, w.q, portalCode)
	if err != nil {
		return report, err
	}
	ref, err := findLayer(ctx, w.q, pid, layerKey)
	if err != nil {
		return report, err
	}
	if err := deleteLayers(ctx, w.q, []int64{ref.ID}, &report); err != nil {
		return report, err
	}
	n, err := exec(ctx, w.q, layerOverridesSQL(pid, []string{layerKey}))
	if err != nil {
		return report, fmt.Errorf("delete from EnvironmentOverrides: %w", classify(err))
	}
	report.add("EnvironmentOverrides", n)
	report.Layers = append(report.Layers, layerKey)
	w.touch(portalCode)
	logger.Info("layer_deleted", map[string]any{"portal": portalCode, "layer_key": layerKey, "tables": report.Tables})
	return report, nil
}

func (s *Store) DeleteLayer(ctx context.Context, portalCode, layerKey string) (r DeleteReport, err error) {
	err = s.Write(ctx, func(w *Writer) error {
		r, err = w.DeleteLayer(ctx, portalCode, layerKey)
		return err
	})
	return r, err
}
