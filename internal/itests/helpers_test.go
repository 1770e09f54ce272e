package itests

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"MapLayerStore/internal/db"
	"MapLayerStore/internal/model"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// portalFor creates a portal named after the test, so tests never share rows.
func portalFor(t *testing.T, suffix string) string {
	t.Helper()
	code := strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))
	if suffix != "" {
		code += "_" + suffix
	}
	if _, err := st.EnsurePortal(testCtx(t), code, nil); err != nil {
		t.Fatalf("ensure portal %s: %v", code, err)
	}
	return code
}

func wmsSpec(portal, key string, styles ...model.Style) model.LayerSpec {
	return model.LayerSpec{
		PortalCode: portal,
		Layer:      model.Layer{Key: key, Type: model.LayerWMS, Title: model.StringPtr(key)},
		Options:    model.LayerOptions{WMS: &model.WMSOptions{Layers: "ns:" + strings.ToLower(key)}},
		Styles:     styles,
	}
}

func wfsSpec(portal, key string) model.LayerSpec {
	return model.LayerSpec{
		PortalCode: portal,
		Layer:      model.Layer{Key: key, Type: model.LayerWFS},
		Options:    model.LayerOptions{WFS: &model.WFSOptions{FeatureType: "ns:" + strings.ToLower(key)}},
	}
}

func switchSpec(portal, key string, children ...string) model.LayerSpec {
	return model.LayerSpec{
		PortalCode: portal,
		Layer:      model.Layer{Key: key, Type: model.LayerSwitch},
		Children:   children,
	}
}

func mustCreate(t *testing.T, spec model.LayerSpec) model.LayerDetail {
	t.Helper()
	d, err := st.CreateLayer(testCtx(t), spec)
	if err != nil {
		t.Fatalf("create %s: %v", spec.Layer.Key, err)
	}
	return d
}

func countWhere(t *testing.T, table, column string, id int64) int64 {
	t.Helper()
	var n int64
	sql := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s = $1", table, column)
	if err := db.Pool.QueryRow(testCtx(t), sql, id).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// layerOverrideRows counts layer-scope overrides of key in the portal.
func layerOverrideRows(t *testing.T, portal, key string) int64 {
	t.Helper()
	var n int64
	sql := `SELECT count(*) FROM EnvironmentOverrides o JOIN Portals p ON p.PortalId = o.PortalId
		WHERE p.code = $1 AND o.scope = 'layer' AND o.scopeId = $2`
	if err := db.Pool.QueryRow(testCtx(t), sql, portal, key).Scan(&n); err != nil {
		t.Fatalf("count overrides: %v", err)
	}
	return n
}

var optionTables = []string{"LayerWmsOptions", "LayerWfsOptions", "LayerXyzOptions", "LayerArcGisRestOptions"}

func optionRows(t *testing.T, layerID int64) int64 {
	t.Helper()
	var n int64
	for _, table := range optionTables {
		n += countWhere(t, table, "LayerId", layerID)
	}
	return n
}

func gridConfig() model.GridConfig {
	return model.GridConfig{
		MData: &model.GridMData{IDField: model.StringPtr("gid"), IsSpatial: true},
		Columns: []model.GridColumn{
			{ColumnName: "name", Text: model.StringPtr("Name"), InGrid: true},
			{
				ColumnName: "status", Text: model.StringPtr("Status"), InGrid: true, Editable: true,
				Edit: &model.GridColumnEdit{EditServiceURL: model.StringPtr("/edit/status")},
			},
		},
		Sorters: []model.GridSorter{{Property: "name", Direction: "ASC"}},
		Filters: []model.GridFilter{{DataIndex: model.StringPtr("status")}},
	}
}
