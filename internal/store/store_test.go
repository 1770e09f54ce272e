package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"MapLayerStore/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassify(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "layers_portal_key_unique", Detail: "Key exists"}
	err := classify(fmt.Errorf("insert: %w", dup))
	if !errors.Is(err, ErrDuplicateLayer) {
		t.Fatalf("expected ErrDuplicateLayer, got %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		t.Fatalf("pg error lost: %v", err)
	}
	if again := classify(err); again.Error() != err.Error() {
		t.Fatalf("classify should be idempotent:\n%s\n%s", err, again)
	}

	check := &pgconn.PgError{Code: "23514", ConstraintName: "layer_options_exactly_one"}
	if err := classify(check); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "switchlayerchildren_childlayerid_fkey"}
	if err := classify(fk); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
	if err := classify(&pgconn.PgError{Code: "23505", ConstraintName: "portals_code_key"}); !errors.Is(err, ErrDuplicatePortal) {
		t.Fatalf("expected ErrDuplicatePortal, got %v", err)
	}

	plain := errors.New("boom")
	if classify(plain) != plain {
		t.Fatalf("non-pg errors must pass through")
	}
}

func TestTitleFromCode(t *testing.T) {
	cases := map[string]string{
		"default":        "Default",
		"default_portal": "Default Portal",
		"test-portal":    "Test Portal",
		"already Titled": "Already Titled",
		"__edge__":       "Edge",
	}
	for in, want := range cases {
		if got := TitleFromCode(in); got != want {
			t.Errorf("TitleFromCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeleteLayerSQL_Order(t *testing.T) {
	stmts, tables := deleteLayerSQL([]int64{42})
	want := []string{
		"PortalTreeNodes", "SwitchLayerChildren", "LayerStyles",
		"LayerWmsOptions", "LayerWfsOptions", "LayerXyzOptions", "LayerArcGisRestOptions",
		"GridColumnEdit", "GridColumns", "GridSorters", "GridFilterDefinitions", "GridMData",
		"Layers",
	}
	if diff := cmp.Diff(want, tables); diff != "" {
		t.Fatalf("delete order mismatch (-want +got):\n%s", diff)
	}

	sql, args, err := stmts[0].ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if sql != "DELETE FROM PortalTreeNodes WHERE LayerId IN ($1)" {
		t.Fatalf("unexpected sql: %s", sql)
	}
	if diff := cmp.Diff([]any{int64(42)}, args); diff != "" {
		t.Fatalf("args mismatch:\n%s", diff)
	}

	sql, args, _ = stmts[1].ToSql()
	if !strings.Contains(sql, "ParentLayerId IN ($1)") || !strings.Contains(sql, "ChildLayerId IN ($2)") {
		t.Fatalf("switch links must be cleared from both ends: %s", sql)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}

	sql, _, _ = stmts[7].ToSql()
	if !strings.Contains(sql, "GridColumnId IN (SELECT GridColumnId FROM GridColumns WHERE LayerId = ANY($1))") {
		t.Fatalf("unexpected edit delete: %s", sql)
	}
}

func TestLayerOverridesSQL(t *testing.T) {
	sql, args, err := layerOverridesSQL(7, []string{"roads"}).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	for _, part := range []string{"DELETE FROM EnvironmentOverrides", "PortalId = $1", "scope = $2", "scopeId IN ($3)"} {
		if !strings.Contains(sql, part) {
			t.Fatalf("missing %q in %s", part, sql)
		}
	}
	if diff := cmp.Diff([]any{int64(7), "layer", "roads"}, args); diff != "" {
		t.Fatalf("args mismatch:\n%s", diff)
	}
}

func TestDeletePortalSQL(t *testing.T) {
	stmts, tables := deletePortalSQL(5)
	if diff := cmp.Diff([]string{"SwitchLayerChildren", "PortalTreeNodes", "Portals"}, tables); diff != "" {
		t.Fatalf("tables mismatch:\n%s", diff)
	}
	if len(stmts) != len(tables) {
		t.Fatalf("%d statements for %d tables", len(stmts), len(tables))
	}
	sql, args, err := stmts[0].ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	for _, part := range []string{
		"DELETE FROM SwitchLayerChildren",
		"ParentLayerId IN (SELECT LayerId FROM Layers WHERE PortalId = $1)",
		"ChildLayerId IN (SELECT LayerId FROM Layers WHERE PortalId = $2)",
	} {
		if !strings.Contains(sql, part) {
			t.Fatalf("missing %q in %s", part, sql)
		}
	}
	if diff := cmp.Diff([]any{int64(5), int64(5)}, args); diff != "" {
		t.Fatalf("args mismatch:\n%s", diff)
	}
	sql, args, err = stmts[2].ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if sql != "DELETE FROM Portals WHERE PortalId = $1" || len(args) != 1 {
		t.Fatalf("unexpected portal delete %q %v", sql, args)
	}
}

func TestPromoteOverridesSQL(t *testing.T) {
	sql, args, err := promoteOverridesSQL(1, 2, []string{"A", "B"}).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	for _, part := range []string{
		"INSERT INTO EnvironmentOverrides (PortalId,envName,scope,scopeId,overridesJSON)",
		"SELECT $1::bigint, o.envName",
		"o.PortalId = $2", "o.scope = $3", "o.scopeId IN ($4,$5)",
		"ON CONFLICT (PortalId, envName, scope, scopeId) DO NOTHING",
	} {
		if !strings.Contains(sql, part) {
			t.Fatalf("missing %q in %s", part, sql)
		}
	}
	if diff := cmp.Diff([]any{int64(2), int64(1), "layer", "A", "B"}, args); diff != "" {
		t.Fatalf("args mismatch:\n%s", diff)
	}
}

func TestDeleteReport(t *testing.T) {
	var r DeleteReport
	r.add("LayerStyles", 2)
	r.add("Layers", 1)
	r.add("LayerStyles", 3)
	if r.Rows("LayerStyles") != 5 || r.Rows("Layers") != 1 || r.Rows("GridMData") != 0 {
		t.Fatalf("unexpected counts: %+v", r.Tables)
	}
	if r.Tables[0].Table != "LayerStyles" {
		t.Fatalf("first-seen order not kept: %+v", r.Tables)
	}
}

func TestStepsFor(t *testing.T) {
	got := stepsFor("GridColumnEdit", "LayerStyles")
	if len(got) != 2 || got[0].table != "GridColumnEdit" || got[1].table != "LayerStyles" {
		t.Fatalf("unexpected steps: %+v", got)
	}
	if len(clearConfigSteps) != len(layerConfigSteps) {
		t.Fatalf("clone clears %d tables but copies %d", len(clearConfigSteps), len(layerConfigSteps))
	}
}

func TestPromoteLayersSQL(t *testing.T) {
	sql, args, err := promoteLayersSQL(1, 2, "TEST%").ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	for _, frag := range []string{
		"INSERT INTO Layers (PortalId,layerKey,layerType,",
		"SELECT $1::bigint, s.layerKey, s.layerType,",
		"FROM Layers s WHERE s.PortalId = $2 AND s.layerKey LIKE $3",
		"NOT EXISTS (SELECT 1 FROM Layers d WHERE d.PortalId = $4 AND d.layerKey = s.layerKey)",
		"RETURNING LayerId, layerKey",
	} {
		if !strings.Contains(sql, frag) {
			t.Fatalf("missing %q in:\n%s", frag, sql)
		}
	}
	if diff := cmp.Diff([]any{int64(2), int64(1), "TEST%", int64(2)}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestPromoteLinksSQL(t *testing.T) {
	sql, args, err := promoteLinksSQL(1, 2, []int64{7, 8}).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	for _, frag := range []string{
		"INSERT INTO SwitchLayerChildren (ParentLayerId,ChildLayerId,position) SELECT np.LayerId, nc.LayerId, c.position",
		"JOIN Layers np ON np.PortalId = $1 AND np.layerKey = op.layerKey",
		"JOIN Layers nc ON nc.PortalId = $2 AND nc.layerKey = oc.layerKey",
		"nc.layerType <> $6",
	} {
		if !strings.Contains(sql, frag) {
			t.Fatalf("missing %q in:\n%s", frag, sql)
		}
	}
	if len(args) != 6 || args[5] != "switchlayer" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestCopyColumnEditsSQL(t *testing.T) {
	var pairs layerPairs
	pairs.add(10, 20)
	pairs.add(10, 21)
	sql, args, err := copyColumnEditsSQL(pairs).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	for _, frag := range []string{
		"INSERT INTO GridColumnEdit (GridColumnId,GroupEditIdProperty,GroupEditDataProp,EditServiceUrl,EditUserRole)",
		"unnest($1::bigint[], $2::bigint[]) AS m(src, dst) ON m.src = s.LayerId",
		"JOIN GridColumns tc ON tc.LayerId = m.dst AND tc.ColumnName = s.ColumnName",
	} {
		if !strings.Contains(sql, frag) {
			t.Fatalf("missing %q in:\n%s", frag, sql)
		}
	}
	want := []any{[]int64{10, 10}, []int64{20, 21}}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestCopyRowsSQL(t *testing.T) {
	var pairs layerPairs
	pairs.add(1, 2)
	sql, _, err := copyRowsSQL("GridSorters", gridSorterColumns, pairs).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	want := "INSERT INTO GridSorters (LayerId,Property,Direction,SortOrder) " +
		"SELECT m.dst, s.Property, s.Direction, s.SortOrder FROM GridSorters s " +
		"JOIN unnest($1::bigint[], $2::bigint[]) AS m(src, dst) ON m.src = s.LayerId"
	if sql != want {
		t.Fatalf("unexpected sql:\n got %s\nwant %s", sql, want)
	}
}

func TestInsertOptionsSQL_DefaultsWMS(t *testing.T) {
	ins, ok := insertOptionsSQL(5, model.LayerOptions{WMS: &model.WMSOptions{Layers: "ns:roads"}})
	if !ok {
		t.Fatalf("expected an insert")
	}
	sql, args, err := ins.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if !strings.HasPrefix(sql, "INSERT INTO LayerWmsOptions (LayerId,layers,") {
		t.Fatalf("unexpected sql: %s", sql)
	}
	if args[6] != "POST" || args[7] != "Y-m-d" {
		t.Fatalf("defaults not applied: %v", args)
	}
	if _, ok := insertOptionsSQL(5, model.LayerOptions{}); ok {
		t.Fatalf("switch layers have no options insert")
	}
}

func TestPromoteRequestCheck(t *testing.T) {
	cases := []struct {
		req PromoteRequest
		ok  bool
	}{
		{PromoteRequest{SourcePortal: "a", DestPortal: "b", KeyPattern: "X%"}, true},
		{PromoteRequest{SourcePortal: "a", DestPortal: "a", KeyPattern: "X%"}, false},
		{PromoteRequest{SourcePortal: "a", DestPortal: "b"}, false},
		{PromoteRequest{DestPortal: "b", KeyPattern: "%"}, false},
	}
	for i, c := range cases {
		err := c.req.check()
		if (err == nil) != c.ok {
			t.Errorf("case %d: err=%v, want ok=%v", i, err, c.ok)
		}
		if err != nil && !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
}

func TestCheckTree(t *testing.T) {
	key := model.StringPtr("ROADS")
	ok := []model.TreeNode{{IsFolder: true, FolderTitle: model.StringPtr("Transport"), Children: []model.TreeNode{{LayerKey: key}}}}
	if err := checkTree(ok); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	bad := []model.TreeNode{{IsFolder: true, Children: []model.TreeNode{{}}}}
	if err := checkTree(bad); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("leaf without key must fail, got %v", err)
	}
	mixed := []model.TreeNode{{IsFolder: true, LayerKey: key}}
	if err := checkTree(mixed); err == nil {
		t.Fatalf("folder naming a layer must fail")
	}
}

func TestGridInsertSQL(t *testing.T) {
	cfg := model.GridConfig{
		MData: &model.GridMData{IDField: model.StringPtr("gid")},
		Columns: []model.GridColumn{
			{ColumnName: "name", InGrid: true},
			{ColumnName: "status", Editable: true, Edit: &model.GridColumnEdit{EditUserRole: model.StringPtr("editor")}},
		},
		Sorters: []model.GridSorter{{Property: "name"}},
	}
	if err := checkGrid(cfg); err != nil {
		t.Fatalf("checkGrid: %v", err)
	}
	stmts := gridInsertSQL(9, cfg)
	if len(stmts) != 4 {
		t.Fatalf("expected mdata, columns, one edit, sorters; got %d statements", len(stmts))
	}
	_, args, _ := stmts[0].ToSql()
	if args[len(args)-1] != true {
		t.Fatalf("HasEditableColumns should be derived from the columns: %v", args)
	}
	sql, args, _ := stmts[2].ToSql()
	if !strings.Contains(sql, "INSERT INTO GridColumnEdit") || !strings.Contains(sql, "ColumnName = $") {
		t.Fatalf("edit rows must resolve their column by name: %s", sql)
	}
	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %v", args)
	}
	_, args, _ = stmts[3].ToSql()
	if diff := cmp.Diff([]any{int64(9), "name", "ASC", 1}, args); diff != "" {
		t.Fatalf("sorter args (-want +got):\n%s", diff)
	}

	dup := model.GridConfig{Columns: []model.GridColumn{{ColumnName: "a"}, {ColumnName: "a"}}}
	if err := checkGrid(dup); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("duplicate columns must fail, got %v", err)
	}
}
