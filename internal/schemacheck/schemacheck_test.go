package schemacheck

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// folded returns s the way PostgreSQL stores unquoted identifiers.
func folded(s Schema) Schema {
	out := Schema{}
	for _, t := range s.Tables {
		ft := Table{Name: strings.ToLower(t.Name)}
		for _, c := range t.Columns {
			ft.Columns = append(ft.Columns, strings.ToLower(c))
		}
		for _, k := range t.ForeignKeys {
			ft.ForeignKeys = append(ft.ForeignKeys, ForeignKey{
				Column:     strings.ToLower(k.Column),
				RefTable:   strings.ToLower(k.RefTable),
				RefColumn:  strings.ToLower(k.RefColumn),
				DeleteRule: k.DeleteRule,
			})
		}
		out.Tables = append(out.Tables, ft)
	}
	return out
}

func TestCompare_FoldedSchemaMatches(t *testing.T) {
	live := folded(Expected())
	live.Tables = append(live.Tables, Table{Name: "schema_migrations", Columns: []string{"version", "dirty"}})
	if problems := Compare(Expected(), live); len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}

func TestCompare_ReportsDrift(t *testing.T) {
	expected := Schema{Tables: []Table{
		{Name: "Layers", Columns: []string{"LayerId", "layerKey"}},
		{
			Name:    "SwitchLayerChildren",
			Columns: []string{"ParentLayerId", "ChildLayerId"},
			ForeignKeys: []ForeignKey{
				fk("ParentLayerId", "Layers", "LayerId", cascade),
				fk("ChildLayerId", "Layers", "LayerId", noAction),
			},
		},
		{Name: "GridColumns", Columns: []string{"GridColumnId"}},
	}}
	actual := Schema{Tables: []Table{
		{Name: "layers", Columns: []string{"layerid"}},
		{
			Name:        "switchlayerchildren",
			Columns:     []string{"parentlayerid", "childlayerid"},
			ForeignKeys: []ForeignKey{{Column: "childlayerid", RefTable: "layers", RefColumn: "layerid", DeleteRule: "CASCADE"}},
		},
	}}

	want := []Problem{
		{Table: "Layers", Column: "layerKey", Kind: MissingColumn},
		{Table: "SwitchLayerChildren", Column: "ParentLayerId", Kind: MissingForeignKey, Detail: "references Layers.LayerId"},
		{Table: "SwitchLayerChildren", Column: "ChildLayerId", Kind: DeleteRule, Detail: "want ON DELETE NO ACTION, have CASCADE"},
		{Table: "GridColumns", Kind: MissingTable},
	}
	if diff := cmp.Diff(want, Compare(expected, actual)); diff != "" {
		t.Fatalf("problems (-want +got):\n%s", diff)
	}
}

func TestProblemString(t *testing.T) {
	p := Problem{Table: "Layers", Column: "url", Kind: MissingColumn}
	if got := p.String(); got != "Layers.url: missing_column" {
		t.Fatalf("got %q", got)
	}
	p = Problem{Table: "GridColumnEdit", Column: "GridColumnId", Kind: DeleteRule, Detail: "want ON DELETE CASCADE, have NO ACTION"}
	if got := p.String(); got != "GridColumnEdit.GridColumnId: delete_rule (want ON DELETE CASCADE, have NO ACTION)" {
		t.Fatalf("got %q", got)
	}
}

func TestExpected_EveryLayerTableListed(t *testing.T) {
	s := Expected()
	for _, name := range []string{"Layers", "LayerStyles", "SwitchLayerChildren", "PortalTreeNodes", "GridColumnEdit"} {
		if _, ok := s.table(name); !ok {
			t.Errorf("table %s missing from expected schema", name)
		}
	}
}
