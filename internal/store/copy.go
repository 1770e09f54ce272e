package store

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
)

// layerPairs maps source LayerIds onto target LayerIds position by position.
type layerPairs struct {
	src []int64
	dst []int64
}

func (p *layerPairs) add(src, dst int64) {
	p.src = append(p.src, src)
	p.dst = append(p.dst, dst)
}

func (p layerPairs) empty() bool { return len(p.dst) == 0 }

const pairsJoin = "unnest(?::bigint[], ?::bigint[]) AS m(src, dst) ON m.src = s.LayerId"

var (
	gridMDataColumns = []string{"IdField", "GetId", "Service", "WindowName", "Model", "HelpPage", "Controller",
		"IsSwitch", "IsSpatial", "ExcelExporter", "ShpExporter", "HasEditableColumns"}
	gridColumnColumns = []string{"ColumnName", "Text", "Renderer", "ExType", "InGrid", "Hidden", "NullText",
		"NullValue", "Zeros", "NoFilter", "Flex", "CustomListValues", "Editable", "IndexValue", "DisplayOrder"}
	gridColumnEditColumns = []string{"GroupEditIdProperty", "GroupEditDataProp", "EditServiceUrl", "EditUserRole"}
	gridSorterColumns     = []string{"Property", "Direction", "SortOrder"}
	gridFilterColumns     = []string{"DataIndex", "Store", "StoreId", "IdField", "LabelField", "LocalField"}
)

func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

// copyRowsSQL copies the LayerId-keyed rows of table from each source layer to its target.
func copyRowsSQL(table string, cols []string, pairs layerPairs) squirrel.InsertBuilder {
	sel := squirrel.Select(append([]string{"m.dst"}, prefixed("s", cols)...)...).
		From(table+" s").
		Join(pairsJoin, pairs.src, pairs.dst)
	return psql.Insert(table).Columns(append([]string{"LayerId"}, cols...)...).Select(sel)
}

// copyStylesSQL skips targets whose type takes no styles.
func copyStylesSQL(pairs layerPairs) squirrel.InsertBuilder {
	sel := squirrel.Select(append([]string{"m.dst"}, prefixed("s", styleColumns)...)...).
		From("LayerStyles s").
		Join(pairsJoin, pairs.src, pairs.dst).
		Join("Layers t ON t.LayerId = m.dst").
		Where(squirrel.Eq{"t.layerType": []string{"wms", "wfs", "arcgisrest"}})
	return psql.Insert("LayerStyles").Columns(append([]string{"LayerId"}, styleColumns...)...).Select(sel)
}

// copyColumnEditsSQL re-resolves edit rows onto the target's regenerated
// GridColumnIds by column name.
func copyColumnEditsSQL(pairs layerPairs) squirrel.InsertBuilder {
	sel := squirrel.Select(append([]string{"tc.GridColumnId"}, prefixed("e", gridColumnEditColumns)...)...).
		From("GridColumnEdit e").
		Join("GridColumns s ON s.GridColumnId = e.GridColumnId").
		Join(pairsJoin, pairs.src, pairs.dst).
		Join("GridColumns tc ON tc.LayerId = m.dst AND tc.ColumnName = s.ColumnName")
	return psql.Insert("GridColumnEdit").Columns(append([]string{"GridColumnId"}, gridColumnEditColumns...)...).Select(sel)
}

type copyStep struct {
	table string
	build func(layerPairs) squirrel.InsertBuilder
}

func rowsOf(table string, cols []string) copyStep {
	return copyStep{table, func(p layerPairs) squirrel.InsertBuilder { return copyRowsSQL(table, cols, p) }}
}

// layerConfigSteps copy the style and grid configuration; GridColumns must precede GridColumnEdit.
var layerConfigSteps = []copyStep{
	rowsOf("GridMData", gridMDataColumns),
	rowsOf("GridColumns", gridColumnColumns),
	{"GridColumnEdit", copyColumnEditsSQL},
	rowsOf("GridSorters", gridSorterColumns),
	rowsOf("GridFilterDefinitions", gridFilterColumns),
	{"LayerStyles", copyStylesSQL},
}

func optionCopySteps() []copyStep {
	steps := make([]copyStep, len(optionTables))
	for i, t := range optionTables {
		steps[i] = rowsOf(t.Table, t.Columns)
	}
	return steps
}

func runCopySteps(ctx context.Context, q querier, steps []copyStep, pairs layerPairs, counts *[]TableCount) error {
	if pairs.empty() {
		return nil
	}
	for _, st := range steps {
		n, err := exec(ctx, q, st.build(pairs))
		if err != nil {
			return fmt.Errorf("copy %s: %w", st.table, classify(err))
		}
		*counts = append(*counts, TableCount{Table: st.table, Rows: n})
	}
	return nil
}
