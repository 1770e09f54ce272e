package seed

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"MapLayerStore/internal/logger"
	"MapLayerStore/internal/model"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// GridSeed is the grid definition of one layer read from a YAML file.
type GridSeed struct {
	LayerKey string
	Source   string
	Config   model.GridConfig
	Warnings []string
}

var allowedSectionKeys = map[string]bool{
	"mdata":   true,
	"columns": true,
	"filters": true,
}

var allowedMDataKeys = map[string]bool{
	"id": true, "getid": true, "service": true, "window": true, "model": true,
	"help_page": true, "controller": true, "isSwitch": true, "isSpatial": true,
	"excel_exporter": true, "shp_exporter": true, "editable": true, "sorters": true,
}

var allowedColumnKeys = map[string]bool{
	"flex": true, "inGrid": true, "hidden": true, "index": true, "text": true,
	"extype": true, "renderer": true, "edit": true, "customList": true,
	"nullText": true, "nullValue": true, "nulltext": true, "nullvalue": true,
	"zeros": true, "noFilter": true, "type": true, "wfstype": true,
	"yestext": true, "notext": true,
}

var allowedEditKeys = map[string]bool{
	"editable": true, "groupEditIdProperty": true, "groupEditDataProp": true,
	"editServiceUrl": true, "editUserRole": true,
}

var allowedFilterKeys = map[string]bool{
	"data_index": true, "store": true, "store_id": true, "id_field": true,
	"label_field": true, "local_field": true,
}

type mdataExtras struct {
	Sorters []struct {
		Sorter model.GridSorter `yaml:"sorter"`
	} `yaml:"sorters"`
}

type columnEditYAML struct {
	Editable             bool `yaml:"editable"`
	model.GridColumnEdit `yaml:",inline"`
}

type columnExtras struct {
	CustomList []string        `yaml:"customList"`
	Edit       *columnEditYAML `yaml:"edit"`
	Type       *string         `yaml:"type"`
	WfsType    *string         `yaml:"wfstype"`
	NullText   *string         `yaml:"nulltext"`
	NullValue  *string         `yaml:"nullvalue"`
}

type filterYAML struct {
	Filter model.GridFilter `yaml:"filter"`
}

// ParseGridYAML reads a file mapping layer keys to {mdata, columns, filters}.
// Column order in the file becomes the display order.
func ParseGridYAML(name string, data []byte) ([]GridSeed, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error in %s: %w", name, err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML in %s", name)
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: expected a mapping of layer keys", name)
	}
	var seeds []GridSeed
	var errs *multierror.Error
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, body := top.Content[i].Value, top.Content[i+1]
		seed, err := parseGridLayer(key, body)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %s: %w", name, key, err))
			continue
		}
		seed.Source = name
		seeds = append(seeds, seed)
	}
	return seeds, errs.ErrorOrNil()
}

func parseGridLayer(key string, body *yaml.Node) (GridSeed, error) {
	seed := GridSeed{LayerKey: key, Config: model.GridConfig{
		Columns: []model.GridColumn{}, Sorters: []model.GridSorter{}, Filters: []model.GridFilter{},
	}}
	if body.Kind != yaml.MappingNode {
		return seed, fmt.Errorf("expected a mapping")
	}
	for i := 0; i+1 < len(body.Content); i += 2 {
		section, val := body.Content[i].Value, body.Content[i+1]
		if !allowedSectionKeys[section] {
			return seed, fmt.Errorf("unknown section %q (line %d)", section, body.Content[i].Line)
		}
		var err error
		switch section {
		case "mdata":
			err = parseMData(&seed, val)
		case "columns":
			err = parseColumns(&seed, val)
		case "filters":
			err = parseFilters(&seed, val)
		}
		if err != nil {
			return seed, fmt.Errorf("%s: %w", section, err)
		}
	}
	for _, w := range seed.Warnings {
		logger.Warn("grid_seed_unmapped_key", map[string]any{"layer_key": key, "detail": w})
	}
	return seed, nil
}

// unknownKeys reports mapping keys of n outside allowed.
func unknownKeys(n *yaml.Node, allowed map[string]bool) []string {
	var out []string
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i].Value; !allowed[k] {
			out = append(out, k)
		}
	}
	return out
}

func mappingValue(n *yaml.Node, key string) (*yaml.Node, bool) {
	if n.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1], true
		}
	}
	return nil, false
}

func parseMData(seed *GridSeed, n *yaml.Node) error {
	for _, k := range unknownKeys(n, allowedMDataKeys) {
		seed.Warnings = append(seed.Warnings, "mdata."+k)
	}
	var m model.GridMData
	if err := n.Decode(&m); err != nil {
		return err
	}
	var extras mdataExtras
	if err := n.Decode(&extras); err != nil {
		return err
	}
	seed.Config.MData = &m
	for _, s := range extras.Sorters {
		seed.Config.Sorters = append(seed.Config.Sorters, s.Sorter)
	}
	return nil
}

func parseColumns(seed *GridSeed, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping of column names (line %d)", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, body := n.Content[i].Value, n.Content[i+1]
		for _, k := range unknownKeys(body, allowedColumnKeys) {
			seed.Warnings = append(seed.Warnings, "columns."+name+"."+k)
		}
		var col model.GridColumn
		if err := body.Decode(&col); err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
		var extras columnExtras
		if err := body.Decode(&extras); err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
		col.ColumnName = name
		col.DisplayOrder = model.Int32Ptr(int32(len(seed.Config.Columns) + 1))
		if col.NullText == nil {
			col.NullText = extras.NullText
		}
		if col.NullValue == nil {
			col.NullValue = extras.NullValue
		}
		applyRendererFallback(&col, body, extras)
		if _, ok := mappingValue(body, "customList"); ok {
			col.CustomListValues = model.StringPtr(strings.Join(extras.CustomList, ","))
		}
		if e := extras.Edit; e != nil {
			if editNode, ok := mappingValue(body, "edit"); ok {
				for _, k := range unknownKeys(editNode, allowedEditKeys) {
					seed.Warnings = append(seed.Warnings, "columns."+name+".edit."+k)
				}
			}
			if e.Editable {
				col.Editable = true
				edit := e.GridColumnEdit
				col.Edit = &edit
			}
		}
		seed.Config.Columns = append(seed.Config.Columns, col)
	}
	return nil
}

// applyRendererFallback fills renderer and extype the way older grid files
// expect: an explicit null renderer borrows extype, and files with neither
// key use the legacy type/wfstype pair.
func applyRendererFallback(col *model.GridColumn, body *yaml.Node, extras columnExtras) {
	rendererNode, hasRenderer := mappingValue(body, "renderer")
	_, hasExtype := mappingValue(body, "extype")
	if hasRenderer && rendererNode.Tag == "!!null" {
		col.Renderer = col.ExType
	}
	if !hasRenderer && !hasExtype {
		col.ExType = extras.Type
		if extras.WfsType != nil && *extras.WfsType != "" {
			r := *extras.WfsType
			if strings.EqualFold(r, "integer") {
				r = "number"
			}
			col.Renderer = &r
		}
	}
}

func parseFilters(seed *GridSeed, n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("expected a list (line %d)", n.Line)
	}
	for _, item := range n.Content {
		if f, ok := mappingValue(item, "filter"); ok {
			for _, k := range unknownKeys(f, allowedFilterKeys) {
				seed.Warnings = append(seed.Warnings, "filters."+k)
			}
		}
		var fy filterYAML
		if err := item.Decode(&fy); err != nil {
			return err
		}
		seed.Config.Filters = append(seed.Config.Filters, fy.Filter)
	}
	return nil
}

// LoadGridSeedsFromDir parses every *.yaml and *.yml file in dir, in name order.
func LoadGridSeedsFromDir(dir string) ([]GridSeed, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	var seeds []GridSeed
	var errs *multierror.Error
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		s, err := ParseGridYAML(filepath.Base(path), data)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		seeds = append(seeds, s...)
	}
	return seeds, errs.ErrorOrNil()
}
