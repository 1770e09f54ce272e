package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"MapLayerStore/internal/model"

	"github.com/hashicorp/go-multierror"
)

const defaultFolderTitle = "New folder"

// flag accepts true/false as well as 0/1, which older tree files use.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		n, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("invalid boolean %s", b)
		}
		*f = n != 0
	}
	return nil
}

type treeNodeDoc struct {
	ID       *string        `json:"id"`
	Text     *string        `json:"text"`
	Title    *string        `json:"title"`
	Leaf     *flag          `json:"leaf"`
	Expanded *flag          `json:"expanded"`
	Checked  *flag          `json:"checked"`
	IconCls  *string        `json:"iconCls"`
	Glyph    *string        `json:"glyph"`
	Qtip     *string        `json:"qtip"`
	Children *[]treeNodeDoc `json:"children"`
}

type treeDoc struct {
	TreeConfig *struct {
		Children []treeNodeDoc `json:"children"`
	} `json:"treeConfig"`
}

// ParseTree reads a navigation tree in the {"treeConfig":{"children":[...]}}
// layout, as JSON or YAML.
func ParseTree(name string, data []byte) ([]model.TreeNode, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if isYAML(name) {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("YAML parse error in %s: %w", name, err)
		}
		data = converted
	}
	var doc treeDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if doc.TreeConfig == nil {
		return nil, fmt.Errorf("%s: missing treeConfig", name)
	}
	var errs *multierror.Error
	nodes := convertTree(doc.TreeConfig.Children, "treeConfig.children", &errs)
	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return nodes, nil
}

func LoadTree(path string) ([]model.TreeNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTree(filepath.Base(path), data)
}

func convertTree(docs []treeNodeDoc, path string, errs **multierror.Error) []model.TreeNode {
	out := make([]model.TreeNode, 0, len(docs))
	for i, d := range docs {
		at := fmt.Sprintf("%s[%d]", path, i)
		order := int32(i + 1)
		if d.Children != nil && !flagOr(d.Leaf, false) {
			title := defaultFolderTitle
			if s := firstNonEmpty(d.Title, d.Text); s != nil {
				title = *s
			}
			out = append(out, model.TreeNode{
				IsFolder:     true,
				FolderTitle:  &title,
				FolderID:     d.ID,
				Expanded:     model.BoolPtr(flagOr(d.Expanded, true)),
				Checked:      model.BoolPtr(flagOr(d.Checked, false)),
				DisplayOrder: order,
				Children:     convertTree(*d.Children, at+".children", errs),
			})
			continue
		}
		if d.ID == nil || *d.ID == "" {
			*errs = multierror.Append(*errs, fmt.Errorf("%s: leaf without id", at))
			continue
		}
		out = append(out, model.TreeNode{
			LayerKey:     d.ID,
			LayerTitle:   firstNonEmpty(d.Text, d.Title),
			Glyph:        firstNonEmpty(d.IconCls, d.Glyph),
			Tooltip:      d.Qtip,
			Checked:      model.BoolPtr(flagOr(d.Checked, false)),
			DisplayOrder: order,
		})
	}
	return out
}

func flagOr(f *flag, def bool) bool {
	if f == nil {
		return def
	}
	return bool(*f)
}

func firstNonEmpty(vals ...*string) *string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}
