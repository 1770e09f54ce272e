package model

// TreeNode is a folder or a leaf of a portal's navigation tree. Leaves point
// at a layer of the same portal by key.
type TreeNode struct {
	ID           int64      `json:"-"`
	IsFolder     bool       `json:"isFolder"`
	FolderTitle  *string    `json:"folderTitle,omitempty"`
	FolderID     *string    `json:"folderId,omitempty"`
	LayerKey     *string    `json:"layerKey,omitempty"`
	LayerTitle   *string    `json:"layerTitle,omitempty"`
	Glyph        *string    `json:"glyph,omitempty"`
	Tooltip      *string    `json:"tooltip,omitempty"`
	Expanded     *bool      `json:"expanded,omitempty"`
	Checked      *bool      `json:"checked,omitempty"`
	DisplayOrder int32      `json:"displayOrder"`
	Children     []TreeNode `json:"children,omitempty"`
}

// LeafKeys returns every layer key referenced below the given nodes, depth first.
func LeafKeys(nodes []TreeNode) []string {
	var out []string
	var walk func([]TreeNode)
	walk = func(ns []TreeNode) {
		for _, n := range ns {
			if n.IsFolder {
				walk(n.Children)
				continue
			}
			if n.LayerKey != nil {
				out = append(out, *n.LayerKey)
			}
		}
	}
	walk(nodes)
	return out
}
