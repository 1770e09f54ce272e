package store

import (
	"context"
	"fmt"

	"MapLayerStore/internal/model"

	"github.com/Masterminds/squirrel"
)

// ReplacePortalTree swaps the portal's navigation tree for nodes. Every leaf
// must name a layer of the same portal.
func (w *Writer) ReplacePortalTree(ctx context.Context, portalCode string, nodes []model.TreeNode) error {
	pid, err := portalID(ctx, w.q, portalCode)
	if err != nil {
		return err
	}
	if err := checkTree(nodes); err != nil {
		return err
	}
	refs, err := layerIDs(ctx, w.q, pid, model.LeafKeys(nodes))
	if err != nil {
		return fmt.Errorf("portal tree: %w", err)
	}
	if _, err := exec(ctx, w.q, psql.Delete("PortalTreeNodes").Where(squirrel.Eq{"PortalId": pid})); err != nil {
		return fmt.Errorf("clear portal tree: %w", err)
	}
	if err := insertTreeNodes(ctx, w.q, pid, nil, nodes, refs); err != nil {
		return err
	}
	w.touch(portalCode)
	return nil
}

func checkTree(nodes []model.TreeNode) error {
	for _, n := range nodes {
		if n.IsFolder {
			if n.LayerKey != nil {
				return fmt.Errorf("%w: folder %v also names layer %q", ErrInvalidRequest, deref(n.FolderTitle), *n.LayerKey)
			}
			if err := checkTree(n.Children); err != nil {
				return err
			}
			continue
		}
		if n.LayerKey == nil || *n.LayerKey == "" {
			return fmt.Errorf("%w: tree leaf without a layer key", ErrInvalidRequest)
		}
		if len(n.Children) > 0 {
			return fmt.Errorf("%w: leaf %q has children", ErrInvalidRequest, *n.LayerKey)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func insertTreeNodes(ctx context.Context, q querier, pid int64, parent *int64, nodes []model.TreeNode, refs map[string]layerRef) error {
	for i, n := range nodes {
		var layerID *int64
		if !n.IsFolder {
			id := refs[*n.LayerKey].ID
			layerID = &id
		}
		order := n.DisplayOrder
		if order == 0 {
			order = int32(i + 1)
		}
		ins := psql.Insert("PortalTreeNodes").
			Columns("PortalId", "ParentNodeId", "IsFolder", "FolderTitle", "FolderId", "LayerId",
				"LayerTitle", "Glyph", "Tooltip", "ExpandedDefault", "CheckedDefault", "DisplayOrder").
			Values(pid, parent, n.IsFolder, n.FolderTitle, n.FolderID, layerID,
				n.LayerTitle, n.Glyph, n.Tooltip, n.Expanded, n.Checked, order).
			Suffix("RETURNING PortalTreeNodeId")
		var id int64
		if err := queryRow(ctx, q, ins).Scan(&id); err != nil {
			return fmt.Errorf("insert tree node: %w", classify(err))
		}
		if len(n.Children) > 0 {
			if err := insertTreeNodes(ctx, q, pid, &id, n.Children, refs); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadTree(ctx context.Context, q querier, pid int64) ([]model.TreeNode, error) {
	rows, err := query(ctx, q, psql.Select("n.PortalTreeNodeId", "n.ParentNodeId", "n.IsFolder", "n.FolderTitle",
		"n.FolderId", "l.layerKey", "n.LayerTitle", "n.Glyph", "n.Tooltip", "n.ExpandedDefault",
		"n.CheckedDefault", "n.DisplayOrder").
		From("PortalTreeNodes n").
		LeftJoin("Layers l ON l.LayerId = n.LayerId").
		Where(squirrel.Eq{"n.PortalId": pid}).
		OrderBy("n.DisplayOrder", "n.PortalTreeNodeId"))
	if err != nil {
		return nil, fmt.Errorf("load portal tree: %w", err)
	}
	defer rows.Close()
	type flat struct {
		node   model.TreeNode
		parent *int64
	}
	var all []flat
	for rows.Next() {
		var f flat
		n := &f.node
		if err := rows.Scan(&n.ID, &f.parent, &n.IsFolder, &n.FolderTitle, &n.FolderID, &n.LayerKey,
			&n.LayerTitle, &n.Glyph, &n.Tooltip, &n.Expanded, &n.Checked, &n.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan tree node: %w", err)
		}
		all = append(all, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	children := map[int64][]int{}
	var roots []int
	for i, f := range all {
		if f.parent == nil {
			roots = append(roots, i)
			continue
		}
		children[*f.parent] = append(children[*f.parent], i)
	}
	var build func(idx []int) []model.TreeNode
	build = func(idx []int) []model.TreeNode {
		out := make([]model.TreeNode, 0, len(idx))
		for _, i := range idx {
			n := all[i].node
			n.Children = build(children[n.ID])
			if len(n.Children) == 0 {
				n.Children = nil
			}
			out = append(out, n)
		}
		return out
	}
	return build(roots), nil
}

// GetPortalTree returns the nested tree with siblings ordered by DisplayOrder.
func (s *Store) GetPortalTree(ctx context.Context, portalCode string) ([]model.TreeNode, error) {
	pid, err := portalID(ctx, s.db, portalCode)
	if err != nil {
		return nil, err
	}
	return loadTree(ctx, s.db, pid)
}

func (s *Store) ReplacePortalTree(ctx context.Context, portalCode string, nodes []model.TreeNode) error {
	return s.Write(ctx, func(w *Writer) error { return w.ReplacePortalTree(ctx, portalCode, nodes) })
}
