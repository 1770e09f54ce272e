package store

import (
	"context"
	"errors"
	"fmt"

	"MapLayerStore/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// setChildren replaces the child links of a switch layer; positions run 1..n in key order.
func setChildren(ctx context.Context, q querier, portalID, parentID int64, keys []string) error {
	refs, err := layerIDs(ctx, q, portalID, keys)
	if err != nil {
		return fmt.Errorf("switch children: %w", err)
	}
	if _, err := exec(ctx, q, psql.Delete("SwitchLayerChildren").Where(squirrel.Eq{"ParentLayerId": parentID})); err != nil {
		return fmt.Errorf("clear switch children: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	ins := psql.Insert("SwitchLayerChildren").Columns("ParentLayerId", "ChildLayerId", "position")
	for i, k := range keys {
		ref := refs[k]
		if ref.ID == parentID {
			return fmt.Errorf("%w: switch layer %q cannot contain itself", ErrInvalidLayer, k)
		}
		if ref.Type == model.LayerSwitch {
			return fmt.Errorf("%w: switch layers do not nest (%q)", ErrInvalidLayer, k)
		}
		ins = ins.Values(parentID, ref.ID, i+1)
	}
	if _, err := exec(ctx, q, ins); err != nil {
		return fmt.Errorf("insert switch children: %w", classify(err))
	}
	return nil
}

// switchParentOf returns the key of a switch layer linking id as a child, or "".
func switchParentOf(ctx context.Context, q querier, id int64) (string, error) {
	var key string
	err := queryRow(ctx, q, psql.Select("p.layerKey").
		From("SwitchLayerChildren c").
		Join("Layers p ON p.LayerId = c.ParentLayerId").
		Where(squirrel.Eq{"c.ChildLayerId": id}).
		OrderBy("p.layerKey").Limit(1)).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("switch parent lookup: %w", err)
	}
	return key, nil
}

func loadChildren(ctx context.Context, q querier, cond squirrel.Sqlizer) (map[int64][]model.SwitchChild, error) {
	rows, err := query(ctx, q, psql.Select("c.ParentLayerId", "cl.layerKey", "c.position").
		From("SwitchLayerChildren c").
		Join("Layers l ON l.LayerId = c.ParentLayerId").
		Join("Layers cl ON cl.LayerId = c.ChildLayerId").
		Where(cond).OrderBy("c.ParentLayerId", "c.position"))
	if err != nil {
		return nil, fmt.Errorf("load switch children: %w", err)
	}
	defer rows.Close()
	out := map[int64][]model.SwitchChild{}
	for rows.Next() {
		var id int64
		var c model.SwitchChild
		if err := rows.Scan(&id, &c.LayerKey, &c.Position); err != nil {
			return nil, fmt.Errorf("scan switch child: %w", err)
		}
		out[id] = append(out[id], c)
	}
	return out, rows.Err()
}

// SetSwitchChildren replaces the ordered children of a switchlayer.
func (w *Writer) SetSwitchChildren(ctx context.Context, portalCode, parentKey string, childKeys []string) error {
	seen := map[string]bool{}
	for _, k := range childKeys {
		if seen[k] {
			return fmt.Errorf("%w: duplicate child %q", ErrInvalidLayer, k)
		}
		seen[k] = true
	}
	pid, err := portalID(ctx, w.q, portalCode)
	if err != nil {
		return err
	}
	parent, err := findLayer(ctx, w.q, pid, parentKey)
	if err != nil {
		return err
	}
	if parent.Type != model.LayerSwitch {
		return fmt.Errorf("%w: %q is a %s layer, not a switchlayer", ErrInvalidLayer, parentKey, parent.Type)
	}
	if err := setChildren(ctx, w.q, pid, parent.ID, childKeys); err != nil {
		return err
	}
	w.touch(portalCode)
	return nil
}

func (s *Store) SetSwitchChildren(ctx context.Context, portalCode, parentKey string, childKeys []string) error {
	return s.Write(ctx, func(w *Writer) error { return w.SetSwitchChildren(ctx, portalCode, parentKey, childKeys) })
}
