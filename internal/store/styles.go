package store

import (
	"context"
	"fmt"

	"MapLayerStore/internal/model"

	"github.com/Masterminds/squirrel"
)

var styleColumns = []string{"name", "title", "labelRule", "legendUrl", "isDefault", "displayOrder"}

func insertStyles(ctx context.Context, q querier, layerID int64, styles []model.Style) error {
	if len(styles) == 0 {
		return nil
	}
	ins := psql.Insert("LayerStyles").Columns(append([]string{"LayerId"}, styleColumns...)...)
	for _, st := range model.NormalizeStyles(styles) {
		ins = ins.Values(layerID, st.Name, st.Title, st.LabelRule, st.LegendURL, st.IsDefault, st.DisplayOrder)
	}
	if _, err := exec(ctx, q, ins); err != nil {
		return fmt.Errorf("insert styles: %w", classify(err))
	}
	return nil
}

func loadStyles(ctx context.Context, q querier, cond squirrel.Sqlizer) (map[int64][]model.Style, error) {
	rows, err := query(ctx, q, psql.Select("s.LayerId", "s.name", "s.title", "s.labelRule", "s.legendUrl", "s.isDefault", "s.displayOrder").
		From("LayerStyles s").Join("Layers l ON l.LayerId = s.LayerId").Where(cond).
		OrderBy("s.LayerId", "s.displayOrder", "s.name"))
	if err != nil {
		return nil, fmt.Errorf("load styles: %w", err)
	}
	defer rows.Close()
	out := map[int64][]model.Style{}
	for rows.Next() {
		var id int64
		var st model.Style
		if err := rows.Scan(&id, &st.Name, &st.Title, &st.LabelRule, &st.LegendURL, &st.IsDefault, &st.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan style: %w", err)
		}
		out[id] = append(out[id], st)
	}
	return out, rows.Err()
}

// AddStyle appends a style to a layer. A zero DisplayOrder places it after the existing ones.
// Marking it default clears the flag on the others.
func (w *Writer) AddStyle(ctx context.Context, portalCode, layerKey string, st model.Style) error {
	if st.Name == "" {
		return fmt.Errorf("%w: style name is required", ErrInvalidRequest)
	}
	pid, err := portalID(ctx, w.q, portalCode)
	if err != nil {
		return err
	}
	ref, err := findLayer(ctx, w.q, pid, layerKey)
	if err != nil {
		return err
	}
	if !ref.Type.HasStyles() {
		return fmt.Errorf("%w: %s layer %q does not take styles", ErrInvalidLayer, ref.Type, layerKey)
	}
	if st.DisplayOrder == 0 {
		err := queryRow(ctx, w.q, psql.Select("COALESCE(MAX(displayOrder), 0) + 1").From("LayerStyles").
			Where(squirrel.Eq{"LayerId": ref.ID})).Scan(&st.DisplayOrder)
		if err != nil {
			return fmt.Errorf("next style order: %w", err)
		}
	}
	if st.IsDefault {
		upd := psql.Update("LayerStyles").Set("isDefault", false).Where(squirrel.Eq{"LayerId": ref.ID})
		if _, err := exec(ctx, w.q, upd); err != nil {
			return fmt.Errorf("clear default style: %w", err)
		}
	}
	if st.Title == nil {
		st.Title = model.StringPtr(st.Name)
	}
	ins := psql.Insert("LayerStyles").Columns(append([]string{"LayerId"}, styleColumns...)...).
		Values(ref.ID, st.Name, st.Title, st.LabelRule, st.LegendURL, st.IsDefault, st.DisplayOrder)
	if _, err := exec(ctx, w.q, ins); err != nil {
		return fmt.Errorf("add style %q: %w", st.Name, classify(err))
	}
	w.touch(portalCode)
	return nil
}

func (w *Writer) RemoveStyle(ctx context.Context, portalCode, layerKey, name string) error {
	pid, err := portalID(ctx, w.q, portalCode)
	if err != nil {
		return err
	}
	ref, err := findLayer(ctx, w.q, pid, layerKey)
	if err != nil {
		return err
	}
	n, err := exec(ctx, w.q, psql.Delete("LayerStyles").Where(squirrel.Eq{"LayerId": ref.ID, "name": name}))
	if err != nil {
		return fmt.Errorf("remove style %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: style %q on %q", ErrNotFound, name, layerKey)
	}
	w.touch(portalCode)
	return nil
}

func (s *Store) AddStyle(ctx context.Context, portalCode, layerKey string, st model.Style) error {
	return s.Write(ctx, func(w *Writer) error { return w.AddStyle(ctx, portalCode, layerKey, st) })
}

func (s *Store) RemoveStyle(ctx context.Context, portalCode, layerKey, name string) error {
	return s.Write(ctx, func(w *Writer) error { return w.RemoveStyle(ctx, portalCode, layerKey, name) })
}

// layerIDs resolves keys inside one portal, reporting every missing key at once.
func layerIDs(ctx context.Context, q querier, portalID int64, keys []string) (map[string]layerRef, error) {
	rows, err := query(ctx, q, psql.Select("layerKey", "LayerId", "layerType").From("Layers").
		Where(squirrel.Eq{"PortalId": portalID, "layerKey": keys}))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]layerRef, len(keys))
	for rows.Next() {
		var key, typ string
		var ref layerRef
		if err := rows.Scan(&key, &ref.ID, &typ); err != nil {
			return nil, err
		}
		ref.Type = model.LayerType(typ)
		out[key] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []string
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrLayerNotFound, missing)
	}
	return out, nil
}

