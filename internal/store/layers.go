package store

import (
	"context"
	"errors"
	"fmt"

	"MapLayerStore/internal/logger"
	"MapLayerStore/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// layerColumns are the Layers columns written from a model.Layer, in value order.
var layerColumns = []string{
	"PortalId", "layerKey", "layerType", "title", "gridXType", "helpPage", "view",
	"idProperty", "geomFieldName", "labelClassId", "noCluster", "visibility",
	"featureInfoWindow", "hasMetadata", "isBaseLayer", "vectorFeaturesMinScale",
	"legendWidth", "qtip", "openLayersJSON", "groupingJSON", "tooltipsConfigJSON",
	"url", "legendUrl", "requestMethod",
}

func layerValues(l model.Layer, portalID int64, labelClassID *int64) []any {
	return []any{
		portalID, l.Key, string(l.Type), l.Title, l.GridXType, l.HelpPage, l.View,
		l.IDProperty, l.GeomFieldName, labelClassID, l.NoCluster, l.Visibility,
		l.FeatureInfoWindow, l.HasMetadata, l.IsBaseLayer, l.VectorFeaturesMinScale,
		l.LegendWidth, l.Qtip, l.OpenLayersJSON, l.GroupingJSON, l.TooltipsConfigJSON,
		l.URL, l.LegendURL, l.RequestMethod,
	}
}

func selectLayers() squirrel.SelectBuilder {
	return psql.Select(
		"l.LayerId", "l.PortalId", "l.layerKey", "l.layerType", "l.title", "l.gridXType",
		"l.helpPage", "l.view", "l.idProperty", "l.geomFieldName", "lc.name", "l.noCluster",
		"l.visibility", "l.featureInfoWindow", "l.hasMetadata", "l.isBaseLayer",
		"l.vectorFeaturesMinScale", "l.legendWidth", "l.qtip", "l.openLayersJSON",
		"l.groupingJSON", "l.tooltipsConfigJSON", "l.url", "l.legendUrl", "l.requestMethod",
	).From("Layers l").LeftJoin("LabelClasses lc ON lc.LabelClassId = l.labelClassId")
}

func scanLayer(row pgx.Row) (model.Layer, error) {
	var l model.Layer
	var typ string
	err := row.Scan(
		&l.ID, &l.PortalID, &l.Key, &typ, &l.Title, &l.GridXType,
		&l.HelpPage, &l.View, &l.IDProperty, &l.GeomFieldName, &l.LabelClassName, &l.NoCluster,
		&l.Visibility, &l.FeatureInfoWindow, &l.HasMetadata, &l.IsBaseLayer,
		&l.VectorFeaturesMinScale, &l.LegendWidth, &l.Qtip, &l.OpenLayersJSON,
		&l.GroupingJSON, &l.TooltipsConfigJSON, &l.URL, &l.LegendURL, &l.RequestMethod,
	)
	l.Type = model.LayerType(typ)
	return l, err
}

type layerRef struct {
	ID   int64
	Type model.LayerType
}

func findLayer(ctx context.Context, q querier, portalID int64, key string) (layerRef, error) {
	var ref layerRef
	var typ string
	err := queryRow(ctx, q, psql.Select("LayerId", "layerType").From("Layers").
		Where(squirrel.Eq{"PortalId": portalID, "layerKey": key})).Scan(&ref.ID, &typ)
	if errors.Is(err, pgx.ErrNoRows) {
		return ref, fmt.Errorf("%w: %q", ErrLayerNotFound, key)
	}
	if err != nil {
		return ref, fmt.Errorf("resolve layer %q: %w", key, err)
	}
	ref.Type = model.LayerType(typ)
	return ref, nil
}

// ensureLabelClass returns the id of the named label class, inserting it on first use.
func ensureLabelClass(ctx context.Context, q querier, name *string) (*int64, error) {
	if name == nil || *name == "" {
		return nil, nil
	}
	var id int64
	ins := psql.Insert("LabelClasses").Columns("name").Values(*name).
		Suffix("ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING LabelClassId")
	if err := queryRow(ctx, q, ins).Scan(&id); err != nil {
		return nil, fmt.Errorf("ensure label class %q: %w", *name, err)
	}
	return &id, nil
}

// CreateLayer inserts the layer, its options row, styles and switch children.
func (w *Writer) CreateLayer(ctx context.Context, spec model.LayerSpec) (model.LayerDetail, error) {
	if err := spec.Validate(); err != nil {
		return model.LayerDetail{}, err
	}
	pid, err := portalID(ctx, w.q, spec.PortalCode)
	if err != nil {
		return model.LayerDetail{}, err
	}
	id, err := w.insertLayer(ctx, pid, spec)
	if err != nil {
		return model.LayerDetail{}, err
	}
	w.touch(spec.PortalCode)
	logger.Info("layer_created", map[string]any{
		"portal": spec.PortalCode, "layer_key": spec.Layer.Key, "layer_type": spec.Layer.Type, "layer_id": id,
	})
	return getLayerDetail(ctx, w.q, id)
}

func (w *Writer) insertLayer(ctx context.Context, pid int64, spec model.LayerSpec) (int64, error) {
	lcID, err := ensureLabelClass(ctx, w.q, spec.Layer.LabelClassName)
	if err != nil {
		return 0, err
	}
	var id int64
	ins := psql.Insert("Layers").Columns(layerColumns...).
		Values(layerValues(spec.Layer, pid, lcID)...).Suffix("RETURNING LayerId")
	if err := queryRow(ctx, w.q, ins).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert layer %q: %w", spec.Layer.Key, classify(err))
	}
	if err := insertOptions(ctx, w.q, id, spec.Options); err != nil {
		return 0, err
	}
	if err := insertStyles(ctx, w.q, id, spec.Styles); err != nil {
		return 0, err
	}
	if len(spec.Children) > 0 {
		if err := setChildren(ctx, w.q, pid, id, spec.Children); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// UpdateLayer rewrites an existing layer in place. Its LayerId, and so every
// reference held by tree nodes, grid rows and parent switch layers, is kept.
func (w *Writer) UpdateLayer(ctx context.Context, spec model.LayerSpec) (model.LayerDetail, error) {
	if err := spec.Validate(); err != nil {
		return model.LayerDetail{}, err
	}
	pid, err := portalID(ctx, w.q, spec.PortalCode)
	if err != nil {
		return model.LayerDetail{}, err
	}
	ref, err := findLayer(ctx, w.q, pid, spec.Layer.Key)
	if err != nil {
		return model.LayerDetail{}, err
	}
	if err := w.rewriteLayer(ctx, pid, ref.ID, spec); err != nil {
		return model.LayerDetail{}, err
	}
	w.touch(spec.PortalCode)
	logger.Info("layer_updated", map[string]any{
		"portal": spec.PortalCode, "layer_key": spec.Layer.Key, "layer_id": ref.ID,
	})
	return getLayerDetail(ctx, w.q, ref.ID)
}

func (w *Writer) rewriteLayer(ctx context.Context, pid, id int64, spec model.LayerSpec) error {
	if spec.Layer.Type == model.LayerSwitch {
		parent, err := switchParentOf(ctx, w.q, id)
		if err != nil {
			return err
		}
		if parent != "" {
			return fmt.Errorf("%w: %q is a child of switch layer %q; switch layers do not nest",
				ErrInvalidLayer, spec.Layer.Key, parent)
		}
	}
	lcID, err := ensureLabelClass(ctx, w.q, spec.Layer.LabelClassName)
	if err != nil {
		return err
	}
	upd := psql.Update("Layers").Where(squirrel.Eq{"LayerId": id})
	vals := layerValues(spec.Layer, pid, lcID)
	for i, col := range layerColumns {
		if col == "PortalId" || col == "layerKey" {
			continue
		}
		upd = upd.Set(col, vals[i])
	}
	if _, err := exec(ctx, w.q, upd); err != nil {
		return fmt.Errorf("update layer %q: %w", spec.Layer.Key, err)
	}
	if _, err := deleteOptions(ctx, w.q, []int64{id}); err != nil {
		return err
	}
	if err := insertOptions(ctx, w.q, id, spec.Options); err != nil {
		return err
	}
	if _, err := exec(ctx, w.q, psql.Delete("LayerStyles").Where(squirrel.Eq{"LayerId": id})); err != nil {
		return fmt.Errorf("clear styles: %w", err)
	}
	if err := insertStyles(ctx, w.q, id, spec.Styles); err != nil {
		return err
	}
	if _, err := exec(ctx, w.q, psql.Delete("SwitchLayerChildren").Where(squirrel.Eq{"ParentLayerId": id})); err != nil {
		return fmt.Errorf("clear switch children: %w", err)
	}
	if len(spec.Children) > 0 {
		return setChildren(ctx, w.q, pid, id, spec.Children)
	}
	return nil
}

// UpsertLayer updates the layer when its key exists in the portal and creates it otherwise.
func (w *Writer) UpsertLayer(ctx context.Context, spec model.LayerSpec) (model.LayerDetail, bool, error) {
	pid, err := portalID(ctx, w.q, spec.PortalCode)
	if err != nil {
		return model.LayerDetail{}, false, err
	}
	_, err = findLayer(ctx, w.q, pid, spec.Layer.Key)
	switch {
	case errors.Is(err, ErrLayerNotFound):
		d, err := w.CreateLayer(ctx, spec)
		return d, true, err
	case err != nil:
		return model.LayerDetail{}, false, err
	}
	d, err := w.UpdateLayer(ctx, spec)
	return d, false, err
}

func (s *Store) CreateLayer(ctx context.Context, spec model.LayerSpec) (d model.LayerDetail, err error) {
	err = s.Write(ctx, func(w *Writer) error {
		d, err = w.CreateLayer(ctx, spec)
		return err
	})
	return d, err
}

func (s *Store) UpdateLayer(ctx context.Context, spec model.LayerSpec) (d model.LayerDetail, err error) {
	err = s.Write(ctx, func(w *Writer) error {
		d, err = w.UpdateLayer(ctx, spec)
		return err
	})
	return d, err
}

func (s *Store) UpsertLayer(ctx context.Context, spec model.LayerSpec) (d model.LayerDetail, created bool, err error) {
	err = s.Write(ctx, func(w *Writer) error {
		d, created, err = w.UpsertLayer(ctx, spec)
		return err
	})
	return d, created, err
}

func getLayerDetail(ctx context.Context, q querier, id int64) (model.LayerDetail, error) {
	details, err := loadDetails(ctx, q, squirrel.Eq{"l.LayerId": id})
	if err != nil {
		return model.LayerDetail{}, err
	}
	if len(details) == 0 {
		return model.LayerDetail{}, fmt.Errorf("%w: id %d", ErrLayerNotFound, id)
	}
	return details[0], nil
}

// GetLayer returns the layer with its options row, styles by displayOrder and
// switch children by position.
func (s *Store) GetLayer(ctx context.Context, portalCode, key string) (model.LayerDetail, error) {
	pid, err := portalID(ctx, s.db, portalCode)
	if err != nil {
		return model.LayerDetail{}, err
	}
	details, err := loadDetails(ctx, s.db, squirrel.Eq{"l.PortalId": pid, "l.layerKey": key})
	if err != nil {
		return model.LayerDetail{}, err
	}
	if len(details) == 0 {
		return model.LayerDetail{}, fmt.Errorf("%w: %q", ErrLayerNotFound, key)
	}
	return details[0], nil
}

// ListLayers returns the portal's layer rows ordered by key.
func (s *Store) ListLayers(ctx context.Context, portalCode string) ([]model.Layer, error) {
	pid, err := portalID(ctx, s.db, portalCode)
	if err != nil {
		return nil, err
	}
	rows, err := query(ctx, s.db, selectLayers().Where(squirrel.Eq{"l.PortalId": pid}).OrderBy("l.layerKey"))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.Layer, error) { return scanLayer(r) })
}

// loadDetails loads every layer matching cond (over alias l) with the rows it owns.
func loadDetails(ctx context.Context, q querier, cond squirrel.Sqlizer) ([]model.LayerDetail, error) {
	rows, err := query(ctx, q, selectLayers().Where(cond).OrderBy("l.layerKey"))
	if err != nil {
		return nil, err
	}
	layers, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.Layer, error) { return scanLayer(r) })
	if err != nil {
		return nil, fmt.Errorf("load layers: %w", err)
	}
	if len(layers) == 0 {
		return nil, nil
	}
	options, err := loadOptions(ctx, q, cond)
	if err != nil {
		return nil, err
	}
	styles, err := loadStyles(ctx, q, cond)
	if err != nil {
		return nil, err
	}
	children, err := loadChildren(ctx, q, cond)
	if err != nil {
		return nil, err
	}
	out := make([]model.LayerDetail, len(layers))
	for i, l := range layers {
		out[i] = model.LayerDetail{
			Layer:    l,
			Options:  options[l.ID],
			Styles:   styles[l.ID],
			Children: children[l.ID],
		}
		if out[i].Styles == nil {
			out[i].Styles = []model.Style{}
		}
	}
	return out, nil
}
