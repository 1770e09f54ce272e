package store

import (
	"context"
	"fmt"

	"MapLayerStore/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// optionTables lists the per-type options tables with their payload columns.
var optionTables = []struct {
	Table   string
	Type    model.LayerType
	Columns []string
}{
	{"LayerWmsOptions", model.LayerWMS, []string{"layers", "orderBy", "styles", "version", "maxResolution", "requestMethod", "dateFormat"}},
	{"LayerWfsOptions", model.LayerWFS, []string{"featureType", "propertyName", "version", "maxResolution"}},
	{"LayerXyzOptions", model.LayerXYZ, []string{"urlTemplate", "accessToken", "projection", "tileSize", "attributionHTML", "extentJSON", "tileGridJSON"}},
	{"LayerArcGisRestOptions", model.LayerArcGISRest, []string{"url"}},
}

func insertOptionsSQL(layerID int64, o model.LayerOptions) (squirrel.InsertBuilder, bool) {
	o = o.WithDefaults()
	switch {
	case o.WMS != nil:
		v := o.WMS
		return psql.Insert("LayerWmsOptions").
			Columns("LayerId", "layers", "orderBy", "styles", "version", "maxResolution", "requestMethod", "dateFormat").
			Values(layerID, v.Layers, v.OrderBy, v.Styles, v.Version, v.MaxResolution, v.RequestMethod, v.DateFormat), true
	case o.WFS != nil:
		v := o.WFS
		return psql.Insert("LayerWfsOptions").
			Columns("LayerId", "featureType", "propertyName", "version", "maxResolution").
			Values(layerID, v.FeatureType, v.PropertyName, v.Version, v.MaxResolution), true
	case o.XYZ != nil:
		v := o.XYZ
		return psql.Insert("LayerXyzOptions").
			Columns("LayerId", "urlTemplate", "accessToken", "projection", "tileSize", "attributionHTML", "extentJSON", "tileGridJSON").
			Values(layerID, v.URLTemplate, v.AccessToken, v.Projection, v.TileSize, v.AttributionHTML, v.ExtentJSON, v.TileGridJSON), true
	case o.ArcGISRest != nil:
		return psql.Insert("LayerArcGisRestOptions").Columns("LayerId", "url").
			Values(layerID, o.ArcGISRest.URL), true
	}
	return squirrel.InsertBuilder{}, false
}

func insertOptions(ctx context.Context, q querier, layerID int64, o model.LayerOptions) error {
	ins, ok := insertOptionsSQL(layerID, o)
	if !ok {
		return nil
	}
	if _, err := exec(ctx, q, ins); err != nil {
		return fmt.Errorf("insert %s options: %w", o.Kind(), err)
	}
	return nil
}

// deleteOptions clears all four options tables for the layers and returns rows removed per table.
func deleteOptions(ctx context.Context, q querier, layerIDs []int64) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, t := range optionTables {
		n, err := exec(ctx, q, psql.Delete(t.Table).Where(squirrel.Eq{"LayerId": layerIDs}))
		if err != nil {
			return nil, fmt.Errorf("delete %s: %w", t.Table, err)
		}
		counts[t.Table] = n
	}
	return counts, nil
}

func optionsQuery(table string, cols []string, cond squirrel.Sqlizer) squirrel.SelectBuilder {
	sel := make([]string, 0, len(cols)+1)
	sel = append(sel, "o.LayerId")
	for _, c := range cols {
		sel = append(sel, "o."+c)
	}
	return psql.Select(sel...).From(table + " o").Join("Layers l ON l.LayerId = o.LayerId").Where(cond)
}

// loadOptions returns the options row of every layer matching cond, keyed by LayerId.
func loadOptions(ctx context.Context, q querier, cond squirrel.Sqlizer) (map[int64]model.LayerOptions, error) {
	out := map[int64]model.LayerOptions{}
	for _, t := range optionTables {
		rows, err := query(ctx, q, optionsQuery(t.Table, t.Columns, cond))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", t.Table, err)
		}
		err = scanOptionRows(rows, t.Type, out)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", t.Table, err)
		}
	}
	return out, nil
}

func scanOptionRows(rows pgx.Rows, typ model.LayerType, out map[int64]model.LayerOptions) error {
	defer rows.Close()
	for rows.Next() {
		var id int64
		var o model.LayerOptions
		var err error
		switch typ {
		case model.LayerWMS:
			v := &model.WMSOptions{}
			err = rows.Scan(&id, &v.Layers, &v.OrderBy, &v.Styles, &v.Version, &v.MaxResolution, &v.RequestMethod, &v.DateFormat)
			o.WMS = v
		case model.LayerWFS:
			v := &model.WFSOptions{}
			err = rows.Scan(&id, &v.FeatureType, &v.PropertyName, &v.Version, &v.MaxResolution)
			o.WFS = v
		case model.LayerXYZ:
			v := &model.XYZOptions{}
			err = rows.Scan(&id, &v.URLTemplate, &v.AccessToken, &v.Projection, &v.TileSize, &v.AttributionHTML, &v.ExtentJSON, &v.TileGridJSON)
			o.XYZ = v
		case model.LayerArcGISRest:
			v := &model.ArcGISRestOptions{}
			err = rows.Scan(&id, &v.URL)
			o.ArcGISRest = v
		}
		if err != nil {
			return err
		}
		out[id] = o
	}
	return rows.Err()
}

// WMSLayers maps each WMS layer of the portal to its requested LAYERS value.
func (s *Store) WMSLayers(ctx context.Context, portalCode string) (map[string]string, error) {
	pid, err := portalID(ctx, s.db, portalCode)
	if err != nil {
		return nil, err
	}
	rows, err := query(ctx, s.db, psql.Select("l.layerKey", "o.layers").
		From("LayerWmsOptions o").
		Join("Layers l ON l.LayerId = o.LayerId").
		Where(squirrel.Eq{"l.PortalId": pid}))
	if err != nil {
		return nil, fmt.Errorf("load wms layers: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, layers string
		if err := rows.Scan(&key, &layers); err != nil {
			return nil, fmt.Errorf("scan wms layers: %w", err)
		}
		out[key] = layers
	}
	return out, rows.Err()
}
