package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"MapLayerStore/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// ReplaceGridConfig rewrites the attribute-grid setup of one layer.
func (w *Writer) ReplaceGridConfig(ctx context.Context, portalCode, layerKey string, cfg model.GridConfig) error {
	if err := checkGrid(cfg); err != nil {
		return err
	}
	pid, err := portalID(ctx, w.q, portalCode)
	if err != nil {
		return err
	}
	ref, err := findLayer(ctx, w.q, pid, layerKey)
	if err != nil {
		return err
	}
	ids := []int64{ref.ID}
	for _, st := range stepsFor("GridColumnEdit", "GridColumns", "GridSorters", "GridFilterDefinitions", "GridMData") {
		if _, err := exec(ctx, w.q, psql.Delete(st.table).Where(st.where(ids))); err != nil {
			return fmt.Errorf("clear %s: %w", st.table, err)
		}
	}
	for _, b := range gridInsertSQL(ref.ID, cfg) {
		if _, err := exec(ctx, w.q, b); err != nil {
			return fmt.Errorf("write grid config for %q: %w", layerKey, classify(err))
		}
	}
	w.touch(portalCode)
	return nil
}

func checkGrid(cfg model.GridConfig) error {
	seen := map[string]bool{}
	for _, c := range cfg.Columns {
		if c.ColumnName == "" {
			return fmt.Errorf("%w: grid column without a name", ErrInvalidRequest)
		}
		if seen[c.ColumnName] {
			return fmt.Errorf("%w: duplicate grid column %q", ErrInvalidRequest, c.ColumnName)
		}
		seen[c.ColumnName] = true
	}
	for _, s := range cfg.Sorters {
		if s.Property == "" {
			return fmt.Errorf("%w: grid sorter without a property", ErrInvalidRequest)
		}
		if d := strings.ToUpper(s.Direction); d != "" && d != "ASC" && d != "DESC" {
			return fmt.Errorf("%w: grid sorter direction %q", ErrInvalidRequest, s.Direction)
		}
	}
	return nil
}

// gridInsertSQL builds the inserts for one layer's grid config, columns before their edit rows.
func gridInsertSQL(layerID int64, cfg model.GridConfig) []squirrel.Sqlizer {
	var out []squirrel.Sqlizer
	if m := cfg.MData; m != nil {
		out = append(out, psql.Insert("GridMData").Columns(append([]string{"LayerId"}, gridMDataColumns...)...).
			Values(layerID, m.IDField, m.GetID, m.Service, m.Window, m.Model, m.HelpPage, m.Controller,
				m.IsSwitch, m.IsSpatial, m.ExcelExporter, m.ShpExporter, cfg.HasEditable()))
	}
	if len(cfg.Columns) > 0 {
		ins := psql.Insert("GridColumns").Columns(append([]string{"LayerId"}, gridColumnColumns...)...)
		for i, c := range cfg.Columns {
			order := c.DisplayOrder
			if order == nil {
				order = model.Int32Ptr(int32(i + 1))
			}
			ins = ins.Values(layerID, c.ColumnName, c.Text, c.Renderer, c.ExType, c.InGrid, c.Hidden, c.NullText,
				c.NullValue, c.Zeros, c.NoFilter, c.Flex, c.CustomListValues, c.Editable, c.IndexValue, order)
		}
		out = append(out, ins)
	}
	for _, c := range cfg.Columns {
		if c.Edit == nil {
			continue
		}
		e := c.Edit
		sel := squirrel.Select("GridColumnId").
			Column("?::text", e.GroupEditIDProperty).Column("?::text", e.GroupEditDataProp).
			Column("?::text", e.EditServiceURL).Column("?::text", e.EditUserRole).
			From("GridColumns").
			Where(squirrel.Eq{"LayerId": layerID, "ColumnName": c.ColumnName})
		out = append(out, psql.Insert("GridColumnEdit").
			Columns(append([]string{"GridColumnId"}, gridColumnEditColumns...)...).Select(sel))
	}
	if len(cfg.Sorters) > 0 {
		ins := psql.Insert("GridSorters").Columns("LayerId", "Property", "Direction", "SortOrder")
		for i, s := range cfg.Sorters {
			dir := strings.ToUpper(s.Direction)
			if dir == "" {
				dir = "ASC"
			}
			ins = ins.Values(layerID, s.Property, dir, i+1)
		}
		out = append(out, ins)
	}
	if len(cfg.Filters) > 0 {
		ins := psql.Insert("GridFilterDefinitions").Columns(append([]string{"LayerId"}, gridFilterColumns...)...)
		for _, f := range cfg.Filters {
			ins = ins.Values(layerID, f.DataIndex, f.Store, f.StoreID, f.IDField, f.LabelField, f.LocalField)
		}
		out = append(out, ins)
	}
	return out
}

func (s *Store) ReplaceGridConfig(ctx context.Context, portalCode, layerKey string, cfg model.GridConfig) error {
	return s.Write(ctx, func(w *Writer) error { return w.ReplaceGridConfig(ctx, portalCode, layerKey, cfg) })
}

// GetGridConfig returns the grid setup of a layer; a layer without one yields an empty config.
func (s *Store) GetGridConfig(ctx context.Context, portalCode, layerKey string) (model.GridConfig, error) {
	pid, err := portalID(ctx, s.db, portalCode)
	if err != nil {
		return model.GridConfig{}, err
	}
	ref, err := findLayer(ctx, s.db, pid, layerKey)
	if err != nil {
		return model.GridConfig{}, err
	}
	return loadGrid(ctx, s.db, ref.ID)
}

func loadGrid(ctx context.Context, q querier, layerID int64) (model.GridConfig, error) {
	cfg := model.GridConfig{Columns: []model.GridColumn{}, Sorters: []model.GridSorter{}, Filters: []model.GridFilter{}}

	m := &model.GridMData{}
	err := queryRow(ctx, q, psql.Select(gridMDataColumns...).From("GridMData").Where(squirrel.Eq{"LayerId": layerID})).
		Scan(&m.IDField, &m.GetID, &m.Service, &m.Window, &m.Model, &m.HelpPage, &m.Controller,
			&m.IsSwitch, &m.IsSpatial, &m.ExcelExporter, &m.ShpExporter, &m.HasEditableColumns)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return cfg, fmt.Errorf("load grid mdata: %w", err)
	default:
		cfg.MData = m
	}

	rows, err := query(ctx, q, psql.Select(append(prefixed("c", gridColumnColumns), prefixed("e", gridColumnEditColumns)...)...).
		Column("e.GridColumnId IS NOT NULL").
		From("GridColumns c").
		LeftJoin("GridColumnEdit e ON e.GridColumnId = c.GridColumnId").
		Where(squirrel.Eq{"c.LayerId": layerID}).
		OrderBy("c.DisplayOrder", "c.GridColumnId"))
	if err != nil {
		return cfg, fmt.Errorf("load grid columns: %w", err)
	}
	for rows.Next() {
		var c model.GridColumn
		var e model.GridColumnEdit
		var hasEdit bool
		if err := rows.Scan(&c.ColumnName, &c.Text, &c.Renderer, &c.ExType, &c.InGrid, &c.Hidden, &c.NullText,
			&c.NullValue, &c.Zeros, &c.NoFilter, &c.Flex, &c.CustomListValues, &c.Editable, &c.IndexValue, &c.DisplayOrder,
			&e.GroupEditIDProperty, &e.GroupEditDataProp, &e.EditServiceURL, &e.EditUserRole, &hasEdit); err != nil {
			rows.Close()
			return cfg, fmt.Errorf("scan grid column: %w", err)
		}
		if hasEdit {
			c.Edit = &e
		}
		cfg.Columns = append(cfg.Columns, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return cfg, err
	}

	rows, err = query(ctx, q, psql.Select("Property", "Direction").From("GridSorters").
		Where(squirrel.Eq{"LayerId": layerID}).OrderBy("SortOrder"))
	if err != nil {
		return cfg, fmt.Errorf("load grid sorters: %w", err)
	}
	cfg.Sorters, err = pgx.CollectRows(rows, pgx.RowToStructByPos[model.GridSorter])
	if err != nil {
		return cfg, fmt.Errorf("load grid sorters: %w", err)
	}

	rows, err = query(ctx, q, psql.Select(gridFilterColumns...).From("GridFilterDefinitions").
		Where(squirrel.Eq{"LayerId": layerID}).OrderBy("GridFilterDefinitionId"))
	if err != nil {
		return cfg, fmt.Errorf("load grid filters: %w", err)
	}
	cfg.Filters, err = pgx.CollectRows(rows, pgx.RowToStructByPos[model.GridFilter])
	if err != nil {
		return cfg, fmt.Errorf("load grid filters: %w", err)
	}
	return cfg, nil
}
