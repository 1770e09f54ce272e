package store

import (
	"context"
	"fmt"

	"MapLayerStore/internal/model"

	"github.com/Masterminds/squirrel"
)

func (w *Writer) SetGlobalDefault(ctx context.Context, portalCode string, d model.GlobalDefault) error {
	if err := d.Check(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	pid, err := portalID(ctx, w.q, portalCode)
	if err != nil {
		return err
	}
	ins := psql.Insert("GlobalDefaults").Columns("PortalId", "key", "valueJSON").
		Values(pid, d.Key, d.ValueJSON).
		Suffix("ON CONFLICT (PortalId, key) DO UPDATE SET valueJSON = EXCLUDED.valueJSON")
	if _, err := exec(ctx, w.q, ins); err != nil {
		return fmt.Errorf("set global default %q: %w", d.Key, err)
	}
	w.touch(portalCode)
	return nil
}

func (w *Writer) SetLayerTypeDefaults(ctx context.Context, portalCode string, d model.TypeDefaults) error {
	if err := d.Check(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	pid, err := portalID(ctx, w.q, portalCode)
	if err != nil {
		return err
	}
	if _, err := exec(ctx, w.q, upsertTypeDefaults(pid, d)); err != nil {
		return fmt.Errorf("set %s defaults: %w", d.LayerType, err)
	}
	w.touch(portalCode)
	return nil
}

func upsertTypeDefaults(pid int64, d model.TypeDefaults) squirrel.InsertBuilder {
	return psql.Insert("LayerTypeDefaults").Columns("PortalId", "layerType", "defaultsJSON").
		Values(pid, string(d.LayerType), d.DefaultsJSON).
		Suffix("ON CONFLICT (PortalId, layerType) DO UPDATE SET defaultsJSON = EXCLUDED.defaultsJSON")
}

func (w *Writer) SetOverride(ctx context.Context, portalCode string, o model.Override) error {
	if err := o.Check(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	pid, err := portalID(ctx, w.q, portalCode)
	if err != nil {
		return err
	}
	ins := psql.Insert("EnvironmentOverrides").Columns("PortalId", "envName", "scope", "scopeId", "overridesJSON").
		Values(pid, o.EnvName, string(o.Scope), o.ScopeID, o.OverridesJSON).
		Suffix("ON CONFLICT (PortalId, envName, scope, scopeId) DO UPDATE SET overridesJSON = EXCLUDED.overridesJSON")
	if _, err := exec(ctx, w.q, ins); err != nil {
		return fmt.Errorf("set override %s/%s/%s: %w", o.EnvName, o.Scope, o.ScopeID, err)
	}
	w.touch(portalCode)
	return nil
}

// ReplaceDefaults rewrites the portal's global and layer-type defaults. A
// switchlayer entry is always present afterwards.
func (w *Writer) ReplaceDefaults(ctx context.Context, portalCode string, globals []model.GlobalDefault, types []model.TypeDefaults) error {
	for _, g := range globals {
		if err := g.Check(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	hasSwitch := false
	for _, t := range types {
		if err := t.Check(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		hasSwitch = hasSwitch || t.LayerType == model.LayerSwitch
	}
	if !hasSwitch {
		types = append(types, model.TypeDefaults{LayerType: model.LayerSwitch, DefaultsJSON: model.SwitchLayerTypeDefaults})
	}
	pid, err := portalID(ctx, w.q, portalCode)
	if err != nil {
		return err
	}
	for _, table := range []string{"GlobalDefaults", "LayerTypeDefaults"} {
		if _, err := exec(ctx, w.q, psql.Delete(table).Where(squirrel.Eq{"PortalId": pid})); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if len(globals) > 0 {
		ins := psql.Insert("GlobalDefaults").Columns("PortalId", "key", "valueJSON")
		for _, g := range globals {
			ins = ins.Values(pid, g.Key, g.ValueJSON)
		}
		if _, err := exec(ctx, w.q, ins); err != nil {
			return fmt.Errorf("insert global defaults: %w", classify(err))
		}
	}
	for _, t := range types {
		if _, err := exec(ctx, w.q, upsertTypeDefaults(pid, t)); err != nil {
			return fmt.Errorf("insert %s defaults: %w", t.LayerType, err)
		}
	}
	w.touch(portalCode)
	return nil
}

func (s *Store) SetGlobalDefault(ctx context.Context, portalCode string, d model.GlobalDefault) error {
	return s.Write(ctx, func(w *Writer) error { return w.SetGlobalDefault(ctx, portalCode, d) })
}

func (s *Store) SetLayerTypeDefaults(ctx context.Context, portalCode string, d model.TypeDefaults) error {
	return s.Write(ctx, func(w *Writer) error { return w.SetLayerTypeDefaults(ctx, portalCode, d) })
}

func (s *Store) SetOverride(ctx context.Context, portalCode string, o model.Override) error {
	return s.Write(ctx, func(w *Writer) error { return w.SetOverride(ctx, portalCode, o) })
}

func (s *Store) ReplaceDefaults(ctx context.Context, portalCode string, globals []model.GlobalDefault, types []model.TypeDefaults) error {
	return s.Write(ctx, func(w *Writer) error { return w.ReplaceDefaults(ctx, portalCode, globals, types) })
}

func loadGlobals(ctx context.Context, q querier, pid int64) ([]model.GlobalDefault, error) {
	rows, err := query(ctx, q, psql.Select("key", "valueJSON").From("GlobalDefaults").
		Where(squirrel.Eq{"PortalId": pid}).OrderBy("key"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GlobalDefault
	for rows.Next() {
		var g model.GlobalDefault
		if err := rows.Scan(&g.Key, &g.ValueJSON); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func loadTypeDefaults(ctx context.Context, q querier, pid int64) ([]model.TypeDefaults, error) {
	rows, err := query(ctx, q, psql.Select("layerType", "defaultsJSON").From("LayerTypeDefaults").
		Where(squirrel.Eq{"PortalId": pid}).OrderBy("layerType"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TypeDefaults
	for rows.Next() {
		var typ string
		var d model.TypeDefaults
		if err := rows.Scan(&typ, &d.DefaultsJSON); err != nil {
			return nil, err
		}
		d.LayerType = model.LayerType(typ)
		out = append(out, d)
	}
	return out, rows.Err()
}

func loadOverrides(ctx context.Context, q querier, pid int64, env string) ([]model.Override, error) {
	sel := psql.Select("envName", "scope", "scopeId", "overridesJSON").From("EnvironmentOverrides").
		Where(squirrel.Eq{"PortalId": pid}).OrderBy("envName", "scope", "scopeId")
	if env != "" {
		sel = sel.Where(squirrel.Eq{"envName": env})
	}
	rows, err := query(ctx, q, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Override
	for rows.Next() {
		var scope string
		var o model.Override
		if err := rows.Scan(&o.EnvName, &scope, &o.ScopeID, &o.OverridesJSON); err != nil {
			return nil, err
		}
		o.Scope = model.OverrideScope(scope)
		out = append(out, o)
	}
	return out, rows.Err()
}
