package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"MapLayerStore/internal/logger"
	"MapLayerStore/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

func portalID(ctx context.Context, q querier, code string) (int64, error) {
	var id int64
	err := queryRow(ctx, q, psql.Select("PortalId").From("Portals").Where(squirrel.Eq{"code": code})).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", ErrPortalNotFound, code)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve portal %q: %w", code, err)
	}
	return id, nil
}

func scanPortal(row pgx.Row) (model.Portal, error) {
	var p model.Portal
	err := row.Scan(&p.ID, &p.Code, &p.Title)
	return p, err
}

// TitleFromCode turns "default_portal" into "Default Portal".
func TitleFromCode(code string) string {
	words := strings.FieldsFunc(code, func(r rune) bool { return r == '_' || r == '-' || unicode.IsSpace(r) })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// EnsurePortal returns the portal with the given code, creating it when absent.
func (w *Writer) EnsurePortal(ctx context.Context, code string, title *string) (model.Portal, error) {
	if strings.TrimSpace(code) == "" {
		return model.Portal{}, fmt.Errorf("%w: portal code is required", ErrInvalidRequest)
	}
	if title == nil {
		title = model.StringPtr(TitleFromCode(code))
	}
	ins := psql.Insert("Portals").Columns("code", "title").Values(code, title).
		Suffix("ON CONFLICT (code) DO NOTHING")
	if _, err := exec(ctx, w.q, ins); err != nil {
		return model.Portal{}, fmt.Errorf("ensure portal %q: %w", code, err)
	}
	p, err := scanPortal(queryRow(ctx, w.q, selectPortals().Where(squirrel.Eq{"code": code})))
	if err != nil {
		return model.Portal{}, fmt.Errorf("ensure portal %q: %w", code, err)
	}
	w.touch(code)
	return p, nil
}

func (s *Store) EnsurePortal(ctx context.Context, code string, title *string) (p model.Portal, err error) {
	err = s.Write(ctx, func(w *Writer) error {
		p, err = w.EnsurePortal(ctx, code, title)
		return err
	})
	return p, err
}

// CreatePortal fails with ErrDuplicatePortal when the code is taken.
func (s *Store) CreatePortal(ctx context.Context, code string, title *string) (p model.Portal, err error) {
	if strings.TrimSpace(code) == "" {
		return p, fmt.Errorf("%w: portal code is required", ErrInvalidRequest)
	}
	err = s.Write(ctx, func(w *Writer) error {
		ins := psql.Insert("Portals").Columns("code", "title").Values(code, title).
			Suffix("RETURNING PortalId, code, title")
		p, err = scanPortal(queryRow(ctx, w.q, ins))
		if err != nil {
			return err
		}
		w.touch(code)
		return nil
	})
	return p, err
}

func selectPortals() squirrel.SelectBuilder {
	return psql.Select("PortalId", "code", "title").From("Portals")
}

func (s *Store) GetPortal(ctx context.Context, code string) (model.Portal, error) {
	p, err := scanPortal(queryRow(ctx, s.db, selectPortals().Where(squirrel.Eq{"code": code})))
	if errors.Is(err, pgx.ErrNoRows) {
		return p, fmt.Errorf("%w: %q", ErrPortalNotFound, code)
	}
	return p, err
}

func (s *Store) ListPortals(ctx context.Context) ([]model.Portal, error) {
	rows, err := query(ctx, s.db, selectPortals().OrderBy("code"))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.Portal, error) { return scanPortal(r) })
}

// portalLayers selects the LayerIds owned by a portal.
func portalLayers(portalID int64) squirrel.SelectBuilder {
	return squirrel.Select("LayerId").From("Layers").Where(squirrel.Eq{"PortalId": portalID})
}

// deletePortalSQL clears the rows that hold NO ACTION references into the
// portal's layers, then the portal itself. Everything else cascades.
func deletePortalSQL(portalID int64) ([]squirrel.DeleteBuilder, []string) {
	links := psql.Delete("SwitchLayerChildren").Where(squirrel.Or{
		squirrel.Expr("ParentLayerId IN (?)", portalLayers(portalID)),
		squirrel.Expr("ChildLayerId IN (?)", portalLayers(portalID)),
	})
	return []squirrel.DeleteBuilder{
		links,
		psql.Delete("PortalTreeNodes").Where(squirrel.Eq{"PortalId": portalID}),
		psql.Delete("Portals").Where(squirrel.Eq{"PortalId": portalID}),
	}, []string{"SwitchLayerChildren", "PortalTreeNodes", "Portals"}
}

// DeletePortal removes a portal with its layers and everything they own.
func (w *Writer) DeletePortal(ctx context.Context, code string) (DeleteReport, error) {
	report := DeleteReport{Layers: []string{}}
	pid, err := portalID(ctx, w.q, code)
	if err != nil {
		return report, err
	}
	keys, err := query(ctx, w.q, psql.Select("layerKey").From("Layers").
		Where(squirrel.Eq{"PortalId": pid}).OrderBy("layerKey"))
	if err != nil {
		return report, fmt.Errorf("list layers of %q: %w", code, err)
	}
	report.Layers, err = pgx.CollectRows(keys, pgx.RowTo[string])
	if err != nil {
		return report, fmt.Errorf("list layers of %q: %w", code, err)
	}
	stmts, tables := deletePortalSQL(pid)
	for i, stmt := range stmts {
		n, err := exec(ctx, w.q, stmt)
		if err != nil {
			return report, fmt.Errorf("delete from %s: %w", tables[i], classify(err))
		}
		report.add(tables[i], n)
	}
	w.touch(code)
	logger.Info("portal_deleted", map[string]any{"portal": code, "layers": len(report.Layers), "tables": report.Tables})
	return report, nil
}

func (s *Store) DeletePortal(ctx context.Context, code string) (r DeleteReport, err error) {
	err = s.Write(ctx, func(w *Writer) error {
		r, err = w.DeletePortal(ctx, code)
		return err
	})
	return r, err
}
