package store

import (
	"context"
	"errors"
	"fmt"

	"MapLayerStore/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// LoadSnapshot reads a portal's defaults, the overrides of env (all
// environments when env is empty) and its layers from one repeatable-read
// transaction. The tree is not part of the client document.
func (s *Store) LoadSnapshot(ctx context.Context, portalCode, env string) (*model.PortalSnapshot, error) {
	var snap *model.PortalSnapshot
	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		p, err := scanPortal(queryRow(ctx, tx, selectPortals().Where(squirrel.Eq{"code": portalCode})))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %q", ErrPortalNotFound, portalCode)
			}
			return err
		}
		snap = &model.PortalSnapshot{Portal: p}
		if snap.Globals, err = loadGlobals(ctx, tx, p.ID); err != nil {
			return fmt.Errorf("load global defaults: %w", err)
		}
		if snap.TypeDefaults, err = loadTypeDefaults(ctx, tx, p.ID); err != nil {
			return fmt.Errorf("load type defaults: %w", err)
		}
		if snap.Overrides, err = loadOverrides(ctx, tx, p.ID, env); err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
		if snap.Layers, err = loadDetails(ctx, tx, squirrel.Eq{"l.PortalId": p.ID}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
