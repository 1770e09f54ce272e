package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"MapLayerStore/internal/logger"
	"MapLayerStore/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// PromoteRequest copies layers whose key matches KeyPattern (SQL LIKE) from
// SourcePortal to DestPortal. Move deletes the promoted source layers afterwards.
type PromoteRequest struct {
	SourcePortal string `json:"sourcePortal"`
	DestPortal   string `json:"destPortal"`
	KeyPattern   string `json:"keyPattern"`
	Move         bool   `json:"move"`
}

type PromoteResult struct {
	Promoted     []string      `json:"promoted"`
	Skipped      []string      `json:"skipped"`
	Copied       []TableCount  `json:"copied"`
	DroppedLinks int64         `json:"droppedLinks"`
	Deleted      *DeleteReport `json:"deleted,omitempty"`
}

func (r PromoteRequest) check() error {
	switch {
	case strings.TrimSpace(r.SourcePortal) == "" || strings.TrimSpace(r.DestPortal) == "":
		return fmt.Errorf("%w: source and destination portals are required", ErrInvalidRequest)
	case r.SourcePortal == r.DestPortal:
		return fmt.Errorf("%w: source and destination portal are both %q", ErrInvalidRequest, r.SourcePortal)
	case r.KeyPattern == "":
		return fmt.Errorf("%w: key pattern is required", ErrInvalidRequest)
	}
	return nil
}

// promoteLayersSQL inserts every matching source layer absent from the destination.
func promoteLayersSQL(srcPortalID, dstPortalID int64, pattern string) squirrel.InsertBuilder {
	sel := squirrel.Select().Column("?::bigint", dstPortalID).
		Columns(prefixed("s", layerColumns[1:])...).
		From("Layers s").
		Where(squirrel.Eq{"s.PortalId": srcPortalID}).
		Where(squirrel.Like{"s.layerKey": pattern}).
		Where("NOT EXISTS (SELECT 1 FROM Layers d WHERE d.PortalId = ? AND d.layerKey = s.layerKey)", dstPortalID).
		OrderBy("s.layerKey")
	return psql.Insert("Layers").Columns(layerColumns...).Select(sel).Suffix("RETURNING LayerId, layerKey")
}

// promoteLinksSQL re-creates switch links of the newly promoted parents whose
// children also exist in the destination. A destination layer of the child's
// key that is itself a switchlayer is not linked, since switch layers do not nest.
func promoteLinksSQL(srcPortalID, dstPortalID int64, newParents []int64) squirrel.InsertBuilder {
	sel := squirrel.Select("np.LayerId", "nc.LayerId", "c.position").
		From("SwitchLayerChildren c").
		Join("Layers op ON op.LayerId = c.ParentLayerId").
		Join("Layers oc ON oc.LayerId = c.ChildLayerId").
		Join("Layers np ON np.PortalId = ? AND np.layerKey = op.layerKey", dstPortalID).
		Join("Layers nc ON nc.PortalId = ? AND nc.layerKey = oc.layerKey", dstPortalID).
		Where(squirrel.Eq{"op.PortalId": srcPortalID, "np.LayerId": newParents}).
		Where(squirrel.NotEq{"nc.layerType": string(model.LayerSwitch)})
	return psql.Insert("SwitchLayerChildren").Columns("ParentLayerId", "ChildLayerId", "position").Select(sel)
}

// promoteOverridesSQL copies the layer-scope overrides of the promoted keys,
// keeping any the destination already defines.
func promoteOverridesSQL(srcPortalID, dstPortalID int64, keys []string) squirrel.InsertBuilder {
	sel := squirrel.Select().Column("?::bigint", dstPortalID).
		Columns("o.envName", "o.scope", "o.scopeId", "o.overridesJSON").
		From("EnvironmentOverrides o").
		Where(squirrel.Eq{"o.PortalId": srcPortalID, "o.scope": string(model.ScopeLayer), "o.scopeId": keys})
	return psql.Insert("EnvironmentOverrides").
		Columns("PortalId", "envName", "scope", "scopeId", "overridesJSON").
		Select(sel).
		Suffix("ON CONFLICT (PortalId, envName, scope, scopeId) DO NOTHING")
}

// PromoteLayers never creates a second (destination, layerKey) row: keys
// already present in the destination are reported as skipped.
func (w *Writer) PromoteLayers(ctx context.Context, req PromoteRequest) (PromoteResult, error) {
	res := PromoteResult{Promoted: []string{}, Skipped: []string{}}
	if err := req.check(); err != nil {
		return res, err
	}
	srcID, err := portalID(ctx, w.q, req.SourcePortal)
	if err != nil {
		return res, err
	}
	dstID, err := portalID(ctx, w.q, req.DestPortal)
	if err != nil {
		return res, err
	}

	rows, err := query(ctx, w.q, promoteLayersSQL(srcID, dstID, req.KeyPattern))
	if err != nil {
		return res, fmt.Errorf("promote layers: %w", err)
	}
	newIDs := map[string]int64{}
	for rows.Next() {
		var id int64
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			rows.Close()
			return res, fmt.Errorf("promote layers: %w", err)
		}
		newIDs[key] = id
		res.Promoted = append(res.Promoted, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("promote layers: %w", classify(err))
	}
	sort.Strings(res.Promoted)

	matched, err := matchingKeys(ctx, w.q, srcID, req.KeyPattern)
	if err != nil {
		return res, err
	}
	for _, k := range matched {
		if _, ok := newIDs[k]; !ok {
			res.Skipped = append(res.Skipped, k)
		}
	}
	if len(res.Promoted) == 0 {
		logger.Info("layers_promoted", map[string]any{"source": req.SourcePortal, "dest": req.DestPortal, "pattern": req.KeyPattern, "promoted": 0})
		return res, nil
	}

	oldRefs, err := layerIDs(ctx, w.q, srcID, res.Promoted)
	if err != nil {
		return res, err
	}
	var pairs layerPairs
	var oldIDs, parents []int64
	for _, k := range res.Promoted {
		pairs.add(oldRefs[k].ID, newIDs[k])
		oldIDs = append(oldIDs, oldRefs[k].ID)
		parents = append(parents, newIDs[k])
	}
	if err := runCopySteps(ctx, w.q, optionCopySteps(), pairs, &res.Copied); err != nil {
		return res, err
	}
	if err := runCopySteps(ctx, w.q, layerConfigSteps, pairs, &res.Copied); err != nil {
		return res, err
	}

	var total int64
	err = queryRow(ctx, w.q, psql.Select("count(*)").From("SwitchLayerChildren").
		Where(squirrel.Eq{"ParentLayerId": oldIDs})).Scan(&total)
	if err != nil {
		return res, fmt.Errorf("count switch links: %w", err)
	}
	linked, err := exec(ctx, w.q, promoteLinksSQL(srcID, dstID, parents))
	if err != nil {
		return res, fmt.Errorf("promote switch links: %w", classify(err))
	}
	res.Copied = append(res.Copied, TableCount{Table: "SwitchLayerChildren", Rows: linked})
	res.DroppedLinks = total - linked
	if res.DroppedLinks > 0 {
		logger.Warn("switch_links_dropped", map[string]any{
			"source": req.SourcePortal, "dest": req.DestPortal, "dropped": res.DroppedLinks,
		})
	}
	overrides, err := exec(ctx, w.q, promoteOverridesSQL(srcID, dstID, res.Promoted))
	if err != nil {
		return res, fmt.Errorf("promote overrides: %w", classify(err))
	}
	res.Copied = append(res.Copied, TableCount{Table: "EnvironmentOverrides", Rows: overrides})
	w.touch(req.DestPortal)

	if req.Move {
		report := DeleteReport{Layers: res.Promoted}
		if err := deleteLayers(ctx, w.q, oldIDs, &report); err != nil {
			return res, err
		}
		n, err := exec(ctx, w.q, layerOverridesSQL(srcID, res.Promoted))
		if err != nil {
			return res, fmt.Errorf("delete from EnvironmentOverrides: %w", classify(err))
		}
		report.add("EnvironmentOverrides", n)
		res.Deleted = &report
		w.touch(req.SourcePortal)
	}
	logger.Info("layers_promoted", map[string]any{
		"source": req.SourcePortal, "dest": req.DestPortal, "pattern": req.KeyPattern,
		"promoted": len(res.Promoted), "skipped": len(res.Skipped), "move": req.Move,
	})
	return res, nil
}

func matchingKeys(ctx context.Context, q querier, portalID int64, pattern string) ([]string, error) {
	rows, err := query(ctx, q, psql.Select("layerKey").From("Layers").
		Where(squirrel.Eq{"PortalId": portalID}).
		Where(squirrel.Like{"layerKey": pattern}).
		OrderBy("layerKey"))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) PromoteLayers(ctx context.Context, req PromoteRequest) (r PromoteResult, err error) {
	err = s.Write(ctx, func(w *Writer) error {
		r, err = w.PromoteLayers(ctx, req)
		return err
	})
	return r, err
}
