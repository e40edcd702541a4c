package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Catalog writes scan results to the wfs_catalog schema.
type Catalog struct {
	pool *pgxpool.Pool
}

// New wraps a pgx pool.
func New(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

// Migrate creates the catalog schema if it does not exist.
func (c *Catalog) Migrate(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate catalog schema: %w", err)
	}
	return nil
}

const upsertStreamSQL = `INSERT INTO wfs_catalog.wfs_streams (
    url, service_title, service_abstract, wfs_version, wfs_versionen, provider_name, provider_site,
    unterstuetzte_crs, standard_outputformate, bbox_wgs84, land_code, land_name, bundesland_oder_region,
    region_methode, inspire_konform, inspire_thema_codes, url_syntax_valid, server_reachable,
    xml_response_valid, validation_notes, zuletzt_geprueft, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,NOW(),NOW())
ON CONFLICT (url) DO UPDATE
SET service_title = EXCLUDED.service_title,
    service_abstract = EXCLUDED.service_abstract,
    wfs_version = EXCLUDED.wfs_version,
    wfs_versionen = EXCLUDED.wfs_versionen,
    provider_name = EXCLUDED.provider_name,
    provider_site = EXCLUDED.provider_site,
    unterstuetzte_crs = EXCLUDED.unterstuetzte_crs,
    standard_outputformate = EXCLUDED.standard_outputformate,
    bbox_wgs84 = EXCLUDED.bbox_wgs84,
    land_code = EXCLUDED.land_code,
    land_name = EXCLUDED.land_name,
    bundesland_oder_region = EXCLUDED.bundesland_oder_region,
    region_methode = EXCLUDED.region_methode,
    inspire_konform = EXCLUDED.inspire_konform,
    inspire_thema_codes = EXCLUDED.inspire_thema_codes,
    url_syntax_valid = EXCLUDED.url_syntax_valid,
    server_reachable = EXCLUDED.server_reachable,
    xml_response_valid = EXCLUDED.xml_response_valid,
    validation_notes = EXCLUDED.validation_notes,
    zuletzt_geprueft = EXCLUDED.zuletzt_geprueft,
    updated_at = NOW()
RETURNING id`

const insertLayerSQL = `INSERT INTO wfs_catalog.wfs_layers (
    wfs_id, name, titel, abstract, default_crs, weitere_crs, outputformate, bbox_wgs84,
    schluesselwoerter, inspire_thema_codes, geometrietyp, feature_typ, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())
ON CONFLICT (wfs_id, name) DO NOTHING
RETURNING (xmax = 0)`

const reenrichLayerSQL = `INSERT INTO wfs_catalog.wfs_layers (
    wfs_id, name, titel, abstract, default_crs, weitere_crs, outputformate, bbox_wgs84,
    schluesselwoerter, inspire_thema_codes, geometrietyp, feature_typ, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())
ON CONFLICT (wfs_id, name) DO UPDATE
SET titel = EXCLUDED.titel,
    abstract = EXCLUDED.abstract,
    default_crs = EXCLUDED.default_crs,
    weitere_crs = EXCLUDED.weitere_crs,
    outputformate = EXCLUDED.outputformate,
    bbox_wgs84 = EXCLUDED.bbox_wgs84,
    schluesselwoerter = EXCLUDED.schluesselwoerter,
    inspire_thema_codes = EXCLUDED.inspire_thema_codes,
    geometrietyp = EXCLUDED.geometrietyp,
    feature_typ = EXCLUDED.feature_typ,
    updated_at = NOW()
RETURNING (xmax = 0)`

const refreshLayerCountSQL = `UPDATE wfs_catalog.wfs_streams
SET layer_anzahl = (SELECT COUNT(*) FROM wfs_catalog.wfs_layers WHERE wfs_id = $1)
WHERE id = $1
RETURNING layer_anzahl`

// SaveScan upserts the stream keyed by URL, appends layers that are new for
// it and refreshes layer_anzahl, all in one transaction. Stored layers missing
// from this scan are kept. With reenrich, existing layers are overwritten.
func (c *Catalog) SaveScan(ctx context.Context, stream models.StreamRow, layers []models.LayerRow, reenrich bool) (models.SaveStats, error) {
	var stats models.SaveStats
	err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, upsertStreamSQL,
			stream.URL, stream.ServiceTitle, stream.ServiceAbstract, stream.WFSVersion, stream.WFSVersions,
			stream.ProviderName, stream.ProviderSite, stream.CRS, stream.OutputFormats, stream.BBoxJSON,
			stream.CountryCode, stream.CountryName, stream.Region, stream.RegionMethod, stream.Inspire,
			stream.InspireThemes, stream.URLSyntaxValid, stream.ServerReachable, stream.XMLResponseValid,
			stream.ValidationNotes, stream.CheckedAt,
		).Scan(&stats.StreamID); err != nil {
			return fmt.Errorf("upsert stream: %w", err)
		}

		if len(layers) > 0 {
			query := insertLayerSQL
			if reenrich {
				query = reenrichLayerSQL
			}
			batch := &pgx.Batch{}
			for _, l := range layers {
				batch.Queue(query, stats.StreamID, l.Name, l.Title, l.Abstract, l.DefaultCRS, l.OtherCRS,
					l.OutputFormats, l.BBoxJSON, l.Keywords, l.InspireThemes, l.GeometryType, l.FeatureType)
			}

			res := tx.SendBatch(ctx, batch)
			for range layers {
				var inserted bool
				err := res.QueryRow().Scan(&inserted)
				switch {
				case errors.Is(err, pgx.ErrNoRows):
					// existing layer left untouched
				case err != nil:
					res.Close()
					return fmt.Errorf("insert layer: %w", err)
				case inserted:
					stats.LayersAdded++
				default:
					stats.LayersUpdated++
				}
			}
			if err := res.Close(); err != nil {
				return fmt.Errorf("insert layers: %w", err)
			}
		}

		if err := tx.QueryRow(ctx, refreshLayerCountSQL, stats.StreamID).Scan(&stats.LayerCount); err != nil {
			return fmt.Errorf("refresh layer count: %w", err)
		}
		return nil
	})
	return stats, err
}

// RecordValidation stores the endpoint flags of a failed scan on an existing
// stream. Metadata and layers are left untouched; unknown URLs are ignored.
func (c *Catalog) RecordValidation(ctx context.Context, row models.ValidationRow) error {
	_, err := c.pool.Exec(ctx, `UPDATE wfs_catalog.wfs_streams
SET url_syntax_valid = $2,
    server_reachable = $3,
    xml_response_valid = $4,
    validation_notes = $5,
    zuletzt_geprueft = $6,
    updated_at = NOW()
WHERE url = $1`, row.URL, row.URLSyntaxValid, row.ServerReachable, row.XMLResponseValid, row.Notes, row.CheckedAt)
	if err != nil {
		return fmt.Errorf("record validation: %w", err)
	}
	return nil
}

// MarkInactive flags streams as inactive. Rows are never deleted.
func (c *Catalog) MarkInactive(ctx context.Context, urls []string) (int64, error) {
	if len(urls) == 0 {
		return 0, nil
	}
	tag, err := c.pool.Exec(ctx, `UPDATE wfs_catalog.wfs_streams
SET aktiv = FALSE, updated_at = NOW()
WHERE url = ANY($1) AND aktiv`, urls)
	if err != nil {
		return 0, fmt.Errorf("mark inactive: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ActiveStreamURLs lists the URLs of all active streams.
func (c *Catalog) ActiveStreamURLs(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx, `SELECT url FROM wfs_catalog.wfs_streams WHERE aktiv ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ProbeTargets lists layers of active streams to probe. With uncheckedOnly,
// layers that were probed before are skipped. limit <= 0 means no limit.
func (c *Catalog) ProbeTargets(ctx context.Context, uncheckedOnly bool, limit int) ([]models.ProbeTarget, error) {
	query := `SELECT l.id, s.url, l.name, COALESCE(s.wfs_version, ''), l.outputformate, s.inspire_konform
FROM wfs_catalog.wfs_layers l
JOIN wfs_catalog.wfs_streams s ON s.id = l.wfs_id
WHERE s.aktiv`
	if uncheckedOnly {
		query += ` AND l.zuletzt_describe_geprueft IS NULL`
	}
	query += ` ORDER BY l.id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	targets := make([]models.ProbeTarget, 0)
	for rows.Next() {
		var t models.ProbeTarget
		if err := rows.Scan(&t.LayerID, &t.StreamURL, &t.Name, &t.Version, &t.OutputFormats, &t.Inspire); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// UpdateLayerQueryability writes probe verdicts back to their layers.
func (c *Catalog) UpdateLayerQueryability(ctx context.Context, updates []models.ProbeUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `UPDATE wfs_catalog.wfs_layers
SET ist_abfragbar = $2,
    abfrage_hinweis = $3,
    zuletzt_describe_geprueft = $4,
    updated_at = NOW()
WHERE id = $1`
	for _, u := range updates {
		batch.Queue(query, u.LayerID, u.Queryable, u.Note, u.CheckedAt)
	}

	res := c.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range updates {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("update layer queryability: %w", err)
		}
	}
	return nil
}
