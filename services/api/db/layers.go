package db

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
)

// Layer represents a FeatureType of a stream.
type Layer struct {
	ID            int64           `json:"id"`
	StreamID      int64           `json:"wfs_id"`
	Name          string          `json:"name"`
	Title         *string         `json:"titel"`
	Abstract      *string         `json:"abstract"`
	DefaultCRS    *string         `json:"default_crs"`
	OtherCRS      []string        `json:"weitere_crs"`
	OutputFormats []string        `json:"outputformate"`
	BBox          json.RawMessage `json:"bbox_wgs84"`
	Keywords      []string        `json:"schluesselwoerter"`
	InspireThemes []string        `json:"inspire_thema_codes"`
	GeometryType  *string         `json:"geometrietyp"`
	FeatureType   *string         `json:"feature_typ"`
	Queryable     *bool           `json:"ist_abfragbar"`
	QueryNote     *string         `json:"abfrage_hinweis,omitempty"`
	CheckedAt     *time.Time      `json:"zuletzt_describe_geprueft"`
}

// LayerQuery holds filters for listing layers.
type LayerQuery struct {
	StreamID    int64
	FeatureType string
	Theme       string
	Geometry    string
	Queryable   *bool
	Search      string
	Limit       int
	Offset      int
}

// LayerPage is one page of layers.
type LayerPage struct {
	Layers     []Layer `json:"layers"`
	TotalCount int     `json:"total_count"`
}

const layerColumns = `l.id, l.wfs_id, l.name, l.titel, l.abstract, l.default_crs, l.weitere_crs, l.outputformate,
    l.bbox_wgs84, l.schluesselwoerter, l.inspire_thema_codes, l.geometrietyp, l.feature_typ,
    l.ist_abfragbar, l.abfrage_hinweis, l.zuletzt_describe_geprueft`

func scanLayer(row pgx.Row) (Layer, error) {
	var l Layer
	var bbox []byte
	err := row.Scan(
		&l.ID, &l.StreamID, &l.Name, &l.Title, &l.Abstract, &l.DefaultCRS, &l.OtherCRS, &l.OutputFormats,
		&bbox, &l.Keywords, &l.InspireThemes, &l.GeometryType, &l.FeatureType,
		&l.Queryable, &l.QueryNote, &l.CheckedAt,
	)
	if len(bbox) > 0 {
		l.BBox = json.RawMessage(bbox)
	}
	return l, err
}

// ListLayers returns a filtered page of layers of active streams.
func (s *Store) ListLayers(ctx context.Context, q LayerQuery) (*LayerPage, error) {
	conditions := []string{"s.aktiv"}
	args := []any{}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if q.StreamID > 0 {
		add("l.wfs_id = ?", q.StreamID)
	}
	if q.FeatureType != "" {
		add("l.feature_typ = ?", q.FeatureType)
	}
	if q.Theme != "" {
		add("? = ANY(l.inspire_thema_codes)", strings.ToLower(q.Theme))
	}
	if q.Geometry != "" {
		add("l.geometrietyp = ?", strings.ToLower(q.Geometry))
	}
	if q.Queryable != nil {
		add("l.ist_abfragbar = ?", *q.Queryable)
	}
	if q.Search != "" {
		add("(l.name ILIKE ? OR l.titel ILIKE ? OR l.abstract ILIKE ?)", "%"+q.Search+"%")
	}

	from := " FROM wfs_catalog.wfs_layers l JOIN wfs_catalog.wfs_streams s ON s.id = l.wfs_id WHERE " +
		strings.Join(conditions, " AND ")

	var totalCount int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*)"+from, args...).Scan(&totalCount); err != nil {
		return nil, err
	}

	limitPos := len(args) + 1
	args = append(args, q.Limit, q.Offset)
	query := "SELECT " + layerColumns + from +
		" ORDER BY l.wfs_id, l.name LIMIT $" + strconv.Itoa(limitPos) + " OFFSET $" + strconv.Itoa(limitPos+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	layers := make([]Layer, 0, q.Limit)
	for rows.Next() {
		l, err := scanLayer(rows)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &LayerPage{Layers: layers, TotalCount: totalCount}, nil
}

// GetLayer returns a single layer.
func (s *Store) GetLayer(ctx context.Context, id int64) (*Layer, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+layerColumns+" FROM wfs_catalog.wfs_layers l WHERE l.id = $1", id)
	l, err := scanLayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ProbeTarget is what a GetFeature probe needs to know about a layer.
type ProbeTarget struct {
	LayerID       int64
	StreamURL     string
	Name          string
	Version       string
	OutputFormats []string
	Inspire       bool
}

// LayerProbeTarget loads the probe input for a layer.
func (s *Store) LayerProbeTarget(ctx context.Context, id int64) (*ProbeTarget, error) {
	var t ProbeTarget
	err := s.pool.QueryRow(ctx, `
		SELECT l.id, s.url, l.name, COALESCE(s.wfs_version, ''), l.outputformate, s.inspire_konform
		FROM wfs_catalog.wfs_layers l
		JOIN wfs_catalog.wfs_streams s ON s.id = l.wfs_id
		WHERE l.id = $1
	`, id).Scan(&t.LayerID, &t.StreamURL, &t.Name, &t.Version, &t.OutputFormats, &t.Inspire)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateLayerQueryability stores the result of a probe.
func (s *Store) UpdateLayerQueryability(ctx context.Context, id int64, queryable bool, note string, checkedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE wfs_catalog.wfs_layers
		SET ist_abfragbar = $2, abfrage_hinweis = $3, zuletzt_describe_geprueft = $4, updated_at = NOW()
		WHERE id = $1
	`, id, queryable, note, checkedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
