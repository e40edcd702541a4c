package db

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a stream or layer id does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Stream represents a catalogued WFS endpoint.
type Stream struct {
	ID               int64           `json:"id"`
	URL              string          `json:"url"`
	ServiceTitle     *string         `json:"service_title"`
	ServiceAbstract  *string         `json:"service_abstract"`
	WFSVersion       *string         `json:"wfs_version"`
	WFSVersions      []string        `json:"wfs_versionen"`
	ProviderName     *string         `json:"provider_name"`
	ProviderSite     *string         `json:"provider_site"`
	CRS              []string        `json:"unterstuetzte_crs"`
	OutputFormats    []string        `json:"standard_outputformate"`
	BBox             json.RawMessage `json:"bbox_wgs84"`
	LayerCount       int             `json:"layer_anzahl"`
	CountryCode      *string         `json:"land_code"`
	CountryName      *string         `json:"land_name"`
	Region           *string         `json:"bundesland_oder_region"`
	RegionMethod     *string         `json:"region_methode,omitempty"`
	Inspire          bool            `json:"inspire_konform"`
	InspireThemes    []string        `json:"inspire_thema_codes"`
	URLSyntaxValid   bool            `json:"url_syntax_valid"`
	ServerReachable  bool            `json:"server_reachable"`
	XMLResponseValid bool            `json:"xml_response_valid"`
	ValidationNotes  *string         `json:"validation_notes"`
	Active           bool            `json:"aktiv"`
	CheckedAt        *time.Time      `json:"zuletzt_geprueft"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// StreamQuery holds filters for listing streams.
type StreamQuery struct {
	CountryCode string
	Region      string
	Inspire     *bool
	Reachable   *bool
	Search      string
	All         bool
	Limit       int
	Offset      int
}

// StreamPage is one page of streams.
type StreamPage struct {
	Streams    []Stream `json:"streams"`
	TotalCount int      `json:"total_count"`
}

const streamColumns = `id, url, service_title, service_abstract, wfs_version, wfs_versionen, provider_name,
    provider_site, unterstuetzte_crs, standard_outputformate, bbox_wgs84, layer_anzahl, land_code,
    land_name, bundesland_oder_region, region_methode, inspire_konform, inspire_thema_codes,
    url_syntax_valid, server_reachable, xml_response_valid, validation_notes, aktiv,
    zuletzt_geprueft, updated_at`

func scanStream(row pgx.Row) (Stream, error) {
	var st Stream
	var bbox []byte
	err := row.Scan(
		&st.ID, &st.URL, &st.ServiceTitle, &st.ServiceAbstract, &st.WFSVersion, &st.WFSVersions,
		&st.ProviderName, &st.ProviderSite, &st.CRS, &st.OutputFormats, &bbox, &st.LayerCount,
		&st.CountryCode, &st.CountryName, &st.Region, &st.RegionMethod, &st.Inspire, &st.InspireThemes,
		&st.URLSyntaxValid, &st.ServerReachable, &st.XMLResponseValid, &st.ValidationNotes, &st.Active,
		&st.CheckedAt, &st.UpdatedAt,
	)
	if len(bbox) > 0 {
		st.BBox = json.RawMessage(bbox)
	}
	return st, err
}

// ListStreams returns a filtered page of streams ordered by id.
func (s *Store) ListStreams(ctx context.Context, q StreamQuery) (*StreamPage, error) {
	conditions := []string{}
	args := []any{}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if !q.All {
		conditions = append(conditions, "aktiv")
	}
	if q.CountryCode != "" {
		add("land_code = ?", strings.ToUpper(q.CountryCode))
	}
	if q.Region != "" {
		add("bundesland_oder_region ILIKE ?", q.Region)
	}
	if q.Inspire != nil {
		add("inspire_konform = ?", *q.Inspire)
	}
	if q.Reachable != nil {
		add("server_reachable = ?", *q.Reachable)
	}
	if q.Search != "" {
		add("(service_title ILIKE ? OR service_abstract ILIKE ? OR url ILIKE ?)", "%"+q.Search+"%")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM wfs_catalog.wfs_streams"+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, err
	}

	limitPos := len(args) + 1
	args = append(args, q.Limit, q.Offset)
	query := "SELECT " + streamColumns + " FROM wfs_catalog.wfs_streams" + whereClause +
		" ORDER BY id LIMIT $" + strconv.Itoa(limitPos) + " OFFSET $" + strconv.Itoa(limitPos+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	streams := make([]Stream, 0, q.Limit)
	for rows.Next() {
		st, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		streams = append(streams, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &StreamPage{Streams: streams, TotalCount: totalCount}, nil
}

// GetStream returns a single stream.
func (s *Store) GetStream(ctx context.Context, id int64) (*Stream, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+streamColumns+" FROM wfs_catalog.wfs_streams WHERE id = $1", id)
	st, err := scanStream(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}
