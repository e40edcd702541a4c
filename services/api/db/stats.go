package db

import (
	"context"
)

// StreamTotals aggregates stream health flags.
type StreamTotals struct {
	Streams          int `json:"streams"`
	Active           int `json:"active"`
	URLSyntaxValid   int `json:"url_syntax_valid"`
	ServerReachable  int `json:"server_reachable"`
	XMLResponseValid int `json:"xml_response_valid"`
	Inspire          int `json:"inspire_konform"`
}

// LayerTotals aggregates layer queryability.
type LayerTotals struct {
	Layers       int `json:"layers"`
	Queryable    int `json:"queryable"`
	NotQueryable int `json:"not_queryable"`
	Unchecked    int `json:"unchecked"`
}

// CountryStats groups active streams by country.
type CountryStats struct {
	CountryCode *string `json:"land_code"`
	CountryName *string `json:"land_name"`
	Streams     int     `json:"streams"`
	Reachable   int     `json:"server_reachable"`
	Layers      int     `json:"layers"`
}

// FeatureTypeStats groups layers by smart category.
type FeatureTypeStats struct {
	FeatureType *string `json:"feature_typ"`
	Layers      int     `json:"layers"`
	Queryable   int     `json:"queryable"`
}

// CatalogStats is the quality summary of the catalog.
type CatalogStats struct {
	Streams      StreamTotals       `json:"streams"`
	Layers       LayerTotals        `json:"layers"`
	ByCountry    []CountryStats     `json:"by_country"`
	ByFeatureTyp []FeatureTypeStats `json:"by_feature_typ"`
}

const streamTotalsSQL = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE aktiv),
       COUNT(*) FILTER (WHERE aktiv AND url_syntax_valid),
       COUNT(*) FILTER (WHERE aktiv AND server_reachable),
       COUNT(*) FILTER (WHERE aktiv AND xml_response_valid),
       COUNT(*) FILTER (WHERE aktiv AND inspire_konform)
FROM wfs_catalog.wfs_streams
`

const layerTotalsSQL = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE l.ist_abfragbar),
       COUNT(*) FILTER (WHERE NOT l.ist_abfragbar),
       COUNT(*) FILTER (WHERE l.ist_abfragbar IS NULL)
FROM wfs_catalog.wfs_layers l
JOIN wfs_catalog.wfs_streams s ON s.id = l.wfs_id
WHERE s.aktiv
`

const byCountrySQL = `
SELECT land_code, land_name, COUNT(*), COUNT(*) FILTER (WHERE server_reachable), COALESCE(SUM(layer_anzahl), 0)
FROM wfs_catalog.wfs_streams
WHERE aktiv
GROUP BY land_code, land_name
ORDER BY COUNT(*) DESC, land_code
`

const byFeatureTypeSQL = `
SELECT l.feature_typ, COUNT(*), COUNT(*) FILTER (WHERE l.ist_abfragbar)
FROM wfs_catalog.wfs_layers l
JOIN wfs_catalog.wfs_streams s ON s.id = l.wfs_id
WHERE s.aktiv
GROUP BY l.feature_typ
ORDER BY COUNT(*) DESC
`

// CatalogStats computes health and queryability counts.
func (s *Store) CatalogStats(ctx context.Context) (*CatalogStats, error) {
	var st CatalogStats

	t := &st.Streams
	if err := s.pool.QueryRow(ctx, streamTotalsSQL).Scan(
		&t.Streams, &t.Active, &t.URLSyntaxValid, &t.ServerReachable, &t.XMLResponseValid, &t.Inspire,
	); err != nil {
		return nil, err
	}

	l := &st.Layers
	if err := s.pool.QueryRow(ctx, layerTotalsSQL).Scan(&l.Layers, &l.Queryable, &l.NotQueryable, &l.Unchecked); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, byCountrySQL)
	if err != nil {
		return nil, err
	}
	st.ByCountry = make([]CountryStats, 0)
	for rows.Next() {
		var c CountryStats
		if err := rows.Scan(&c.CountryCode, &c.CountryName, &c.Streams, &c.Reachable, &c.Layers); err != nil {
			rows.Close()
			return nil, err
		}
		st.ByCountry = append(st.ByCountry, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, byFeatureTypeSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	st.ByFeatureTyp = make([]FeatureTypeStats, 0)
	for rows.Next() {
		var f FeatureTypeStats
		if err := rows.Scan(&f.FeatureType, &f.Layers, &f.Queryable); err != nil {
			return nil, err
		}
		st.ByFeatureTyp = append(st.ByFeatureTyp, f)
	}
	return &st, rows.Err()
}
