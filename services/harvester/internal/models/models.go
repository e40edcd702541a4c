package models

import "time"

// StreamRow captures one catalog stream record ready for upsert.
type StreamRow struct {
	URL              string
	ServiceTitle     string
	ServiceAbstract  string
	WFSVersion       string
	WFSVersions      []string
	ProviderName     *string
	ProviderSite     *string
	CRS              []string
	OutputFormats    []string
	BBoxJSON         []byte
	LayerCount       int
	CountryCode      string
	CountryName      string
	Region           string
	RegionMethod     string
	Inspire          bool
	InspireThemes    []string
	URLSyntaxValid   bool
	ServerReachable  bool
	XMLResponseValid bool
	ValidationNotes  string
	CheckedAt        time.Time
}

// LayerRow captures one FeatureType of a stream.
type LayerRow struct {
	Name          string
	Title         *string
	Abstract      *string
	DefaultCRS    string
	OtherCRS      []string
	OutputFormats []string
	BBoxJSON      []byte
	Keywords      []string
	InspireThemes []string
	GeometryType  *string
	FeatureType   *string
}

// ValidationRow holds the endpoint check flags of a scan attempt.
type ValidationRow struct {
	URL              string
	URLSyntaxValid   bool
	ServerReachable  bool
	XMLResponseValid bool
	Notes            string
	CheckedAt        time.Time
}

// SaveStats reports what a stream save changed.
type SaveStats struct {
	StreamID      int64
	LayersAdded   int
	LayersUpdated int
	LayerCount    int
}

// ProbeTarget is a stored layer to check with GetFeature.
type ProbeTarget struct {
	LayerID       int64
	StreamURL     string
	Name          string
	Version       string
	OutputFormats []string
	Inspire       bool
}

// ProbeUpdate is the queryability verdict written back for a layer.
type ProbeUpdate struct {
	LayerID   int64
	Queryable bool
	Note      string
	CheckedAt time.Time
}
