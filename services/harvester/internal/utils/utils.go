package utils

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/02loveslollipop/wfs-catalog/pkg/capabilities"
	"github.com/02loveslollipop/wfs-catalog/pkg/classify"
	"github.com/02loveslollipop/wfs-catalog/pkg/wfs"
	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/models"
)

// BuildStreamRow converts a successful parse into a stream row.
func BuildStreamRow(url string, svc capabilities.ServiceMetadata, layerCount int, region classify.Region, v wfs.Validation, checkedAt time.Time) models.StreamRow {
	return models.StreamRow{
		URL:              url,
		ServiceTitle:     svc.Title,
		ServiceAbstract:  svc.Abstract,
		WFSVersion:       svc.Version,
		WFSVersions:      nonNil(svc.Versions),
		ProviderName:     svc.ProviderName,
		ProviderSite:     svc.ProviderSite,
		CRS:              nonNil(svc.CRS),
		OutputFormats:    nonNil(svc.OutputFormats),
		BBoxJSON:         BBoxJSON(svc.BBox),
		LayerCount:       layerCount,
		CountryCode:      region.CountryCode,
		CountryName:      region.CountryName,
		Region:           region.Region,
		RegionMethod:     string(region.Method),
		Inspire:          svc.Inspire,
		InspireThemes:    nonNil(svc.InspireThemes),
		URLSyntaxValid:   v.URLSyntaxValid,
		ServerReachable:  v.ServerReachable,
		XMLResponseValid: v.XMLResponseValid,
		ValidationNotes:  v.Notes,
		CheckedAt:        checkedAt,
	}
}

// BuildLayerRows converts extracted layers into rows and assigns the smart
// category of each.
func BuildLayerRows(layers []capabilities.Layer, classifier *classify.Classifier) []models.LayerRow {
	rows := make([]models.LayerRow, 0, len(layers))
	for _, l := range layers {
		row := models.LayerRow{
			Name:          l.Name,
			Title:         l.Title,
			Abstract:      l.Abstract,
			DefaultCRS:    l.DefaultCRS,
			OtherCRS:      nonNil(l.OtherCRS),
			OutputFormats: nonNil(l.OutputFormats),
			BBoxJSON:      BBoxJSON(l.BBox),
			Keywords:      nonNil(l.Keywords),
			InspireThemes: nonNil(l.InspireThemes),
		}
		if l.GeometryType != capabilities.GeometryUnknown {
			row.GeometryType = lo.ToPtr(string(l.GeometryType))
		}
		category := classifier.Category(l.Name, deref(l.Title), deref(l.Abstract))
		if category != classify.CategoryNone {
			row.FeatureType = lo.ToPtr(string(category))
		}
		rows = append(rows, row)
	}
	return rows
}

// BuildValidationRow wraps endpoint flags for a stream whose scan failed.
func BuildValidationRow(url string, v wfs.Validation, checkedAt time.Time) models.ValidationRow {
	return models.ValidationRow{
		URL:              url,
		URLSyntaxValid:   v.URLSyntaxValid,
		ServerReachable:  v.ServerReachable,
		XMLResponseValid: v.XMLResponseValid,
		Notes:            v.Notes,
		CheckedAt:        checkedAt,
	}
}

// BuildProbeUpdate converts a probe result into the queryability update.
func BuildProbeUpdate(layerID int64, res wfs.ProbeResult) models.ProbeUpdate {
	return models.ProbeUpdate{
		LayerID:   layerID,
		Queryable: res.Queryable,
		Note:      res.Note(),
		CheckedAt: res.CheckedAt,
	}
}

// ProbeTargetFor maps a stored layer to the prober's input.
func ProbeTargetFor(t models.ProbeTarget) wfs.ProbeTarget {
	return wfs.ProbeTarget{
		ServiceURL:    t.StreamURL,
		TypeName:      t.Name,
		Version:       t.Version,
		OutputFormats: t.OutputFormats,
		Inspire:       t.Inspire,
	}
}

// BBoxJSON encodes a bounding box for a jsonb column; nil stays NULL.
func BBoxJSON(b *capabilities.BBox) []byte {
	if b == nil {
		return nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil
	}
	return data
}

// ReadURLList reads one endpoint URL per line. Blank lines and lines
// starting with # are skipped; duplicates keep their first position.
func ReadURLList(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lo.Uniq(urls), nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
