package scan

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/wfs-catalog/pkg/wfs"
	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/models"
)

func TestProbeLayers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("typeNames") + q.Get("typeName") {
		case "ad:Address":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"type":"FeatureCollection","features":[{"type":"Feature"}]}`)
		case "cp:CadastralParcel":
			w.Header().Set("Content-Type", "text/xml")
			fmt.Fprint(w, `<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs/2.0" numberReturned="0" numberMatched="0"/>`)
		default:
			w.Header().Set("Content-Type", "text/xml")
			fmt.Fprint(w, `<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows/1.1"><ows:Exception exceptionCode="InvalidParameterValue"><ows:ExceptionText>Unknown type</ows:ExceptionText></ows:Exception></ows:ExceptionReport>`)
		}
	}))
	defer srv.Close()

	catalog := newFakeCatalog()
	s := NewScanner(Options{
		Prober:      wfs.NewProber(srv.Client(), wfs.ProberOptions{Timeout: 2 * time.Second}),
		Catalog:     catalog,
		Logger:      zerolog.Nop(),
		Concurrency: 3,
	})

	targets := []models.ProbeTarget{
		{LayerID: 1, StreamURL: srv.URL, Name: "ad:Address", Version: "2.0.0", OutputFormats: []string{"application/json"}},
		{LayerID: 2, StreamURL: srv.URL, Name: "cp:CadastralParcel", Version: "2.0.0", Inspire: true},
		{LayerID: 3, StreamURL: srv.URL, Name: "xx:Unknown", Version: "1.1.0"},
	}
	report := s.ProbeLayers(context.Background(), targets)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Queryable)
	assert.Equal(t, map[string]int{
		string(wfs.OutcomeFeatures):  1,
		string(wfs.OutcomeEmpty):     1,
		string(wfs.OutcomeException): 1,
	}, report.ByOutcome)

	require.Len(t, catalog.updates, 3)
	byID := make(map[int64]models.ProbeUpdate)
	for _, u := range catalog.updates {
		byID[u.LayerID] = u
	}
	assert.True(t, byID[1].Queryable)
	assert.True(t, byID[2].Queryable)
	assert.False(t, byID[3].Queryable)
	assert.Contains(t, byID[3].Note, "Unknown type")
	assert.False(t, byID[3].CheckedAt.IsZero())
}

func TestProbeLayers_CanceledNotStored(t *testing.T) {
	catalog := newFakeCatalog()
	s := NewScanner(Options{Catalog: catalog, Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := s.ProbeLayers(ctx, []models.ProbeTarget{{LayerID: 1, StreamURL: "http://127.0.0.1:1/wfs", Name: "a", Version: "2.0.0"}})
	assert.Equal(t, 0, report.Queryable)
	assert.Empty(t, catalog.updates)
}
