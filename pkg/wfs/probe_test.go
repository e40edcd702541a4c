package wfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memberCollection = `<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs/2.0"><wfs:member><cp:CadastralParcel xmlns:cp="urn:cp"/></wfs:member></wfs:FeatureCollection>`

func TestProbe_InspireSingleAttempt(t *testing.T) {
	var queries []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		queries = append(queries, map[string]string{
			"version":      q.Get("version"),
			"typeNames":    q.Get("typeNames"),
			"count":        q.Get("count"),
			"outputFormat": q.Get("outputFormat"),
		})
		w.Header().Set("Content-Type", "text/xml; subtype=gml/3.2.1")
		_, _ = w.Write([]byte(memberCollection))
	}))
	defer srv.Close()

	p := NewProber(srv.Client(), ProberOptions{})
	res := p.Probe(context.Background(), ProbeTarget{
		ServiceURL:    srv.URL + "/wfs",
		TypeName:      "cp:CadastralParcel",
		Version:       "1.1.0",
		OutputFormats: []string{"application/json"},
		Inspire:       true,
	})

	require.True(t, res.Queryable, res.Error)
	assert.Equal(t, OutcomeFeatures, res.Outcome)
	assert.Equal(t, 1, res.FeatureCount)
	assert.Equal(t, InspireVersion, res.Version)
	require.Len(t, queries, 1)
	assert.Equal(t, map[string]string{
		"version":      "2.0.0",
		"typeNames":    "cp:CadastralParcel",
		"count":        "1",
		"outputFormat": InspireFormat,
	}, queries[0])
	assert.False(t, res.CheckedAt.IsZero())
}

func TestProbe_FallsBackAfterException(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("version") == "2.0.0" {
			w.Header().Set("Content-Type", "text/xml")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(exceptionReport))
			return
		}
		assert.Equal(t, "ax:Gebaeude", q.Get("typeName"))
		assert.Equal(t, "1", q.Get("maxFeatures"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	res := NewProber(srv.Client(), ProberOptions{}).Probe(context.Background(), ProbeTarget{
		ServiceURL:    srv.URL,
		TypeName:      "ax:Gebaeude",
		Version:       "2.0.0",
		OutputFormats: []string{"application/json"},
	})

	require.True(t, res.Queryable)
	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.Equal(t, "1.1.0", res.Version)
	assert.Equal(t, "application/json", res.OutputFormat)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, OutcomeException, res.Attempts[0].Outcome)
}

func TestProbe_ExceptionPreferredOverMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("version") {
		case "1.1.0":
			w.Header().Set("Content-Type", "text/xml")
			_, _ = w.Write([]byte(exceptionReport))
		default:
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("internal error"))
		}
	}))
	defer srv.Close()

	res := NewProber(srv.Client(), ProberOptions{}).Probe(context.Background(), ProbeTarget{
		ServiceURL: srv.URL,
		TypeName:   "a",
		Version:    "2.0.0",
	})

	assert.False(t, res.Queryable)
	assert.Equal(t, OutcomeException, res.Outcome)
	assert.Equal(t, "InvalidParameterValue", res.ExceptionCode)
	assert.Equal(t, "Version 2.0.0 not supported", res.ExceptionText)
	assert.Len(t, res.Attempts, 3)
	assert.Contains(t, res.Note(), "InvalidParameterValue")
}

func TestProbe_CapabilitiesAnswerIsNotQueryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(`<wfs:WFS_Capabilities xmlns:wfs="http://www.opengis.net/wfs/2.0" version="2.0.0"/>`))
	}))
	defer srv.Close()

	res := NewProber(srv.Client(), ProberOptions{}).Probe(context.Background(), ProbeTarget{
		ServiceURL: srv.URL,
		TypeName:   "a",
		Version:    "2.0.0",
	})

	assert.False(t, res.Queryable)
	assert.Equal(t, OutcomeMalformed, res.Outcome)
	assert.Contains(t, res.Error, "WFS_Capabilities")
}

func TestProbe_OnlyTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := NewProber(srv.Client(), ProberOptions{}).Probe(context.Background(), ProbeTarget{
		ServiceURL: srv.URL,
		TypeName:   "a",
		Version:    "1.0.0",
	})

	assert.False(t, res.Queryable)
	assert.Equal(t, Outcome(""), res.Outcome)
	assert.Equal(t, ReasonHTTPStatus, res.Reason)
	// declared 1.0.0, then 2.0.0 and 1.1.0
	assert.Len(t, res.Attempts, 3)
}

func TestProber_Plan(t *testing.T) {
	p := NewProber(nil, ProberOptions{})

	plans := p.plan(ProbeTarget{Version: "1.1.0", OutputFormats: []string{"text/xml; subtype=gml/3.1.1"}})
	require.Len(t, plans, 3)
	assert.Equal(t, probePlan{version: "1.1.0", format: "text/xml; subtype=gml/3.1.1"}, plans[0])
	assert.Equal(t, probePlan{version: "2.0.0", format: "application/gml+xml; version=3.2"}, plans[1])
	assert.Equal(t, probePlan{version: "1.0.0", format: "GML2"}, plans[2])

	plans = p.plan(ProbeTarget{})
	require.Len(t, plans, 3)
	assert.Equal(t, "2.0.0", plans[0].version)
}
