// Package metrics exposes the service counters over a prometheus
// scrape endpoint.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	ocprom "contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// KeyNetwork tags every measure with the control network it served
var KeyNetwork = tag.MustNewKey("network")

var (
	PointsAccepted = stats.Int64(
		"vw/ingest/points_accepted",
		"Control points accepted by the ingest handler",
		stats.UnitDimensionless,
	)
	QueryLookups = stats.Int64(
		"vw/query/lookups",
		"Location lookups served by the query handler",
		stats.UnitDimensionless,
	)
	ExportRenders = stats.Int64(
		"vw/export/renders",
		"Documents rendered by the export handler",
		stats.UnitDimensionless,
	)
	ExportCacheHits = stats.Int64(
		"vw/export/cache_hits",
		"Rendered documents served from the cache",
		stats.UnitDimensionless,
	)
)

var views = []*view.View{
	{
		Name:        "vw/ingest/points_accepted",
		Measure:     PointsAccepted,
		Description: "Control points accepted by the ingest handler",
		TagKeys:     []tag.Key{KeyNetwork},
		Aggregation: view.Sum(),
	},
	{
		Name:        "vw/query/lookups",
		Measure:     QueryLookups,
		Description: "Location lookups served by the query handler",
		TagKeys:     []tag.Key{KeyNetwork},
		Aggregation: view.Sum(),
	},
	{
		Name:        "vw/export/renders",
		Measure:     ExportRenders,
		Description: "Documents rendered by the export handler",
		TagKeys:     []tag.Key{KeyNetwork},
		Aggregation: view.Sum(),
	},
	{
		Name:        "vw/export/cache_hits",
		Measure:     ExportCacheHits,
		Description: "Rendered documents served from the cache",
		TagKeys:     []tag.Key{KeyNetwork},
		Aggregation: view.Sum(),
	},
}

// NewExporter registers the service views and returns the prometheus
// scrape handler
func NewExporter() (http.Handler, error) {
	if err := view.Register(views...); err != nil {
		return nil, fmt.Errorf("register views: %w", err)
	}
	exporter, err := ocprom.NewExporter(ocprom.Options{Namespace: "vw"})
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	view.RegisterExporter(exporter)
	return exporter, nil
}

// Record adds v to the measure tagged with the network id. Recording
// never fails the request path, tag errors are dropped.
func Record(ctx context.Context, networkID string, m *stats.Int64Measure, v int64) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyNetwork, networkID)}, m.M(v))
}
