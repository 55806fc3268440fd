// Package export serves the rendered views of a network index, the
// cell dump, the VRML scene and the counters. Rendering walks the
// whole tree, so finished documents are cached for a short period.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fatelord/visionworkbench/internal/byteutil"
	"github.com/fatelord/visionworkbench/internal/cache"
	"github.com/fatelord/visionworkbench/internal/httputil"
	"github.com/fatelord/visionworkbench/internal/logging"
	"github.com/fatelord/visionworkbench/internal/metrics"
	"github.com/fatelord/visionworkbench/internal/registry"
)

const (
	FormatPrint = "print"
	FormatVRML  = "vrml"
	FormatStats = "stats"
	FormatPairs = "pairs"
)

func NewHandler(cfg *Config, querier registry.Querier, cacher cache.Cacher) (http.Handler, error) {
	return &handler{
		cfg:     cfg,
		querier: querier,
		cacher:  cacher,
	}, nil
}

type handler struct {
	querier registry.Querier
	cacher  cache.Cacher
	cfg     *Config
}

func contentType(format string) string {
	switch format {
	case FormatVRML:
		return "model/vrml"
	case FormatStats, FormatPairs:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
		_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
		return
	}

	networkID := r.URL.Query().Get("network")
	if networkID == "" {
		httputil.RespBadRequest(ctx, w, `{"error": "network parameter is required"}`)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = FormatPrint
	}
	if format != FormatPrint && format != FormatVRML && format != FormatStats && format != FormatPairs {
		httputil.RespBadRequest(ctx, w, `{"error": "format %q is not supported"}`, format)
		return
	}

	key := "export:" + format + ":" + networkID
	if cached, err := h.cacher.Get(ctx, key); err == nil {
		metrics.Record(ctx, networkID, metrics.ExportCacheHits, 1)
		w.Header().Set("Content-Type", contentType(format))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Errorf("export cache get: %v", err)
	}

	buf := byteutil.GetBytesBuf()
	defer byteutil.PutBytesBuf(buf)

	var err error
	switch format {
	case FormatVRML:
		err = h.querier.RenderVRML(networkID, buf)
	case FormatStats:
		var stats registry.NetworkStats
		stats, err = h.querier.Stats(networkID)
		if err == nil {
			err = json.NewEncoder(buf).Encode(stats)
		}
	case FormatPairs:
		var pairs []registry.ConflictPair
		pairs, err = h.querier.OverlapPairs(networkID)
		if err == nil {
			err = json.NewEncoder(buf).Encode(pairs)
		}
	default:
		err = h.querier.RenderPrint(networkID, buf)
	}
	if err != nil {
		if errors.Is(err, registry.ErrNetworkUnknown) {
			httputil.RespNotFound(ctx, w, `{"error": "network %q is not registered"}`, networkID)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "render error, %v"}`, err)
		return
	}

	body := make([]byte, buf.Len())
	copy(body, buf.Bytes())
	if err := h.cacher.Set(ctx, key, body, h.cfg.CacheExpiration); err != nil {
		logger.Errorf("export cache set: %v", err)
	}
	metrics.Record(ctx, networkID, metrics.ExportRenders, 1)

	w.Header().Set("Content-Type", contentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
