package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fatelord/visionworkbench/internal/cnet/model"
	"github.com/fatelord/visionworkbench/internal/httputil"
	"github.com/fatelord/visionworkbench/internal/logging"
	"github.com/fatelord/visionworkbench/internal/metrics"
	"github.com/fatelord/visionworkbench/internal/registry"
	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

const maxBodyBytes = 64 * 1024 * 1024

type request struct {
	NetworkID string `json:"networkId"`
	Data      []struct {
		Point []float64 `json:"point"`
	} `json:"data"`
}

type match struct {
	PointID  string    `json:"pointId"`
	Type     string    `json:"type"`
	Position []float64 `json:"position"`
	Sigma    []float64 `json:"sigma"`
	Distance float64   `json:"distance"`
	Measures int       `json:"measures"`
}

type response struct {
	NetworkID string `json:"networkId"`
	Data      []struct {
		Point   []float64 `json:"point"`
		Matches []match   `json:"matches"`
	} `json:"data"`
}

func NewHandler(cfg *Config, querier registry.Querier) (http.Handler, error) {
	return &handler{
		cfg:     cfg,
		querier: querier,
	}, nil
}

type handler struct {
	querier registry.Querier
	cfg     *Config
}

func typeLabel(t model.PointType) string {
	if t == model.PointGround {
		return "ground"
	}
	return "tie"
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
		_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
		return
	}

	if t := r.Header.Get("content-type"); len(t) < 16 || t[:16] != "application/json" {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		logger.Debug(fmt.Sprintf(`{"error": "%v"}`, "content-type is not application/json"))
		_, _ = fmt.Fprintf(w, `{"error": "%v"}`, "content-type is not application/json")
		return
	}

	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d := json.NewDecoder(r.Body)
	if err := d.Decode(&req); err != nil {
		httputil.DecodeErr(ctx, w, err)
		return
	}

	if len(req.Data) > h.cfg.MaxDataItemsLen {
		httputil.RespBadRequest(ctx, w, `{"error": "data items is too large, max allowed len is %d"}`, h.cfg.MaxDataItemsLen)
		return
	}
	var respData []struct {
		Point   []float64 `json:"point"`
		Matches []match   `json:"matches"`
	}
	errGrp := errgroup.Group{}
	mtx := sync.Mutex{}
	for _, dat := range req.Data {
		dat := dat
		errGrp.Go(func() error {
			point := geom.NewVector(dat.Point...)
			found, err := h.querier.ContainsAll(req.NetworkID, point)
			if err != nil {
				return fmt.Errorf("lookup error: %w", err)
			}
			matches := make([]match, 0, len(found))
			for _, p := range found {
				dist, err := geom.EuclideanDistance(point, p.Position)
				if err != nil {
					return fmt.Errorf("lookup error: %w", err)
				}
				matches = append(matches, match{
					PointID:  p.ID.String(),
					Type:     typeLabel(p.Type),
					Position: p.Position,
					Sigma:    p.Sigma,
					Distance: dist,
					Measures: p.Size(),
				})
			}
			mtx.Lock()
			respData = append(respData, struct {
				Point   []float64 `json:"point"`
				Matches []match   `json:"matches"`
			}{Point: dat.Point, Matches: matches})
			mtx.Unlock()
			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		if errors.Is(err, registry.ErrNetworkUnknown) {
			httputil.RespNotFound(ctx, w, `{"error": "network %q is not registered"}`, req.NetworkID)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "lookup processing error, %v"}`, err)
		return
	}
	metrics.Record(ctx, req.NetworkID, metrics.QueryLookups, int64(len(req.Data)))
	resp := response{
		NetworkID: req.NetworkID,
	}
	resp.Data = respData
	bytes, err := json.Marshal(resp)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "%s", bytes)
}
