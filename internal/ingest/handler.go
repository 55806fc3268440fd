package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

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
	Points    []struct {
		Type      string    `json:"type"`
		Position  []float64 `json:"position"`
		Sigma     []float64 `json:"sigma"`
		CreatedAt time.Time `json:"createdAt"`
		Measures  []struct {
			ImageID       uint64  `json:"imageId"`
			Serial        string  `json:"serial"`
			Col           float64 `json:"col"`
			Row           float64 `json:"row"`
			ColSigma      float64 `json:"colSigma"`
			RowSigma      float64 `json:"rowSigma"`
			EphemerisTime float64 `json:"ephemerisTime"`
		} `json:"measures"`
	} `json:"points"`
}

func NewHandler(cfg *Config, appender registry.Appender) (http.Handler, error) {
	s := &handler{
		appender: appender,
		cfg:      cfg,
	}
	return s, nil
}

type handler struct {
	appender registry.Appender
	cfg      *Config
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

	if req.NetworkID == "" {
		w.WriteHeader(http.StatusBadRequest)
		logger.Debug(`{"error": "networkId is required"}`)
		_, _ = fmt.Fprintf(w, `{"error": "networkId is required"}`)
		return
	}

	defer func() {
		metrics.Record(ctx, req.NetworkID, metrics.PointsAccepted, int64(len(req.Points)))
		logger.Infof("Accepted %d points for network %s", len(req.Points), req.NetworkID)
	}()
	go func() {
		sort.Slice(req.Points, func(i, j int) bool {
			return req.Points[i].CreatedAt.Before(req.Points[j].CreatedAt)
		})
		points := make([]model.ControlPoint, 0, len(req.Points))
		for _, dat := range req.Points {
			typ := model.PointTie
			if dat.Type == "ground" {
				typ = model.PointGround
			}
			measures := make([]model.ControlMeasure, 0, len(dat.Measures))
			for _, mdat := range dat.Measures {
				m := model.NewControlMeasure(mdat.Col, mdat.Row, mdat.ColSigma, mdat.RowSigma, mdat.ImageID)
				m.Serial = mdat.Serial
				m.EphemerisTime = mdat.EphemerisTime
				measures = append(measures, m)
			}
			point := model.NewControlPoint(
				req.NetworkID, typ, geom.NewVector(dat.Position...), geom.NewVector(dat.Sigma...), measures...,
			)
			if !dat.CreatedAt.IsZero() {
				point.CreatedAt = dat.CreatedAt
			}
			points = append(points, point)
		}
		if err := h.appender.Append(points...); err != nil {
			logger.Errorf("error sending to registry service: %v", err)
		}
	}()
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status": "ok"}`)
}
