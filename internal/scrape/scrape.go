// Package scrape polls remote point feeds and hands the fetched
// control points to the registry. A feed serves the same document the
// ingest endpoint accepts.
package scrape

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fatelord/visionworkbench/internal/cnet/model"
	"github.com/fatelord/visionworkbench/internal/logging"
	"github.com/fatelord/visionworkbench/internal/registry"
	"github.com/fatelord/visionworkbench/pkg/math/geom"
	"github.com/fatelord/visionworkbench/pkg/rworker"
)

type response struct {
	NetworkID string `json:"networkId"`
	Points    []struct {
		Type     string    `json:"type"`
		Position []float64 `json:"position"`
		Sigma    []float64 `json:"sigma"`
		Measures []struct {
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

type Manager interface {
	Run(context.Context) error
	Stop()
}

type ProvideFn = func(registry.Manager, chan<- error) (Manager, error)

const UserAgent = "VW/0.1"

const (
	defaultInterval              = 15 * time.Second
	defaultMaxConcurrent         = 64
	defaultRequestTimeout        = 10 * time.Second
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
)

type Options struct {
	maxConcurrentRequest  int
	requestTimeout        time.Duration
	tlsHandshakeTimeout   time.Duration
	responseHeaderTimeout time.Duration
	scrapeInterval        time.Duration
}

type Option func(*manager)

func WithMaxConcurrentRequest(n int) Option {
	return func(o *manager) {
		o.opts.maxConcurrentRequest = n
	}
}

func WithInterval(t time.Duration) Option {
	return func(o *manager) {
		o.opts.scrapeInterval = t
	}
}

func WithRequestTimeout(t time.Duration) Option {
	return func(o *manager) {
		o.opts.requestTimeout = t
	}
}

func WithTargets(m Targets) Option {
	return func(o *manager) {
		o.targets = m
	}
}

func New(reg registry.Manager, shutdownCh chan<- error, opts ...Option) (*manager, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry instance is not defined")
	}
	m := &manager{
		targets:    Targets{},
		shutdownCh: shutdownCh,
		registry:   reg,
	}
	m.opts.scrapeInterval = defaultInterval
	m.opts.maxConcurrentRequest = defaultMaxConcurrent
	m.opts.requestTimeout = defaultRequestTimeout
	m.opts.tlsHandshakeTimeout = defaultTLSHandshakeTimeout
	m.opts.responseHeaderTimeout = defaultResponseHeaderTimeout
	for _, opt := range opts {
		opt(m)
	}
	m.client = &http.Client{
		Transport: &http.Transport{
			TLSHandshakeTimeout:   m.opts.tlsHandshakeTimeout,
			ResponseHeaderTimeout: m.opts.responseHeaderTimeout,
		},
	}
	return m, nil
}

type manager struct {
	opts           Options
	targets        Targets
	registry       registry.Manager
	client         *http.Client
	shutdownCh     chan<- error
	cancelRegistry func()
	cancel         func()
}

func (s *manager) Stop() {
	s.cancel()
}

func (s *manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	c, cancel := context.WithCancel(context.Background())
	s.cancelRegistry = cancel
	if err := s.registry.Run(c); err != nil {
		return fmt.Errorf("registry.Run: %w", err)
	}
	go func() {
		defer func() {
			s.shutdownCh <- nil
			s.cancelRegistry()
		}()
		ticker := time.NewTicker(s.opts.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.scrapping(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (s *manager) scrape(url string) (response, error) {
	var resp response
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return resp, fmt.Errorf("creating request error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Add("User-Agent", UserAgent)
	req.Header.Add("Accept-Encoding", "gzip")
	httpResp, err := s.client.Do(req)
	if err != nil {
		return resp, fmt.Errorf("sending request error: %w", err)
	}

	defer httpResp.Body.Close()

	var reader io.ReadCloser
	switch httpResp.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err = gzip.NewReader(httpResp.Body)
		if err != nil {
			return resp, fmt.Errorf("unable create gzip.NewReader: %w", err)
		}
		defer reader.Close()
	default:
		reader = httpResp.Body
	}

	body, err := ioutil.ReadAll(reader)
	if err != nil {
		return resp, fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return resp, fmt.Errorf("response was not 200 OK: %s", body)
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	if err := decoder.Decode(&resp); err != nil {
		return resp, fmt.Errorf("decoding response error: %w", err)
	}

	return resp, nil
}

func (s *manager) scrapping(ctx context.Context) {
	wg := sync.WaitGroup{}
	logger := logging.FromContext(ctx)
	errCh := make(chan error, 1)
	rateCh := make(chan struct{}, s.opts.maxConcurrentRequest)
	defer close(rateCh)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for err := range errCh {
			logger.Errorf("scrape manager error: %v", err)
		}
	}()
OuterLoop:
	for _, link := range s.targets {
		link := link
		urlData, err := url.Parse(link.URL)
		if err != nil {
			errCh <- fmt.Errorf("url parsing error: %w", err)
			continue OuterLoop
		}
		rworker.Job(&wg, func() error {
			resp, err := s.scrape(urlData.String())
			if err != nil {
				return fmt.Errorf("scrape error: %w", err)
			}
			networkID := resp.NetworkID
			if networkID == "" {
				networkID = link.NetworkID
			}
			points := make([]model.ControlPoint, 0, len(resp.Points))
			for _, dat := range resp.Points {
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
				points = append(points, model.NewControlPoint(
					networkID, typ, geom.NewVector(dat.Position...), geom.NewVector(dat.Sigma...), measures...,
				))
			}
			if err := s.registry.Append(points...); err != nil {
				return fmt.Errorf("send to registry error: %w", err)
			}
			return nil
		}, rateCh, errCh)
	}
	wg.Wait()
	close(errCh)
	<-drained
}
