package alert

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

	alertDb "github.com/fatelord/visionworkbench/internal/alert/database"
	"github.com/fatelord/visionworkbench/internal/alert/model"
	cnetModel "github.com/fatelord/visionworkbench/internal/cnet/model"
	"github.com/fatelord/visionworkbench/internal/database"
	"github.com/fatelord/visionworkbench/internal/httputil"
	"github.com/fatelord/visionworkbench/internal/logging"
	"github.com/fatelord/visionworkbench/pkg/math/geom"
	"github.com/fatelord/visionworkbench/pkg/rworker"
)

type ProvideFn = func(chan<- error) (Manager, error)

const UserAgent = "VW/0.1"

const (
	defaultInterval       = 5 * time.Second
	defaultMaxConcurrent  = 64
	defaultRequestTimeout = 10 * time.Second
)

type Options struct {
	maxConcurrentRequest int
	requestTimeout       time.Duration
	alertInterval        time.Duration
	targets              Targets
}

type Option func(*manager)

func WithMaxConcurrentRequest(n int) Option {
	return func(o *manager) {
		o.opts.maxConcurrentRequest = n
	}
}

func WithAlertInterval(t time.Duration) Option {
	return func(o *manager) {
		o.opts.alertInterval = t
	}
}

func WithRequestTimeout(t time.Duration) Option {
	return func(o *manager) {
		o.opts.requestTimeout = t
	}
}

func WithTargets(m Targets) Option {
	return func(o *manager) {
		o.opts.targets = m
	}
}

// data is one conflicting point in a webhook payload
type data struct {
	PointID   string      `json:"pointId"`
	Type      uint8       `json:"type"`
	Position  geom.Vector `json:"position"`
	Sigma     geom.Vector `json:"sigma"`
	CreatedAt time.Time   `json:"createdAt"`
}

type request struct {
	NetworkID string `json:"networkId"`
	Conflicts []data `json:"conflicts"`
}

func New(db *database.DB, shutdownCh chan<- error, opts ...Option) (*manager, error) {
	m := &manager{
		alertDb:    alertDb.New(db),
		shutdownCh: shutdownCh,
		clients:    map[string]*http.Client{},
		alerts:     map[string][]cnetModel.ControlPoint{},
	}
	m.opts.alertInterval = defaultInterval
	m.opts.maxConcurrentRequest = defaultMaxConcurrent
	m.opts.requestTimeout = defaultRequestTimeout

	for _, f := range opts {
		f(m)
	}
	for _, target := range m.opts.targets {
		if _, ok := m.clients[target.NetworkID]; !ok {
			client, err := httputil.NewClientFromConfig(target.HTTPConfig, true)
			if err != nil {
				return nil, fmt.Errorf("unable create client for network %s: %v", target.NetworkID, err)
			}
			m.clients[target.NetworkID] = client
		}
	}
	return m, nil
}

type Notifier interface {
	Notify(points ...cnetModel.ControlPoint)
}

type Manager interface {
	Notifier
	Run(context.Context) error
	Stop()
}

type manager struct {
	mtx        sync.RWMutex
	opts       Options
	alertDb    *alertDb.DB
	shutdownCh chan<- error
	clients    map[string]*http.Client
	alerts     map[string][]cnetModel.ControlPoint
	cancel     func()
}

func (m *manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go m.notifier(ctx)
	if err := m.initialize(ctx); err != nil {
		return fmt.Errorf("can not start alert manager: %v", err)
	}
	return nil
}

func (m *manager) Stop() {
	m.cancel()
}

// Notify queues conflicting points for delivery, grouped by network
func (m *manager) Notify(points ...cnetModel.ControlPoint) {
	m.mtx.Lock()
	for i := range points {
		if _, ok := m.alerts[points[i].NetworkID]; !ok {
			m.alerts[points[i].NetworkID] = []cnetModel.ControlPoint{}
		}
		m.alerts[points[i].NetworkID] = append(m.alerts[points[i].NetworkID], points[i])
	}
	m.mtx.Unlock()
}

// initialize re-queues alerts spilled to the DB by a previous shutdown
func (m *manager) initialize(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	alerts, err := m.alertDb.FindAll(ctx, nil)
	if err != nil {
		logger.Errorf("Error with fetching data from db, %v", err)
	}
	for i := range alerts {
		m.Notify(alerts[i].Points...)
		if err := m.alertDb.Delete(context.Background(), alerts[i]); err != nil {
			return fmt.Errorf("unable delete alert on initialize: %v", err)
		}
	}
	return nil
}

// shutdown spills undelivered alerts to the DB
func (m *manager) shutdown() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	for networkID, points := range m.alerts {
		if len(points) == 0 {
			continue
		}
		alert := model.NewAlert(networkID, points)
		if err := m.alertDb.Store(context.Background(), alert); err != nil {
			return fmt.Errorf("alert shutdown: unable store alert: %v", err)
		}
	}
	return nil
}

type makeRequestFn func() request

func (m *manager) notifier(ctx context.Context) {
	logger := logging.FromContext(ctx)
	errCh := make(chan error, 1)
	rateCh := make(chan struct{}, m.opts.maxConcurrentRequest)
	defer close(errCh)
	defer close(rateCh)
	go func() {
		for err := range errCh {
			logger.Errorf("alert error: %v", err)
		}
	}()
	defer func() {
		m.shutdownCh <- m.shutdown()
	}()
	wg := sync.WaitGroup{}
	ticker := time.NewTicker(m.opts.alertInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		OuterLoop:
			for _, target := range m.opts.targets {
				target := target
				m.mtx.RLock()
				points := m.alerts[target.NetworkID]
				m.mtx.RUnlock()
				if len(points) == 0 {
					continue OuterLoop
				}
				rworker.Job(&wg, func() error {
					alertModel := model.NewAlert(target.NetworkID, points)
					if err := m.alertDb.Store(context.Background(), alertModel); err != nil {
						return fmt.Errorf("unable store alert: %v", err)
					}
					if err := m.do(context.Background(), target, func() request {
						conflicts := make([]data, len(points))
						for i := range points {
							conflicts[i] = data{
								PointID:   points[i].ID.String(),
								Type:      uint8(points[i].Type),
								Position:  points[i].Position,
								Sigma:     points[i].Sigma,
								CreatedAt: points[i].CreatedAt,
							}
						}
						return request{
							NetworkID: target.NetworkID,
							Conflicts: conflicts,
						}
					}); err != nil {
						return fmt.Errorf("alert do request error: %v", err)
					}
					if err := m.alertDb.Delete(context.Background(), alertModel); err != nil {
						return fmt.Errorf("unable delete alert: %v", err)
					}
					m.mtx.Lock()
					m.alerts[target.NetworkID] = m.alerts[target.NetworkID][:0]
					m.mtx.Unlock()
					return nil
				}, rateCh, errCh)
			}
			wg.Wait()
		case <-ctx.Done():
			return
		}
	}
}

func (m *manager) do(ctx context.Context, target Target, fn makeRequestFn) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.requestTimeout)
	defer cancel()
	body, err := json.Marshal(fn())
	if err != nil {
		return fmt.Errorf("unable encode json data: %w", err)
	}
	link, err := url.Parse(target.URL)
	if err != nil {
		return fmt.Errorf("url parsing error: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", link.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Add("User-Agent", UserAgent)
	req.Header.Add("Accept-Encoding", "gzip")
	client, ok := m.clients[target.NetworkID]
	if !ok {
		return fmt.Errorf("client for network %s not defined", target.NetworkID)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request error: %w", err)
	}

	defer resp.Body.Close()

	var reader io.ReadCloser
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err = gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("unable create gzip.NewReader: %w", err)
		}
		defer reader.Close()
	default:
		reader = resp.Body
	}

	if _, err := ioutil.ReadAll(reader); err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("response was not 200 OK: %s", resp.Status)
	}
	return nil
}
