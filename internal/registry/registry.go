package registry

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fatelord/visionworkbench/internal/alert"
	cnetDb "github.com/fatelord/visionworkbench/internal/cnet/database"
	"github.com/fatelord/visionworkbench/internal/cnet/model"
	"github.com/fatelord/visionworkbench/internal/database"
	"github.com/fatelord/visionworkbench/internal/logging"
	"github.com/fatelord/visionworkbench/pkg/container/spatialtree"
	"github.com/fatelord/visionworkbench/pkg/iqueue"
	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

// Contract for returning the Manager instance
type ProvideFn func(alert.Manager, chan<- error) (Manager, error)

// The interface defines the behavior of the Manager instance with all available methods.
// This interface defines the behavior of the background service.
type Manager interface {
	AppendQuerier
	// Start method of the service
	Run(context.Context) error
	// Method for stopping the service
	Stop()
}

// Appender defines the behavior of the service for receiving control points
type Appender interface {
	// The method accepts points from outside and writes them to the queue
	Append(in ...model.ControlPoint) error
}

// The interface defines the behavior of the service for reading the indexes
type Querier interface {
	// The method returns one point whose footprint holds the query location
	Contains(networkID string, point geom.Vector) (*model.ControlPoint, error)
	// The method returns every point whose footprint holds the query location
	ContainsAll(networkID string, point geom.Vector) ([]model.ControlPoint, error)
	// The method returns all pairs of points with overlapping footprints
	OverlapPairs(networkID string) ([]ConflictPair, error)
	// Renders the index cells and footprints as text
	RenderPrint(networkID string, w io.Writer) error
	// Renders the index as a VRML scene
	RenderVRML(networkID string, w io.Writer) error
	// Index counters for one network
	Stats(networkID string) (NetworkStats, error)
	// Registered network ids
	NetworkIDs() []string
}

// Aggregation interface for Appender and Querier interfaces
type AppendQuerier interface {
	Appender
	Querier
}

var ErrNetworkUnknown = fmt.Errorf("network is not registered")

type ConflictPair struct {
	First  model.ControlPoint `json:"first"`
	Second model.ControlPoint `json:"second"`
}

type NetworkStats struct {
	NetworkID  string      `json:"networkId"`
	Dimensions int         `json:"dimensions"`
	Size       int         `json:"size"`
	Min        geom.Vector `json:"min"`
	Max        geom.Vector `json:"max"`
}

// Abstractions for getting dependencies
type (
	// function for getting points based on the network id
	fetchPointsByNetworkFn func(string, cnetDb.FilterFn) ([]model.ControlPoint, error)
	// function for deleting multiple points
	deletePointsFn func(context.Context, []model.ControlPoint) error
	// function to add sets of points
	appendPointsFn func(context.Context, []model.ControlPoint) error
	// function for getting all network IDs
	fetchKeysFn func() ([]string, error)
	// number of points by network id
	countByNetworkFn func(string) (int, error)
)

// General structure for aggregation of dependency pulling functions
type pullDependencies struct {
	fetchPointsByNetwork fetchPointsByNetworkFn
	deletePoints         deletePointsFn
	appendPoints         appendPointsFn
	fetchKeys            fetchKeysFn
	countByNetwork       countByNetworkFn
}

type Options struct {
	minScale       float64
	padExtent      float64
	maxItemsStored int
	maxStorageTime time.Duration
	dbFlushTime    time.Duration
	dbFlushSize    int
	rebuildDBTime  time.Duration
	deps           pullDependencies
}

type Option func(*manager)

func WithDBFlushTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.dbFlushTime = t
	}
}

func WithDBFlushSize(n int) Option {
	return func(o *manager) {
		o.opts.dbFlushSize = n
	}
}

func WithRebuildDBTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.rebuildDBTime = t
	}
}

func WithMaxItemsStored(n int) Option {
	return func(o *manager) {
		o.opts.maxItemsStored = n
	}
}

func WithMaxStorageTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.maxStorageTime = t
	}
}

// WithMinScale overrides the index cell floor, the fraction of the root
// extent below which cells stop splitting.
func WithMinScale(scale float64) Option {
	return func(o *manager) {
		o.opts.minScale = scale
	}
}

// WithPadExtent sets the half width used to widen a zero extent axis of
// the first footprint when a network index is seeded.
func WithPadExtent(pad float64) Option {
	return func(o *manager) {
		o.opts.padExtent = pad
	}
}

// New return manager
func New(db *database.DB, notifier alert.Manager, shutdownCh chan<- error, opts ...Option) (*manager, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notifier instance is not created")
	}

	r := &manager{
		cnetDB:     cnetDb.New(db),
		collectCh:  make(chan model.ControlPoint, 1),
		shutDownCh: shutdownCh,
		entries:    map[string]*entry{},
		queue:      map[string]*iqueue.Queue{},
		notifier:   notifier,
	}
	r.opts.padExtent = defaultPadExtent
	r.opts.dbFlushTime = defaultFlushTime
	r.opts.dbFlushSize = defaultFlushSize
	r.opts.rebuildDBTime = defaultRebuildTime

	for _, f := range opts {
		f(r)
	}

	// structure containing functions for getting and adding points
	r.opts.deps = pullDependencies{
		fetchPointsByNetwork: r.cnetDB.FindByNetwork,
		deletePoints:         r.cnetDB.DeleteMany,
		appendPoints:         r.cnetDB.AppendMany,
		fetchKeys:            r.cnetDB.Keys,
		countByNetwork:       r.cnetDB.CountByNetwork,
	}

	r.dbScheduler = newDBScheduler(dbSchedulerConfig{
		deps:           r.opts.deps,
		rebuildNetwork: r.rebuild,
		maxItemsStored: r.opts.maxItemsStored,
		maxStorageTime: r.opts.maxStorageTime,
		rebuildDBTime:  r.opts.rebuildDBTime,
	})

	r.dbTxExecutor = newDBTxExecutor(dbTxExecutorOptions{
		deps:      r.opts.deps,
		flushTime: r.opts.dbFlushTime,
		flushSize: r.opts.dbFlushSize,
	}, shutdownCh)

	return r, nil
}

const (
	defaultPadExtent   = 0.5
	defaultFlushTime   = 5 * time.Second
	defaultFlushSize   = 64
	defaultRebuildTime = 30 * time.Minute
)

// entry pairs one network with its in-memory index. The tree is seeded
// lazily from the first footprint so each network dictates its own
// dimensionality.
type entry struct {
	tree   *spatialtree.Tree
	points map[uuid.UUID]*model.ControlPoint
}

func newEntry() *entry {
	return &entry{points: map[uuid.UUID]*model.ControlPoint{}}
}

func (e *entry) add(p *model.ControlPoint, pad, minScale float64) error {
	if e.tree == nil {
		tree, err := seedTree(p.Footprint(), pad, minScale)
		if err != nil {
			return err
		}
		e.tree = tree
	}
	if err := e.tree.Add(p); err != nil {
		return err
	}
	e.points[p.ID] = p
	return nil
}

// conflicting returns the other ground points whose footprint holds the
// location of p.
func (e *entry) conflicting(p *model.ControlPoint) []model.ControlPoint {
	prims, err := e.tree.ContainsAll(p.Position)
	if err != nil {
		return nil
	}
	var out []model.ControlPoint
	for _, prim := range prims {
		cp, ok := prim.(*model.ControlPoint)
		if !ok || cp.ID == p.ID || cp.Type != model.PointGround {
			continue
		}
		out = append(out, *cp)
	}
	return out
}

// seedTree builds an index whose root is the given footprint. The root
// must have positive extent on every axis to be able to grow, flat axes
// are widened by pad on both sides.
func seedTree(box geom.BBox, pad, minScale float64) (*spatialtree.Tree, error) {
	for i := range box.Min {
		if box.Max[i]-box.Min[i] == 0 {
			box.Min[i] -= pad
			box.Max[i] += pad
		}
	}
	var opts []spatialtree.Option
	if minScale > 0 {
		opts = append(opts, spatialtree.WithMinScale(minScale))
	}
	return spatialtree.New(box, opts...)
}

// The main structure of the registry.
// Owns one spatial index per control network, the ingest queues and the
// storage maintenance services.
type manager struct {
	mtx sync.RWMutex

	// Manager options
	opts Options
	// Main point storage
	cnetDB *cnetDb.DB
	// The notification manager
	notifier alert.Manager
	// The transaction manager in the store
	dbTxExecutor *dbTxExecutor
	// Managing data in storage
	dbScheduler *dbScheduler

	// Per network index state
	entries map[string]*entry
	// Queue for new data to be processed
	queue map[string]*iqueue.Queue
	// New data channel for processing
	collectCh chan model.ControlPoint
	// Channel to shutdown the application
	shutDownCh chan<- error

	closed bool

	// cancellation
	cancelNotifier func()
	cancel         func()
}

// The Run method starts indexing, storage flushing and pruning
func (r *manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	c, cancel := context.WithCancel(context.Background())
	r.cancelNotifier = cancel

	go r.collector(ctx)
	go r.dbTxExecutor.flusher(ctx)
	go r.dbScheduler.schedule(ctx)

	// Loading data from storage to memory
	if err := r.bulkLoad(ctx); err != nil {
		return fmt.Errorf("can not start registry manager: %w", err)
	}
	// Launching the notification service
	if err := r.notifier.Run(c); err != nil {
		return fmt.Errorf("alert.Run: %w", err)
	}

	return nil
}

// Stop the manager
func (r *manager) Stop() {
	r.cancel()
}

// Append adds points to the feed for indexing and saving
func (r *manager) Append(in ...model.ControlPoint) error {
	r.mtx.RLock()
	if r.closed {
		r.mtx.RUnlock()
		return fmt.Errorf("error send to append, shutting down")
	}
	for i := range in {
		r.collectCh <- in[i]
	}
	r.mtx.RUnlock()
	return nil
}

// Contains returns a point of the network holding the query location,
// nil when no footprint does.
func (r *manager) Contains(networkID string, point geom.Vector) (*model.ControlPoint, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	e, err := r.lookup(networkID)
	if err != nil {
		return nil, err
	}
	prim, err := e.tree.Contains(point)
	if err != nil {
		return nil, err
	}
	if prim == nil {
		return nil, nil
	}
	found := *prim.(*model.ControlPoint)
	return &found, nil
}

func (r *manager) ContainsAll(networkID string, point geom.Vector) ([]model.ControlPoint, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	e, err := r.lookup(networkID)
	if err != nil {
		return nil, err
	}
	prims, err := e.tree.ContainsAll(point)
	if err != nil {
		return nil, err
	}
	list := make([]model.ControlPoint, 0, len(prims))
	for _, prim := range prims {
		list = append(list, *prim.(*model.ControlPoint))
	}
	return list, nil
}

func (r *manager) OverlapPairs(networkID string) ([]ConflictPair, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	e, err := r.lookup(networkID)
	if err != nil {
		return nil, err
	}
	pairs := e.tree.OverlapPairs()
	list := make([]ConflictPair, 0, len(pairs))
	for _, pair := range pairs {
		list = append(list, ConflictPair{
			First:  *pair.First.(*model.ControlPoint),
			Second: *pair.Second.(*model.ControlPoint),
		})
	}
	return list, nil
}

func (r *manager) RenderPrint(networkID string, w io.Writer) error {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	e, err := r.lookup(networkID)
	if err != nil {
		return err
	}
	return e.tree.Print(w)
}

func (r *manager) RenderVRML(networkID string, w io.Writer) error {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	e, err := r.lookup(networkID)
	if err != nil {
		return err
	}
	return e.tree.WriteVRML(w)
}

func (r *manager) Stats(networkID string) (NetworkStats, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	e, err := r.lookup(networkID)
	if err != nil {
		return NetworkStats{}, err
	}
	bounds := e.tree.Bounds()
	return NetworkStats{
		NetworkID:  networkID,
		Dimensions: e.tree.Dimensions(),
		Size:       e.tree.Len(),
		Min:        bounds.Min,
		Max:        bounds.Max,
	}, nil
}

func (r *manager) NetworkIDs() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// lookup requires r.mtx held
func (r *manager) lookup(networkID string) (*entry, error) {
	e, ok := r.entries[networkID]
	if !ok || e.tree == nil {
		return nil, ErrNetworkUnknown
	}
	return e, nil
}

// bulkLoad loading data from storage to memory
func (r *manager) bulkLoad(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	keys, err := r.opts.deps.fetchKeys()
	if err != nil {
		return fmt.Errorf("error fetching network keys: %w", err)
	}

	var newPoints []model.ControlPoint
	for _, key := range keys {
		points, err := r.opts.deps.fetchPointsByNetwork(key, nil)
		if err != nil {
			return fmt.Errorf("error fetching points of %s: %w", key, err)
		}
		e := newEntry()
		for i := range points {
			point := points[i]
			// points not indexed before the last shutdown go back
			// through the queue
			if point.IsNew() {
				newPoints = append(newPoints, point)
				continue
			}
			if err := e.add(&point, r.opts.padExtent, r.opts.minScale); err != nil {
				logger.Errorf("unable index stored point %s: %v", point.ID, err)
			}
		}
		r.mtx.Lock()
		r.entries[key] = e
		r.mtx.Unlock()
	}

	for i := range newPoints {
		r.collectCh <- newPoints[i]
	}

	return nil
}

// rebuild replaces the in-memory index of one network with the stored
// indexed points. The scheduler calls it after pruning.
func (r *manager) rebuild(ctx context.Context, networkID string) error {
	logger := logging.FromContext(ctx)

	points, err := r.opts.deps.fetchPointsByNetwork(networkID, func(p model.ControlPoint) bool {
		return p.IsIndexed()
	})
	if err != nil {
		return fmt.Errorf("error fetching points of %s: %w", networkID, err)
	}

	e := newEntry()
	for i := range points {
		point := points[i]
		if err := e.add(&point, r.opts.padExtent, r.opts.minScale); err != nil {
			logger.Errorf("unable index stored point %s: %v", point.ID, err)
		}
	}

	r.mtx.Lock()
	r.entries[networkID] = e
	r.mtx.Unlock()
	return nil
}

func (r *manager) process(ctx context.Context, point model.ControlPoint) error {
	logger := logging.FromContext(ctx)

	point.Status = model.StatusIndexed

	r.mtx.Lock()
	e, ok := r.entries[point.NetworkID]
	if !ok {
		e = newEntry()
		r.entries[point.NetworkID] = e
	}
	if _, ok := e.points[point.ID]; ok {
		r.mtx.Unlock()
		return nil
	}
	if err := e.add(&point, r.opts.padExtent, r.opts.minScale); err != nil {
		r.mtx.Unlock()
		return fmt.Errorf("unable index point %s: %w", point.ID, err)
	}
	var conflicts []model.ControlPoint
	if point.Type == model.PointGround {
		conflicts = e.conflicting(&point)
	}
	r.mtx.Unlock()

	r.dbTxExecutor.append(ctx, point)

	if len(conflicts) > 0 {
		logger.Infof(
			"detect ground control conflict, network %s, point %s against %d points",
			point.NetworkID, point.ID, len(conflicts),
		)
		r.alert(append(conflicts, point))
	}

	return nil
}

func (r *manager) alert(in []model.ControlPoint) {
	r.mtx.RLock()
	if !r.closed {
		r.mtx.RUnlock()
		r.notifier.Notify(in...)
		return
	}
	r.mtx.RUnlock()
}

func (r *manager) shutdown(ctx context.Context, q *iqueue.Queue) error {
	for {
		in, ok := q.PopFront()
		if !ok {
			if !r.recvShutdown() {
				return fmt.Errorf("registry shutdown: closed num receivers not equal created")
			}
			r.cancelNotifier()
			break
		}

		if err := r.process(ctx, in.(model.ControlPoint)); err != nil {
			return fmt.Errorf("registry shutdown: unable processed data: %w", err)
		}
	}
	return nil
}

func (r *manager) recvShutdown() bool {
	finishedNum, queuesNum := 0, len(r.queue)
	for _, q := range r.queue {
		if q.Len() == 0 {
			finishedNum += 1
		}
	}

	return finishedNum == queuesNum
}

func (r *manager) receive(ctx context.Context, q *iqueue.Queue) {
	logger := logging.FromContext(ctx)
	defer func() {
		r.shutDownCh <- r.shutdown(ctx, q)
	}()

	for {
		select {
		case recv := <-q.Receive():
			if err := r.process(ctx, recv.(model.ControlPoint)); err != nil {
				logger.Errorf("unable processed data: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

const workerMul = 2

func (r *manager) worker(ctx context.Context, queue *iqueue.Queue, num int) {
	for i := 0; i < num; i++ {
		go r.receive(ctx, queue)
	}
}

func (r *manager) collector(ctx context.Context) {
	defer close(r.collectCh)
	for {
		select {
		case in := <-r.collectCh:
			q, ok := r.queue[in.NetworkID]
			if !ok {
				queue := iqueue.New()
				go queue.Loop()
				r.worker(ctx, queue, runtime.NumCPU()*workerMul)
				r.queue[in.NetworkID] = queue
				q = queue
			}
			q.Send(in)
		case <-ctx.Done():
			r.mtx.Lock()
			r.closed = true
			r.mtx.Unlock()
			return
		}
	}
}
