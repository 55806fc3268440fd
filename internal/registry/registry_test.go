package registry

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	cnetDb "github.com/fatelord/visionworkbench/internal/cnet/database"
	"github.com/fatelord/visionworkbench/internal/cnet/model"
	"github.com/fatelord/visionworkbench/pkg/iqueue"
	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

type fakeNotifier struct {
	mtx sync.Mutex
	got [][]model.ControlPoint
}

func (f *fakeNotifier) Notify(points ...model.ControlPoint) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	batch := make([]model.ControlPoint, len(points))
	copy(batch, points)
	f.got = append(f.got, batch)
}

func (f *fakeNotifier) Run(ctx context.Context) error { return nil }

func (f *fakeNotifier) Stop() {}

func (f *fakeNotifier) batches() [][]model.ControlPoint {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.got
}

// fakeFetch serves the given points, applying the filter the way the
// real storage layer does.
func fakeFetch(points []model.ControlPoint) fetchPointsByNetworkFn {
	return func(networkID string, filter cnetDb.FilterFn) ([]model.ControlPoint, error) {
		out := make([]model.ControlPoint, 0, len(points))
		for _, p := range points {
			if filter == nil || filter(p) {
				out = append(out, p)
			}
		}
		return out, nil
	}
}

func newTestManager(deps pullDependencies, notifier *fakeNotifier) *manager {
	if deps.appendPoints == nil {
		deps.appendPoints = func(ctx context.Context, points []model.ControlPoint) error { return nil }
	}
	if deps.fetchKeys == nil {
		deps.fetchKeys = func() ([]string, error) { return nil, nil }
	}
	if deps.fetchPointsByNetwork == nil {
		deps.fetchPointsByNetwork = fakeFetch(nil)
	}

	r := &manager{
		collectCh:  make(chan model.ControlPoint, 16),
		shutDownCh: make(chan error, runtime.NumCPU()*workerMul+16),
		entries:    map[string]*entry{},
		queue:      map[string]*iqueue.Queue{},
		notifier:   notifier,
	}
	r.opts.padExtent = defaultPadExtent
	r.opts.deps = deps
	r.dbScheduler = newDBScheduler(dbSchedulerConfig{
		deps:           deps,
		rebuildNetwork: r.rebuild,
		rebuildDBTime:  time.Hour,
	})
	r.dbTxExecutor = newDBTxExecutor(dbTxExecutorOptions{
		deps:      deps,
		flushTime: time.Hour,
		flushSize: 1024,
	}, make(chan error, 1))
	return r
}

func TestManagerProcess(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	r := newTestManager(pullDependencies{}, notifier)
	ctx := context.Background()

	tie := model.NewControlPoint("net-a", model.PointTie, geom.NewVector(2, 2), geom.NewVector(1, 1))
	ground1 := model.NewControlPoint("net-a", model.PointGround, geom.NewVector(5, 5), geom.NewVector(1, 1))
	ground2 := model.NewControlPoint("net-a", model.PointGround, geom.NewVector(5.5, 5.2), geom.NewVector(1, 1))

	for _, p := range []model.ControlPoint{tie, ground1, ground2} {
		if err := r.process(ctx, p); err != nil {
			t.Fatalf("calling the process method, err got: %v, expected: %v", err, nil)
		}
	}

	stats, err := r.Stats("net-a")
	if err != nil {
		t.Fatalf("calling the Stats method, err got: %v, expected: %v", err, nil)
	}
	if stats.Size != 3 {
		t.Errorf("calling the Stats method, size got: %v, expected: %v", stats.Size, 3)
	}
	if stats.Dimensions != 2 {
		t.Errorf("calling the Stats method, dimensions got: %v, expected: %v", stats.Dimensions, 2)
	}

	// the second ground point lands inside the footprint of the first
	batches := notifier.batches()
	if len(batches) != 1 {
		t.Fatalf("calling the process method, the number of alerts got: %v, expected: %v", len(batches), 1)
	}
	if len(batches[0]) != 2 {
		t.Fatalf("calling the process method, the alert size got: %v, expected: %v", len(batches[0]), 2)
	}
	ids := map[string]bool{}
	for _, p := range batches[0] {
		ids[p.ID.String()] = true
	}
	if !ids[ground1.ID.String()] || !ids[ground2.ID.String()] {
		t.Errorf("calling the process method, the alert points got: %v, expected both ground points", ids)
	}

	if bufLen := len(r.dbTxExecutor.buf); bufLen != 3 {
		t.Errorf("calling the process method, the length of tx buffer got: %v, expected: %v", bufLen, 3)
	}

	// processing the same point twice must keep one copy
	if err := r.process(ctx, ground2); err != nil {
		t.Fatalf("calling the process method, err got: %v, expected: %v", err, nil)
	}
	stats, err = r.Stats("net-a")
	if err != nil {
		t.Fatalf("calling the Stats method, err got: %v, expected: %v", err, nil)
	}
	if stats.Size != 3 {
		t.Errorf("calling the process method twice, size got: %v, expected: %v", stats.Size, 3)
	}
	if bufLen := len(r.dbTxExecutor.buf); bufLen != 3 {
		t.Errorf("calling the process method twice, the length of tx buffer got: %v, expected: %v", bufLen, 3)
	}
}

func TestManagerQuerier(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	r := newTestManager(pullDependencies{}, notifier)
	ctx := context.Background()

	tie := model.NewControlPoint("net-a", model.PointTie, geom.NewVector(2, 2), geom.NewVector(1, 1))
	ground1 := model.NewControlPoint("net-a", model.PointGround, geom.NewVector(5, 5), geom.NewVector(1, 1))
	ground2 := model.NewControlPoint("net-a", model.PointGround, geom.NewVector(5.5, 5.2), geom.NewVector(1, 1))

	for _, p := range []model.ControlPoint{tie, ground1, ground2} {
		if err := r.process(ctx, p); err != nil {
			t.Fatalf("calling the process method, err got: %v, expected: %v", err, nil)
		}
	}

	found, err := r.Contains("net-a", geom.NewVector(2, 2))
	if err != nil {
		t.Fatalf("calling the Contains method, err got: %v, expected: %v", err, nil)
	}
	if found == nil || found.ID != tie.ID {
		t.Errorf("calling the Contains method, point got: %v, expected: %v", found, tie.ID)
	}

	missed, err := r.Contains("net-a", geom.NewVector(100, 100))
	if err != nil {
		t.Fatalf("calling the Contains method, err got: %v, expected: %v", err, nil)
	}
	if missed != nil {
		t.Errorf("calling the Contains method, point got: %v, expected: %v", missed, nil)
	}

	all, err := r.ContainsAll("net-a", geom.NewVector(5.5, 5.2))
	if err != nil {
		t.Fatalf("calling the ContainsAll method, err got: %v, expected: %v", err, nil)
	}
	if len(all) != 2 {
		t.Errorf("calling the ContainsAll method, the length got: %v, expected: %v", len(all), 2)
	}

	pairs, err := r.OverlapPairs("net-a")
	if err != nil {
		t.Fatalf("calling the OverlapPairs method, err got: %v, expected: %v", err, nil)
	}
	if len(pairs) != 1 {
		t.Fatalf("calling the OverlapPairs method, the length got: %v, expected: %v", len(pairs), 1)
	}
	pairIDs := map[string]bool{
		pairs[0].First.ID.String():  true,
		pairs[0].Second.ID.String(): true,
	}
	if !pairIDs[ground1.ID.String()] || !pairIDs[ground2.ID.String()] {
		t.Errorf("calling the OverlapPairs method, the pair got: %v, expected both ground points", pairIDs)
	}

	networks := r.NetworkIDs()
	if len(networks) != 1 || networks[0] != "net-a" {
		t.Errorf("calling the NetworkIDs method, got: %v, expected: %v", networks, []string{"net-a"})
	}
}

func TestManagerQuerierUnknownNetwork(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	r := newTestManager(pullDependencies{}, notifier)

	if _, err := r.Contains("missing", geom.NewVector(1, 1)); !errors.Is(err, ErrNetworkUnknown) {
		t.Errorf("calling the Contains method, err got: %v, expected: %v", err, ErrNetworkUnknown)
	}
	if _, err := r.ContainsAll("missing", geom.NewVector(1, 1)); !errors.Is(err, ErrNetworkUnknown) {
		t.Errorf("calling the ContainsAll method, err got: %v, expected: %v", err, ErrNetworkUnknown)
	}
	if _, err := r.OverlapPairs("missing"); !errors.Is(err, ErrNetworkUnknown) {
		t.Errorf("calling the OverlapPairs method, err got: %v, expected: %v", err, ErrNetworkUnknown)
	}
	if _, err := r.Stats("missing"); !errors.Is(err, ErrNetworkUnknown) {
		t.Errorf("calling the Stats method, err got: %v, expected: %v", err, ErrNetworkUnknown)
	}
}

func TestManagerBulkLoad(t *testing.T) {
	t.Parallel()

	indexed1 := model.NewControlPoint("net-a", model.PointTie, geom.NewVector(2, 2), geom.NewVector(1, 1))
	indexed1.Status = model.StatusIndexed
	indexed2 := model.NewControlPoint("net-a", model.PointTie, geom.NewVector(4, 4), geom.NewVector(1, 1))
	indexed2.Status = model.StatusIndexed
	fresh := model.NewControlPoint("net-a", model.PointTie, geom.NewVector(6, 6), geom.NewVector(1, 1))

	notifier := &fakeNotifier{}
	r := newTestManager(pullDependencies{
		fetchKeys:            func() ([]string, error) { return []string{"net-a"}, nil },
		fetchPointsByNetwork: fakeFetch([]model.ControlPoint{indexed1, indexed2, fresh}),
	}, notifier)

	if err := r.bulkLoad(context.Background()); err != nil {
		t.Fatalf("calling the bulkLoad method, err got: %v, expected: %v", err, nil)
	}

	stats, err := r.Stats("net-a")
	if err != nil {
		t.Fatalf("calling the Stats method, err got: %v, expected: %v", err, nil)
	}
	if stats.Size != 2 {
		t.Errorf("calling the bulkLoad method, size got: %v, expected: %v", stats.Size, 2)
	}

	// the unindexed point goes back through the queue
	select {
	case requeued := <-r.collectCh:
		if requeued.ID != fresh.ID {
			t.Errorf("calling the bulkLoad method, requeued point got: %v, expected: %v", requeued.ID, fresh.ID)
		}
	default:
		t.Errorf("calling the bulkLoad method, requeued point got: %v, expected: %v", nil, fresh.ID)
	}
}

func TestManagerRebuild(t *testing.T) {
	t.Parallel()

	indexed1 := model.NewControlPoint("net-a", model.PointTie, geom.NewVector(2, 2), geom.NewVector(1, 1))
	indexed1.Status = model.StatusIndexed
	indexed2 := model.NewControlPoint("net-a", model.PointTie, geom.NewVector(4, 4), geom.NewVector(1, 1))
	indexed2.Status = model.StatusIndexed
	fresh := model.NewControlPoint("net-a", model.PointTie, geom.NewVector(6, 6), geom.NewVector(1, 1))

	notifier := &fakeNotifier{}
	r := newTestManager(pullDependencies{
		fetchPointsByNetwork: fakeFetch([]model.ControlPoint{indexed1, indexed2, fresh}),
	}, notifier)

	if err := r.rebuild(context.Background(), "net-a"); err != nil {
		t.Fatalf("calling the rebuild method, err got: %v, expected: %v", err, nil)
	}

	stats, err := r.Stats("net-a")
	if err != nil {
		t.Fatalf("calling the Stats method, err got: %v, expected: %v", err, nil)
	}
	if stats.Size != 2 {
		t.Errorf("calling the rebuild method, size got: %v, expected: %v", stats.Size, 2)
	}
}

func TestManagerRunAppend(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	r := newTestManager(pullDependencies{}, notifier)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("calling the Run method, err got: %v, expected: %v", err, nil)
	}
	defer r.Stop()

	points := []model.ControlPoint{
		model.NewControlPoint("net-a", model.PointTie, geom.NewVector(2, 2), geom.NewVector(1, 1)),
		model.NewControlPoint("net-a", model.PointTie, geom.NewVector(6, 6), geom.NewVector(1, 1)),
		model.NewControlPoint("net-b", model.PointTie, geom.NewVector(1, 1, 1), geom.NewVector(1, 1, 1)),
	}
	if err := r.Append(points...); err != nil {
		t.Fatalf("calling the Append method, err got: %v, expected: %v", err, nil)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		statsA, errA := r.Stats("net-a")
		statsB, errB := r.Stats("net-b")
		if errA == nil && errB == nil && statsA.Size == 2 && statsB.Size == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf(
				"calling the Append method, indexed sizes got: %v/%v, expected: %v/%v",
				statsA.Size, statsB.Size, 2, 1,
			)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
