package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fastrand"

	"github.com/fatelord/visionworkbench/internal/cnet/model"
	"github.com/fatelord/visionworkbench/internal/logging"
	"github.com/fatelord/visionworkbench/pkg/pqueue"
)

// function rebuilding the in-memory index of one network after pruning
type rebuildNetworkFn func(context.Context, string) error

// Scheduler options
type dbSchedulerConfig struct {
	maxItemsStored int
	maxStorageTime time.Duration
	rebuildDBTime  time.Duration
	deps           pullDependencies
	rebuildNetwork rebuildNetworkFn
}

func newDBScheduler(config dbSchedulerConfig) *dbScheduler {
	return &dbScheduler{opts: config}
}

// The scheduler is responsible for deleting old points from the DB.
// It can maintain the required amount of data in the DB or delete old data
// depending on the configuration. Deleting from the DB never touches a
// live index, the owning network is rebuilt afterwards.
type dbScheduler struct {
	opts dbSchedulerConfig
}

// processOutdatedPoints retrieves the indexed points of the network that
// outlived the storage window and bulk deletes them. Returns the number
// of deleted points.
func (s *dbScheduler) processOutdatedPoints(networkID string) (int, error) {
	points, err := s.opts.deps.fetchPointsByNetwork(networkID, func(point model.ControlPoint) bool {
		// only indexed points with a creation date later than specified in the settings
		return point.IsIndexed() && time.Since(point.CreatedAt) > s.opts.maxStorageTime
	})
	if err != nil {
		return 0, fmt.Errorf("unable find points by network %s: %v", networkID, err)
	}
	if len(points) == 0 {
		return 0, nil
	}

	if err := s.opts.deps.deletePoints(context.Background(), points); err != nil {
		return 0, fmt.Errorf("unable delete outdated points of network %s: %v", networkID, err)
	}
	return len(points), nil
}

// processOverSizePoints retrieves the indexed points of the network and
// deletes the oldest ones over the size cap. Returns the number of
// deleted points.
func (s *dbScheduler) processOverSizePoints(networkID string) (int, error) {
	points, err := s.opts.deps.fetchPointsByNetwork(networkID, func(point model.ControlPoint) bool {
		return point.IsIndexed() // only the indexed values
	})
	if err != nil {
		return 0, fmt.Errorf("unable find points by network %s: %v", networkID, err)
	}
	if len(points) <= s.opts.maxItemsStored {
		return 0, nil
	}

	// A queue capped at the overage keeps the oldest points, creation
	// time is the priority. This can be a costly operation for large values.
	queue := pqueue.New(pqueue.WithOrderAsc(), pqueue.WithCap(uint(len(points)-s.opts.maxItemsStored)))
	for i := range points {
		queue.Push(points[i], float64(points[i].CreatedAt.UnixNano()))
	}

	over := make([]model.ControlPoint, 0, queue.Len())
	for _, v := range queue.PopAll() {
		over = append(over, v.(model.ControlPoint))
	}
	if err := s.opts.deps.deletePoints(context.Background(), over); err != nil {
		return 0, fmt.Errorf("unable delete resizable points of network %s: %v", networkID, err)
	}
	return len(over), nil
}

// rebuildOutdated walks all networks, prunes the expired points of each
// and rebuilds the indexes that lost points
func (s *dbScheduler) rebuildOutdated(ctx context.Context) error {
	keys, err := s.opts.deps.fetchKeys()
	if err != nil {
		return fmt.Errorf("unable to fetch network keys: %v", err)
	}
	for i := range keys {
		n, err := s.processOutdatedPoints(keys[i])
		if err != nil {
			return fmt.Errorf("unable process points: %v", err)
		}
		if n > 0 {
			if err := s.opts.rebuildNetwork(ctx, keys[i]); err != nil {
				return fmt.Errorf("unable rebuild network %s: %v", keys[i], err)
			}
		}
	}
	return nil
}

// rebuildSize walks all networks and trims those holding more points
// than the configured cap
func (s *dbScheduler) rebuildSize(ctx context.Context) error {
	keys, err := s.opts.deps.fetchKeys()
	if err != nil {
		return fmt.Errorf("unable fetch keys: %v", err)
	}
	for i := range keys {
		// getting the number of points for the network
		length, err := s.opts.deps.countByNetwork(keys[i])
		if err != nil {
			return fmt.Errorf("unable count by network %s: %v", keys[i], err)
		}
		if length <= s.opts.maxItemsStored {
			continue
		}
		n, err := s.processOverSizePoints(keys[i])
		if err != nil {
			return fmt.Errorf("unable process points: %v", err)
		}
		if n > 0 {
			if err := s.opts.rebuildNetwork(ctx, keys[i]); err != nil {
				return fmt.Errorf("unable rebuild network %s: %v", keys[i], err)
			}
		}
	}

	return nil
}

// Scheduler for running data cleanup functions in the DB
func (s *dbScheduler) schedule(ctx context.Context) {
	logger := logging.FromContext(ctx)
	timer := time.NewTimer(s.nextRun())
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			if s.opts.maxItemsStored > 0 {
				if err := s.rebuildSize(ctx); err != nil {
					logger.Errorf("unable db rebuild size: %v", err)
				}
			}
			if s.opts.maxStorageTime > 0 {
				if err := s.rebuildOutdated(ctx); err != nil {
					logger.Errorf("unable db rebuild outdated: %v", err)
				}
			}
			timer.Reset(s.nextRun())
		case <-ctx.Done():
			return
		}
	}
}

// nextRun staggers prune runs by up to a quarter of the period so they
// do not align with the flush ticker.
func (s *dbScheduler) nextRun() time.Duration {
	quarter := s.opts.rebuildDBTime / 4
	if quarter < time.Millisecond {
		return s.opts.rebuildDBTime
	}
	return s.opts.rebuildDBTime + time.Duration(fastrand.Uint32n(1000))*(quarter/1000)
}
