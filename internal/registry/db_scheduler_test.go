package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	cnetDb "github.com/fatelord/visionworkbench/internal/cnet/database"
	"github.com/fatelord/visionworkbench/internal/cnet/model"
	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

func indexedPoint(networkID string, age time.Duration) model.ControlPoint {
	p := model.NewControlPoint(networkID, model.PointTie, geom.NewVector(1, 1), geom.NewVector(1, 1))
	p.Status = model.StatusIndexed
	p.CreatedAt = time.Now().Add(-age)
	return p
}

func TestProcessOverSizePoints(t *testing.T) {
	tests := []struct {
		name           string
		maxItemsStored int
		batch          []model.ControlPoint
		fetchErr       error
		expectedLen    int
		expectedErr    bool
	}{
		{
			name:           "positive_over_size",
			maxItemsStored: 3,
			batch: []model.ControlPoint{
				indexedPoint("test-data", 1*time.Minute),
				indexedPoint("test-data", 5*time.Minute),
				indexedPoint("test-data", 3*time.Minute),
				indexedPoint("test-data", 2*time.Minute),
				indexedPoint("test-data", 4*time.Minute),
			},
			expectedLen: 2,
		},
		{
			name:           "under_size",
			maxItemsStored: 3,
			batch: []model.ControlPoint{
				indexedPoint("test-data", 1*time.Minute),
				indexedPoint("test-data", 2*time.Minute),
			},
			expectedLen: 0,
		},
		{
			name:           "negative_over_size",
			maxItemsStored: 3,
			fetchErr:       errors.New("test"),
			expectedLen:    0,
			expectedErr:    true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			var deleted []model.ControlPoint
			scheduler := newDBScheduler(dbSchedulerConfig{
				maxItemsStored: test.maxItemsStored,
				deps: pullDependencies{
					fetchPointsByNetwork: func(networkID string, filter cnetDb.FilterFn) ([]model.ControlPoint, error) {
						if test.fetchErr != nil {
							return nil, test.fetchErr
						}
						out := make([]model.ControlPoint, 0, len(test.batch))
						for _, p := range test.batch {
							if filter == nil || filter(p) {
								out = append(out, p)
							}
						}
						return out, nil
					},
					deletePoints: func(ctx context.Context, points []model.ControlPoint) error {
						deleted = append(deleted, points...)
						return nil
					},
				},
			})

			n, err := scheduler.processOverSizePoints("test-data")
			if test.expectedErr && err == nil {
				t.Fatalf("calling the processOverSizePoints method, err got: %v, expected an error", err)
			}
			if !test.expectedErr && err != nil {
				t.Fatalf("calling the processOverSizePoints method, err got: %v, expected: %v", err, nil)
			}
			if n != test.expectedLen {
				t.Errorf(
					"calling the processOverSizePoints method, the number of deleted got: %v, expected: %v",
					n,
					test.expectedLen,
				)
			}
			if len(deleted) != test.expectedLen {
				t.Errorf(
					"calling the processOverSizePoints method, the length of deleted data got: %v, expected: %v",
					len(deleted),
					test.expectedLen,
				)
			}
		})
	}
}

func TestProcessOverSizePointsDropsOldest(t *testing.T) {
	t.Parallel()

	oldest := indexedPoint("test-data", 5*time.Minute)
	older := indexedPoint("test-data", 4*time.Minute)
	batch := []model.ControlPoint{
		indexedPoint("test-data", 1*time.Minute),
		oldest,
		indexedPoint("test-data", 3*time.Minute),
		indexedPoint("test-data", 2*time.Minute),
		older,
	}

	var deleted []model.ControlPoint
	scheduler := newDBScheduler(dbSchedulerConfig{
		maxItemsStored: 3,
		deps: pullDependencies{
			fetchPointsByNetwork: fakeFetch(batch),
			deletePoints: func(ctx context.Context, points []model.ControlPoint) error {
				deleted = append(deleted, points...)
				return nil
			},
		},
	})

	if _, err := scheduler.processOverSizePoints("test-data"); err != nil {
		t.Fatalf("calling the processOverSizePoints method, err got: %v, expected: %v", err, nil)
	}

	ids := map[string]bool{}
	for _, p := range deleted {
		ids[p.ID.String()] = true
	}
	if !ids[oldest.ID.String()] || !ids[older.ID.String()] {
		t.Errorf(
			"calling the processOverSizePoints method, deleted got: %v, expected the two oldest points",
			ids,
		)
	}
}

func TestProcessOutdatedPoints(t *testing.T) {
	t.Parallel()

	expired1 := indexedPoint("test-data", 2*time.Hour)
	expired2 := indexedPoint("test-data", 3*time.Hour)
	fresh := indexedPoint("test-data", time.Minute)
	unindexed := model.NewControlPoint("test-data", model.PointTie, geom.NewVector(1, 1), geom.NewVector(1, 1))
	unindexed.CreatedAt = time.Now().Add(-2 * time.Hour)

	var deleted []model.ControlPoint
	scheduler := newDBScheduler(dbSchedulerConfig{
		maxStorageTime: time.Hour,
		deps: pullDependencies{
			fetchPointsByNetwork: fakeFetch([]model.ControlPoint{expired1, expired2, fresh, unindexed}),
			deletePoints: func(ctx context.Context, points []model.ControlPoint) error {
				deleted = append(deleted, points...)
				return nil
			},
		},
	})

	n, err := scheduler.processOutdatedPoints("test-data")
	if err != nil {
		t.Fatalf("calling the processOutdatedPoints method, err got: %v, expected: %v", err, nil)
	}
	if n != 2 {
		t.Errorf("calling the processOutdatedPoints method, the number of deleted got: %v, expected: %v", n, 2)
	}

	ids := map[string]bool{}
	for _, p := range deleted {
		ids[p.ID.String()] = true
	}
	if !ids[expired1.ID.String()] || !ids[expired2.ID.String()] {
		t.Errorf("calling the processOutdatedPoints method, deleted got: %v, expected the expired points", ids)
	}
}

func TestRebuildSize(t *testing.T) {
	t.Parallel()

	batch := []model.ControlPoint{
		indexedPoint("net-a", 1*time.Minute),
		indexedPoint("net-a", 2*time.Minute),
		indexedPoint("net-a", 3*time.Minute),
		indexedPoint("net-a", 4*time.Minute),
		indexedPoint("net-a", 5*time.Minute),
	}

	var rebuilt []string
	scheduler := newDBScheduler(dbSchedulerConfig{
		maxItemsStored: 3,
		deps: pullDependencies{
			fetchKeys: func() ([]string, error) { return []string{"net-a", "net-b"}, nil },
			countByNetwork: func(networkID string) (int, error) {
				if networkID == "net-a" {
					return len(batch), nil
				}
				return 2, nil
			},
			fetchPointsByNetwork: fakeFetch(batch),
			deletePoints: func(ctx context.Context, points []model.ControlPoint) error {
				return nil
			},
		},
		rebuildNetwork: func(ctx context.Context, networkID string) error {
			rebuilt = append(rebuilt, networkID)
			return nil
		},
	})

	if err := scheduler.rebuildSize(context.Background()); err != nil {
		t.Fatalf("calling the rebuildSize method, err got: %v, expected: %v", err, nil)
	}

	if len(rebuilt) != 1 || rebuilt[0] != "net-a" {
		t.Errorf(
			"calling the rebuildSize method, rebuilt networks got: %v, expected: %v",
			rebuilt,
			[]string{"net-a"},
		)
	}
}
