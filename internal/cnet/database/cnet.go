package database

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/fatelord/visionworkbench/internal/cnet/model"
	"github.com/fatelord/visionworkbench/internal/database"
)

const (
	networkKeys = "cnet:keys:"
	prefix      = "cnet:"
)

type FilterFn func(point model.ControlPoint) bool

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

func (db *DB) Keys() ([]string, error) {
	var bucketKeys []string
	err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(networkKeys))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			bucketKeys = append(bucketKeys, string(k))
		}
		return nil
	})

	return bucketKeys, err
}

func (db *DB) StorePoint(_ context.Context, point model.ControlPoint) error {
	var b *bolt.Bucket
	bytes, err := json.Marshal(point)
	if err != nil {
		return err
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b = tx.Bucket([]byte(prefix + point.NetworkID))
		if b == nil {
			b, err = tx.CreateBucket([]byte(prefix + point.NetworkID))
			if err != nil {
				return fmt.Errorf("create bucket: %w", err)
			}
		}
		if err := b.Put([]byte(point.ID.String()), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}
		return registerNetworkKey(tx, point.NetworkID)
	}); err != nil {
		return fmt.Errorf("update transaction error: %v", err)
	}

	return nil
}

// registerNetworkKey records the network id so Keys sees the network on
// the next start. Every point write goes through here.
func registerNetworkKey(tx *bolt.Tx, networkID string) error {
	b := tx.Bucket([]byte(networkKeys))
	if b == nil {
		keysBucket, err := tx.CreateBucket([]byte(networkKeys))
		if err != nil {
			return fmt.Errorf("unable create networks bucket: %w", err)
		}
		b = keysBucket
	}
	if err := b.Put([]byte(networkID), []byte{0x0}); err != nil {
		return fmt.Errorf("unable put to networks bucket: %w", err)
	}
	return nil
}

func (db *DB) AppendMany(_ context.Context, points []model.ControlPoint) error {
	var b *bolt.Bucket
	if err := db.sDB.DB.Batch(func(tx *bolt.Tx) error {
		for _, point := range points {
			b = tx.Bucket([]byte(prefix + point.NetworkID))
			if b == nil {
				pointBucket, err := tx.CreateBucket([]byte(prefix + point.NetworkID))
				if err != nil {
					return fmt.Errorf("create bucket: %w", err)
				}
				b = pointBucket
			}
			bytes, err := json.Marshal(point)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(point.ID.String()), bytes); err != nil {
				return fmt.Errorf("put to bucket error: %w", err)
			}
			if err := registerNetworkKey(tx, point.NetworkID); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %v", err)
	}

	return nil
}

func (db *DB) DeleteMany(_ context.Context, points []model.ControlPoint) error {
	var b *bolt.Bucket
	if err := db.sDB.DB.Batch(func(tx *bolt.Tx) error {
		for _, point := range points {
			b = tx.Bucket([]byte(prefix + point.NetworkID))
			if b == nil {
				continue
			}
			if err := b.Delete([]byte(point.ID.String())); err != nil {
				return fmt.Errorf("unable delete: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %v", err)
	}

	return nil
}

func (db *DB) Delete(_ context.Context, point model.ControlPoint) error {
	var b *bolt.Bucket
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b = tx.Bucket([]byte(prefix + point.NetworkID))
		if b == nil {
			return nil
		}

		return b.Delete([]byte(point.ID.String()))
	}); err != nil {
		return fmt.Errorf("update transaction error: %v", err)
	}

	return nil
}

func (db *DB) CountByNetwork(networkID string) (int, error) {
	var length int
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix + networkID))
		if b == nil {
			length = 0
			return nil
		}
		stats := b.Stats()
		length = stats.KeyN
		return nil
	}); err != nil {
		return 0, fmt.Errorf("view transaction error: %v", err)
	}

	return length, nil
}

func (db *DB) FindByNetwork(networkID string, filter FilterFn) ([]model.ControlPoint, error) {
	var list []model.ControlPoint
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix + networkID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var point model.ControlPoint
			if err := json.Unmarshal(v, &point); err != nil {
				return fmt.Errorf("json unmarshal error, %q", err)
			}
			if filter == nil || filter(point) {
				list = append(list, point)
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %v", err)
	}

	return list, nil
}
