package settings

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cast"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketName        = []byte("pos_settings")
	keyAutoWalkIn     = []byte("pos_autoWalkIn")
	keyDefaultTaxRate = []byte("pos_defaultTaxRate")
)

// BoltStore keeps settings in a local bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the settings file at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open settings %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init settings bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Close() error { return b.db.Close() }

// Load reads both keys; a missing or unreadable value falls back to its default.
func (b *BoltStore) Load() (Settings, error) {
	s := Default()
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}
		if v := bucket.Get(keyAutoWalkIn); v != nil {
			if on, err := cast.ToBoolE(string(v)); err == nil {
				s.AutoWalkIn = on
			}
		}
		if v := bucket.Get(keyDefaultTaxRate); v != nil {
			if rate, err := cast.ToFloat64E(string(v)); err == nil && rate >= 0 {
				s.DefaultTaxRate = rate
			}
		}
		return nil
	})
	if err != nil {
		return Default(), fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}

func (b *BoltStore) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		if err := bucket.Put(keyAutoWalkIn, []byte(strconv.FormatBool(s.AutoWalkIn))); err != nil {
			return err
		}
		return bucket.Put(keyDefaultTaxRate, []byte(strconv.FormatFloat(s.DefaultTaxRate, 'f', -1, 64)))
	})
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
