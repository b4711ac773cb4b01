package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
)

var bucketJobs = []byte("jobs")

// lockTimeout bounds the wait for the file lock held by another process.
const lockTimeout = 100 * time.Millisecond

// ErrStoreLocked means another process has the job file open.
var ErrStoreLocked = errors.New("job store is locked by another process")

var (
	jobEncMode cbor.EncMode
	jobDecMode cbor.DecMode
)

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}
	jobEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create job CBOR encoder mode: %v", err))
	}
	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	jobDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create job CBOR decoder mode: %v", err))
	}
}

// BoltStore persists jobs in a bbolt file, CBOR encoded and keyed by ID.
type BoltStore struct {
	db *bolt.DB
}

func OpenBoltStore(path string) (*BoltStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("job store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: lockTimeout})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrStoreLocked, path)
	}
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketJobs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(_ context.Context, job Job) error {
	raw, err := jobEncMode.Marshal(job)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		if b == nil {
			return errors.New("jobs bucket missing")
		}
		return b.Put([]byte(job.ID), raw)
	})
}

func (s *BoltStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
}

func (s *BoltStore) List(_ context.Context) ([]Job, error) {
	var out []Job
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var job Job
			if err := jobDecMode.Unmarshal(v, &job); err != nil {
				return fmt.Errorf("decode job %s: %w", k, err)
			}
			out = append(out, job)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortJobs(out)
	return out, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
