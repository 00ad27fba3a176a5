package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/THPTUHA/iclocksim/pkg/adms"
	"github.com/boltdb/bolt"
	"github.com/sirupsen/logrus"
)

var attendanceBucket = []byte("attendance")

type BoltStore struct {
	db     *bolt.DB
	logger *logrus.Entry
}

func NewBoltStore(path string, logger *logrus.Entry) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(attendanceBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, logger: logger}, nil
}

func (s *BoltStore) SaveRecords(ctx context.Context, recs []adms.AttendanceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkIDs(recs); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(attendanceBucket)
		for i := range recs {
			js, err := json.Marshal(&recs[i])
			if err != nil {
				return err
			}
			if err := b.Put([]byte(recordKey(&recs[i])), js); err != nil {
				return err
			}
		}
		s.logger.WithField("count", len(recs)).Debug("store: saved records")
		return nil
	})
}

func (s *BoltStore) ListRecords(ctx context.Context, q RecordQuery) ([]adms.AttendanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs := make([]adms.AttendanceRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(attendanceBucket).Cursor()
		for k, v := c.Last(); k != nil && len(recs) < q.limit(); k, v = c.Prev() {
			var rec adms.AttendanceRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if q.match(&rec) {
				recs = append(recs, rec)
			}
		}
		return nil
	})
	return recs, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
