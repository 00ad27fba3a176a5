package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/THPTUHA/iclocksim/pkg/adms"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/buntdb"
)

const attendancePrefix = "attendance:"

// MemoryStore keeps records in an in-memory buntdb, for dev mode and tests.
type MemoryStore struct {
	db     *buntdb.DB
	logger *logrus.Entry
}

func NewMemoryStore(logger *logrus.Entry) (*MemoryStore, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, err
	}
	return &MemoryStore{db: db, logger: logger}, nil
}

func (s *MemoryStore) SaveRecords(ctx context.Context, recs []adms.AttendanceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkIDs(recs); err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		for i := range recs {
			js, err := json.Marshal(&recs[i])
			if err != nil {
				return err
			}
			if _, _, err := tx.Set(attendancePrefix+recordKey(&recs[i]), string(js), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *MemoryStore) ListRecords(ctx context.Context, q RecordQuery) ([]adms.AttendanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs := make([]adms.AttendanceRecord, 0)
	var decodeErr error
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.DescendKeys(attendancePrefix+"*", func(key, value string) bool {
			var rec adms.AttendanceRecord
			if err := json.Unmarshal([]byte(value), &rec); err != nil {
				decodeErr = fmt.Errorf("decode %s: %w", key, err)
				return false
			}
			if q.match(&rec) {
				recs = append(recs, rec)
			}
			return len(recs) < q.limit()
		})
	})
	if err != nil {
		return nil, err
	}
	return recs, decodeErr
}

func (s *MemoryStore) Close() error {
	return s.db.Close()
}
