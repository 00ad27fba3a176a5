package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/THPTUHA/iclocksim/pkg/adms"
	"github.com/THPTUHA/iclocksim/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]Storage {
	bolt, err := Open(Config{Driver: DriverBolt, Path: filepath.Join(t.TempDir(), "attendance.db")}, logger.Discard())
	require.NoError(t, err)
	mem, err := Open(Config{Driver: DriverMemory}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		bolt.Close()
		mem.Close()
	})
	return map[string]Storage{DriverBolt: bolt, DriverMemory: mem}
}

func record(id, sn, user string, at time.Time) adms.AttendanceRecord {
	rec := adms.NewSwipe(user, at)
	rec.ID = id
	rec.DeviceSN = sn
	return rec
}

func TestSaveAndListNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.SaveRecords(ctx, []adms.AttendanceRecord{
				record("a", "SN1", "101", base),
				record("b", "SN1", "102", base.Add(2*time.Second)),
			}))
			require.NoError(t, store.SaveRecords(ctx, []adms.AttendanceRecord{
				record("c", "SN2", "101", base.Add(time.Second)),
			}))

			recs, err := store.ListRecords(ctx, RecordQuery{})
			require.NoError(t, err)
			require.Len(t, recs, 3)
			assert.Equal(t, []string{"b", "c", "a"}, []string{recs[0].ID, recs[1].ID, recs[2].ID})
			assert.True(t, recs[0].Timestamp.Equal(base.Add(2*time.Second)))
			assert.Equal(t, 1, recs[0].VerifyMode)

			recs, err = store.ListRecords(ctx, RecordQuery{DeviceSN: "SN1", Limit: 1})
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, "b", recs[0].ID)

			recs, err = store.ListRecords(ctx, RecordQuery{DeviceSN: "nobody"})
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}

func TestDefaultLimit(t *testing.T) {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			batch := make([]adms.AttendanceRecord, 0, DefaultLimit+5)
			for i := 0; i < DefaultLimit+5; i++ {
				batch = append(batch, record(fmt.Sprintf("id-%03d", i), "SN1", "101", base.Add(time.Duration(i)*time.Second)))
			}
			require.NoError(t, store.SaveRecords(context.Background(), batch))

			recs, err := store.ListRecords(context.Background(), RecordQuery{})
			require.NoError(t, err)
			assert.Len(t, recs, DefaultLimit)
			assert.Equal(t, fmt.Sprintf("id-%03d", DefaultLimit+4), recs[0].ID)
		})
	}
}

func TestSaveRejectsMissingID(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			err := store.SaveRecords(context.Background(), []adms.AttendanceRecord{adms.NewSwipe("101", time.Now())})
			assert.ErrorIs(t, err, ErrMissingID)
		})
	}
}

func TestBoltStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.db")
	store, err := NewBoltStore(path, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, store.SaveRecords(context.Background(), []adms.AttendanceRecord{
		record("a", "SN1", "101", time.Now()),
	}))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(path, logger.Discard())
	require.NoError(t, err)
	defer store.Close()
	recs, err := store.ListRecords(context.Background(), RecordQuery{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "101", recs[0].UserID)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "sqlite"}, logger.Discard())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	my := &SQLStore{driver: DriverMySQL}
	assert.Equal(t, "a = ? AND b = ?", my.rebind("a = ? AND b = ?"))
}
