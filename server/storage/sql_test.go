package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/THPTUHA/iclocksim/pkg/adms"
	"github.com/THPTUHA/iclocksim/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordColumns = []string{"id", "device_sn", "user_id", "ts", "status", "verify_mode", "work_code", "reserved"}

func newMockStore(t *testing.T, driver string) (*SQLStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectPing()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS attendance_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := newSQLStore(db, driver, logger.Discard(), func(time.Duration) {})
	require.NoError(t, err)
	return store, mock
}

func TestSQLStoreRetriesPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS attendance_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	var waits []time.Duration
	store, err := newSQLStore(db, DriverPostgres, logger.Discard(), func(d time.Duration) { waits = append(waits, d) })
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Len(t, waits, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGivesUpAfterAttempts(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < connectAttempts; i++ {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	}

	waits := 0
	_, err = newSQLStore(db, DriverMySQL, logger.Discard(), func(time.Duration) { waits++ })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql unreachable")
	assert.Equal(t, connectAttempts-1, waits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSaveRecords(t *testing.T) {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		driver string
		values string
	}{
		{DriverPostgres, "VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"},
		{DriverMySQL, "VALUES (?, ?, ?, ?, ?, ?, ?, ?)"},
	}
	for _, tc := range cases {
		t.Run(tc.driver, func(t *testing.T) {
			store, mock := newMockStore(t, tc.driver)

			mock.ExpectBegin()
			prep := mock.ExpectPrepare(regexp.QuoteMeta(tc.values))
			prep.ExpectExec().
				WithArgs("a", "SN1", "101", sqlmock.AnyArg(), int64(0), int64(1), int64(0), int64(0)).
				WillReturnResult(sqlmock.NewResult(1, 1))
			prep.ExpectExec().
				WithArgs("b", "SN1", "102", sqlmock.AnyArg(), int64(0), int64(1), int64(0), int64(0)).
				WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectCommit()

			err := store.SaveRecords(context.Background(), []adms.AttendanceRecord{
				record("a", "SN1", "101", base),
				record("b", "SN1", "102", base.Add(time.Second)),
			})
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLStoreSaveRollsBackOnInsertError(t *testing.T) {
	store, mock := newMockStore(t, DriverPostgres)
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO attendance_records"))
	prep.ExpectExec().WithArgs("a", "SN1", "101", sqlmock.AnyArg(), int64(0), int64(1), int64(0), int64(0)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("a", "SN1", "102", sqlmock.AnyArg(), int64(0), int64(1), int64(0), int64(0)).
		WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	err := store.SaveRecords(context.Background(), []adms.AttendanceRecord{
		record("a", "SN1", "101", base),
		record("a", "SN1", "102", base),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreListRecords(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		driver string
		query  RecordQuery
		sql    string
		args   []interface{}
	}{
		{
			DriverPostgres,
			RecordQuery{DeviceSN: "SN1", Limit: 5},
			"FROM attendance_records WHERE device_sn = $1 ORDER BY ts DESC, id DESC LIMIT $2",
			[]interface{}{"SN1", 5},
		},
		{
			DriverMySQL,
			RecordQuery{DeviceSN: "SN1", Limit: 5},
			"FROM attendance_records WHERE device_sn = ? ORDER BY ts DESC, id DESC LIMIT ?",
			[]interface{}{"SN1", 5},
		},
		{
			DriverPostgres,
			RecordQuery{},
			"FROM attendance_records ORDER BY ts DESC, id DESC LIMIT $1",
			[]interface{}{DefaultLimit},
		},
	}
	for _, tc := range cases {
		t.Run(tc.driver, func(t *testing.T) {
			store, mock := newMockStore(t, tc.driver)

			args := make([]driver.Value, 0, len(tc.args))
			for _, a := range tc.args {
				args = append(args, argEq{a})
			}
			mock.ExpectQuery(regexp.QuoteMeta(tc.sql) + "$").
				WithArgs(args...).
				WillReturnRows(sqlmock.NewRows(recordColumns).
					AddRow("b", "SN1", "102", at.Add(time.Second), int64(0), int64(1), int64(0), int64(0)).
					AddRow("a", "SN1", "101", at, int64(0), int64(15), int64(3), int64(0)))

			recs, err := store.ListRecords(context.Background(), tc.query)
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.Equal(t, "b", recs[0].ID)
			assert.Equal(t, "102", recs[0].UserID)
			assert.True(t, recs[0].Timestamp.Equal(at.Add(time.Second)))
			assert.Equal(t, 15, recs[1].VerifyMode)
			assert.Equal(t, 3, recs[1].WorkCode)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLStoreListRecordsQueryError(t *testing.T) {
	store, mock := newMockStore(t, DriverMySQL)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records")).
		WillReturnError(errors.New("table is locked"))

	_, err := store.ListRecords(context.Background(), RecordQuery{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// argEq compares an argument loosely so an int limit matches the int64 the
// driver layer hands over.
type argEq struct {
	want interface{}
}

func (a argEq) Match(v driver.Value) bool {
	switch w := a.want.(type) {
	case int:
		n, ok := v.(int64)
		return ok && n == int64(w)
	default:
		return v == a.want
	}
}
