package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/THPTUHA/iclocksim/pkg/adms"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jpillora/backoff"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const connectAttempts = 5

const createTable = `
	CREATE TABLE IF NOT EXISTS attendance_records (
		id          VARCHAR(36) PRIMARY KEY,
		device_sn   VARCHAR(64) NOT NULL,
		user_id     VARCHAR(64) NOT NULL,
		ts          TIMESTAMP NOT NULL,
		status      INT NOT NULL,
		verify_mode INT NOT NULL,
		work_code   INT NOT NULL,
		reserved    INT NOT NULL
	)`

// SQLStore keeps records in postgres or mysql.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *logrus.Entry
}

func NewSQLStore(driver string, dsn string, logger *logrus.Entry) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	store, err := newSQLStore(db, driver, logger, time.Sleep)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// newSQLStore waits for db to answer a ping and creates the table if missing.
func newSQLStore(db *sql.DB, driver string, logger *logrus.Entry, sleep func(time.Duration)) (*SQLStore, error) {
	b := &backoff.Backoff{
		Min:    200 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}
	for {
		err := db.Ping()
		if err == nil {
			break
		}
		if b.Attempt() >= connectAttempts-1 {
			return nil, fmt.Errorf("storage: %s unreachable: %w", driver, err)
		}
		d := b.Duration()
		logger.WithError(err).Warnf("storage: ping failed, retrying in %s", d)
		sleep(d)
	}

	if _, err := db.Exec(createTable); err != nil {
		return nil, err
	}
	logger.Infof("Connected to %s database!", driver)
	return &SQLStore{db: db, driver: driver, logger: logger}, nil
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *SQLStore) SaveRecords(ctx context.Context, recs []adms.AttendanceRecord) error {
	if err := checkIDs(recs); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO attendance_records
			(id, device_sn, user_id, ts, status, verify_mode, work_code, reserved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		_, err := stmt.ExecContext(ctx, r.ID, r.DeviceSN, r.UserID, r.Timestamp.UTC(),
			r.Status, r.VerifyMode, r.WorkCode, r.Reserved)
		if err != nil {
			s.logger.Error(err)
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ListRecords(ctx context.Context, q RecordQuery) ([]adms.AttendanceRecord, error) {
	query := `
		SELECT id, device_sn, user_id, ts, status, verify_mode, work_code, reserved
		FROM attendance_records`
	args := make([]interface{}, 0, 2)
	if q.DeviceSN != "" {
		query += ` WHERE device_sn = ?`
		args = append(args, q.DeviceSN)
	}
	query += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, q.limit())

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		s.logger.Error(err)
		return nil, err
	}
	defer rows.Close()

	recs := make([]adms.AttendanceRecord, 0)
	for rows.Next() {
		var r adms.AttendanceRecord
		err := rows.Scan(&r.ID, &r.DeviceSN, &r.UserID, &r.Timestamp,
			&r.Status, &r.VerifyMode, &r.WorkCode, &r.Reserved)
		if err != nil {
			s.logger.Error(err)
			return nil, err
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
