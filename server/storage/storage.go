// Package storage persists attendance records received from terminals.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/THPTUHA/iclocksim/pkg/adms"
	"github.com/sirupsen/logrus"
)

const (
	DriverBolt     = "bolt"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	DefaultLimit = 50
)

var (
	ErrUnknownDriver = errors.New("storage: unknown driver")
	ErrMissingID     = errors.New("storage: record without id")
)

type Config struct {
	// bolt|memory|postgres|mysql
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Path is the bolt database file.
	Path string `mapstructure:"path" yaml:"path"`

	// DSN is the connection string of the sql drivers. MySQL needs parseTime=true.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

func DefaultConfig() Config {
	return Config{
		Driver: DriverBolt,
		Path:   "attendance.db",
	}
}

type RecordQuery struct {
	DeviceSN string
	Limit    int
}

func (q RecordQuery) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

func (q RecordQuery) match(rec *adms.AttendanceRecord) bool {
	return q.DeviceSN == "" || q.DeviceSN == rec.DeviceSN
}

type Storage interface {
	// SaveRecords stores a batch atomically. Every record needs an ID.
	SaveRecords(ctx context.Context, recs []adms.AttendanceRecord) error

	// ListRecords returns the newest records first.
	ListRecords(ctx context.Context, q RecordQuery) ([]adms.AttendanceRecord, error)

	Close() error
}

// Open returns the backend selected by config.Driver.
func Open(config Config, logger *logrus.Entry) (Storage, error) {
	switch config.Driver {
	case DriverBolt, "":
		return NewBoltStore(config.Path, logger)
	case DriverMemory:
		return NewMemoryStore(logger)
	case DriverPostgres, DriverMySQL:
		return NewSQLStore(config.Driver, config.DSN, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, config.Driver)
	}
}

// recordKey orders records by time then id when compared as strings.
func recordKey(rec *adms.AttendanceRecord) string {
	return fmt.Sprintf("%s/%s", rec.Timestamp.UTC().Format("20060102T150405.000000000"), rec.ID)
}

func checkIDs(recs []adms.AttendanceRecord) error {
	for i := range recs {
		if recs[i].ID == "" {
			return fmt.Errorf("%w (user %s)", ErrMissingID, recs[i].UserID)
		}
	}
	return nil
}
