package adms

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	StatusCheckIn     = 0
	VerifyFingerprint = 1
)

// AttendanceRecord is one swipe on a terminal. ID and DeviceSN are filled in
// by the receiving side, they are not part of the wire line.
type AttendanceRecord struct {
	ID         string    `json:"id"`
	DeviceSN   string    `json:"device_sn"`
	UserID     string    `json:"user_id"`
	Timestamp  time.Time `json:"timestamp"`
	Status     int       `json:"status"`
	VerifyMode int       `json:"verify_mode"`
	WorkCode   int       `json:"work_code"`
	Reserved   int       `json:"reserved"`
}

// NewSwipe builds the record a simulated terminal sends for userID at the given time.
func NewSwipe(userID string, at time.Time) AttendanceRecord {
	return AttendanceRecord{
		UserID:     userID,
		Timestamp:  at,
		Status:     StatusCheckIn,
		VerifyMode: VerifyFingerprint,
	}
}

// Line serializes the record as one tab separated, newline terminated line.
// Fields are positional and not escaped.
func (r AttendanceRecord) Line() string {
	return fmt.Sprintf("%s\t%s\t%d\t%d\t%d\t%d\n",
		r.UserID,
		r.Timestamp.Format(TimeLayout),
		r.Status,
		r.VerifyMode,
		r.WorkCode,
		r.Reserved,
	)
}

var (
	ErrMissingFields = errors.New("adms: line needs at least user id and timestamp")
	ErrEmptyUserID   = errors.New("adms: empty user id")
)

// LineError reports a line of a push body that could not be parsed.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("adms: line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ParseLines decodes a push body. Blank lines are ignored, bad lines are
// reported and skipped. Timestamps are read in loc (time.Local when nil).
func ParseLines(body string, loc *time.Location) ([]AttendanceRecord, []error) {
	if loc == nil {
		loc = time.Local
	}

	var (
		records []AttendanceRecord
		errs    []error
	)
	for i, raw := range strings.Split(body, "\n") {
		text := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		rec, err := parseLine(text, loc)
		if err != nil {
			errs = append(errs, &LineError{Line: i + 1, Text: text, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}

func parseLine(text string, loc *time.Location) (AttendanceRecord, error) {
	var rec AttendanceRecord
	fields := strings.Split(text, "\t")
	if len(fields) < 2 {
		return rec, ErrMissingFields
	}

	rec.UserID = strings.TrimSpace(fields[0])
	if rec.UserID == "" {
		return rec, ErrEmptyUserID
	}

	ts, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(fields[1]), loc)
	if err != nil {
		return rec, fmt.Errorf("timestamp: %w", err)
	}
	rec.Timestamp = ts

	ints := []*int{&rec.Status, &rec.VerifyMode, &rec.WorkCode, &rec.Reserved}
	for i, dst := range ints {
		idx := i + 2
		if idx >= len(fields) {
			break
		}
		v := strings.TrimSpace(fields[idx])
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return rec, fmt.Errorf("column %d: %w", idx+1, err)
		}
		*dst = n
	}
	return rec, nil
}
