package helper

import (
	"fmt"
	"regexp"
	"time"
)

var serialPattern = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// IsSerial reports whether candidate is usable as a device serial number and
// returns the first offending character when it is not.
func IsSerial(candidate string) (bool, string) {
	if candidate == "" {
		return false, ""
	}
	whyNot := serialPattern.FindString(candidate)
	return whyNot == "", whyNot
}

// LoadLocation resolves a timezone name. Empty and "Local" mean time.Local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}
