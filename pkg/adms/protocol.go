// Package adms implements the text wire format spoken by attendance terminals
// that push logs to an ADMS "iclock" endpoint.
package adms

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	// CDataPath is the endpoint a terminal uses both for the handshake (GET)
	// and for pushing attendance logs (POST).
	CDataPath = "/iclock/cdata"

	// SerialParam is the query parameter carrying the device serial number.
	SerialParam = "SN"

	// ReplyOK is the body a server answers with when it accepted a request.
	ReplyOK = "OK"

	// TimeLayout is the timestamp format of an attendance line.
	TimeLayout = "2006-01-02 15:04:05"
)

var ErrEmptySerial = errors.New("adms: empty device serial")

// CDataURL returns base with SN=<sn> appended to its query. Other parameters
// of base keep their order and encoding; an SN already present is replaced.
func CDataURL(base string, sn string) (string, error) {
	if sn == "" {
		return "", ErrEmptySerial
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("adms: invalid server url %q: %w", base, err)
	}
	parts := make([]string, 0)
	for _, p := range strings.Split(u.RawQuery, "&") {
		if p == "" || p == SerialParam || strings.HasPrefix(p, SerialParam+"=") {
			continue
		}
		parts = append(parts, p)
	}
	parts = append(parts, SerialParam+"="+url.QueryEscape(sn))
	u.RawQuery = strings.Join(parts, "&")
	return u.String(), nil
}

// IsOK reports whether a server reply body means success.
func IsOK(body string) bool {
	return strings.TrimSpace(body) == ReplyOK
}
