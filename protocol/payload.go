// Package protocol defines the wire format shared between bin firmware and
// the gateway.
//
// The canonical payload is the byte sequence both sides feed into
// HMAC-SHA256. Its layout is fixed and is part of the device protocol:
//
//	dustbin_code|sensor1|sensor2|timestamp|nonce
//
// Fields are joined with a single '|', no whitespace. Sensor values are
// formatted with the shortest decimal representation that round-trips
// (strconv.FormatFloat 'f', precision -1), so 40.0 encodes as "40" and
// 40.5 as "40.5". The timestamp is included verbatim as the device sent it.
// Changing any of this breaks signature verification for every deployed
// device at once.
package protocol

import (
	"strconv"
	"strings"
)

// TelemetryReport is one inbound, untrusted report from a bin module. It
// exists only for the duration of a request.
type TelemetryReport struct {
	DustbinCode     string  `json:"dustbin_code"`
	Sensor1Value    float64 `json:"sensor1_value"`
	Sensor2Value    float64 `json:"sensor2_value"`
	Timestamp       string  `json:"timestamp"`
	Nonce           string  `json:"nonce"`
	Signature       string  `json:"signature"`
	FirmwareVersion string  `json:"firmware_version,omitempty"`
}

// CanonicalPayload builds the exact byte sequence the firmware signs.
func CanonicalPayload(dustbinCode string, sensor1, sensor2 float64, timestamp, nonce string) string {
	return strings.Join([]string{
		dustbinCode,
		strconv.FormatFloat(sensor1, 'f', -1, 64),
		strconv.FormatFloat(sensor2, 'f', -1, 64),
		timestamp,
		nonce,
	}, "|")
}

// Canonical returns the canonical payload for this report.
func (r TelemetryReport) Canonical() string {
	return CanonicalPayload(r.DustbinCode, r.Sensor1Value, r.Sensor2Value, r.Timestamp, r.Nonce)
}
