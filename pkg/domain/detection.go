package domain

import "time"

// TimestampLayout is the ISO-8601 layout used for every timestamp the
// service generates: local time, microsecond precision, no zone suffix.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Detection is a single frequency/magnitude reading submitted by a client
type Detection struct {
	Frequency  float64 `json:"frequency"`
	Magnitude  float64 `json:"magnitude"`
	Timestamp  string  `json:"timestamp"`
	ReceivedAt string  `json:"receivedAt"`
	ClientIP   string  `json:"clientIp"`
}

// FormatTimestamp renders t with TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
