package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// Duration 表示歌曲时长。对外序列化为严格的 HH:MM:SS 文本，
// 数据库中存储为总秒数。Valid 为 false 表示未填写（NULL）。
type Duration struct {
	Seconds int64
	Valid   bool
}

var durationPattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})$`)

// NewDuration creates a valid Duration from a total number of seconds.
func NewDuration(seconds int64) Duration {
	return Duration{Seconds: seconds, Valid: true}
}

// ParseDuration parses a strict HH:MM:SS string. Minutes and seconds
// must be below 60; the hour field may be any two-digit value.
func ParseDuration(s string) (Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return Duration{}, fmt.Errorf("duration must be in HH:MM:SS format (e.g. 00:04:30), got %q", s)
	}

	hours, _ := strconv.ParseInt(m[1], 10, 64)
	minutes, _ := strconv.ParseInt(m[2], 10, 64)
	seconds, _ := strconv.ParseInt(m[3], 10, 64)

	if minutes > 59 || seconds > 59 {
		return Duration{}, fmt.Errorf("minutes and seconds must be less than 60, got %q", s)
	}

	return NewDuration(hours*3600 + minutes*60 + seconds), nil
}

// String formats the duration as HH:MM:SS. Invalid durations format as 00:00:00.
func (d Duration) String() string {
	if !d.Valid {
		return "00:00:00"
	}
	hours := d.Seconds / 3600
	minutes := (d.Seconds % 3600) / 60
	seconds := d.Seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// MarshalJSON serializes as an HH:MM:SS string, or null when unset.
func (d Duration) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null, an empty string, or a valid HH:MM:SS string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Duration{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	if s == "" {
		*d = Duration{}
		return nil
	}

	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner. The database column holds total seconds.
func (d *Duration) Scan(value interface{}) error {
	if value == nil {
		*d = Duration{}
		return nil
	}
	switch v := value.(type) {
	case int64:
		*d = NewDuration(v)
	case []byte:
		seconds, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("cannot scan %q into Duration: %w", v, err)
		}
		*d = NewDuration(seconds)
	default:
		return fmt.Errorf("cannot scan %T into Duration", value)
	}
	return nil
}

// Value implements driver.Valuer.
func (d Duration) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.Seconds, nil
}
