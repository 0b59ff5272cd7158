package model

import (
	"encoding/json"
	"testing"
)

func TestParseDurationRoundTrip(t *testing.T) {
	cases := []string{"00:00:00", "00:04:30", "01:02:03", "12:59:59"}
	for _, s := range cases {
		d, err := ParseDuration(s)
		if err != nil {
			t.Fatalf("ParseDuration(%q) returned error: %v", s, err)
		}
		if got := d.String(); got != s {
			t.Errorf("round trip of %q yielded %q", s, got)
		}
	}
}

func TestParseDurationRejectsInvalid(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"minutes out of range", "00:61:00"},
		{"seconds out of range", "00:00:60"},
		{"missing leading zero", "1:02:03"},
		{"no separators", "010203"},
		{"trailing garbage", "01:02:03x"},
		{"empty", ""},
		{"words", "four minutes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseDuration(tc.input); err == nil {
				t.Errorf("ParseDuration(%q) should have failed", tc.input)
			}
		})
	}
}

func TestDurationJSON(t *testing.T) {
	d := NewDuration(3723) // 01:02:03
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"01:02:03"` {
		t.Errorf("expected \"01:02:03\", got %s", data)
	}

	var back Duration
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != d {
		t.Errorf("expected %+v after round trip, got %+v", d, back)
	}

	// null and empty string mean "no duration"
	for _, raw := range []string{`null`, `""`} {
		var empty Duration
		if err := json.Unmarshal([]byte(raw), &empty); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if empty.Valid {
			t.Errorf("unmarshal %s should yield an unset duration", raw)
		}
	}

	var bad Duration
	if err := json.Unmarshal([]byte(`"00:61:00"`), &bad); err == nil {
		t.Error("out-of-range duration should be rejected")
	}
}

func TestDurationScanValue(t *testing.T) {
	var d Duration
	if err := d.Scan(int64(245)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !d.Valid || d.Seconds != 245 {
		t.Errorf("unexpected scan result: %+v", d)
	}

	v, err := d.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != int64(245) {
		t.Errorf("expected 245, got %v", v)
	}

	var null Duration
	if err := null.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if null.Valid {
		t.Error("scanning nil should yield an unset duration")
	}
	nv, err := null.Value()
	if err != nil || nv != nil {
		t.Errorf("unset duration should produce a nil driver value, got %v, %v", nv, err)
	}
}
