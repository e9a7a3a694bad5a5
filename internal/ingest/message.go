package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
const epochMillisThreshold = 1e12

// Message is the broker wire model.
type Message struct {
	Type         string `json:"type"`
	Kind         string `json:"kind"`
	CarID        ID     `json:"car_id"`
	DriverID     ID     `json:"driver_id"`
	Lat          Number `json:"lat"`
	Lng          Number `json:"lng"`
	Passenger    Number `json:"passenger"`
	ECR          Number `json:"ecr"`
	ResponseTime Number `json:"response_time"`
	Status       string `json:"status"`
	Time         Time   `json:"time"`
}

// ID accepts a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	raw, _, err := unquote(b)
	if err != nil {
		return err
	}

	*id = ID(raw)

	return nil
}

// Number accepts a JSON number or a string holding one. Validation happens at parse time.
type Number struct {
	raw string
}

func NewNumber(v float64) Number {
	return Number{raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	raw, _, err := unquote(b)
	if err != nil {
		return err
	}

	n.raw = raw

	return nil
}

func (n Number) IsSet() bool {
	return n.raw != ""
}

func (n Number) Float() (float64, error) {
	v, err := strconv.ParseFloat(n.raw, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number %q", n.raw)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number %q", n.raw)
	}

	return v, nil
}

// Time accepts an RFC3339 string or epoch seconds / milliseconds, as number or string.
type Time struct {
	raw    string
	quoted bool
}

func (t *Time) UnmarshalJSON(b []byte) error {
	raw, quoted, err := unquote(b)
	if err != nil {
		return err
	}

	t.raw = raw
	t.quoted = quoted

	return nil
}

func (t Time) IsSet() bool {
	return t.raw != ""
}

func (t Time) Parse() (time.Time, error) {
	epoch, err := strconv.ParseFloat(t.raw, 64)
	if err == nil && !math.IsNaN(epoch) && !math.IsInf(epoch, 0) {
		return fromEpoch(epoch), nil
	}

	if !t.quoted {
		return time.Time{}, fmt.Errorf("invalid time %q", t.raw)
	}

	ret, err := time.Parse(time.RFC3339Nano, t.raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", t.raw, err)
	}

	return ret.UTC(), nil
}

func fromEpoch(epoch float64) time.Time {
	if epoch > epochMillisThreshold {
		return time.UnixMilli(int64(epoch)).UTC()
	}

	sec, frac := math.Modf(epoch)

	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}

// unquote returns the trimmed textual value of a JSON scalar, "" for null.
func unquote(b []byte) (string, bool, error) {
	b = bytes.TrimSpace(b)

	if bytes.Equal(b, []byte("null")) {
		return "", false, nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string

		err := json.Unmarshal(b, &s)
		if err != nil {
			return "", false, err
		}

		return strings.TrimSpace(s), true, nil
	}

	if len(b) > 0 && (b[0] == '{' || b[0] == '[') {
		return "", false, fmt.Errorf("unexpected json value %s", b)
	}

	return string(b), false, nil
}
