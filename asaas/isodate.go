package asaas

import (
	"strings"
	"time"

	"github.com/legalflow/lexsync/errors"
)

// ISODate unmarshals the gateway's date fields, which arrive either as
// date-only ("2026-08-30") or full RFC3339 timestamps.
type ISODate struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

func (d *ISODate) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return errors.Newf("unrecognized date format: %q", s)
}

func (d ISODate) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Time.Format(time.RFC3339) + `"`), nil
}
