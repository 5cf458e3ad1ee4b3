package calls

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Result is the captured IVR answers: pageId -> block title -> value. A value
// is a scalar or a {recordingUrl, transcription} object.
type Result map[string]map[string]any

// Set merges one entry into r without touching other pages or keys.
func (r Result) Set(e ResultEntry) {
	page, ok := r[e.Page]
	if !ok || page == nil {
		page = map[string]any{}
		r[e.Page] = page
	}
	page[e.Key] = e.Value
}

// Clone returns a deep copy of the page maps.
func (r Result) Clone() Result {
	out := make(Result, len(r))
	for p, entries := range r {
		cp := make(map[string]any, len(entries))
		for k, v := range entries {
			cp[k] = v
		}
		out[p] = cp
	}
	return out
}

func (r Result) Value() (driver.Value, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r)
}

func (r *Result) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*r = Result{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("calls: cannot scan %T into Result", src)
	}
	out := Result{}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("calls: decode result: %w", err)
		}
	}
	*r = out
	return nil
}

// RecordingAnswer is the value stored for a free-form recorded response.
// RecordingURL is nil when the audio could not be stored.
type RecordingAnswer struct {
	RecordingURL  *string `json:"recordingUrl"`
	Transcription *string `json:"transcription"`
}

func (d Disposition) Value() (driver.Value, error) {
	if d == DispositionNone {
		return nil, nil
	}
	return string(d), nil
}

func (d *Disposition) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = DispositionNone
	case string:
		*d = Disposition(v)
	case []byte:
		*d = Disposition(v)
	default:
		return fmt.Errorf("calls: cannot scan %T into Disposition", src)
	}
	return nil
}
