package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Well-known progress milestones. The map is open: callers may record any
// key, these are the ones the admin metrics understand.
const (
	ProgressBusinessPitchViewed = "businessPitchViewed"
	ProgressPortfolioViewed     = "portfolioViewed"
	ProgressCallScheduled       = "callScheduled"
	ProgressCallScheduledDate   = "callScheduledDate"
	ProgressInterestRegistered  = "interestRegistered"
	ProgressWebinarRegistered   = "webinarRegistered"
	ProgressDealRoomViewed      = "dealRoomViewed"
	ProgressTechDemoViewed      = "techDemoViewed"
)

// ProgressKind tags the variant held by a ProgressValue.
type ProgressKind string

const (
	ProgressBool ProgressKind = "bool"
	ProgressTime ProgressKind = "time"
)

// ProgressValue is a milestone value: either a boolean flag or a timestamp.
// On the wire it is a JSON boolean or an RFC 3339 string with
// sub-second precision kept.
type ProgressValue struct {
	Kind ProgressKind
	Bool bool
	Time time.Time
}

// Flag returns a boolean progress value.
func Flag(b bool) ProgressValue {
	return ProgressValue{Kind: ProgressBool, Bool: b}
}

// At returns a timestamp progress value.
func At(t time.Time) ProgressValue {
	return ProgressValue{Kind: ProgressTime, Time: t.UTC()}
}

// Reached reports whether the milestone counts as achieved.
func (v ProgressValue) Reached() bool {
	switch v.Kind {
	case ProgressBool:
		return v.Bool
	case ProgressTime:
		return !v.Time.IsZero()
	}
	return false
}

func (v ProgressValue) MarshalJSON() ([]byte, error) {
	if v.Kind == ProgressTime {
		return json.Marshal(v.Time.UTC().Format(time.RFC3339Nano))
	}
	return json.Marshal(v.Bool)
}

func (v *ProgressValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*v = Flag(data[0] == 't')
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t, err := ParseProgressTime(s)
		if err != nil {
			return err
		}
		*v = At(t)
		return nil
	}
	return fmt.Errorf("progress value must be a boolean or a date string, got %s", data)
}

// ParseProgressTime accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseProgressTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid progress date %q", s)
}

// Progress is the per-visitor open map of milestones.
type Progress map[string]ProgressValue

// Merge returns the key-wise union of p and patch. Keys in patch overwrite
// keys in p, keys absent from patch are preserved, and a false flag never
// overwrites a milestone that was already reached.
func (p Progress) Merge(patch Progress) Progress {
	out := make(Progress, len(p)+len(patch))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range patch {
		if cur, ok := out[k]; ok && cur.Reached() && v.Kind == ProgressBool && !v.Bool {
			continue
		}
		out[k] = v
	}
	return out
}

// Reached reports whether the named milestone is present and achieved.
func (p Progress) Reached(key string) bool {
	v, ok := p[key]
	return ok && v.Reached()
}
