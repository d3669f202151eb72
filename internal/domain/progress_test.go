package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressMerge_IsUnionNotReplace(t *testing.T) {
	existing := Progress{"a": Flag(true)}
	merged := existing.Merge(Progress{"b": Flag(true)})

	assert.Equal(t, Progress{"a": Flag(true), "b": Flag(true)}, merged)
	assert.Len(t, existing, 1, "merge must not mutate the receiver")
}

func TestProgressMerge_PatchOverwritesDates(t *testing.T) {
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	merged := Progress{ProgressCallScheduledDate: At(first)}.
		Merge(Progress{ProgressCallScheduledDate: At(second)})

	assert.True(t, merged[ProgressCallScheduledDate].Time.Equal(second))
}

func TestProgressMerge_FalseNeverUnsetsReachedMilestone(t *testing.T) {
	merged := Progress{ProgressWebinarRegistered: Flag(true)}.
		Merge(Progress{ProgressWebinarRegistered: Flag(false), "other": Flag(false)})

	assert.True(t, merged.Reached(ProgressWebinarRegistered))
	assert.Equal(t, Flag(false), merged["other"])
}

func TestProgressValue_JSONVariants(t *testing.T) {
	var p Progress
	err := json.Unmarshal([]byte(`{"pitch":true,"call":"2026-05-04T09:30:00Z","day":"2026-05-06","no":false}`), &p)
	require.NoError(t, err)

	assert.Equal(t, Flag(true), p["pitch"])
	assert.Equal(t, Flag(false), p["no"])
	assert.Equal(t, ProgressTime, p["call"].Kind)
	assert.Equal(t, time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC), p["call"].Time)
	assert.Equal(t, time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC), p["day"].Time)

	out, err := json.Marshal(Progress{"call": At(time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"call":"2026-05-04T09:30:00Z"}`, string(out))
}

func TestProgressValue_KeepsSubSecondPrecision(t *testing.T) {
	at := time.Date(2026, 5, 4, 9, 30, 0, 123456789, time.UTC)

	out, err := json.Marshal(Progress{"call": At(at)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"call":"2026-05-04T09:30:00.123456789Z"}`, string(out))

	var back Progress
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, at.Equal(back["call"].Time))
}

func TestProgressValue_RejectsOtherTypes(t *testing.T) {
	var p Progress
	assert.Error(t, json.Unmarshal([]byte(`{"x":42}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"x":"tomorrow"}`), &p))
}
