package gantt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, d)
	assert.Equal(t, "2024-02-29", d.String())

	for _, bad := range []string{"", "2023-02-29", "29/02/2024", "2024-2-9"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDate_Arithmetic(t *testing.T) {
	jan31 := NewDate(2024, time.January, 31)

	assert.Equal(t, NewDate(2024, time.February, 1), jan31.AddDays(1))
	assert.Equal(t, NewDate(2024, time.March, 2), jan31.AddMonths(1), "overflow follows time.AddDate")
	assert.Equal(t, NewDate(2024, time.January, 1), jan31.FirstOfMonth())
	assert.Equal(t, NewDate(2024, time.February, 29), NewDate(2024, time.February, 10).LastOfMonth())
	assert.Equal(t, NewDate(2023, time.December, 31), NewDate(2023, time.December, 5).LastOfMonth())

	assert.Equal(t, 45, NewDate(2024, time.January, 1).DaysUntil(NewDate(2024, time.February, 15)))
	assert.Equal(t, -1, jan31.DaysUntil(NewDate(2024, time.January, 30)))
	assert.Equal(t, 0, jan31.DaysUntil(jan31))
	// no DST drift: the whole year is 366 days in 2024
	assert.Equal(t, 366, NewDate(2024, time.January, 1).DaysUntil(NewDate(2025, time.January, 1)))
}

func TestDate_Compare(t *testing.T) {
	a := NewDate(2024, time.March, 1)
	b := NewDate(2024, time.March, 2)
	c := NewDate(2025, time.January, 1)

	assert.True(t, a.Before(b))
	assert.True(t, c.After(b))
	assert.False(t, a.After(a))
	assert.Equal(t, 0, a.Compare(NewDate(2024, time.February, 30)))
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}

	raw, err := json.Marshal(wrapper{D: NewDate(2024, time.May, 7)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-05-07"}`, string(raw))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"d":""}`), &w))
	assert.True(t, w.D.IsZero())
	assert.Equal(t, "", w.D.String())

	assert.Error(t, json.Unmarshal([]byte(`{"d":"tomorrow"}`), &w))
}
