package gantt

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthLabeler_Locales(t *testing.T) {
	tests := []struct {
		locale     string
		wantLocale string
		month      time.Month
		want       string
	}{
		{"it", "it", time.January, "Gennaio 2024"},
		{"it-IT", "it", time.December, "Dicembre 2024"},
		{"en", "en", time.May, "May 2024"},
		{"en-GB", "en", time.August, "August 2024"},
		{"de", "de", time.March, "März 2024"},
		{"fr", "fr", time.February, "Février 2024"},
		{"es", "es", time.September, "Septiembre 2024"},
		{"", "it", time.June, "Giugno 2024"},
		{"not a tag", "it", time.July, "Luglio 2024"},
		{"ja", "it", time.October, "Ottobre 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			l := NewMonthLabeler(tt.locale)
			assert.Equal(t, tt.wantLocale, l.Locale())
			assert.Equal(t, tt.want, l.Label(NewDate(2024, tt.month, 15)))
		})
	}
}

func TestMonthLabeler_Nil(t *testing.T) {
	var l *MonthLabeler
	assert.Equal(t, "it", l.Locale())
	assert.Equal(t, "Novembre 2025", l.Label(NewDate(2025, time.November, 1)))
}

func TestMonthLabeler_NormalizesOutOfRangeMonths(t *testing.T) {
	l := NewMonthLabeler("it")
	assert.Equal(t, "Dicembre 2023", l.Label(Date{Year: 2024, Month: 0, Day: 1}))
	assert.Equal(t, "Gennaio 2025", l.Label(Date{Year: 2024, Month: 13, Day: 1}))
}

func TestMonthLabeler_ConcurrentUse(t *testing.T) {
	l := NewMonthLabeler("it")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(m int) {
			defer wg.Done()
			d := NewDate(2024, time.Month(m%12+1), 1)
			assert.NotEmpty(t, l.Label(d))
		}(i)
	}
	wg.Wait()
}
