// Package usage reconciles request-count time series pulled from ArcGIS
// Server usage reports.
package usage

import (
	"strconv"
	"time"
)

// Column names of the persisted usage file.
const (
	ColumnSite         = "Site"
	ColumnDirectory    = "Directory"
	ColumnTimeSlice    = "Time_Slice"
	ColumnRequestCount = "Request_Count"
)

// Sample is one time slice of a request-count series. Valid is false when
// the count was missing in the source.
type Sample struct {
	Site      string
	Directory string
	Time      time.Time
	Count     int64
	Valid     bool
}

// NewSample returns a sample with a defined count.
func NewSample(t time.Time, count int64) Sample {
	return Sample{Time: t, Count: count, Valid: true}
}

// Retained reports whether s passes the validity filter: a defined, positive
// count.
func (s Sample) Retained() bool {
	return s.Valid && s.Count > 0
}

// Series is an ordered sequence of samples.
type Series []Sample

// Clone returns an independent copy of s.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	return append(Series(nil), s...)
}

// Latest returns the maximum timestamp in s. ok is false for an empty series.
func (s Series) Latest() (latest time.Time, ok bool) {
	for _, sample := range s {
		if !ok || sample.Time.After(latest) {
			latest = sample.Time
			ok = true
		}
	}
	return latest, ok
}

// Labelled reports whether any sample carries a site or directory.
func (s Series) Labelled() bool {
	for _, sample := range s {
		if sample.Site != "" || sample.Directory != "" {
			return true
		}
	}
	return false
}

// Header returns the file header for s.
func (s Series) Header() []string {
	if s.Labelled() {
		return []string{ColumnSite, ColumnDirectory, ColumnTimeSlice, ColumnRequestCount}
	}
	return []string{ColumnTimeSlice, ColumnRequestCount}
}

// Rows renders s as cell rows matching Header.
func (s Series) Rows() [][]string {
	labelled := s.Labelled()
	out := make([][]string, len(s))
	for i, sample := range s {
		row := make([]string, 0, 4)
		if labelled {
			row = append(row, sample.Site, sample.Directory)
		}
		row = append(row, FormatTime(sample.Time), formatCount(sample))
		out[i] = row
	}
	return out
}

func formatCount(s Sample) string {
	if !s.Valid {
		return ""
	}
	return strconv.FormatInt(s.Count, 10)
}

// FormatTime renders a time slice as a date, keeping the clock only when it
// is set.
func FormatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}
