package usage

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// ParseQuickReport turns a quick report payload into one sample per time
// slice, labelled with site and directory. The payload shape is
//
//	{"report": {"time-slices": [ms, ...], "report-data": [[{"data": [n, ...]}]]}}
//
// A null count yields an undefined sample.
func ParseQuickReport(site, directory string, payload []byte) (Series, error) {
	if !gjson.ValidBytes(payload) {
		return nil, eris.New("usage: quick report: invalid json")
	}
	doc := gjson.ParseBytes(payload)

	if msg := doc.Get("error.message"); msg.Exists() {
		return nil, eris.Errorf("usage: quick report: %s", msg.String())
	}

	slices := doc.Get("report.time-slices")
	if !slices.IsArray() {
		return nil, eris.New("usage: quick report: missing report.time-slices")
	}
	data := doc.Get("report.report-data.0.0.data")
	if !data.IsArray() {
		return nil, eris.New("usage: quick report: missing report.report-data[0][0].data")
	}

	times := slices.Array()
	counts := data.Array()
	if len(times) != len(counts) {
		return nil, eris.Errorf("usage: quick report: %d time slices but %d counts", len(times), len(counts))
	}

	out := make(Series, len(times))
	for i, ts := range times {
		t := time.UnixMilli(ts.Int()).UTC().Truncate(24 * time.Hour)
		s := Sample{Site: site, Directory: directory, Time: t}
		if c := counts[i]; c.Type == gjson.Number {
			s.Count = c.Int()
			s.Valid = true
		}
		out[i] = s
	}
	return out, nil
}
