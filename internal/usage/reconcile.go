package usage

import "time"

// Reconciliation is the full outcome of merging a batch into a master series.
type Reconciliation struct {
	// Archived is the master as it was before the merge.
	Archived Series
	// Next is the new master.
	Next Series
	// Appended holds the incoming samples newer than the cutoff.
	Appended Series
	// Cutoff is the latest timestamp in the master; zero when HasCutoff is false.
	Cutoff    time.Time
	HasCutoff bool
	// Skipped counts incoming samples at or before the cutoff.
	Skipped int
	// Removed counts merged samples dropped by the validity filter.
	Removed int
}

// Reconcile merges incoming into master. Only incoming samples strictly after
// the master's latest timestamp are appended, in the order given. The merged
// series is then filtered to samples with a defined, positive count.
func Reconcile(master, incoming Series) (archived, next Series) {
	r := Plan(master, incoming)
	return r.Archived, r.Next
}

// Plan is Reconcile with the intermediate values exposed for reporting.
func Plan(master, incoming Series) Reconciliation {
	r := Reconciliation{Archived: master.Clone()}
	r.Cutoff, r.HasCutoff = master.Latest()

	for _, s := range incoming {
		if r.HasCutoff && !s.Time.After(r.Cutoff) {
			r.Skipped++
			continue
		}
		r.Appended = append(r.Appended, s)
	}

	merged := make(Series, 0, len(master)+len(r.Appended))
	merged = append(merged, master...)
	merged = append(merged, r.Appended...)

	r.Next = make(Series, 0, len(merged))
	for _, s := range merged {
		if !s.Retained() {
			r.Removed++
			continue
		}
		r.Next = append(r.Next, s)
	}
	return r
}

// AppendedDates returns the distinct timestamps appended, in order.
func (r Reconciliation) AppendedDates() []time.Time {
	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, s := range r.Appended {
		if !seen[s.Time] {
			seen[s.Time] = true
			out = append(out, s.Time)
		}
	}
	return out
}
