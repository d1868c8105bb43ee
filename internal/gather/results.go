package gather

import "time"

// Outcome is one settled phase result for one gatherer: a defined value, an
// absent value (nil, nil), or a failure. Errors are data here, not control
// flow; an error outcome is a legitimate terminal artifact.
type Outcome struct {
	Value any
	Err   error
}

// Defined reports whether the outcome carries a value.
func (o Outcome) Defined() bool { return o.Err == nil && o.Value != nil }

// resultSet accumulates every phase outcome across the whole run. Outcomes
// are appended in strict phase order and never removed; run-level warnings
// and the fetch timestamp live on explicit fields rather than reserved keys
// in the gatherer namespace.
type resultSet struct {
	order     []string
	outcomes  map[string][]Outcome
	warnings  []string
	fetchTime time.Time
}

func newResultSet() *resultSet {
	return &resultSet{outcomes: make(map[string][]Outcome)}
}

func (rs *resultSet) append(name string, o Outcome) {
	if _, ok := rs.outcomes[name]; !ok {
		rs.order = append(rs.order, name)
	}
	rs.outcomes[name] = append(rs.outcomes[name], o)
}

func (rs *resultSet) addWarning(msg string) {
	rs.warnings = append(rs.warnings, msg)
}

// dedupedWarnings drops repeated warnings, preserving first-seen order.
func (rs *resultSet) dedupedWarnings() []string {
	seen := make(map[string]struct{}, len(rs.warnings))
	out := make([]string, 0, len(rs.warnings))
	for _, w := range rs.warnings {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
