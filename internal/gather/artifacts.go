package gather

import (
	"context"
	"encoding/json"
	"fmt"

	"pharos/internal/errs"

	"golang.org/x/sync/errgroup"
)

// Artifact is the final, reduced value attributed to one gatherer. Exactly
// one of Value and Err is set: an error here means the gatherer's failure is
// its artifact, which downstream consumers treat as data.
type Artifact struct {
	Value any
	Err   error
}

func (a Artifact) MarshalJSON() ([]byte, error) {
	if a.Err != nil {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: a.Err.Error()})
	}
	return json.Marshal(a.Value)
}

// reduce collapses the full result set into one artifact per gatherer and
// applies the global page-load-failure threshold. The per-gatherer sequences
// are settled, so different gatherers may be reduced concurrently; the tally
// afterwards runs in configured order to keep "first failure" deterministic.
func reduce(ctx context.Context, rs *resultSet) (map[string]Artifact, []string, error) {
	warnings := rs.dedupedWarnings()

	reduced := make([]Artifact, len(rs.order))
	g, _ := errgroup.WithContext(ctx)
	for i, name := range rs.order {
		g.Go(func() error {
			art, err := reduceOutcomes(name, rs.outcomes[name])
			if err != nil {
				return err
			}
			reduced[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	artifacts := make(map[string]Artifact, len(rs.order))
	pageLoadFailures := 0
	var firstFailure error
	for i, name := range rs.order {
		artifacts[name] = reduced[i]
		if reduced[i].Err != nil && errs.IsPageLoadError(reduced[i].Err) {
			pageLoadFailures++
			if firstFailure == nil {
				firstFailure = reduced[i].Err
			}
		}
	}

	// A majority of page-load failures means the navigation itself is
	// broken; that must not be absorbed into per-gatherer errors.
	if pageLoadFailures*2 > len(artifacts) {
		return nil, nil, errs.Fatal(firstFailure)
	}
	return artifacts, warnings, nil
}

// reduceOutcomes settles one gatherer's ordered outcome sequence. A recorded
// failure becomes the artifact; otherwise the last defined value wins. A
// gatherer that produced neither is a programming defect.
func reduceOutcomes(name string, outcomes []Outcome) (Artifact, error) {
	var artifact Artifact
	defined := false
	for _, o := range outcomes {
		if o.Err != nil {
			return Artifact{Err: o.Err}, nil
		}
		if o.Value != nil {
			artifact = Artifact{Value: o.Value}
			defined = true
		}
	}
	if !defined {
		return Artifact{}, &errs.Error{
			Code:    errs.MissingArtifact,
			Fatal:   true,
			Message: fmt.Sprintf("gatherer %s produced no artifact and no error", name),
		}
	}
	return artifact, nil
}
