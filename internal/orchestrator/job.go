// Package orchestrator schedules and runs ingestion jobs: fetch via a
// provider, normalize, commit atomically. Failed jobs are retried with
// backoff up to a cap, then dead-lettered. Coordination happens through
// the queue and the lock store only; workers share no mutable state.
package orchestrator

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"pathofmirrors/internal/domain"
)

// Job kinds. Economy jobs pull one league+category overview, ladder jobs
// pull one league's character ladder.
const (
	KindEconomy = "economy"
	KindLadder  = "ladder"
)

// JobSpec identifies one unit of ingestion work. League and Category are
// empty where the kind does not use them.
type JobSpec struct {
	Kind     string      `json:"kind"`
	Game     domain.Game `json:"game"`
	League   string      `json:"league"`
	Category string      `json:"category,omitempty"`
}

// Key returns the dedup identity of the spec: one key is in flight at most
// once across all workers.
func (s JobSpec) Key() string {
	parts := []string{s.Kind, s.Game.String(), s.League}
	if s.Category != "" {
		parts = append(parts, s.Category)
	}
	return strings.Join(parts, "|")
}

func (s JobSpec) String() string { return s.Key() }

// Encode serializes the spec for the queue payload.
func (s JobSpec) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeJobSpec parses a queue payload back into a spec.
func DecodeJobSpec(payload []byte) (JobSpec, error) {
	var spec JobSpec
	if err := json.Unmarshal(payload, &spec); err != nil {
		return JobSpec{}, fmt.Errorf("decode job spec: %w", err)
	}
	if spec.Kind != KindEconomy && spec.Kind != KindLadder {
		return JobSpec{}, fmt.Errorf("unknown job kind %q", spec.Kind)
	}
	if !spec.Game.IsValid() {
		return JobSpec{}, fmt.Errorf("unknown game %q", spec.Game)
	}
	if spec.League == "" {
		return JobSpec{}, fmt.Errorf("job spec missing league")
	}
	if spec.Kind == KindEconomy && spec.Category == "" {
		return JobSpec{}, fmt.Errorf("economy job spec missing category")
	}
	return spec, nil
}
