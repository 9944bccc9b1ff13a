// Package classify decides whether an account represents an individual
// person or an organization.
//
// Stage 1 is a pure lexical scorer over the biography; stage 2 escalates to
// a semantic judge only when the heuristic is inconclusive. The failure
// policy biases toward inclusion: if escalation fails, the account is
// treated as human rather than silently excluded.
package classify

import (
	"context"
	"log/slog"
	"strings"
)

// Kind is the classification result.
type Kind int

const (
	Unknown Kind = iota
	Human
	Org
)

func (k Kind) String() string {
	switch k {
	case Human:
		return "human"
	case Org:
		return "org"
	}
	return "unknown"
}

// humanSignals are bio phrases that indicate an individual person.
var humanSignals = []string{
	"he/him", "she/her", "they/them",
	"dad", "mom", "father", "mother", "husband", "wife", "parent",
	"ex-", "former", "founder", "co-founder",
	"i am", "i'm", "my ", "mine",
	"engineer", "developer", "writer", "author", "designer",
	"investor", "researcher", "professor", "phd", "coach",
	"opinions are my own", "views are my own", "personal account",
}

// orgSignals are bio phrases that indicate an organization.
var orgSignals = []string{
	"we ", "our ", "follow us",
	"official", "team", "company", "inc.", "ltd", "corp",
	"news", "breaking", "updates", "coverage",
	"platform", "community", "non-profit", "nonprofit", "foundation",
	"headquarters", "founded in", "the home of", "leading provider",
	"customer support", "subscribe",
}

// Score computes the stage-1 lexical scores: counts of substring matches
// against the two signal lists over the lowercased bio.
func Score(bio string) (humanScore, orgScore int) {
	lower := strings.ToLower(bio)
	for _, s := range humanSignals {
		if strings.Contains(lower, s) {
			humanScore++
		}
	}
	for _, s := range orgSignals {
		if strings.Contains(lower, s) {
			orgScore++
		}
	}
	return humanScore, orgScore
}

// Heuristic is the pure stage-1 decision. The margin of 2 is a hysteresis
// band: marginal bios land in Unknown instead of flip-flopping. An empty
// bio short-circuits to Unknown before any scoring.
func Heuristic(bio string) Kind {
	if strings.TrimSpace(bio) == "" {
		return Unknown
	}
	humanScore, orgScore := Score(bio)
	switch {
	case humanScore > orgScore+1:
		return Human
	case orgScore > humanScore+1:
		return Org
	}
	return Unknown
}

// Judge is the stage-2 semantic escalation: a single fallible text
// classification call expected to answer with one of two tokens.
type Judge interface {
	Judge(ctx context.Context, bio, displayName, handle string) (Kind, error)
}

// Classifier combines the two stages. A nil judge means stage 2 always
// applies the inclusion default.
type Classifier struct {
	judge Judge
}

// New returns a classifier escalating to judge; judge may be nil.
func New(judge Judge) *Classifier {
	return &Classifier{judge: judge}
}

// Classify runs stage 1 and, only on Unknown, escalates once to the judge.
// The returned kind is never Unknown: escalation failure or an ambiguous
// reply defaults to Human.
func (c *Classifier) Classify(ctx context.Context, bio, displayName, handle string) Kind {
	if k := Heuristic(bio); k != Unknown {
		return k
	}
	if c.judge == nil {
		return Human
	}
	k, err := c.judge.Judge(ctx, bio, displayName, handle)
	if err != nil {
		slog.Warn("semantic classification failed, defaulting to human",
			slog.String("handle", handle),
			slog.Any("error", err))
		return Human
	}
	if k != Human && k != Org {
		return Human
	}
	return k
}
