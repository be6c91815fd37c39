package models

import (
	"fmt"

	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
)

// Transition is one directed status change.
type Transition[S ~string] struct {
	From S
	To   S
}

// TransitionTable is the closed set of status changes a record kind allows.
type TransitionTable[S ~string] struct {
	name    string
	allowed map[Transition[S]]struct{}
}

// NewTransitionTable builds a table from its allowed edges.
func NewTransitionTable[S ~string](name string, edges ...Transition[S]) TransitionTable[S] {
	allowed := make(map[Transition[S]]struct{}, len(edges))
	for _, e := range edges {
		allowed[e] = struct{}{}
	}
	return TransitionTable[S]{name: name, allowed: allowed}
}

// Edge reports whether from -> to is a status change the handlers must act on.
// Equal statuses are not an edge. A change missing from the table returns ErrInvalidTransition.
func (t TransitionTable[S]) Edge(from, to S) (bool, error) {
	if from == to {
		return false, nil
	}
	if _, ok := t.allowed[Transition[S]{From: from, To: to}]; ok {
		return true, nil
	}
	return false, appErrors.Clone(appErrors.ErrInvalidTransition,
		fmt.Sprintf("%s transition %q -> %q is not allowed", t.name, from, to))
}

// Allows reports whether the table contains from -> to.
func (t TransitionTable[S]) Allows(from, to S) bool {
	_, ok := t.allowed[Transition[S]{From: from, To: to}]
	return ok
}
