// Package service holds the request-level business rules: every operation
// checks the visibility and ownership policies first and reports its outcome
// as a Result.
package service

import (
	"fmt"
	"net/url"
)

// Outcome is the kind of answer a service operation gives.
type Outcome int

const (
	// OutcomeOK carries a payload to render.
	OutcomeOK Outcome = iota
	// OutcomeRedirect sends the client to Target.
	OutcomeRedirect
	// OutcomeNotFound hides the entity, whether it is missing or merely not visible.
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeNotFound:
		return "not_found"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of a service operation. Validation and internal
// failures travel separately as errors.
type Result[T any] struct {
	Outcome Outcome
	Payload T
	Target  string
}

// Ok wraps a payload.
func Ok[T any](payload T) Result[T] {
	return Result[T]{Outcome: OutcomeOK, Payload: payload}
}

// RedirectTo points the client at target.
func RedirectTo[T any](target string) Result[T] {
	return Result[T]{Outcome: OutcomeRedirect, Target: target}
}

// NotFound reports a missing or hidden entity.
func NotFound[T any]() Result[T] {
	return Result[T]{Outcome: OutcomeNotFound}
}

// Redirect targets.
const (
	IndexPath = "/"
	LoginPath = "/auth/login/"
)

// PostPath is the detail page of a post.
func PostPath(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

// ProfilePath is the public profile page of a user.
func ProfilePath(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}
