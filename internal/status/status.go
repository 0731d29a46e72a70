// Package status is the single source of truth for the project lifecycle.
// Both the HTTP layer (UI gating) and the transactional write path consult
// the same tables here, so a transition that is hidden from a client is also
// rejected if the client attempts it anyway.
package status

import (
	"errors"
	"fmt"
)

type Status string

const (
	Open       Status = "open"
	Applied    Status = "applied"
	Assigned   Status = "assigned"
	InProgress Status = "in-progress"
	Submitted  Status = "submitted"
	Revision   Status = "revision"
	Completed  Status = "completed"
	Paid       Status = "paid"
	Archived   Status = "archived"
	Disputed   Status = "disputed"
)

type Role string

const (
	RoleClient       Role = "client"
	RoleProfessional Role = "professional"
	// RoleSystem is used for edges the application takes on its own,
	// e.g. open→applied when the first application arrives.
	RoleSystem Role = "system"
)

var (
	ErrUnknownStatus     = errors.New("unknown status")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrRoleNotAllowed    = errors.New("role not allowed for this transition")
)

// edge describes one legal transition and the roles that may drive it.
type edge struct {
	to    Status
	roles []Role
}

var transitions = map[Status][]edge{
	Open: {
		{to: Applied, roles: []Role{RoleSystem}},
		{to: Assigned, roles: []Role{RoleClient}},
		{to: Archived, roles: []Role{RoleClient}},
	},
	Applied: {
		{to: Assigned, roles: []Role{RoleClient}},
		{to: Archived, roles: []Role{RoleClient}},
	},
	Assigned: {
		{to: InProgress, roles: []Role{RoleProfessional}},
		{to: Archived, roles: []Role{RoleClient}},
		{to: Disputed, roles: []Role{RoleClient, RoleProfessional}},
	},
	InProgress: {
		{to: Submitted, roles: []Role{RoleProfessional}},
		{to: Archived, roles: []Role{RoleClient}},
		{to: Disputed, roles: []Role{RoleClient, RoleProfessional}},
	},
	Submitted: {
		{to: Completed, roles: []Role{RoleClient}},
		{to: Revision, roles: []Role{RoleClient}},
		{to: Archived, roles: []Role{RoleClient}},
		{to: Disputed, roles: []Role{RoleClient, RoleProfessional}},
	},
	Revision: {
		{to: Submitted, roles: []Role{RoleProfessional}},
		{to: Archived, roles: []Role{RoleClient}},
		{to: Disputed, roles: []Role{RoleClient, RoleProfessional}},
	},
	Completed: {
		{to: Paid, roles: []Role{RoleClient}},
		{to: Archived, roles: []Role{RoleClient}},
		{to: Disputed, roles: []Role{RoleClient, RoleProfessional}},
	},
	Paid: {
		{to: Archived, roles: []Role{RoleClient}},
	},
	Disputed: {
		{to: Archived, roles: []Role{RoleClient}},
	},
	Archived: {}, // terminal
}

// Valid reports whether s is a known status.
func Valid(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// ChatOpen reports whether the project chat still accepts new messages.
func ChatOpen(s Status) bool {
	switch s {
	case Completed, Archived, Disputed:
		return false
	}
	return true
}

// InvoiceVisible reports whether the invoice for a project may exist.
func InvoiceVisible(s Status) bool {
	return s == Completed || s == Paid
}

// ReviewVisible reports whether reviews may be submitted.
func ReviewVisible(s Status) bool {
	return s == Paid
}

// Next returns the statuses reachable from current by the given role.
func Next(current Status, role Role) []Status {
	edges, ok := transitions[current]
	if !ok {
		return nil
	}

	var out []Status
	for _, e := range edges {
		for _, r := range e.roles {
			if r == role {
				out = append(out, e.to)
				break
			}
		}
	}
	return out
}

// CanTransition checks whether role may move a project from current to target.
func CanTransition(current, target Status, role Role) error {
	edges, ok := transitions[current]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, current)
	}
	if !Valid(target) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, target)
	}

	for _, e := range edges {
		if e.to != target {
			continue
		}
		for _, r := range e.roles {
			if r == role {
				return nil
			}
		}
		return fmt.Errorf("%w: %s may not move %s -> %s", ErrRoleNotAllowed, role, current, target)
	}

	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, target)
}
