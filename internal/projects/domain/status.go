package domain

// Status is the project lifecycle state.
//
//	requested → accepted → in_progress → delivered → completed
//	                            ↑            ↓
//	                            └── revision_requested
//
// Side exits: requested → declined, {requested, accepted} → cancelled.
// completed, cancelled and declined are terminal.
type Status string

const (
	StatusRequested         Status = "requested"
	StatusAccepted          Status = "accepted"
	StatusInProgress        Status = "in_progress"
	StatusDelivered         Status = "delivered"
	StatusRevisionRequested Status = "revision_requested"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
	StatusDeclined          Status = "declined"
)

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusAccepted, StatusInProgress, StatusDelivered,
		StatusRevisionRequested, StatusCompleted, StatusCancelled, StatusDeclined:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusDeclined:
		return true
	}
	return false
}

// Action is a named lifecycle transition.
type Action string

const (
	ActionAccept          Action = "accept"
	ActionDecline         Action = "decline"
	ActionStart           Action = "start"
	ActionDeliver         Action = "deliver"
	ActionRequestRevision Action = "request_revision"
	ActionComplete        Action = "complete"
	ActionCancel          Action = "cancel"
)

// rule binds an action to its legal source statuses, its target status and the
// role allowed to take it. An empty role means either participant.
type rule struct {
	from []Status
	to   Status
	by   Role
}

var rules = map[Action]rule{
	ActionAccept:          {from: []Status{StatusRequested}, to: StatusAccepted, by: RoleVendor},
	ActionDecline:         {from: []Status{StatusRequested}, to: StatusDeclined, by: RoleVendor},
	ActionStart:           {from: []Status{StatusAccepted}, to: StatusInProgress, by: RoleVendor},
	ActionDeliver:         {from: []Status{StatusInProgress, StatusRevisionRequested}, to: StatusDelivered, by: RoleVendor},
	ActionRequestRevision: {from: []Status{StatusDelivered}, to: StatusRevisionRequested, by: RoleCustomer},
	ActionComplete:        {from: []Status{StatusDelivered}, to: StatusCompleted, by: RoleCustomer},
	ActionCancel:          {from: []Status{StatusRequested, StatusAccepted}, to: StatusCancelled, by: ""},
}

// Target returns the status an action moves a project into.
func (a Action) Target() (Status, bool) {
	r, ok := rules[a]
	if !ok {
		return "", false
	}
	return r.to, true
}

// ActionAllowedFrom reports whether action has s among its source statuses,
// regardless of role.
func ActionAllowedFrom(s Status, a Action) bool {
	r, ok := rules[a]
	if !ok {
		return false
	}
	for _, f := range r.from {
		if f == s {
			return true
		}
	}
	return false
}

// ActionRole returns the role bound to an action. ok is false for unknown
// actions; an empty role with ok=true means either participant may act.
func ActionRole(a Action) (Role, bool) {
	r, ok := rules[a]
	if !ok {
		return "", false
	}
	return r.by, true
}

// CanTransition reports whether role may apply action to a project in status s.
// It does not know about the revision budget; see PermittedActions.
func CanTransition(s Status, a Action, role Role) bool {
	by, ok := ActionRole(a)
	if !ok {
		return false
	}
	if by != "" && by != role {
		return false
	}
	return ActionAllowedFrom(s, a)
}

// PermittedActions computes the full action set for (status, role), including
// the revision budget gate: request_revision disappears once the included
// revisions are used up. Order is stable for rendering.
func PermittedActions(p *Project, role Role) []Action {
	ordered := []Action{
		ActionAccept, ActionDecline, ActionStart, ActionDeliver,
		ActionRequestRevision, ActionComplete, ActionCancel,
	}

	out := make([]Action, 0, 3)
	for _, a := range ordered {
		if !CanTransition(p.Status, a, role) {
			continue
		}
		if a == ActionRequestRevision && p.RevisionsLeft() == 0 {
			continue
		}
		out = append(out, a)
	}
	return out
}
