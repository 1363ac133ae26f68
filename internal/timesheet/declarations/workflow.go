package declarations

import (
	"errors"
	"fmt"
	"strings"
)

// Action enumerates the operations that move a declaration between states.
type Action string

const (
	ActionSubmit  Action = "SUBMIT"
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
	ActionSettle  Action = "SETTLE"
	ActionReturn  Action = "RETURN"
)

// ErrInvalidTransition indicates the requested action is not legal in the
// declaration's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitionRule describes one row of the workflow table: which statuses an
// action accepts and which status it produces.
type transitionRule struct {
	From []Status
	To   Status
}

// transitionTable is the whole state machine as data. Adding a state or an
// action is an edit here, not a code search.
var transitionTable = map[Action]transitionRule{
	ActionSubmit:  {From: []Status{StatusDraft, StatusCorrection}, To: StatusSubmitted},
	ActionApprove: {From: []Status{StatusSubmitted}, To: StatusApproved},
	ActionReject:  {From: []Status{StatusSubmitted}, To: StatusCorrection},
	ActionSettle:  {From: []Status{StatusApproved}, To: StatusSettlement},
	ActionReturn:  {From: []Status{StatusApproved, StatusSettlement}, To: StatusCorrection},
}

// NextStatus resolves the target status for applying action to current.
// The returned error names the required precondition; an illegal request
// never silently no-ops.
func NextStatus(action Action, current Status) (Status, error) {
	rule, ok := transitionTable[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %s", ErrInvalidTransition, action)
	}
	for _, from := range rule.From {
		if from == current {
			return rule.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s requires status %s, declaration is %s",
		ErrInvalidTransition, action, statusList(rule.From), current)
}

func statusList(statuses []Status) string {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	return strings.Join(names, " or ")
}
