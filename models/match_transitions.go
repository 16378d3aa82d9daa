package models

import "fmt"

type MatchAction string

const (
	ActionStart      MatchAction = "start"
	ActionSubmit     MatchAction = "submit"
	ActionApprove    MatchAction = "approve"
	ActionReject     MatchAction = "reject"
	ActionCorrect    MatchAction = "correct"
	ActionReschedule MatchAction = "reschedule"
	ActionPostpone   MatchAction = "postpone"
	ActionCancel     MatchAction = "cancel"
	ActionWalkover   MatchAction = "walkover"
)

// MatchTransitions is the complete match lifecycle: action -> current status -> next status.
// Anything missing from the table is an illegal move.
var MatchTransitions = map[MatchAction]map[MatchStatus]MatchStatus{
	ActionStart: {
		MatchScheduled: MatchInProgress,
	},
	ActionSubmit: {
		MatchScheduled:  MatchPendingApproval,
		MatchInProgress: MatchPendingApproval,
	},
	ActionApprove: {
		MatchPendingApproval: MatchCompleted,
	},
	ActionReject: {
		MatchPendingApproval: MatchScheduled,
	},
	ActionCorrect: {
		MatchCompleted: MatchCompleted,
	},
	ActionReschedule: {
		MatchScheduled: MatchScheduled,
		MatchPostponed: MatchPostponed,
	},
	ActionPostpone: {
		MatchScheduled:  MatchPostponed,
		MatchInProgress: MatchPostponed,
	},
	ActionCancel: {
		MatchScheduled:       MatchCancelled,
		MatchInProgress:      MatchCancelled,
		MatchPostponed:       MatchCancelled,
		MatchPendingApproval: MatchCancelled,
	},
	ActionWalkover: {
		MatchScheduled:  MatchWalkover,
		MatchInProgress: MatchWalkover,
		MatchPostponed:  MatchWalkover,
	},
}

// TransitionError describes a move the lifecycle table does not allow.
type TransitionError struct {
	Action MatchAction
	From   MatchStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a match in status %q", e.Action, e.From)
}

// NextStatus looks up the target status of an action.
func NextStatus(current MatchStatus, action MatchAction) (MatchStatus, error) {
	next, ok := MatchTransitions[action][current]
	if !ok {
		return "", &TransitionError{Action: action, From: current}
	}
	return next, nil
}
