package evaluate

import (
	"fmt"
	"strings"

	"github.com/cuemby/groupctl/pkg/types"
)

// Decision is the outcome kind of a single evaluation
type Decision string

const (
	// DecisionContinue: not terminal yet, inspect again after the interval
	DecisionContinue Decision = "continue"

	// DecisionSuccess: the activity completed
	DecisionSuccess Decision = "success"

	// DecisionFail: the activity can no longer complete
	DecisionFail Decision = "fail"
)

// Verdict is the result of evaluating one group snapshot
type Verdict struct {
	Decision Decision
	// Reason is set for DecisionFail
	Reason string
}

// Continue keeps the poll loop going
func Continue() Verdict {
	return Verdict{Decision: DecisionContinue}
}

// Success ends the poll loop successfully
func Success() Verdict {
	return Verdict{Decision: DecisionSuccess}
}

// Fail ends the poll loop with reason
func Fail(reason string) Verdict {
	return Verdict{Decision: DecisionFail, Reason: reason}
}

// IsContinue reports whether the wait should go on
func (v Verdict) IsContinue() bool { return v.Decision == DecisionContinue }

// IsSuccess reports whether the activity completed
func (v Verdict) IsSuccess() bool { return v.Decision == DecisionSuccess }

// IsFail reports whether the activity failed; Reason says why
func (v Verdict) IsFail() bool { return v.Decision == DecisionFail }

func (v Verdict) String() string {
	if v.Decision == DecisionFail && v.Reason != "" {
		return string(v.Decision) + ": " + v.Reason
	}
	return string(v.Decision)
}

// Evaluator decides, from a snapshot, whether a wait should continue,
// succeed or fail. A nil group means the group could not be inspected and
// reason says why. Implementations are pure and total.
type Evaluator interface {
	Name() string
	Evaluate(g *types.Group, reason string) Verdict
}

// NoSuchGroup is the marker the inspection step puts in the reason when the
// API answered 404
const NoSuchGroup = "No such group"

// IsNoSuchGroup reports whether an absence reason means the group does not exist
func IsNoSuchGroup(reason string) bool {
	return strings.Contains(reason, NoSuchGroup)
}

// byStatus applies the status suffix convention to an existing group. A
// failed status yields "<what> failed (<status>)".
func byStatus(g *types.Group, what string) Verdict {
	switch types.ClassifyStatus(g.Status) {
	case types.StatusComplete:
		return Success()
	case types.StatusFailed:
		return Fail(fmt.Sprintf("%s failed (%s)", what, g.Status))
	default:
		return Continue()
	}
}
