package core

import (
	"context"
	"fmt"

	"rentalcore/pkg/domain"
)

// NewStatusExclusivityRule returns the in-transaction rule enforcing that no
// property carries a follow-up mark and a closed mark at the same time. The
// status engine clears the opposing mark on every mutator; this rule is the
// commit-time backstop so the invariant can never reach durable state broken.
func NewStatusExclusivityRule() domain.Rule {
	return statusExclusivityRule{}
}

type statusExclusivityRule struct{}

func (statusExclusivityRule) Name() string { return "status_exclusivity" }

func (statusExclusivityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	closures := view.Closures()
	res := domain.Result{}
	for id := range view.FollowUps() {
		if _, both := closures[id]; both {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "status_exclusivity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("property %s is marked both followed-up and closed", id),
				Entity:   domain.EntityProperty,
				EntityID: id,
			})
		}
	}
	return res, nil
}
