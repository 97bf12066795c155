package core

import (
	"context"
	"fmt"

	"rentalcore/pkg/domain"
)

// NewOrphanReferenceRule returns a warning-severity rule reporting status
// marks and confirmations that reference property ids no longer present.
// Delete cascades make this unreachable through the public surface; the rule
// exists to surface corruption imported from an external snapshot.
func NewOrphanReferenceRule() domain.Rule {
	return orphanReferenceRule{}
}

type orphanReferenceRule struct{}

func (orphanReferenceRule) Name() string { return "orphan_reference" }

func (orphanReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	report := func(entity domain.EntityType, id string) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "orphan_reference",
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("%s references missing property %s", entity, id),
			Entity:   entity,
			EntityID: id,
		})
	}
	for id := range view.FollowUps() {
		if _, ok := view.FindProperty(id); !ok {
			report(domain.EntityFollowUp, id)
		}
	}
	for id := range view.Closures() {
		if _, ok := view.FindProperty(id); !ok {
			report(domain.EntityClosure, id)
		}
	}
	return res, nil
}
