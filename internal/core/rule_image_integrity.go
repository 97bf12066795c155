package core

import (
	"context"
	"fmt"

	"rentalcore/pkg/domain"
)

// NewImageIntegrityRule returns the rule guarding the ordered image list:
// no empty keys and no duplicates. Position 0 is the main image by
// definition, so ordering itself needs no check beyond these.
func NewImageIntegrityRule() domain.Rule {
	return imageIntegrityRule{}
}

type imageIntegrityRule struct{}

func (imageIntegrityRule) Name() string { return "image_integrity" }

func (imageIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range view.ListProperties() {
		seen := make(map[string]bool, len(p.Images))
		for i, key := range p.Images {
			if key == "" {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "image_integrity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("property %s has an empty image key at position %d", p.ID, i),
					Entity:   domain.EntityProperty,
					EntityID: p.ID,
				})
				continue
			}
			if seen[key] {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "image_integrity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("property %s lists image %s more than once", p.ID, key),
					Entity:   domain.EntityProperty,
					EntityID: p.ID,
				})
			}
			seen[key] = true
		}
	}
	return res, nil
}
