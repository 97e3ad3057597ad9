package app

import (
	"context"

	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

// UpdateRating sets the caller's own rating for one product (nil
// clears it), then recomputes and broadcasts the aggregate. A user
// with two open tabs has both presence entries updated so the
// per-user aggregate stays single-counted.
func (a *Authority) UpdateRating(ctx context.Context, connID domain.ConnID, productIndex int, value *float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, err := a.actorLocked(connID)
	if err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	if productIndex < 0 || productIndex >= a.session.ProductCount {
		return domain.Rejectf(domain.ErrValidation, "product index %d out of range", productIndex)
	}
	if value != nil && !domain.ValidRating(*value) {
		return domain.Rejectf(domain.ErrValidation, "rating must be between %d and %d", domain.RatingMin, domain.RatingMax)
	}

	uid := sess.Presence().User.ID
	for _, ms := range a.members {
		if p := ms.Presence(); p.User.ID == uid {
			if value == nil {
				delete(p.Ratings, productIndex)
			} else {
				v := *value
				p.Ratings[productIndex] = &v
			}
		}
	}
	if err := a.store.RecordRating(ctx, a.session.ID, uid, productIndex, value); err != nil {
		return err
	}

	averages := a.averageRatingsLocked()
	a.broadcastLocked(core.RatingUpdatedEvent{
		Type:           core.EvRatingUpdated,
		UserID:         uid,
		Rating:         value,
		ProductIndex:   productIndex,
		AverageRating:  averages[productIndex],
		AverageRatings: averages,
	})
	return nil
}

// UpdateValueGrade mirrors UpdateRating for the discrete grade.
func (a *Authority) UpdateValueGrade(ctx context.Context, connID domain.ConnID, productIndex int, grade domain.Grade) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, err := a.actorLocked(connID)
	if err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	if productIndex < 0 || productIndex >= a.session.ProductCount {
		return domain.Rejectf(domain.ErrValidation, "product index %d out of range", productIndex)
	}

	uid := sess.Presence().User.ID
	for _, ms := range a.members {
		if p := ms.Presence(); p.User.ID == uid {
			if grade == "" {
				delete(p.Grades, productIndex)
			} else {
				p.Grades[productIndex] = grade
			}
		}
	}
	if err := a.store.RecordGrade(ctx, a.session.ID, uid, productIndex, grade); err != nil {
		return err
	}

	distributions := a.gradeDistributionsLocked()
	a.broadcastLocked(core.ValueGradeUpdatedEvent{
		Type:          core.EvValueGradeUpdated,
		UserID:        uid,
		ValueGrade:    grade,
		ProductIndex:  productIndex,
		Distribution:  distributions[productIndex],
		Distributions: distributions,
	})
	return nil
}

// averageRatingsLocked computes the mean per product over distinct
// present users; duplicate tabs carry identical entries by
// construction, so the first one wins.
func (a *Authority) averageRatingsLocked() map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	seen := make(map[domain.UserID]struct{})
	for _, ms := range a.members {
		p := ms.Presence()
		if _, dup := seen[p.User.ID]; dup {
			continue
		}
		seen[p.User.ID] = struct{}{}
		for idx, v := range p.Ratings {
			if v != nil {
				sums[idx] += *v
				counts[idx]++
			}
		}
	}
	out := make(map[int]float64, len(sums))
	for idx, sum := range sums {
		out[idx] = sum / float64(counts[idx])
	}
	return out
}

func (a *Authority) gradeDistributionsLocked() map[int]map[domain.Grade]int {
	out := make(map[int]map[domain.Grade]int)
	seen := make(map[domain.UserID]struct{})
	for _, ms := range a.members {
		p := ms.Presence()
		if _, dup := seen[p.User.ID]; dup {
			continue
		}
		seen[p.User.ID] = struct{}{}
		for idx, g := range p.Grades {
			if out[idx] == nil {
				out[idx] = make(map[domain.Grade]int)
			}
			out[idx][g]++
		}
	}
	return out
}
