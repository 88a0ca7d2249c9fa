// Package grading converts metric scores to ISO letter grades.
package grading

import (
	"github.com/Suryanandx/2d-code-verifier/internal/config"
	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

// Grader applies a fixed set of grade thresholds.
type Grader struct {
	thresholds config.GradeThresholds
}

// New returns a grader for the given lower grade bounds.
func New(thresholds config.GradeThresholds) *Grader {
	return &Grader{thresholds: thresholds}
}

// GradeScore maps a score to a letter. It is non-decreasing in score.
func (g *Grader) GradeScore(score float64) models.Grade {
	t := g.thresholds
	switch {
	case score >= t.A:
		return models.GradeA
	case score >= t.B:
		return models.GradeB
	case score >= t.C:
		return models.GradeC
	case score >= t.D:
		return models.GradeD
	default:
		return models.GradeF
	}
}

// Grade returns graded copies of results and the overall grade.
func (g *Grader) Grade(results []models.MetricResult) ([]models.MetricResult, models.Grade) {
	graded := make([]models.MetricResult, len(results))
	for i, r := range results {
		if r.PassFail {
			r.Grade = models.GradeF
			if r.Score >= 1 {
				r.Grade = models.GradeA
			}
		} else {
			r.Grade = g.GradeScore(r.Score)
		}
		r.Pass = r.Grade.Rank() >= models.GradeC.Rank()
		graded[i] = r
	}
	return graded, Overall(graded)
}

// Overall is the worst grade among graded metrics, or F when there are none.
func Overall(graded []models.MetricResult) models.Grade {
	if len(graded) == 0 {
		return models.GradeF
	}
	worst := models.GradeA
	for _, r := range graded {
		if r.Grade.Worse(worst) {
			worst = r.Grade
		}
	}
	return worst
}
