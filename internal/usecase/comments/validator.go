// Package comments verifies the automation bot posted its required
// report comments on the main pull request.
package comments

import (
	"context"
	"fmt"
	"strings"

	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
)

// Dimension reported by this validator.
const Dimension = "automation comments"

// CommentSource fetches issue comments for a pull request.
type CommentSource interface {
	ListIssueComments(ctx context.Context, repo domain.RepositoryRef, number int) ([]domain.Comment, error)
}

// ValidatorDeps captures the collaborators for the comment validator.
type ValidatorDeps struct {
	Source   CommentSource
	Repo     domain.RepositoryRef
	BotLogin string
	Required []domain.ReportSignature
}

// Validator checks bot comments against the required report signatures.
type Validator struct {
	source   CommentSource
	repo     domain.RepositoryRef
	botLogin string
	required []domain.ReportSignature
}

// NewValidator constructs a comment validator.
func NewValidator(deps ValidatorDeps) *Validator {
	return &Validator{
		source:   deps.Source,
		repo:     deps.Repo,
		botLogin: deps.BotLogin,
		required: deps.Required,
	}
}

// Validate fetches the PR's comments and checks every required report
// is present. A report counts as found when any bot comment contains one
// of its main keywords; that comment must then carry every sub keyword.
func (v *Validator) Validate(ctx context.Context, prNumber int) domain.ValidationReport {
	all, err := v.source.ListIssueComments(ctx, v.repo, prNumber)
	if err != nil {
		return domain.NewValidationReport(Dimension, []string{
			fmt.Sprintf("list comments for PR #%d: %v", prNumber, err),
		})
	}

	var bodies []string
	for _, c := range all {
		if c.Author == v.botLogin {
			bodies = append(bodies, c.Body)
		}
	}
	if len(bodies) == 0 {
		return domain.NewValidationReport(Dimension, []string{
			fmt.Sprintf("no comments from %s on PR #%d", v.botLogin, prNumber),
		})
	}

	var errs []string
	found := 0
	for _, report := range v.required {
		matched := false
		for _, body := range bodies {
			if !containsAny(body, report.MainKeywords) {
				continue
			}
			matched = true
			if missing := missingKeywords(body, report.SubKeywords); len(missing) > 0 {
				errs = append(errs, fmt.Sprintf("%s missing sub-keywords: %s",
					report.Name, strings.Join(missing, ", ")))
			}
			break
		}
		if matched {
			found++
		} else {
			errs = append(errs, fmt.Sprintf("missing %s (main keywords: %s)",
				report.Name, strings.Join(report.MainKeywords, ", ")))
		}
	}

	if found != len(v.required) {
		errs = append(errs, fmt.Sprintf("expected %d reports, found %d", len(v.required), found))
	}

	return domain.NewValidationReport(Dimension, errs)
}

func containsAny(body string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(body, k) {
			return true
		}
	}
	return false
}

func missingKeywords(body string, keywords []string) []string {
	var missing []string
	for _, k := range keywords {
		if !strings.Contains(body, k) {
			missing = append(missing, k)
		}
	}
	return missing
}
