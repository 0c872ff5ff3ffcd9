package verification

import (
	"fmt"

	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
)

// DimensionMainPR names the main pull request check.
const DimensionMainPR = "main pull request"

// MainPRExpectation describes the pull request that introduced the
// workflow to the repository.
type MainPRExpectation struct {
	Title        string
	SourceBranch string
	TargetBranch string
}

// ValidateMainPR checks that the discovered pull request was merged from
// the expected source branch into the expected target branch. A nil pr
// means discovery found nothing.
func ValidateMainPR(pr *domain.PullRequest, want MainPRExpectation) domain.ValidationReport {
	if pr == nil {
		return domain.NewValidationReport(DimensionMainPR, []string{
			fmt.Sprintf("pull request %q not found", want.Title),
		})
	}

	var errs []string
	if !pr.Merged() {
		errs = append(errs, fmt.Sprintf("PR #%d is not merged", pr.Number))
	}
	if pr.HeadRef != want.SourceBranch {
		errs = append(errs, fmt.Sprintf("PR #%d source branch is %q, want %q", pr.Number, pr.HeadRef, want.SourceBranch))
	}
	if pr.BaseRef != want.TargetBranch {
		errs = append(errs, fmt.Sprintf("PR #%d target branch is %q, want %q", pr.Number, pr.BaseRef, want.TargetBranch))
	}

	return domain.NewValidationReport(DimensionMainPR, errs)
}
