package verification

import (
	"fmt"
	"strings"

	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
)

// DimensionWorkflow names the workflow definition check.
const DimensionWorkflow = "workflow definition"

// ValidateWorkflowContent checks the workflow definition text for the
// pull_request trigger block, the required activity types, and the
// required job names. The checks are substring based; a full YAML parse
// would reject hand-edited but functional definitions.
func ValidateWorkflowContent(content string, wf domain.WorkflowDescriptor) domain.ValidationReport {
	var errs []string

	if !strings.Contains(content, "pull_request:") {
		errs = append(errs, "workflow is missing the pull_request trigger")
	}

	var missingTriggers []string
	for _, trigger := range wf.RequiredTriggers {
		if !strings.Contains(content, trigger) {
			missingTriggers = append(missingTriggers, trigger)
		}
	}
	if len(missingTriggers) > 0 {
		errs = append(errs, fmt.Sprintf("missing required trigger types: %s", strings.Join(missingTriggers, ", ")))
	}

	var missingJobs []string
	for _, job := range wf.RequiredJobs {
		if !strings.Contains(content, job+":") {
			missingJobs = append(missingJobs, job)
		}
	}
	if len(missingJobs) > 0 {
		errs = append(errs, fmt.Sprintf("missing required jobs: %s", strings.Join(missingJobs, ", ")))
	}

	return domain.NewValidationReport(DimensionWorkflow, errs)
}
