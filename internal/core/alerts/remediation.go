package alerts

// remediationSteps derives the static remediation checklist attached to an
// alert at creation. Keyed on (severity, category); the checklist is
// immutable once attached.
func remediationSteps(severity Severity, category string) []string {
	steps := []string{
		"Review the alert details and the triggering telemetry",
	}

	switch category {
	case CategoryAutomatedRule:
		steps = append(steps,
			"Inspect the metric series around the detection time",
			"Check whether the threshold breach is still ongoing",
		)
	case CategoryCorrelation:
		steps = append(steps,
			"Review the contributing alerts referenced in the tags",
			"Confirm whether the pattern reflects a single root cause",
		)
	default:
		steps = append(steps,
			"Confirm the report with the submitting operator",
		)
	}

	switch severity {
	case SeverityCritical:
		steps = append(steps,
			"Page the on-call owner for the affected source",
			"Open an incident if the condition persists beyond one cycle",
		)
	case SeverityHigh:
		steps = append(steps,
			"Notify the owning team during business hours",
		)
	case SeverityMedium, SeverityLow:
		steps = append(steps,
			"Track the alert; escalate if it recurs",
		)
	}

	steps = append(steps, "Resolve the alert once verified, or mark it false positive")
	return steps
}
