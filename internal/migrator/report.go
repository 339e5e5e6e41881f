package migrator

import "fmt"

const (
	reportSummaryTemplateConstant = "copied %d of %d pages (%d created, %d updated), %d skipped, %d failed"
)

// PageOutcome records what happened to a single source page.
type PageOutcome struct {
	SourceID      string
	DestinationID string
	Title         string
	Reason        string
	Failure       error
}

// MigrationReport aggregates per-page outcomes for one run.
type MigrationReport struct {
	Created []PageOutcome
	Updated []PageOutcome
	Skipped []PageOutcome
	Failed  []PageOutcome
}

// SucceededCount reports the number of pages that reached the destination.
func (report MigrationReport) SucceededCount() int {
	return len(report.Created) + len(report.Updated)
}

// TotalCount reports the number of pages considered by the run.
func (report MigrationReport) TotalCount() int {
	return report.SucceededCount() + len(report.Skipped) + len(report.Failed)
}

// HasFailures reports whether any page failed to migrate.
func (report MigrationReport) HasFailures() bool {
	return len(report.Failed) > 0
}

// Summary renders the one-line run summary.
func (report MigrationReport) Summary() string {
	return fmt.Sprintf(
		reportSummaryTemplateConstant,
		report.SucceededCount(),
		report.TotalCount(),
		len(report.Created),
		len(report.Updated),
		len(report.Skipped),
		len(report.Failed),
	)
}
