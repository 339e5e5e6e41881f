package migrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/confcopy/internal/confluence"
)

const (
	sourceReaderMissingMessageConstant      = "source reader not configured"
	destinationWriterMissingMessageConstant = "destination writer not configured"
	sourceListingErrorTemplateConstant      = "unable to list source pages: %w"
	skipReasonAlreadyExistsConstant         = "already exists"
	skipReasonParentNotMigratedConstant     = "parent not migrated"
	dryRunDestinationPlaceholderTemplate    = "dry-run:%s"
	pageLookupFailedLogMessageConstant      = "Destination lookup failed"
	pageCopyFailedLogMessageConstant        = "Page copy failed"
	labelCopyFailedLogMessageConstant       = "Label copy failed"
	logFieldPageTitleConstant               = "page_title"
	logFieldSourcePageIDConstant            = "source_page_id"
	logFieldDestinationPageIDConstant       = "destination_page_id"
)

var (
	errSourceReaderMissing      = errors.New(sourceReaderMissingMessageConstant)
	errDestinationWriterMissing = errors.New(destinationWriterMissingMessageConstant)
)

// SourceReader lists pages and labels from the source space.
type SourceReader interface {
	ListSpacePages(requestContext context.Context) ([]confluence.ContentPage, error)
	ListLabels(requestContext context.Context, pageID string) ([]confluence.Label, error)
}

// DestinationWriter locates, creates, and updates pages in the destination space.
type DestinationWriter interface {
	FindPageByTitle(requestContext context.Context, title string, parentID string) (*confluence.ContentPage, error)
	CreatePage(requestContext context.Context, title string, storageValue string, parentID string) (*confluence.ContentPage, error)
	UpdatePage(requestContext context.Context, existingPage confluence.ContentPage, storageValue string) (*confluence.ContentPage, error)
	AddLabels(requestContext context.Context, pageID string, labels []confluence.Label) error
}

// PageEventObserver receives per-page progress notifications.
type PageEventObserver interface {
	PageCreated(title string, destinationID string)
	PageUpdated(title string, destinationID string)
	PageSkipped(title string, reason string)
	PageFailed(title string, failure error)
}

// ServiceDependencies describes required collaborators for a space copy.
type ServiceDependencies struct {
	Logger        *zap.Logger
	Source        SourceReader
	Destination   DestinationWriter
	EventObserver PageEventObserver
}

// MigrationOptions configures one copy run.
type MigrationOptions struct {
	ConflictPolicy ConflictPolicy
	CopyLabels     bool
	DryRun         bool
}

// Service copies the source space's page tree into the destination space.
type Service struct {
	logger        *zap.Logger
	source        SourceReader
	destination   DestinationWriter
	eventObserver PageEventObserver
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Source == nil {
		return nil, errSourceReaderMissing
	}
	if dependencies.Destination == nil {
		return nil, errDestinationWriterMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	service := &Service{
		logger:        logger,
		source:        dependencies.Source,
		destination:   dependencies.Destination,
		eventObserver: dependencies.EventObserver,
	}

	return service, nil
}

// Execute copies every source page into the destination, parents before children.
//
// Credential rejections abort the run immediately. Any other per-page failure
// is recorded in the report together with the page's descendants, which are
// skipped because they have no destination parent to attach to.
func (service *Service) Execute(executionContext context.Context, options MigrationOptions) (MigrationReport, error) {
	sourcePages, listingError := service.source.ListSpacePages(executionContext)
	if listingError != nil {
		return MigrationReport{}, fmt.Errorf(sourceListingErrorTemplateConstant, listingError)
	}

	pageTree := BuildPageTree(sourcePages)
	migrationRecord := make(map[string]string, pageTree.Size())
	unreachableSubtrees := make(map[string]struct{})

	var report MigrationReport

	for _, pageNode := range pageTree.OrderedPages() {
		if contextError := executionContext.Err(); contextError != nil {
			return report, contextError
		}

		if _, parentUnreachable := unreachableSubtrees[pageNode.ParentID]; parentUnreachable {
			unreachableSubtrees[pageNode.ID] = struct{}{}
			report.Skipped = append(report.Skipped, PageOutcome{
				SourceID: pageNode.ID,
				Title:    pageNode.Title,
				Reason:   skipReasonParentNotMigratedConstant,
			})
			service.notifySkipped(pageNode.Title, skipReasonParentNotMigratedConstant)
			continue
		}

		destinationParentID := migrationRecord[pageNode.ParentID]

		outcome, pageError := service.copyPage(executionContext, options, pageNode, destinationParentID)
		if pageError != nil {
			if isFatalError(pageError) {
				return report, pageError
			}

			unreachableSubtrees[pageNode.ID] = struct{}{}
			report.Failed = append(report.Failed, PageOutcome{
				SourceID: pageNode.ID,
				Title:    pageNode.Title,
				Failure:  pageError,
			})
			service.notifyFailed(pageNode.Title, pageError)
			service.logger.Warn(
				pageCopyFailedLogMessageConstant,
				zap.String(logFieldPageTitleConstant, pageNode.Title),
				zap.String(logFieldSourcePageIDConstant, pageNode.ID),
				zap.Error(pageError),
			)
			continue
		}

		migrationRecord[pageNode.ID] = outcome.DestinationID
		switch outcome.disposition {
		case pageDispositionCreated:
			report.Created = append(report.Created, outcome.PageOutcome)
			service.notifyCreated(pageNode.Title, outcome.DestinationID)
		case pageDispositionUpdated:
			report.Updated = append(report.Updated, outcome.PageOutcome)
			service.notifyUpdated(pageNode.Title, outcome.DestinationID)
		case pageDispositionSkipped:
			report.Skipped = append(report.Skipped, outcome.PageOutcome)
			service.notifySkipped(pageNode.Title, outcome.Reason)
			continue
		}

		if options.CopyLabels && !options.DryRun {
			service.copyPageLabels(executionContext, pageNode, outcome.DestinationID)
		}
	}

	return report, nil
}

type pageDisposition int

const (
	pageDispositionCreated pageDisposition = iota
	pageDispositionUpdated
	pageDispositionSkipped
)

type pageCopyOutcome struct {
	PageOutcome
	disposition pageDisposition
}

func (service *Service) copyPage(executionContext context.Context, options MigrationOptions, pageNode PageNode, destinationParentID string) (pageCopyOutcome, error) {
	existingPage, lookupError := service.destination.FindPageByTitle(executionContext, pageNode.Title, destinationParentID)
	if lookupError != nil {
		service.logger.Debug(
			pageLookupFailedLogMessageConstant,
			zap.String(logFieldPageTitleConstant, pageNode.Title),
			zap.Error(lookupError),
		)
		return pageCopyOutcome{}, lookupError
	}

	if existingPage != nil {
		return service.resolveConflict(executionContext, options, pageNode, destinationParentID, *existingPage)
	}

	return service.createPage(executionContext, options, pageNode, pageNode.Title, destinationParentID)
}

func (service *Service) resolveConflict(executionContext context.Context, options MigrationOptions, pageNode PageNode, destinationParentID string, existingPage confluence.ContentPage) (pageCopyOutcome, error) {
	switch options.ConflictPolicy {
	case ConflictPolicySkip:
		outcome := pageCopyOutcome{disposition: pageDispositionSkipped}
		outcome.SourceID = pageNode.ID
		outcome.DestinationID = existingPage.ID
		outcome.Title = pageNode.Title
		outcome.Reason = skipReasonAlreadyExistsConstant
		return outcome, nil
	case ConflictPolicyAppendSuffix:
		return service.createPage(executionContext, options, pageNode, SuffixedTitle(pageNode.Title), destinationParentID)
	default:
		if options.DryRun {
			outcome := pageCopyOutcome{disposition: pageDispositionUpdated}
			outcome.SourceID = pageNode.ID
			outcome.DestinationID = existingPage.ID
			outcome.Title = pageNode.Title
			return outcome, nil
		}

		updatedPage, updateError := service.destination.UpdatePage(executionContext, existingPage, pageNode.Body)
		if updateError != nil {
			return pageCopyOutcome{}, updateError
		}

		outcome := pageCopyOutcome{disposition: pageDispositionUpdated}
		outcome.SourceID = pageNode.ID
		outcome.DestinationID = updatedPage.ID
		outcome.Title = pageNode.Title
		return outcome, nil
	}
}

func (service *Service) createPage(executionContext context.Context, options MigrationOptions, pageNode PageNode, destinationTitle string, destinationParentID string) (pageCopyOutcome, error) {
	if options.DryRun {
		outcome := pageCopyOutcome{disposition: pageDispositionCreated}
		outcome.SourceID = pageNode.ID
		outcome.DestinationID = fmt.Sprintf(dryRunDestinationPlaceholderTemplate, pageNode.ID)
		outcome.Title = destinationTitle
		return outcome, nil
	}

	createdPage, creationError := service.destination.CreatePage(executionContext, destinationTitle, pageNode.Body, destinationParentID)
	if creationError != nil {
		return pageCopyOutcome{}, creationError
	}

	outcome := pageCopyOutcome{disposition: pageDispositionCreated}
	outcome.SourceID = pageNode.ID
	outcome.DestinationID = createdPage.ID
	outcome.Title = destinationTitle
	return outcome, nil
}

// copyPageLabels mirrors source labels onto the destination page. Label
// failures never fail the page; the body already arrived.
func (service *Service) copyPageLabels(executionContext context.Context, pageNode PageNode, destinationID string) {
	sourceLabels, listError := service.source.ListLabels(executionContext, pageNode.ID)
	if listError != nil {
		service.logger.Warn(
			labelCopyFailedLogMessageConstant,
			zap.String(logFieldPageTitleConstant, pageNode.Title),
			zap.String(logFieldSourcePageIDConstant, pageNode.ID),
			zap.Error(listError),
		)
		return
	}
	if len(sourceLabels) == 0 {
		return
	}

	if addError := service.destination.AddLabels(executionContext, destinationID, sourceLabels); addError != nil {
		service.logger.Warn(
			labelCopyFailedLogMessageConstant,
			zap.String(logFieldPageTitleConstant, pageNode.Title),
			zap.String(logFieldDestinationPageIDConstant, destinationID),
			zap.Error(addError),
		)
	}
}

func (service *Service) notifyCreated(title string, destinationID string) {
	if service.eventObserver != nil {
		service.eventObserver.PageCreated(title, destinationID)
	}
}

func (service *Service) notifyUpdated(title string, destinationID string) {
	if service.eventObserver != nil {
		service.eventObserver.PageUpdated(title, destinationID)
	}
}

func (service *Service) notifySkipped(title string, reason string) {
	if service.eventObserver != nil {
		service.eventObserver.PageSkipped(title, reason)
	}
}

func (service *Service) notifyFailed(title string, failure error) {
	if service.eventObserver != nil {
		service.eventObserver.PageFailed(title, failure)
	}
}

func isFatalError(candidateError error) bool {
	var authenticationError confluence.AuthenticationError
	if errors.As(candidateError, &authenticationError) {
		return true
	}
	return errors.Is(candidateError, context.Canceled) || errors.Is(candidateError, context.DeadlineExceeded)
}
