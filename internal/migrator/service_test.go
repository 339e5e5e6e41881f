package migrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/confcopy/internal/confluence"
)

type stubSourceReader struct {
	pages      []confluence.ContentPage
	listError  error
	labels     map[string][]confluence.Label
	labelError error
}

func (reader *stubSourceReader) ListSpacePages(context.Context) ([]confluence.ContentPage, error) {
	if reader.listError != nil {
		return nil, reader.listError
	}
	return append([]confluence.ContentPage(nil), reader.pages...), nil
}

func (reader *stubSourceReader) ListLabels(_ context.Context, pageID string) ([]confluence.Label, error) {
	if reader.labelError != nil {
		return nil, reader.labelError
	}
	return reader.labels[pageID], nil
}

type destinationCall struct {
	action   string
	title    string
	body     string
	parentID string
}

const (
	destinationActionCreate = "create"
	destinationActionUpdate = "update"
)

type stubDestinationWriter struct {
	existingPages map[string]confluence.ContentPage
	createErrors  map[string]error
	updateErrors  map[string]error
	lookupErrors  map[string]error
	calls         []destinationCall
	addedLabels   map[string][]confluence.Label
	nextID        int
}

func newStubDestinationWriter() *stubDestinationWriter {
	return &stubDestinationWriter{
		existingPages: map[string]confluence.ContentPage{},
		createErrors:  map[string]error{},
		updateErrors:  map[string]error{},
		lookupErrors:  map[string]error{},
		addedLabels:   map[string][]confluence.Label{},
	}
}

func destinationLookupKey(title string, parentID string) string {
	return title + "|" + parentID
}

func (writer *stubDestinationWriter) FindPageByTitle(_ context.Context, title string, parentID string) (*confluence.ContentPage, error) {
	if lookupError, lookupErrorExists := writer.lookupErrors[title]; lookupErrorExists {
		return nil, lookupError
	}
	if existingPage, pageExists := writer.existingPages[destinationLookupKey(title, parentID)]; pageExists {
		duplicatedPage := existingPage
		return &duplicatedPage, nil
	}
	return nil, nil
}

func (writer *stubDestinationWriter) CreatePage(_ context.Context, title string, storageValue string, parentID string) (*confluence.ContentPage, error) {
	if creationError, creationErrorExists := writer.createErrors[title]; creationErrorExists {
		return nil, creationError
	}

	writer.nextID++
	createdPage := confluence.ContentPage{
		ID:      fmt.Sprintf("dst-%d", writer.nextID),
		Type:    "page",
		Title:   title,
		Version: &confluence.ContentVersion{Number: 1},
	}
	writer.existingPages[destinationLookupKey(title, parentID)] = createdPage
	writer.calls = append(writer.calls, destinationCall{
		action:   destinationActionCreate,
		title:    title,
		body:     storageValue,
		parentID: parentID,
	})
	return &createdPage, nil
}

func (writer *stubDestinationWriter) UpdatePage(_ context.Context, existingPage confluence.ContentPage, storageValue string) (*confluence.ContentPage, error) {
	if updateError, updateErrorExists := writer.updateErrors[existingPage.Title]; updateErrorExists {
		return nil, updateError
	}

	updatedPage := existingPage
	updatedPage.Version = &confluence.ContentVersion{Number: existingPage.VersionNumber() + 1}
	writer.calls = append(writer.calls, destinationCall{
		action: destinationActionUpdate,
		title:  existingPage.Title,
		body:   storageValue,
	})
	return &updatedPage, nil
}

func (writer *stubDestinationWriter) AddLabels(_ context.Context, pageID string, labels []confluence.Label) error {
	writer.addedLabels[pageID] = append(writer.addedLabels[pageID], labels...)
	return nil
}

func (writer *stubDestinationWriter) callsByAction(action string) []destinationCall {
	filteredCalls := make([]destinationCall, 0, len(writer.calls))
	for _, call := range writer.calls {
		if call.action == action {
			filteredCalls = append(filteredCalls, call)
		}
	}
	return filteredCalls
}

func threePageSource() *stubSourceReader {
	return &stubSourceReader{
		pages: []confluence.ContentPage{
			buildSourcePage("2", "Child1", "<p>one</p>", "1"),
			buildSourcePage("3", "Child2", "<p>two</p>", "1"),
			buildSourcePage("1", "Root", "<p>root</p>"),
		},
		labels: map[string][]confluence.Label{},
	}
}

func newTestService(testInstance *testing.T, source SourceReader, destination DestinationWriter) *Service {
	testInstance.Helper()

	service, serviceError := NewService(ServiceDependencies{
		Logger:      zap.NewNop(),
		Source:      source,
		Destination: destination,
	})
	require.NoError(testInstance, serviceError)
	return service
}

func TestNewServiceRequiresCollaborators(testInstance *testing.T) {
	testInstance.Parallel()

	_, missingSourceError := NewService(ServiceDependencies{Destination: newStubDestinationWriter()})
	require.Error(testInstance, missingSourceError)

	_, missingDestinationError := NewService(ServiceDependencies{Source: &stubSourceReader{}})
	require.Error(testInstance, missingDestinationError)
}

func TestServiceExecuteCopiesTreeParentsFirst(testInstance *testing.T) {
	testInstance.Parallel()

	destination := newStubDestinationWriter()
	service := newTestService(testInstance, threePageSource(), destination)

	report, executionError := service.Execute(context.Background(), MigrationOptions{ConflictPolicy: ConflictPolicyUpdate})
	require.NoError(testInstance, executionError)

	require.Len(testInstance, report.Created, 3)
	require.Empty(testInstance, report.Updated)
	require.Empty(testInstance, report.Skipped)
	require.Empty(testInstance, report.Failed)
	require.False(testInstance, report.HasFailures())

	createCalls := destination.callsByAction(destinationActionCreate)
	require.Len(testInstance, createCalls, 3)
	require.Equal(testInstance, "Root", createCalls[0].title)
	require.Equal(testInstance, "<p>root</p>", createCalls[0].body)
	require.Equal(testInstance, "", createCalls[0].parentID)

	rootDestinationID := report.Created[0].DestinationID
	require.Equal(testInstance, rootDestinationID, createCalls[1].parentID)
	require.Equal(testInstance, rootDestinationID, createCalls[2].parentID)
}

func TestServiceExecuteAbortsWhenListingFails(testInstance *testing.T) {
	testInstance.Parallel()

	source := &stubSourceReader{listError: confluence.AuthenticationError{StatusCode: 401}}
	destination := newStubDestinationWriter()
	service := newTestService(testInstance, source, destination)

	report, executionError := service.Execute(context.Background(), MigrationOptions{})
	require.Error(testInstance, executionError)

	var authenticationError confluence.AuthenticationError
	require.ErrorAs(testInstance, executionError, &authenticationError)
	require.Zero(testInstance, report.TotalCount())
	require.Empty(testInstance, destination.calls)
}

func TestServiceExecuteAbortsOnDestinationAuthenticationError(testInstance *testing.T) {
	testInstance.Parallel()

	destination := newStubDestinationWriter()
	destination.createErrors["Root"] = confluence.AuthenticationError{StatusCode: 403}
	service := newTestService(testInstance, threePageSource(), destination)

	report, executionError := service.Execute(context.Background(), MigrationOptions{})

	var authenticationError confluence.AuthenticationError
	require.ErrorAs(testInstance, executionError, &authenticationError)
	require.Zero(testInstance, report.SucceededCount())
}

func TestServiceExecuteSkipsSubtreeOfFailedParent(testInstance *testing.T) {
	testInstance.Parallel()

	destination := newStubDestinationWriter()
	destination.createErrors["Root"] = confluence.TransientError{Operation: "page creation", Attempts: 3, StatusCode: 502}
	service := newTestService(testInstance, threePageSource(), destination)

	report, executionError := service.Execute(context.Background(), MigrationOptions{})
	require.NoError(testInstance, executionError)

	require.Len(testInstance, report.Failed, 1)
	require.Equal(testInstance, "Root", report.Failed[0].Title)
	require.Len(testInstance, report.Skipped, 2)
	for _, skippedOutcome := range report.Skipped {
		require.Equal(testInstance, "parent not migrated", skippedOutcome.Reason)
	}
	require.True(testInstance, report.HasFailures())
}

func TestServiceExecuteChildFailureDoesNotAbortSiblings(testInstance *testing.T) {
	testInstance.Parallel()

	destination := newStubDestinationWriter()
	destination.createErrors["Child2"] = confluence.TransientError{Operation: "page creation", Attempts: 3, StatusCode: 503}
	service := newTestService(testInstance, threePageSource(), destination)

	report, executionError := service.Execute(context.Background(), MigrationOptions{})
	require.NoError(testInstance, executionError)

	require.Len(testInstance, report.Created, 2)
	require.Len(testInstance, report.Failed, 1)
	require.Equal(testInstance, "Child2", report.Failed[0].Title)
	require.Empty(testInstance, report.Skipped)
}

func TestServiceExecuteConflictPolicies(testInstance *testing.T) {
	testInstance.Parallel()

	testCases := []struct {
		name            string
		conflictPolicy  ConflictPolicy
		expectedAction  string
		expectedTitle   string
		expectedSkipped int
	}{
		{name: "skip_existing", conflictPolicy: ConflictPolicySkip, expectedSkipped: 1},
		{name: "update_existing", conflictPolicy: ConflictPolicyUpdate, expectedAction: destinationActionUpdate, expectedTitle: "Root"},
		{name: "append_suffix", conflictPolicy: ConflictPolicyAppendSuffix, expectedAction: destinationActionCreate, expectedTitle: "Root (copy)"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			subtest.Parallel()

			source := &stubSourceReader{
				pages:  []confluence.ContentPage{buildSourcePage("1", "Root", "<p>new root body</p>")},
				labels: map[string][]confluence.Label{},
			}
			destination := newStubDestinationWriter()
			destination.existingPages[destinationLookupKey("Root", "")] = confluence.ContentPage{
				ID:      "existing-1",
				Type:    "page",
				Title:   "Root",
				Version: &confluence.ContentVersion{Number: 5},
			}

			service := newTestService(subtest, source, destination)
			report, executionError := service.Execute(context.Background(), MigrationOptions{ConflictPolicy: testCase.conflictPolicy})
			require.NoError(subtest, executionError)
			require.False(subtest, report.HasFailures())

			if testCase.expectedSkipped > 0 {
				require.Len(subtest, report.Skipped, testCase.expectedSkipped)
				require.Equal(subtest, "already exists", report.Skipped[0].Reason)
				require.Equal(subtest, "existing-1", report.Skipped[0].DestinationID)
				require.Empty(subtest, destination.calls)
				return
			}

			require.Len(subtest, destination.calls, 1)
			require.Equal(subtest, testCase.expectedAction, destination.calls[0].action)
			require.Equal(subtest, testCase.expectedTitle, destination.calls[0].title)
			require.Equal(subtest, "<p>new root body</p>", destination.calls[0].body)
		})
	}
}

func TestServiceExecuteSecondRunUpdatesInsteadOfDuplicating(testInstance *testing.T) {
	testInstance.Parallel()

	destination := newStubDestinationWriter()
	service := newTestService(testInstance, threePageSource(), destination)
	options := MigrationOptions{ConflictPolicy: ConflictPolicyUpdate}

	firstReport, firstRunError := service.Execute(context.Background(), options)
	require.NoError(testInstance, firstRunError)
	require.Len(testInstance, firstReport.Created, 3)

	secondReport, secondRunError := service.Execute(context.Background(), options)
	require.NoError(testInstance, secondRunError)
	require.Empty(testInstance, secondReport.Created)
	require.Len(testInstance, secondReport.Updated, 3)

	require.Len(testInstance, destination.callsByAction(destinationActionCreate), 3)
	require.Len(testInstance, destination.callsByAction(destinationActionUpdate), 3)
}

func TestServiceExecuteDryRunWritesNothing(testInstance *testing.T) {
	testInstance.Parallel()

	destination := newStubDestinationWriter()
	service := newTestService(testInstance, threePageSource(), destination)

	report, executionError := service.Execute(context.Background(), MigrationOptions{
		ConflictPolicy: ConflictPolicyUpdate,
		CopyLabels:     true,
		DryRun:         true,
	})
	require.NoError(testInstance, executionError)

	require.Len(testInstance, report.Created, 3)
	require.Empty(testInstance, destination.calls)
	require.Empty(testInstance, destination.addedLabels)
}

func TestServiceExecuteCopiesLabels(testInstance *testing.T) {
	testInstance.Parallel()

	source := threePageSource()
	source.labels["1"] = []confluence.Label{{Prefix: "global", Name: "runbook"}}

	destination := newStubDestinationWriter()
	service := newTestService(testInstance, source, destination)

	report, executionError := service.Execute(context.Background(), MigrationOptions{
		ConflictPolicy: ConflictPolicyUpdate,
		CopyLabels:     true,
	})
	require.NoError(testInstance, executionError)
	require.Len(testInstance, report.Created, 3)

	rootDestinationID := report.Created[0].DestinationID
	require.Equal(testInstance, []confluence.Label{{Prefix: "global", Name: "runbook"}}, destination.addedLabels[rootDestinationID])
}

func TestServiceExecuteLabelFailureDoesNotFailPage(testInstance *testing.T) {
	testInstance.Parallel()

	source := threePageSource()
	source.labelError = confluence.StatusError{Operation: "label listing", StatusCode: 500}

	destination := newStubDestinationWriter()
	service := newTestService(testInstance, source, destination)

	report, executionError := service.Execute(context.Background(), MigrationOptions{
		ConflictPolicy: ConflictPolicyUpdate,
		CopyLabels:     true,
	})
	require.NoError(testInstance, executionError)
	require.Len(testInstance, report.Created, 3)
	require.False(testInstance, report.HasFailures())
}

func TestMigrationReportSummary(testInstance *testing.T) {
	testInstance.Parallel()

	report := MigrationReport{
		Created: []PageOutcome{{Title: "A"}, {Title: "B"}},
		Updated: []PageOutcome{{Title: "C"}},
		Skipped: []PageOutcome{{Title: "D"}},
		Failed:  []PageOutcome{{Title: "E"}},
	}

	require.Equal(testInstance, 3, report.SucceededCount())
	require.Equal(testInstance, 5, report.TotalCount())
	require.Equal(testInstance, "copied 3 of 5 pages (2 created, 1 updated), 1 skipped, 1 failed", report.Summary())
}
