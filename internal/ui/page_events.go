package ui

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	pageCreatedMessageTemplateConstant = "CREATE %s (destination id %s)"
	pageUpdatedMessageTemplateConstant = "UPDATE %s (destination id %s)"
	pageSkippedMessageTemplateConstant = "SKIP   %s (%s)"
	pageFailedMessageTemplateConstant  = "FAIL   %s: %s"
	missingIdentifierPlaceholder       = "unknown"
	unknownFailureMessageConstant      = "unknown error"
)

// PageEventFormatter builds human-readable messages for page copy lifecycle events.
type PageEventFormatter struct{}

// BuildCreatedMessage formats the message describing a freshly created destination page.
func (formatter PageEventFormatter) BuildCreatedMessage(title string, destinationID string) string {
	return fmt.Sprintf(pageCreatedMessageTemplateConstant, title, formatter.formatIdentifier(destinationID))
}

// BuildUpdatedMessage formats the message describing an in-place update of an existing page.
func (formatter PageEventFormatter) BuildUpdatedMessage(title string, destinationID string) string {
	return fmt.Sprintf(pageUpdatedMessageTemplateConstant, title, formatter.formatIdentifier(destinationID))
}

// BuildSkippedMessage formats the message describing a page left untouched.
func (formatter PageEventFormatter) BuildSkippedMessage(title string, reason string) string {
	return fmt.Sprintf(pageSkippedMessageTemplateConstant, title, reason)
}

// BuildFailedMessage formats the message describing a page that could not be copied.
func (formatter PageEventFormatter) BuildFailedMessage(title string, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	return fmt.Sprintf(pageFailedMessageTemplateConstant, title, failureMessage)
}

func (formatter PageEventFormatter) formatIdentifier(identifier string) string {
	trimmedIdentifier := strings.TrimSpace(identifier)
	if len(trimmedIdentifier) == 0 {
		return missingIdentifierPlaceholder
	}
	return trimmedIdentifier
}

// ConsolePageEventLogger renders page copy events using a zap logger configured for human-readable output.
type ConsolePageEventLogger struct {
	logger    *zap.Logger
	formatter PageEventFormatter
}

// NewConsolePageEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsolePageEventLogger(logger *zap.Logger) *ConsolePageEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsolePageEventLogger{logger: logger, formatter: PageEventFormatter{}}
}

// PageCreated implements migrator.PageEventObserver by logging create notifications.
func (eventLogger *ConsolePageEventLogger) PageCreated(title string, destinationID string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildCreatedMessage(title, destinationID))
}

// PageUpdated implements migrator.PageEventObserver by logging update notifications.
func (eventLogger *ConsolePageEventLogger) PageUpdated(title string, destinationID string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildUpdatedMessage(title, destinationID))
}

// PageSkipped implements migrator.PageEventObserver by logging skip notifications.
func (eventLogger *ConsolePageEventLogger) PageSkipped(title string, reason string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildSkippedMessage(title, reason))
}

// PageFailed implements migrator.PageEventObserver by logging failure notifications.
func (eventLogger *ConsolePageEventLogger) PageFailed(title string, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Warn(eventLogger.formatter.BuildFailedMessage(title, failure))
}
