package ui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPageEventFormatterMessages(testInstance *testing.T) {
	testInstance.Parallel()

	formatter := PageEventFormatter{}

	testCases := []struct {
		name            string
		buildMessage    func() string
		expectedMessage string
	}{
		{
			name:            "created",
			buildMessage:    func() string { return formatter.BuildCreatedMessage("Release Notes", "98306") },
			expectedMessage: "CREATE Release Notes (destination id 98306)",
		},
		{
			name:            "created_without_identifier",
			buildMessage:    func() string { return formatter.BuildCreatedMessage("Release Notes", "  ") },
			expectedMessage: "CREATE Release Notes (destination id unknown)",
		},
		{
			name:            "updated",
			buildMessage:    func() string { return formatter.BuildUpdatedMessage("Runbook", "204") },
			expectedMessage: "UPDATE Runbook (destination id 204)",
		},
		{
			name:            "skipped",
			buildMessage:    func() string { return formatter.BuildSkippedMessage("Runbook", "already exists") },
			expectedMessage: "SKIP   Runbook (already exists)",
		},
		{
			name:            "failed",
			buildMessage:    func() string { return formatter.BuildFailedMessage("Runbook", errors.New("request timed out")) },
			expectedMessage: "FAIL   Runbook: request timed out",
		},
		{
			name:            "failed_without_error",
			buildMessage:    func() string { return formatter.BuildFailedMessage("Runbook", nil) },
			expectedMessage: "FAIL   Runbook: unknown error",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			subtest.Parallel()

			require.Equal(subtest, testCase.expectedMessage, testCase.buildMessage())
		})
	}
}

func TestConsolePageEventLoggerLogsLifecycleEvents(testInstance *testing.T) {
	testInstance.Parallel()

	observedCore, observedLogs := observer.New(zapcore.InfoLevel)
	eventLogger := NewConsolePageEventLogger(zap.New(observedCore))

	eventLogger.PageCreated("Root", "dst-1")
	eventLogger.PageUpdated("Child", "dst-2")
	eventLogger.PageSkipped("Grandchild", "parent not migrated")
	eventLogger.PageFailed("Orphan", errors.New("server error"))

	loggedEntries := observedLogs.All()
	require.Len(testInstance, loggedEntries, 4)

	require.Equal(testInstance, zapcore.InfoLevel, loggedEntries[0].Level)
	require.Equal(testInstance, "CREATE Root (destination id dst-1)", loggedEntries[0].Message)

	require.Equal(testInstance, zapcore.InfoLevel, loggedEntries[1].Level)
	require.Equal(testInstance, "UPDATE Child (destination id dst-2)", loggedEntries[1].Message)

	require.Equal(testInstance, zapcore.InfoLevel, loggedEntries[2].Level)
	require.Equal(testInstance, "SKIP   Grandchild (parent not migrated)", loggedEntries[2].Message)

	require.Equal(testInstance, zapcore.WarnLevel, loggedEntries[3].Level)
	require.Equal(testInstance, "FAIL   Orphan: server error", loggedEntries[3].Message)
}

func TestNewConsolePageEventLoggerToleratesNilLogger(testInstance *testing.T) {
	testInstance.Parallel()

	eventLogger := NewConsolePageEventLogger(nil)
	require.NotNil(testInstance, eventLogger)

	eventLogger.PageCreated("Root", "dst-1")
	eventLogger.PageFailed("Root", nil)
}
