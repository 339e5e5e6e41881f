package migrator

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/confcopy/internal/confluence"
	"github.com/temirov/confcopy/internal/ui"
	"github.com/temirov/confcopy/internal/utils"
	"github.com/temirov/confcopy/internal/utils/flags"
)

const (
	commandUseConstant                       = "copy"
	commandShortDescriptionConstant          = "Copy every page of the source space into the destination space"
	commandLongDescriptionConstant           = "copy reads the full page tree of the configured source space and recreates it in the destination space, preserving hierarchy and storage-format bodies. Pages already present at the destination are handled according to the conflict policy."
	onConflictFlagNameConstant               = "on-conflict"
	onConflictFlagDescriptionConstant        = "Policy for destination pages that already carry a source title"
	dryRunFlagNameConstant                   = "dry-run"
	dryRunFlagUsageConstant                  = "Report planned page operations without writing to the destination"
	copyLabelsFlagNameConstant               = "copy-labels"
	copyLabelsFlagUsageConstant              = "Copy content labels together with page bodies"
	sourceClientCreationErrorTemplate        = "unable to construct source client: %w"
	destinationClientCreationErrorTemplate   = "unable to construct destination client: %w"
	serviceCreationErrorTemplateConstant     = "unable to construct copy service: %w"
	copyExecutionErrorTemplateConstant       = "space copy failed: %w"
	failedPagesErrorTemplateConstant         = "space copy completed with %d failed pages"
	copyCompletedMessageConstant             = "Space copy completed"
	logFieldSourceSpaceConstant              = "source_space"
	logFieldDestinationSpaceConstant         = "destination_space"
	logFieldCreatedCountConstant             = "created"
	logFieldUpdatedCountConstant             = "updated"
	logFieldSkippedCountConstant             = "skipped"
	logFieldFailedCountConstant              = "failed"
	logFieldDryRunConstant                   = "dry_run"
	logFieldSummaryConstant                  = "summary"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ClientFactory constructs Confluence clients from options.
type ClientFactory func(options confluence.ClientOptions) (*confluence.Client, error)

// ServiceProvider constructs a copy executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (*Service, error)

// CommandBuilder assembles the copy Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        func() CommandConfiguration
	HumanReadableLoggingProvider func() bool
	ClientFactory                ClientFactory
	ServiceProvider              ServiceProvider
}

// Build constructs the copy command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runCopy,
	}

	command.Flags().String(
		onConflictFlagNameConstant,
		string(DefaultConflictPolicy),
		flags.FormatChoiceUsage(string(DefaultConflictPolicy), ConflictPolicyNames(), onConflictFlagDescriptionConstant),
	)
	command.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagUsageConstant)
	command.Flags().Bool(copyLabelsFlagNameConstant, DefaultCommandConfiguration().CopyLabels, copyLabelsFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runCopy(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration().Sanitize()

	if command.Flags().Changed(onConflictFlagNameConstant) {
		flagValue, flagError := command.Flags().GetString(onConflictFlagNameConstant)
		if flagError != nil {
			return flagError
		}
		configuration.OnConflict = flagValue
	}

	copyLabelsEnabled := configuration.CopyLabels
	if command.Flags().Changed(copyLabelsFlagNameConstant) {
		flagValue, flagError := command.Flags().GetBool(copyLabelsFlagNameConstant)
		if flagError != nil {
			return flagError
		}
		copyLabelsEnabled = flagValue
	}

	dryRunEnabled, dryRunFlagError := command.Flags().GetBool(dryRunFlagNameConstant)
	if dryRunFlagError != nil {
		return dryRunFlagError
	}

	if validationError := configuration.Validate(); validationError != nil {
		return validationError
	}

	conflictPolicy, policyError := ParseConflictPolicy(configuration.OnConflict)
	if policyError != nil {
		return policyError
	}

	logger := builder.resolveLogger()
	clientFactory := builder.resolveClientFactory()

	sourceClient, sourceClientError := clientFactory(builder.clientOptions(configuration, configuration.Source, logger))
	if sourceClientError != nil {
		return fmt.Errorf(sourceClientCreationErrorTemplate, sourceClientError)
	}

	destinationClient, destinationClientError := clientFactory(builder.clientOptions(configuration, configuration.Destination, logger))
	if destinationClientError != nil {
		return fmt.Errorf(destinationClientCreationErrorTemplate, destinationClientError)
	}

	serviceProvider := builder.resolveServiceProvider()
	copyService, serviceError := serviceProvider(ServiceDependencies{
		Logger:        logger,
		Source:        sourceClient,
		Destination:   destinationClient,
		EventObserver: builder.resolveEventObserver(logger),
	})
	if serviceError != nil {
		return fmt.Errorf(serviceCreationErrorTemplateConstant, serviceError)
	}

	report, executionError := copyService.Execute(command.Context(), MigrationOptions{
		ConflictPolicy: conflictPolicy,
		CopyLabels:     copyLabelsEnabled,
		DryRun:         dryRunEnabled,
	})
	if executionError != nil {
		return fmt.Errorf(copyExecutionErrorTemplateConstant, executionError)
	}

	logger.Info(
		copyCompletedMessageConstant,
		zap.String(logFieldSourceSpaceConstant, configuration.Source.SpaceKey),
		zap.String(logFieldDestinationSpaceConstant, configuration.Destination.SpaceKey),
		zap.Int(logFieldCreatedCountConstant, len(report.Created)),
		zap.Int(logFieldUpdatedCountConstant, len(report.Updated)),
		zap.Int(logFieldSkippedCountConstant, len(report.Skipped)),
		zap.Int(logFieldFailedCountConstant, len(report.Failed)),
		zap.Bool(logFieldDryRunConstant, dryRunEnabled),
		zap.String(logFieldSummaryConstant, report.Summary()),
	)

	fmt.Fprintln(utils.NewFlushingWriter(command.OutOrStdout()), report.Summary())

	if report.HasFailures() {
		return fmt.Errorf(failedPagesErrorTemplateConstant, len(report.Failed))
	}

	return nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider != nil {
		return builder.ConfigurationProvider()
	}
	return DefaultCommandConfiguration()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if providedLogger := builder.LoggerProvider(); providedLogger != nil {
			return providedLogger
		}
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) resolveClientFactory() ClientFactory {
	if builder.ClientFactory != nil {
		return builder.ClientFactory
	}
	return confluence.NewClient
}

func (builder *CommandBuilder) resolveServiceProvider() ServiceProvider {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider
	}
	return NewService
}

func (builder *CommandBuilder) resolveEventObserver(logger *zap.Logger) PageEventObserver {
	if builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider() {
		return ui.NewConsolePageEventLogger(logger)
	}
	return nil
}

func (builder *CommandBuilder) clientOptions(configuration CommandConfiguration, instance InstanceConfiguration, logger *zap.Logger) confluence.ClientOptions {
	return confluence.ClientOptions{
		BaseURL:  instance.BaseURL,
		SpaceKey: instance.SpaceKey,
		Credentials: confluence.Credentials{
			Username: instance.Username,
			APIToken: instance.APIToken,
		},
		PageLimit:      configuration.PageLimit,
		RetryMax:       configuration.RetryMax,
		RetryBaseWait:  time.Duration(configuration.RetryBaseWaitSeconds * float64(time.Second)),
		RequestTimeout: time.Duration(configuration.RequestTimeoutSeconds) * time.Second,
		Logger:         logger,
	}
}
