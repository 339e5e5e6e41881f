package migrator

import (
	"errors"
	"fmt"
	"strings"
)

const (
	configurationKeySeparatorConstant          = "."
	onConflictConfigurationKeyConstant         = "on_conflict"
	copyLabelsConfigurationKeyConstant         = "copy_labels"
	pageLimitConfigurationKeyConstant          = "page_limit"
	retryMaxConfigurationKeyConstant           = "retry_max"
	retryBaseWaitConfigurationKeyConstant      = "retry_base_wait_seconds"
	requestTimeoutConfigurationKeyConstant     = "request_timeout_seconds"
	defaultPageLimitConfigurationConstant      = 200
	defaultRetryMaxConfigurationConstant       = 6
	defaultRetryBaseWaitSecondsConstant        = 2.0
	defaultRequestTimeoutSecondsConstant       = 60
	missingInstanceFieldMessageTemplate        = "%s.%s must be configured"
	sourceInstanceNameConstant                 = "source"
	destinationInstanceNameConstant            = "destination"
	baseURLFieldNameConstant                   = "base_url"
	spaceKeyFieldNameConstant                  = "space_key"
	usernameFieldNameConstant                  = "username"
	apiTokenFieldNameConstant                  = "api_token"
	identicalInstancesMessageConstant          = "source and destination must not point at the same space"
)

// InstanceConfiguration captures the connection settings for one Confluence instance.
type InstanceConfiguration struct {
	BaseURL  string `mapstructure:"base_url"`
	SpaceKey string `mapstructure:"space_key"`
	Username string `mapstructure:"username"`
	APIToken string `mapstructure:"api_token"`
}

func (configuration InstanceConfiguration) sanitize() InstanceConfiguration {
	sanitized := configuration
	sanitized.BaseURL = strings.TrimSpace(configuration.BaseURL)
	sanitized.SpaceKey = strings.TrimSpace(configuration.SpaceKey)
	sanitized.Username = strings.TrimSpace(configuration.Username)
	sanitized.APIToken = strings.TrimSpace(configuration.APIToken)
	return sanitized
}

func (configuration InstanceConfiguration) validate(instanceName string) error {
	if len(configuration.BaseURL) == 0 {
		return fmt.Errorf(missingInstanceFieldMessageTemplate, instanceName, baseURLFieldNameConstant)
	}
	if len(configuration.SpaceKey) == 0 {
		return fmt.Errorf(missingInstanceFieldMessageTemplate, instanceName, spaceKeyFieldNameConstant)
	}
	if len(configuration.Username) == 0 {
		return fmt.Errorf(missingInstanceFieldMessageTemplate, instanceName, usernameFieldNameConstant)
	}
	if len(configuration.APIToken) == 0 {
		return fmt.Errorf(missingInstanceFieldMessageTemplate, instanceName, apiTokenFieldNameConstant)
	}
	return nil
}

// CommandConfiguration captures persisted configuration for the copy command.
type CommandConfiguration struct {
	Source                InstanceConfiguration `mapstructure:"source"`
	Destination           InstanceConfiguration `mapstructure:"destination"`
	OnConflict            string                `mapstructure:"on_conflict"`
	CopyLabels            bool                  `mapstructure:"copy_labels"`
	PageLimit             int                   `mapstructure:"page_limit"`
	RetryMax              int                   `mapstructure:"retry_max"`
	RetryBaseWaitSeconds  float64               `mapstructure:"retry_base_wait_seconds"`
	RequestTimeoutSeconds int                   `mapstructure:"request_timeout_seconds"`
}

// DefaultCommandConfiguration returns baseline configuration values for the copy command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		OnConflict:            string(DefaultConflictPolicy),
		CopyLabels:            true,
		PageLimit:             defaultPageLimitConfigurationConstant,
		RetryMax:              defaultRetryMaxConfigurationConstant,
		RetryBaseWaitSeconds:  defaultRetryBaseWaitSecondsConstant,
		RequestTimeoutSeconds: defaultRequestTimeoutSecondsConstant,
	}
}

// DefaultConfigurationValues exposes default values keyed for the configuration loader.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKeyPrefix + configurationKeySeparatorConstant + onConflictConfigurationKeyConstant:     defaults.OnConflict,
		configurationKeyPrefix + configurationKeySeparatorConstant + copyLabelsConfigurationKeyConstant:     defaults.CopyLabels,
		configurationKeyPrefix + configurationKeySeparatorConstant + pageLimitConfigurationKeyConstant:      defaults.PageLimit,
		configurationKeyPrefix + configurationKeySeparatorConstant + retryMaxConfigurationKeyConstant:       defaults.RetryMax,
		configurationKeyPrefix + configurationKeySeparatorConstant + retryBaseWaitConfigurationKeyConstant:  defaults.RetryBaseWaitSeconds,
		configurationKeyPrefix + configurationKeySeparatorConstant + requestTimeoutConfigurationKeyConstant: defaults.RequestTimeoutSeconds,
	}
}

// Sanitize trims configured values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Source = configuration.Source.sanitize()
	sanitized.Destination = configuration.Destination.sanitize()
	sanitized.OnConflict = strings.TrimSpace(configuration.OnConflict)
	return sanitized
}

// Validate confirms both instances are fully configured and distinct.
func (configuration CommandConfiguration) Validate() error {
	if validationError := configuration.Source.validate(sourceInstanceNameConstant); validationError != nil {
		return validationError
	}
	if validationError := configuration.Destination.validate(destinationInstanceNameConstant); validationError != nil {
		return validationError
	}
	if strings.EqualFold(configuration.Source.BaseURL, configuration.Destination.BaseURL) &&
		strings.EqualFold(configuration.Source.SpaceKey, configuration.Destination.SpaceKey) {
		return errors.New(identicalInstancesMessageConstant)
	}
	if _, policyError := ParseConflictPolicy(configuration.OnConflict); policyError != nil {
		return policyError
	}
	return nil
}
