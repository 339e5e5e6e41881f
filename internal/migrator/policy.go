package migrator

import (
	"fmt"
	"strings"
)

const (
	conflictPolicySkipStringConstant         = "skip"
	conflictPolicyUpdateStringConstant       = "update"
	conflictPolicyAppendSuffixStringConstant = "append-suffix"
	unsupportedConflictPolicyTemplate        = "unsupported conflict policy: %q (expected %s)"
	conflictPolicyListSeparatorConstant      = ", "
	duplicateTitleSuffixConstant             = " (copy)"
)

// ConflictPolicy selects how to handle a destination page that already carries the source title under the same parent.
type ConflictPolicy string

// Supported conflict policies.
const (
	ConflictPolicySkip         ConflictPolicy = ConflictPolicy(conflictPolicySkipStringConstant)
	ConflictPolicyUpdate       ConflictPolicy = ConflictPolicy(conflictPolicyUpdateStringConstant)
	ConflictPolicyAppendSuffix ConflictPolicy = ConflictPolicy(conflictPolicyAppendSuffixStringConstant)
)

// DefaultConflictPolicy is applied when configuration does not select one.
const DefaultConflictPolicy = ConflictPolicyUpdate

var orderedConflictPolicies = []ConflictPolicy{
	ConflictPolicySkip,
	ConflictPolicyUpdate,
	ConflictPolicyAppendSuffix,
}

// ConflictPolicyNames lists the accepted configuration values.
func ConflictPolicyNames() []string {
	names := make([]string, 0, len(orderedConflictPolicies))
	for _, policy := range orderedConflictPolicies {
		names = append(names, string(policy))
	}
	return names
}

// ParseConflictPolicy normalizes and validates a configured conflict policy value.
func ParseConflictPolicy(policyValue string) (ConflictPolicy, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(policyValue))
	if len(normalizedValue) == 0 {
		return DefaultConflictPolicy, nil
	}

	for _, policy := range orderedConflictPolicies {
		if normalizedValue == string(policy) {
			return policy, nil
		}
	}

	return "", fmt.Errorf(
		unsupportedConflictPolicyTemplate,
		policyValue,
		strings.Join(ConflictPolicyNames(), conflictPolicyListSeparatorConstant),
	)
}

// SuffixedTitle returns the title used when creating a duplicate under the append-suffix policy.
func SuffixedTitle(title string) string {
	return title + duplicateTitleSuffixConstant
}
