// Package utils provides shared configuration loading, logging, and output
// helpers used across confcopy commands.
package utils
