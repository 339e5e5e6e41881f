// Package cli wires the confcopy root command, configuration loading, and
// structured logging.
package cli
