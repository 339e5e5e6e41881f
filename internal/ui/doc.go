// Package ui renders human-readable progress events for page copy runs.
package ui
