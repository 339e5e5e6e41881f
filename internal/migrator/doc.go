// Package migrator copies the page tree of one Confluence space into another,
// walking parents before children and applying a configurable title-conflict
// policy at the destination.
package migrator
