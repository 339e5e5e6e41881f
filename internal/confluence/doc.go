// Package confluence implements a minimal client for the Confluence Cloud
// content REST API: cursor-paginated listings, page creation and update in
// storage format, and label management, authenticated with HTTP Basic
// email + API token credentials.
package confluence
