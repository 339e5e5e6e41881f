package confluence

const (
	contentTypePageConstant          = "page"
	storageRepresentationConstant    = "storage"
	globalLabelPrefixConstant        = "global"
	initialContentVersionNumber      = 1
	firstUpdatedContentVersionNumber = initialContentVersionNumber + 1
)

// Credentials hold the email and API token pair used for HTTP Basic authentication.
type Credentials struct {
	Username string
	APIToken string
}

// SpaceReference identifies a Confluence space by key.
type SpaceReference struct {
	Key string `json:"key"`
}

// StorageRepresentation carries a page body in Confluence storage format.
type StorageRepresentation struct {
	Value          string `json:"value"`
	Representation string `json:"representation"`
}

// ContentBody wraps the storage representation of a page body.
type ContentBody struct {
	Storage *StorageRepresentation `json:"storage,omitempty"`
}

// ContentAncestor references a page above the current one in the hierarchy.
type ContentAncestor struct {
	ID string `json:"id"`
}

// ContentVersion records the version number of a page revision.
type ContentVersion struct {
	Number int `json:"number"`
}

// ContentPage mirrors the content resource returned by the Confluence REST API.
type ContentPage struct {
	ID        string            `json:"id,omitempty"`
	Type      string            `json:"type"`
	Status    string            `json:"status,omitempty"`
	Title     string            `json:"title"`
	Space     *SpaceReference   `json:"space,omitempty"`
	Body      *ContentBody      `json:"body,omitempty"`
	Ancestors []ContentAncestor `json:"ancestors,omitempty"`
	Version   *ContentVersion   `json:"version,omitempty"`
}

// StorageValue returns the storage-format body of the page when present.
func (page ContentPage) StorageValue() string {
	if page.Body == nil || page.Body.Storage == nil {
		return ""
	}
	return page.Body.Storage.Value
}

// DirectParentID returns the identifier of the nearest ancestor, or an empty string for space-root pages.
func (page ContentPage) DirectParentID() string {
	if len(page.Ancestors) == 0 {
		return ""
	}
	return page.Ancestors[len(page.Ancestors)-1].ID
}

// VersionNumber returns the recorded version number, defaulting to the initial version.
func (page ContentPage) VersionNumber() int {
	if page.Version == nil {
		return initialContentVersionNumber
	}
	return page.Version.Number
}

// Label describes a content label attached to a page.
type Label struct {
	Prefix string `json:"prefix"`
	Name   string `json:"name"`
}

type paginationLinks struct {
	Base string `json:"base"`
	Next string `json:"next"`
}

type contentListResponse struct {
	Results []ContentPage   `json:"results"`
	Links   paginationLinks `json:"_links"`
}

type labelListResponse struct {
	Results []Label `json:"results"`
}
