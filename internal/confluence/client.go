package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPageLimitConstant      = 200
	defaultRetryMaxConstant       = 6
	defaultRetryBaseWaitConstant  = 2 * time.Second
	defaultRequestTimeoutConstant = 60 * time.Second

	contentEndpointPathConstant      = "/rest/api/content"
	contentItemEndpointPathTemplate  = "/rest/api/content/%s"
	labelEndpointPathTemplate        = "/rest/api/content/%s/label"
	listingExpandFieldsConstant      = "body.storage,ancestors,version"
	lookupExpandFieldsConstant       = "ancestors,version"
	contentTypeQueryParameterName    = "type"
	spaceKeyQueryParameterName       = "spaceKey"
	titleQueryParameterName          = "title"
	expandQueryParameterName         = "expand"
	limitQueryParameterName          = "limit"
	queryStringSeparatorConstant     = "?"
	trailingSlashCutSetConstant      = "/"
	acceptHeaderNameConstant         = "Accept"
	contentTypeHeaderNameConstant    = "Content-Type"
	retryAfterHeaderNameConstant     = "Retry-After"
	jsonContentTypeConstant          = "application/json"
	operationListPagesConstant       = "page listing"
	operationFindPageConstant        = "page lookup"
	operationCreatePageConstant      = "page creation"
	operationUpdatePageConstant      = "page update"
	operationListLabelsConstant      = "label listing"
	operationAddLabelsConstant       = "label creation"
	baseURLRequiredMessageConstant   = "confluence base URL is required"
	spaceKeyRequiredMessageConstant  = "confluence space key is required"
	usernameRequiredMessageConstant  = "confluence username is required"
	apiTokenRequiredMessageConstant  = "confluence API token is required"
	requestBuildErrorTemplate        = "unable to build %s request: %w"
	payloadEncodeErrorTemplate       = "unable to encode %s payload: %w"
	responseDecodeErrorTemplate      = "unable to decode %s response: %w"
	retryDelayLogMessageConstant     = "Confluence requested a retry delay"
	retryAttemptLogMessageConstant   = "Retrying Confluence request"
	logFieldOperationConstant        = "operation"
	logFieldAttemptConstant          = "attempt"
	logFieldDelayConstant            = "delay"
	logFieldStatusCodeConstant       = "status_code"
)

var (
	errBaseURLRequired  = errors.New(baseURLRequiredMessageConstant)
	errSpaceKeyRequired = errors.New(spaceKeyRequiredMessageConstant)
	errUsernameRequired = errors.New(usernameRequiredMessageConstant)
	errAPITokenRequired = errors.New(apiTokenRequiredMessageConstant)
)

// ClientOptions configures a Client for one Confluence instance and space.
type ClientOptions struct {
	BaseURL        string
	SpaceKey       string
	Credentials    Credentials
	PageLimit      int
	RetryMax       int
	RetryBaseWait  time.Duration
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// Client talks to a single Confluence Cloud instance scoped to one space.
type Client struct {
	baseURL       string
	spaceKey      string
	credentials   Credentials
	pageLimit     int
	retryMax      int
	retryBaseWait time.Duration
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewClient validates the provided options and constructs a Client.
func NewClient(options ClientOptions) (*Client, error) {
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(options.BaseURL), trailingSlashCutSetConstant)
	if len(trimmedBaseURL) == 0 {
		return nil, errBaseURLRequired
	}
	trimmedSpaceKey := strings.TrimSpace(options.SpaceKey)
	if len(trimmedSpaceKey) == 0 {
		return nil, errSpaceKeyRequired
	}
	if len(strings.TrimSpace(options.Credentials.Username)) == 0 {
		return nil, errUsernameRequired
	}
	if len(strings.TrimSpace(options.Credentials.APIToken)) == 0 {
		return nil, errAPITokenRequired
	}

	pageLimit := options.PageLimit
	if pageLimit <= 0 {
		pageLimit = defaultPageLimitConstant
	}
	retryMax := options.RetryMax
	if retryMax <= 0 {
		retryMax = defaultRetryMaxConstant
	}
	retryBaseWait := options.RetryBaseWait
	if retryBaseWait <= 0 {
		retryBaseWait = defaultRetryBaseWaitConstant
	}
	requestTimeout := options.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeoutConstant
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := &Client{
		baseURL:       trimmedBaseURL,
		spaceKey:      trimmedSpaceKey,
		credentials:   options.Credentials,
		pageLimit:     pageLimit,
		retryMax:      retryMax,
		retryBaseWait: retryBaseWait,
		httpClient:    httpClient,
		logger:        logger,
	}

	return client, nil
}

// SpaceKey returns the space key the client is scoped to.
func (client *Client) SpaceKey() string {
	return client.spaceKey
}

// BaseURL returns the normalized base URL of the instance.
func (client *Client) BaseURL() string {
	return client.baseURL
}

// ListSpacePages fetches every page of the space, following pagination cursors until exhausted.
func (client *Client) ListSpacePages(requestContext context.Context) ([]ContentPage, error) {
	queryValues := url.Values{}
	queryValues.Set(contentTypeQueryParameterName, contentTypePageConstant)
	queryValues.Set(spaceKeyQueryParameterName, client.spaceKey)
	queryValues.Set(expandQueryParameterName, listingExpandFieldsConstant)
	queryValues.Set(limitQueryParameterName, strconv.Itoa(client.pageLimit))

	requestURL := client.baseURL + contentEndpointPathConstant + queryStringSeparatorConstant + queryValues.Encode()

	var collectedPages []ContentPage
	for len(requestURL) > 0 {
		response, requestError := client.executeWithRetry(requestContext, operationListPagesConstant, http.MethodGet, requestURL, nil)
		if requestError != nil {
			return nil, requestError
		}

		switch {
		case isAuthenticationStatus(response.StatusCode):
			drainAndClose(response)
			return nil, AuthenticationError{StatusCode: response.StatusCode}
		case response.StatusCode == http.StatusNotFound:
			drainAndClose(response)
			return nil, SpaceNotFoundError{SpaceKey: client.spaceKey, BaseURL: client.baseURL}
		case response.StatusCode != http.StatusOK:
			statusCode := response.StatusCode
			drainAndClose(response)
			return nil, StatusError{Operation: operationListPagesConstant, StatusCode: statusCode}
		}

		var listResponse contentListResponse
		if decodeError := decodeResponse(operationListPagesConstant, response, &listResponse); decodeError != nil {
			return nil, decodeError
		}

		collectedPages = append(collectedPages, listResponse.Results...)
		requestURL = client.nextPageURL(listResponse.Links)
	}

	return collectedPages, nil
}

// FindPageByTitle locates an existing page with the given title whose direct parent matches parentID.
// An empty parentID matches space-root pages. A nil page with a nil error means no match exists.
func (client *Client) FindPageByTitle(requestContext context.Context, title string, parentID string) (*ContentPage, error) {
	queryValues := url.Values{}
	queryValues.Set(contentTypeQueryParameterName, contentTypePageConstant)
	queryValues.Set(spaceKeyQueryParameterName, client.spaceKey)
	queryValues.Set(titleQueryParameterName, title)
	queryValues.Set(expandQueryParameterName, lookupExpandFieldsConstant)

	requestURL := client.baseURL + contentEndpointPathConstant + queryStringSeparatorConstant + queryValues.Encode()

	response, requestError := client.executeWithRetry(requestContext, operationFindPageConstant, http.MethodGet, requestURL, nil)
	if requestError != nil {
		return nil, requestError
	}

	if isAuthenticationStatus(response.StatusCode) {
		drainAndClose(response)
		return nil, AuthenticationError{StatusCode: response.StatusCode}
	}
	if response.StatusCode != http.StatusOK {
		drainAndClose(response)
		return nil, nil
	}

	var listResponse contentListResponse
	if decodeError := decodeResponse(operationFindPageConstant, response, &listResponse); decodeError != nil {
		return nil, decodeError
	}

	for candidateIndex := range listResponse.Results {
		candidatePage := listResponse.Results[candidateIndex]
		if candidatePage.DirectParentID() == parentID {
			return &candidatePage, nil
		}
	}

	return nil, nil
}

// CreatePage creates a page in the space, attached under parentID when provided.
func (client *Client) CreatePage(requestContext context.Context, title string, storageValue string, parentID string) (*ContentPage, error) {
	pagePayload := ContentPage{
		Type:  contentTypePageConstant,
		Title: title,
		Space: &SpaceReference{Key: client.spaceKey},
		Body: &ContentBody{
			Storage: &StorageRepresentation{Value: storageValue, Representation: storageRepresentationConstant},
		},
	}
	if len(parentID) > 0 {
		pagePayload.Ancestors = []ContentAncestor{{ID: parentID}}
	}

	encodedPayload, encodeError := json.Marshal(pagePayload)
	if encodeError != nil {
		return nil, fmt.Errorf(payloadEncodeErrorTemplate, operationCreatePageConstant, encodeError)
	}

	requestURL := client.baseURL + contentEndpointPathConstant
	response, requestError := client.executeWithRetry(requestContext, operationCreatePageConstant, http.MethodPost, requestURL, encodedPayload)
	if requestError != nil {
		return nil, requestError
	}

	switch {
	case isAuthenticationStatus(response.StatusCode):
		drainAndClose(response)
		return nil, AuthenticationError{StatusCode: response.StatusCode}
	case response.StatusCode == http.StatusBadRequest || response.StatusCode == http.StatusConflict:
		statusCode := response.StatusCode
		drainAndClose(response)
		return nil, TitleConflictError{Title: title, StatusCode: statusCode}
	case response.StatusCode != http.StatusOK:
		statusCode := response.StatusCode
		drainAndClose(response)
		return nil, StatusError{Operation: operationCreatePageConstant, StatusCode: statusCode}
	}

	var createdPage ContentPage
	if decodeError := decodeResponse(operationCreatePageConstant, response, &createdPage); decodeError != nil {
		return nil, decodeError
	}

	return &createdPage, nil
}

// UpdatePage replaces the body of an existing page, bumping its version number.
func (client *Client) UpdatePage(requestContext context.Context, existingPage ContentPage, storageValue string) (*ContentPage, error) {
	pagePayload := ContentPage{
		ID:    existingPage.ID,
		Type:  contentTypePageConstant,
		Title: existingPage.Title,
		Space: &SpaceReference{Key: client.spaceKey},
		Body: &ContentBody{
			Storage: &StorageRepresentation{Value: storageValue, Representation: storageRepresentationConstant},
		},
		Version: &ContentVersion{Number: existingPage.VersionNumber() + 1},
	}

	encodedPayload, encodeError := json.Marshal(pagePayload)
	if encodeError != nil {
		return nil, fmt.Errorf(payloadEncodeErrorTemplate, operationUpdatePageConstant, encodeError)
	}

	requestURL := client.baseURL + fmt.Sprintf(contentItemEndpointPathTemplate, existingPage.ID)
	response, requestError := client.executeWithRetry(requestContext, operationUpdatePageConstant, http.MethodPut, requestURL, encodedPayload)
	if requestError != nil {
		return nil, requestError
	}

	switch {
	case isAuthenticationStatus(response.StatusCode):
		drainAndClose(response)
		return nil, AuthenticationError{StatusCode: response.StatusCode}
	case response.StatusCode != http.StatusOK:
		statusCode := response.StatusCode
		drainAndClose(response)
		return nil, StatusError{Operation: operationUpdatePageConstant, StatusCode: statusCode}
	}

	var updatedPage ContentPage
	if decodeError := decodeResponse(operationUpdatePageConstant, response, &updatedPage); decodeError != nil {
		return nil, decodeError
	}

	return &updatedPage, nil
}

// ListLabels fetches the labels attached to a page.
func (client *Client) ListLabels(requestContext context.Context, pageID string) ([]Label, error) {
	requestURL := client.baseURL + fmt.Sprintf(labelEndpointPathTemplate, pageID)
	response, requestError := client.executeWithRetry(requestContext, operationListLabelsConstant, http.MethodGet, requestURL, nil)
	if requestError != nil {
		return nil, requestError
	}

	switch {
	case isAuthenticationStatus(response.StatusCode):
		drainAndClose(response)
		return nil, AuthenticationError{StatusCode: response.StatusCode}
	case response.StatusCode != http.StatusOK:
		statusCode := response.StatusCode
		drainAndClose(response)
		return nil, StatusError{Operation: operationListLabelsConstant, StatusCode: statusCode}
	}

	var labelResponse labelListResponse
	if decodeError := decodeResponse(operationListLabelsConstant, response, &labelResponse); decodeError != nil {
		return nil, decodeError
	}

	return labelResponse.Results, nil
}

// AddLabels attaches the provided labels to a page, defaulting missing prefixes to global.
func (client *Client) AddLabels(requestContext context.Context, pageID string, labels []Label) error {
	if len(labels) == 0 {
		return nil
	}

	normalizedLabels := make([]Label, 0, len(labels))
	for _, label := range labels {
		if len(strings.TrimSpace(label.Name)) == 0 {
			continue
		}
		normalizedLabel := label
		if len(strings.TrimSpace(normalizedLabel.Prefix)) == 0 {
			normalizedLabel.Prefix = globalLabelPrefixConstant
		}
		normalizedLabels = append(normalizedLabels, normalizedLabel)
	}
	if len(normalizedLabels) == 0 {
		return nil
	}

	encodedPayload, encodeError := json.Marshal(normalizedLabels)
	if encodeError != nil {
		return fmt.Errorf(payloadEncodeErrorTemplate, operationAddLabelsConstant, encodeError)
	}

	requestURL := client.baseURL + fmt.Sprintf(labelEndpointPathTemplate, pageID)
	response, requestError := client.executeWithRetry(requestContext, operationAddLabelsConstant, http.MethodPost, requestURL, encodedPayload)
	if requestError != nil {
		return requestError
	}

	statusCode := response.StatusCode
	drainAndClose(response)

	if isAuthenticationStatus(statusCode) {
		return AuthenticationError{StatusCode: statusCode}
	}
	if statusCode != http.StatusOK {
		return StatusError{Operation: operationAddLabelsConstant, StatusCode: statusCode}
	}

	return nil
}

func (client *Client) nextPageURL(links paginationLinks) string {
	if len(links.Next) == 0 {
		return ""
	}
	if len(links.Base) > 0 {
		return strings.TrimRight(links.Base, trailingSlashCutSetConstant) + links.Next
	}
	return client.baseURL + links.Next
}

func (client *Client) executeWithRetry(requestContext context.Context, operation string, method string, requestURL string, payload []byte) (*http.Response, error) {
	for attempt := 1; attempt <= client.retryMax; attempt++ {
		var requestBody io.Reader
		if payload != nil {
			requestBody = bytes.NewReader(payload)
		}

		request, buildError := http.NewRequestWithContext(requestContext, method, requestURL, requestBody)
		if buildError != nil {
			return nil, fmt.Errorf(requestBuildErrorTemplate, operation, buildError)
		}
		request.SetBasicAuth(client.credentials.Username, client.credentials.APIToken)
		request.Header.Set(acceptHeaderNameConstant, jsonContentTypeConstant)
		if payload != nil {
			request.Header.Set(contentTypeHeaderNameConstant, jsonContentTypeConstant)
		}

		response, requestError := client.httpClient.Do(request)
		if requestError != nil {
			if contextError := requestContext.Err(); contextError != nil {
				return nil, contextError
			}
			if attempt == client.retryMax {
				return nil, TransientError{Operation: operation, Attempts: attempt, Cause: requestError}
			}
			if waitError := client.waitBeforeRetry(requestContext, client.backoffDelay(attempt)); waitError != nil {
				return nil, waitError
			}
			continue
		}

		if response.StatusCode == http.StatusTooManyRequests {
			retryDelay := client.retryAfterDelay(response, attempt)
			drainAndClose(response)
			if attempt == client.retryMax {
				return nil, TransientError{Operation: operation, Attempts: attempt, StatusCode: http.StatusTooManyRequests}
			}
			client.logger.Debug(
				retryDelayLogMessageConstant,
				zap.String(logFieldOperationConstant, operation),
				zap.Duration(logFieldDelayConstant, retryDelay),
			)
			if waitError := client.waitBeforeRetry(requestContext, retryDelay); waitError != nil {
				return nil, waitError
			}
			continue
		}

		if response.StatusCode >= http.StatusInternalServerError {
			statusCode := response.StatusCode
			drainAndClose(response)
			if attempt == client.retryMax {
				return nil, TransientError{Operation: operation, Attempts: attempt, StatusCode: statusCode}
			}
			client.logger.Debug(
				retryAttemptLogMessageConstant,
				zap.String(logFieldOperationConstant, operation),
				zap.Int(logFieldAttemptConstant, attempt),
				zap.Int(logFieldStatusCodeConstant, statusCode),
			)
			if waitError := client.waitBeforeRetry(requestContext, client.backoffDelay(attempt)); waitError != nil {
				return nil, waitError
			}
			continue
		}

		return response, nil
	}

	return nil, TransientError{Operation: operation, Attempts: client.retryMax}
}

func (client *Client) backoffDelay(attempt int) time.Duration {
	return client.retryBaseWait * time.Duration(1<<(attempt-1))
}

func (client *Client) retryAfterDelay(response *http.Response, attempt int) time.Duration {
	headerValue := strings.TrimSpace(response.Header.Get(retryAfterHeaderNameConstant))
	if len(headerValue) > 0 {
		if parsedSeconds, parseError := strconv.ParseFloat(headerValue, 64); parseError == nil && parsedSeconds >= 0 {
			return time.Duration(parsedSeconds * float64(time.Second))
		}
	}
	return client.backoffDelay(attempt)
}

func (client *Client) waitBeforeRetry(requestContext context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	delayTimer := time.NewTimer(delay)
	defer delayTimer.Stop()

	select {
	case <-requestContext.Done():
		return requestContext.Err()
	case <-delayTimer.C:
		return nil
	}
}

func decodeResponse(operation string, response *http.Response, target any) error {
	defer drainAndClose(response)

	if decodeError := json.NewDecoder(response.Body).Decode(target); decodeError != nil {
		return fmt.Errorf(responseDecodeErrorTemplate, operation, decodeError)
	}
	return nil
}

func drainAndClose(response *http.Response) {
	if response == nil || response.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, response.Body)
	_ = response.Body.Close()
}
