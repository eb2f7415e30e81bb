package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/escrow-tf/steamgc/steamlang"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const JsonContentType = "application/json"
const FormContentType = "application/x-www-form-urlencoded"

const BaseURL = "https://api.steampowered.com"

type Request interface {
	Retryable() bool
	CacheTTL() time.Duration
	RequiresApiKey() bool
	Method() string
	Path() string
	Values() (url.Values, error)
	EnsureResponseSuccess(httpResponse *http.Response) error
}

type Transport interface {
	Send(ctx context.Context, request Request, response any) error
}

type HttpTransport struct {
	baseURL     string
	webApiKey   string
	client      *http.Client
	retryClient *retryablehttp.Client
	logger      *zap.Logger
}

type HttpTransportOptions struct {
	// BaseURL defaults to BaseURL.
	BaseURL       string
	WebApiKey     string
	ResponseCache CacheAdaptor
	RetryMax      int
	Logger        *zap.Logger
}

func NewTransport(options HttpTransportOptions) *HttpTransport {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var roundTripper http.RoundTripper = cleanhttp.DefaultPooledTransport()
	if options.ResponseCache != nil {
		roundTripper = newCachingTransport(roundTripper, options.ResponseCache, logger)
	}

	httpClient := &http.Client{Transport: roundTripper}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.Logger = nil
	if options.RetryMax > 0 {
		retryClient.RetryMax = options.RetryMax
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	return &HttpTransport{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		webApiKey:   options.WebApiKey,
		client:      httpClient,
		retryClient: retryClient,
		logger:      logger,
	}
}

// Send sends a specialized HTTP Request to steam.
func (c HttpTransport) Send(ctx context.Context, request Request, response any) error {
	httpMethod := request.Method()

	requestValues, valuesErr := request.Values()
	if valuesErr != nil {
		return valuesErr
	}

	if request.RequiresApiKey() {
		if c.webApiKey == "" {
			return eris.Errorf("request to %s requires a web api key", request.Path())
		}
		if requestValues == nil {
			requestValues = make(url.Values)
		}
		requestValues.Add("key", c.webApiKey)
	}

	requestUrl := c.baseURL + request.Path()

	var httpBody io.Reader
	if requestValues != nil {
		if httpMethod == http.MethodGet {
			requestUrl += "?" + requestValues.Encode()
		} else {
			httpBody = strings.NewReader(requestValues.Encode())
		}
	}

	if ttl := request.CacheTTL(); ttl > 0 {
		ctx = ContextWithCachingTtl(ctx, ttl)
	}

	httpRequest, httpRequestErr := http.NewRequestWithContext(ctx, httpMethod, requestUrl, httpBody)
	if httpRequestErr != nil {
		return eris.Wrap(httpRequestErr, "couldn't build steam request")
	}

	httpRequest.Header.Add("Accept", JsonContentType)
	if httpMethod == http.MethodPost {
		httpRequest.Header.Add("Content-Type", FormContentType)
	}

	httpClient := c.client
	if request.Retryable() {
		httpClient = c.retryClient.StandardClient()
	}

	httpResponse, httpResponseErr := httpClient.Do(httpRequest)
	if httpResponseErr != nil {
		return eris.Wrap(httpResponseErr, "request to Steam failed")
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("error closing steam response body", zap.Error(err))
		}
	}(httpResponse.Body)

	if err := request.EnsureResponseSuccess(httpResponse); err != nil {
		return err
	}

	if err := steamlang.EnsureEResultResponse(httpResponse); err != nil {
		return err
	}

	if response != nil {
		responseBody, err := io.ReadAll(httpResponse.Body)
		if err != nil {
			return eris.Wrap(err, "couldn't read response")
		}

		if err = json.Unmarshal(responseBody, response); err != nil {
			return eris.Wrap(err, "couldn't unmarshal response")
		}
	}

	return nil
}
