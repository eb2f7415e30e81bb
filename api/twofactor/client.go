package twofactor

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/escrow-tf/steamgc/api"
	"github.com/escrow-tf/steamgc/steamlang"
	"github.com/rotisserie/eris"
)

var ErrNotAligned = eris.New("AlignTime must be called before SteamTime can be retrieved")

// Client keeps the local clock aligned with Steam's so generated guard codes land in
// the same window the platform checks.
type Client struct {
	mu        sync.RWMutex
	aligned   bool
	timeDiff  time.Duration
	now       func() time.Time
	transport api.Transport
}

func NewClient(transport api.Transport) *Client {
	return &Client{
		now:       time.Now,
		transport: transport,
	}
}

func (c *Client) SteamTime() (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.aligned {
		return time.Time{}, ErrNotAligned
	}
	return c.now().UTC().Add(c.timeDiff), nil
}

func (c *Client) AlignTime(ctx context.Context) error {
	unixNow := c.now().Unix()
	timeResponse, err := c.QueryTime(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeDiff = time.Second * time.Duration(timeResponse.Response.ServerTime-unixNow)
	c.aligned = true
	return nil
}

type QueryTimeRequest struct{}

func (q QueryTimeRequest) Retryable() bool {
	return true
}

func (q QueryTimeRequest) CacheTTL() time.Duration {
	return 0
}

func (q QueryTimeRequest) RequiresApiKey() bool {
	return false
}

func (q QueryTimeRequest) Method() string {
	return http.MethodPost
}

func (q QueryTimeRequest) Path() string {
	return "/ITwoFactorService/QueryTime/v0001"
}

func (q QueryTimeRequest) Values() (url.Values, error) {
	return url.Values{
		"steamid": []string{"0"},
	}, nil
}

func (q QueryTimeRequest) EnsureResponseSuccess(httpResponse *http.Response) error {
	return steamlang.EnsureSuccessResponse(httpResponse)
}

type QueryTimeResponse struct {
	Response struct {
		ServerTime int64 `json:"server_time,string"`
	} `json:"response"`
}

func (c *Client) QueryTime(ctx context.Context) (*QueryTimeResponse, error) {
	request := QueryTimeRequest{}
	var response QueryTimeResponse
	sendErr := c.transport.Send(ctx, request, &response)
	if sendErr != nil {
		return nil, sendErr
	}
	return &response, nil
}
