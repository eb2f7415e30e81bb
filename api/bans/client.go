package bans

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/escrow-tf/steamgc/api"
	"github.com/escrow-tf/steamgc/steamid"
	"github.com/escrow-tf/steamgc/steamlang"
	"github.com/rotisserie/eris"
)

var ErrPlayerNotFound = eris.New("steam returned no ban record for player")

type Client struct {
	transport api.Transport
	cacheTTL  time.Duration
}

func NewClient(transport api.Transport, cacheTTL time.Duration) *Client {
	return &Client{transport: transport, cacheTTL: cacheTTL}
}

type PlayerBansRequest struct {
	steamIDs []steamid.SteamID
	cacheTTL time.Duration
}

func (r PlayerBansRequest) Retryable() bool {
	return true
}

func (r PlayerBansRequest) CacheTTL() time.Duration {
	return r.cacheTTL
}

func (r PlayerBansRequest) RequiresApiKey() bool {
	return true
}

func (r PlayerBansRequest) Method() string {
	return http.MethodGet
}

func (r PlayerBansRequest) Path() string {
	return "/ISteamUser/GetPlayerBans/v1/"
}

func (r PlayerBansRequest) Values() (url.Values, error) {
	ids := make([]string, len(r.steamIDs))
	for i, id := range r.steamIDs {
		ids[i] = id.String()
	}

	values := make(url.Values)
	values.Add("steamids", strings.Join(ids, ","))
	return values, nil
}

func (r PlayerBansRequest) EnsureResponseSuccess(httpResponse *http.Response) error {
	return steamlang.EnsureSuccessResponse(httpResponse)
}

type PlayerBansResponse struct {
	Players []struct {
		SteamId          string `json:"SteamId"`
		CommunityBanned  bool   `json:"CommunityBanned"`
		VACBanned        bool   `json:"VACBanned"`
		NumberOfVACBans  int    `json:"NumberOfVACBans"`
		DaysSinceLastBan int    `json:"DaysSinceLastBan"`
		NumberOfGameBans int    `json:"NumberOfGameBans"`
		EconomyBan       string `json:"EconomyBan"`
	} `json:"players"`
}

// Summary is the ban record of a single player.
type Summary struct {
	SteamID          steamid.SteamID
	VACBanned        bool
	VACBanCount      int
	GameBanCount     int
	DaysSinceLastBan int
	CommunityBanned  bool
}

// Banned reports whether the player carries a VAC or game ban.
func (s Summary) Banned() bool {
	return s.VACBanned || s.GameBanCount > 0
}

func (c Client) Lookup(ctx context.Context, steamID steamid.SteamID) (Summary, error) {
	if !steamID.IsValidIndividual() {
		return Summary{}, eris.Errorf("steamID is not valid individual: %v", steamID.String())
	}

	request := PlayerBansRequest{steamIDs: []steamid.SteamID{steamID}, cacheTTL: c.cacheTTL}
	var response PlayerBansResponse
	if err := c.transport.Send(ctx, request, &response); err != nil {
		return Summary{}, eris.Wrapf(err, "GetPlayerBans failed for %s", steamID.String())
	}

	for _, player := range response.Players {
		if player.SteamId != steamID.String() {
			continue
		}

		return Summary{
			SteamID:          steamID,
			VACBanned:        player.VACBanned,
			VACBanCount:      player.NumberOfVACBans,
			GameBanCount:     player.NumberOfGameBans,
			DaysSinceLastBan: player.DaysSinceLastBan,
			CommunityBanned:  player.CommunityBanned,
		}, nil
	}

	return Summary{}, eris.Wrap(ErrPlayerNotFound, steamID.String())
}
