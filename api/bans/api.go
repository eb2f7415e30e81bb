package bans

import (
	"context"

	"github.com/escrow-tf/steamgc/steamid"
)

type Api interface {
	Lookup(ctx context.Context, steamID steamid.SteamID) (Summary, error)
}
