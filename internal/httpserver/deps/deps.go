package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/commands"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

// Pinger reports whether the local store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time // for testing, defaults to time.Now
	AllowedCIDRS   []string         // IPs allowed to reach the API
	TrustProxy     bool             // true if running behind a trusted reverse proxy
	CORSOrigins    []string         // browser origins allowed to call the API
	RequestTimeout time.Duration    // timeout for routes that only touch the local store
	SyncRateBurst  int              // remote-touching requests a client may burst
	SyncRatePerMin int              // remote-touching requests a client regains per minute
	Commands       *commands.Service
	Store          Pinger
	Events         http.Handler  // websocket notification stream
	SyncTrigger    chan struct{} // manual trigger for the scheduled sync
	StoreBackend   string        // "redis" or "memory", reported by readyz
}
