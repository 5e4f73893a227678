package bridge

import (
	"context"
	"io"
	"time"

	"github.com/papercomputeco/puterbridge/bridge/worker"
	"github.com/papercomputeco/puterbridge/pkg/credentials"
	"github.com/papercomputeco/puterbridge/pkg/models"
	"github.com/papercomputeco/puterbridge/pkg/upstream"
)

// CredentialPool hands out upstream credentials and learns from outcomes.
type CredentialPool interface {
	Next(ctx context.Context) (credentials.Credential, bool, error)
	ReportSuccess(id string)
	ReportFailure(id string)
}

// Upstream performs driver calls.
type Upstream interface {
	OpenStream(ctx context.Context, payload upstream.Payload) (io.ReadCloser, error)
	Call(ctx context.Context, payload upstream.Payload) ([]byte, error)
}

// OutcomeQueue receives call outcomes for asynchronous recording.
type OutcomeQueue interface {
	Enqueue(job worker.Job) bool
}

// Config is the bridge server configuration.
type Config struct {
	// Address to listen on (e.g., ":8000")
	ListenAddr string

	// Registry is the advertised model set. Defaults to models.DefaultRegistry().
	Registry *models.Registry

	// Credentials supplies upstream tokens.
	Credentials CredentialPool

	// Upstream is the driver-call client.
	Upstream Upstream

	// Outcomes optionally records per-account call statistics.
	Outcomes OutcomeQueue

	// Now defaults to time.Now.
	Now func() time.Time
}
