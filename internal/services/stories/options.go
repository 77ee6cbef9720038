package stories

import (
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/princekumarofficial/impact-stories/internal/config"
	mediasvc "github.com/princekumarofficial/impact-stories/internal/services/media"
)

// Options wires the collaborators shared by the coordinator and the service.
// Zero values fall back to sensible defaults.
type Options struct {
	Validator   *mediasvc.Validator
	Thumbnailer Thumbnailer
	Publisher   Publisher
	Logger      *slog.Logger
	Preview     mediasvc.PreviewOptions

	// MaxRetries bounds the reload-and-save cycles after a version conflict
	MaxRetries uint64
	BackOff    func() backoff.BackOff

	// OrphanGracePeriod protects fresh uploads that are not yet saved from Reconcile
	OrphanGracePeriod time.Duration
	Clock             func() time.Time
}

const DefaultOrphanGracePeriod = 30 * time.Minute

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}

func (o Options) withDefaults() Options {
	if o.Validator == nil {
		o.Validator = mediasvc.NewValidator(config.Media{})
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BackOff == nil {
		o.BackOff = defaultBackOff
	}
	if o.OrphanGracePeriod <= 0 {
		o.OrphanGracePeriod = DefaultOrphanGracePeriod
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Preview.AtSeconds <= 0 {
		o.Preview.AtSeconds = 1
	}
	return o
}
