// Package poller refreshes the transfer list of one or more Transmission hosts
// on a fixed interval, retrying unreachable hosts before reporting them.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/missionctl/transmission"
)

const (
	// DefaultInterval is the refresh period of the list view
	DefaultInterval = 5 * time.Second
	// DefaultMaxAttempts bounds how often an unreachable host is tried per refresh
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the pause between attempts
	DefaultRetryDelay = time.Second
)

// ErrNoPollers is returned by RunAll when there is nothing to run
var ErrNoPollers = errors.New("no hosts to poll")

// Lister fetches the current transfer list. *transmission.Client satisfies it.
type Lister interface {
	ListTorrents(ctx context.Context) ([]transmission.Torrent, error)
}

// Update is the result of one refresh of one host
type Update struct {
	Host     string
	Torrents []transmission.Torrent
	Err      error
	Attempts int
	At       time.Time
}

// OK reports whether the refresh succeeded
func (u Update) OK() bool {
	return u.Err == nil
}

// Diagnostic returns display text for a failed refresh
func (u Update) Diagnostic() string {
	if u.Err == nil {
		return ""
	}
	if transmission.IsConfigError(u.Err) {
		return fmt.Sprintf("Server unreachable after %d attempts: %s", u.Attempts, transmission.Diagnostic(u.Err))
	}
	return transmission.Diagnostic(u.Err)
}

// Option configures a Poller
type Option func(*Poller)

// WithInterval sets the time between refreshes
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxAttempts sets how many times a refresh is tried while the host is unreachable
func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n >= 1 {
			p.maxAttempts = uint(n)
		}
	}
}

// WithRetryDelay sets the pause between attempts of one refresh
func WithRetryDelay(d time.Duration) Option {
	return func(p *Poller) {
		if d >= 0 {
			p.retryDelay = d
		}
	}
}

// Poller refreshes one host
type Poller struct {
	name        string
	lister      Lister
	logger      zerolog.Logger
	interval    time.Duration
	maxAttempts uint
	retryDelay  time.Duration
}

// New creates a poller for the named host
func New(name string, lister Lister, logger zerolog.Logger, opts ...Option) *Poller {
	p := &Poller{
		name:        name,
		lister:      lister,
		logger:      logger.With().Str("host", name).Logger(),
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the host name the poller reports under
func (p *Poller) Name() string {
	return p.name
}

// Interval returns the refresh period
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Poll performs one refresh. Only transport failures are retried; a rejected
// login or an unreadable response is reported straight away.
func (p *Poller) Poll(ctx context.Context) Update {
	var (
		torrents []transmission.Torrent
		attempts int
	)

	err := retry.Do(
		func() error {
			attempts++
			list, err := p.lister.ListTorrents(ctx)
			if err != nil {
				return err
			}
			torrents = list
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(p.maxAttempts),
		retry.Delay(p.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && transmission.IsConfigError(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Debug().Err(err).Uint("attempt", n+1).Msg("Host unreachable, retrying")
		}),
	)

	update := Update{Host: p.name, Attempts: attempts, At: time.Now()}
	if err != nil {
		update.Err = err
		p.logger.Warn().Err(err).Int("attempts", attempts).Msg("Refresh failed")
		return update
	}

	update.Torrents = torrents
	p.logger.Debug().Int("torrents", len(torrents)).Msg("Refreshed")
	return update
}

// Run polls immediately and then on every tick, sending each Update to out.
// It blocks until ctx is cancelled and returns ctx.Err().
func (p *Poller) Run(ctx context.Context, out chan<- Update) error {
	if !p.send(ctx, out, p.Poll(ctx)) {
		return ctx.Err()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !p.send(ctx, out, p.Poll(ctx)) {
				return ctx.Err()
			}
		}
	}
}

func (p *Poller) send(ctx context.Context, out chan<- Update, u Update) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

// RunAll runs every poller concurrently until ctx is cancelled
func RunAll(ctx context.Context, pollers []*Poller, out chan<- Update) error {
	if len(pollers) == 0 {
		return ErrNoPollers
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range pollers {
		g.Go(func() error {
			return p.Run(ctx, out)
		})
	}
	return g.Wait()
}
