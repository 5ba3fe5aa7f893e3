package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/missionctl/transmission"
)

// scriptedLister returns its results in order, repeating the last one
type scriptedLister struct {
	mu      sync.Mutex
	results []result
	calls   int
}

type result struct {
	torrents []transmission.Torrent
	err      error
}

func (l *scriptedLister) ListTorrents(ctx context.Context) ([]transmission.Torrent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.calls
	if i >= len(l.results) {
		i = len(l.results) - 1
	}
	l.calls++
	r := l.results[i]
	return r.torrents, r.err
}

func (l *scriptedLister) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

var (
	unreachable = &transmission.Error{
		Outcome: transmission.OutcomeConfigError,
		Method:  transmission.MethodTorrentGet,
		Err:     context.DeadlineExceeded,
	}
	forbidden = &transmission.Error{
		Outcome:    transmission.OutcomeForbidden,
		Method:     transmission.MethodTorrentGet,
		StatusCode: 401,
		Err:        transmission.ErrForbidden,
	}
	malformed = &transmission.Error{
		Outcome:    transmission.OutcomeFailed,
		Method:     transmission.MethodTorrentGet,
		StatusCode: 200,
		Body:       `{"not":"expected"}`,
		Err:        transmission.ErrMalformedResponse,
	}
)

func newTestPoller(l Lister, opts ...Option) *Poller {
	opts = append([]Option{WithRetryDelay(time.Millisecond)}, opts...)
	return New("seedbox", l, zerolog.Nop(), opts...)
}

func TestPollSuccess(t *testing.T) {
	lister := &scriptedLister{results: []result{{torrents: []transmission.Torrent{{ID: 1, Name: "a"}}}}}
	p := newTestPoller(lister)

	update := p.Poll(context.Background())
	require.True(t, update.OK())
	assert.Equal(t, "seedbox", update.Host)
	assert.Len(t, update.Torrents, 1)
	assert.Equal(t, 1, update.Attempts)
	assert.False(t, update.At.IsZero())
	assert.Empty(t, update.Diagnostic())
}

func TestPollRetriesUnreachableHost(t *testing.T) {
	lister := &scriptedLister{results: []result{
		{err: unreachable},
		{err: unreachable},
		{torrents: []transmission.Torrent{{ID: 2}}},
	}}
	p := newTestPoller(lister)

	update := p.Poll(context.Background())
	require.True(t, update.OK())
	assert.Equal(t, 3, update.Attempts)
	assert.Equal(t, 3, lister.count())
}

func TestPollGivesUpAfterMaxAttempts(t *testing.T) {
	lister := &scriptedLister{results: []result{{err: unreachable}}}
	p := newTestPoller(lister, WithMaxAttempts(4))

	update := p.Poll(context.Background())
	require.False(t, update.OK())
	assert.Equal(t, 4, update.Attempts)
	assert.True(t, transmission.IsConfigError(update.Err))
	assert.Equal(t, "Server unreachable after 4 attempts: Request timed out", update.Diagnostic())
}

func TestPollDoesNotRetryOtherFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		diagnostic string
	}{
		{"forbidden", forbidden, "Invalid username or password"},
		{"malformed", malformed, `Could not parse server response: {"not":"expected"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &scriptedLister{results: []result{{err: tt.err}}}
			p := newTestPoller(lister)

			update := p.Poll(context.Background())
			require.False(t, update.OK())
			assert.Equal(t, 1, lister.count())
			assert.Equal(t, tt.diagnostic, update.Diagnostic())
		})
	}
}

func TestRunSendsImmediatelyAndOnTick(t *testing.T) {
	lister := &scriptedLister{results: []result{{torrents: []transmission.Torrent{}}}}
	p := newTestPoller(lister, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Update)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, out) }()

	for i := 0; i < 3; i++ {
		select {
		case u := <-out:
			assert.True(t, u.OK())
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for update")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRunStopsWhenNobodyReads(t *testing.T) {
	lister := &scriptedLister{results: []result{{torrents: []transmission.Torrent{}}}}
	p := newTestPoller(lister, WithInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Run(ctx, make(chan Update))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunAll(t *testing.T) {
	a := New("a", &scriptedLister{results: []result{{torrents: []transmission.Torrent{{ID: 1}}}}}, zerolog.Nop(), WithInterval(time.Hour))
	b := New("b", &scriptedLister{results: []result{{err: forbidden}}}, zerolog.Nop(), WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Update, 2)
	done := make(chan error, 1)
	go func() { done <- RunAll(ctx, []*Poller{a, b}, out) }()

	seen := map[string]Update{}
	for len(seen) < 2 {
		select {
		case u := <-out:
			seen[u.Host] = u
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for updates")
		}
	}
	cancel()

	assert.True(t, seen["a"].OK())
	assert.True(t, transmission.IsForbidden(seen["b"].Err))
	assert.True(t, errors.Is(<-done, context.Canceled))
}

func TestRunAllWithoutPollers(t *testing.T) {
	assert.ErrorIs(t, RunAll(context.Background(), nil, make(chan Update)), ErrNoPollers)
}

func TestClientSatisfiesLister(t *testing.T) {
	var _ Lister = (*transmission.Client)(nil)
}
