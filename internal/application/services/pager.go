package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medlocator/hospital-map/backend/internal/domain/providers"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/observability"
	"github.com/medlocator/hospital-map/backend/pkg/retry"
)

// PageState is a state of the page fetch state machine.
type PageState int

const (
	PageIdle PageState = iota
	PageFetching
	PageBackoff
	PageDone
	PageFailed
)

func (s PageState) String() string {
	switch s {
	case PageIdle:
		return "idle"
	case PageFetching:
		return "fetching"
	case PageBackoff:
		return "backoff"
	case PageDone:
		return "done"
	case PageFailed:
		return "failed"
	default:
		return fmt.Sprintf("PageState(%d)", int(s))
	}
}

// PagerConfig bounds one paginated provider sequence.
type PagerConfig struct {
	MaxPages       int
	PageTokenDelay time.Duration
	RequestTimeout time.Duration
	Retry          retry.Config
}

// DefaultPagerConfig mirrors the most restrictive provider: 3 pages, 2 s token delay,
// 30 s per request, 3 attempts per page.
func DefaultPagerConfig() PagerConfig {
	return PagerConfig{
		MaxPages:       3,
		PageTokenDelay: 2 * time.Second,
		RequestTimeout: 30 * time.Second,
		Retry:          retry.ProviderConfig(),
	}
}

// PageOutcome is what a finished Pager collected.
type PageOutcome struct {
	Places []providers.PlaceRecord
	Pages  int
	// LastErr is set when the sequence ended early on a failed later page
	LastErr error
}

// Pager fetches the pages of one type token strictly in order. It moves through
// Idle, FetchingPage(token), Backoff(attempt), Done and Failed; a Pager is used once.
type Pager struct {
	provider providers.PlacesProvider
	query    providers.PlaceQuery
	cfg      PagerConfig

	state   PageState
	token   string
	attempt int
	pages   int
	places  []providers.PlaceRecord
	lastErr error
	history []PageState
}

// NewPager creates a pager for one query
func NewPager(provider providers.PlacesProvider, query providers.PlaceQuery, cfg PagerConfig) *Pager {
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	return &Pager{
		provider: provider,
		query:    query,
		cfg:      cfg,
		state:    PageIdle,
		history:  []PageState{PageIdle},
	}
}

// State returns the current state
func (p *Pager) State() PageState {
	return p.state
}

// History returns every state the pager has been in, in order
func (p *Pager) History() []PageState {
	return append([]PageState(nil), p.history...)
}

// Run drives the machine to Done or Failed. It returns an error only when the
// sequence failed before any page succeeded; a failure on a later page ends the
// sequence as Done with the pages already collected.
func (p *Pager) Run(ctx context.Context) (*PageOutcome, error) {
	for p.state != PageDone && p.state != PageFailed {
		p.step(ctx)
	}
	if p.state == PageFailed {
		return nil, p.lastErr
	}
	return &PageOutcome{Places: p.places, Pages: p.pages, LastErr: p.lastErr}, nil
}

func (p *Pager) step(ctx context.Context) {
	switch p.state {
	case PageIdle:
		p.transition(PageFetching)

	case PageFetching:
		if p.token != "" && p.attempt == 0 {
			// continuation tokens only become valid after a short delay
			if err := retry.Sleep(ctx, p.cfg.PageTokenDelay); err != nil {
				p.fail(err)
				return
			}
		}

		page, err := p.fetch(ctx)
		if err == nil {
			p.places = append(p.places, page.Places...)
			p.pages++
			p.attempt = 0
			p.lastErr = nil
			if page.NextPageToken != "" && p.pages < p.cfg.MaxPages {
				p.token = page.NextPageToken
				p.transition(PageFetching)
				return
			}
			p.transition(PageDone)
			return
		}

		p.lastErr = err
		if ctx.Err() == nil && providers.IsRetryable(err) && p.attempt+1 < p.cfg.Retry.MaxAttempts {
			p.attempt++
			p.transition(PageBackoff)
			return
		}
		p.fail(err)

	case PageBackoff:
		delay := p.cfg.Retry.Delay(p.attempt)
		observability.LoggerFromContext(ctx).Warn().
			Err(p.lastErr).
			Str("provider", string(p.provider.Kind())).
			Str("token", p.query.TypeToken).
			Int("page", p.pages+1).
			Int("attempt", p.attempt).
			Dur("delay", delay).
			Msg("Provider page fetch failed, retrying")

		if err := retry.Sleep(ctx, delay); err != nil {
			p.fail(err)
			return
		}
		p.transition(PageFetching)
	}
}

func (p *Pager) fetch(ctx context.Context) (*providers.PlacesPage, error) {
	reqCtx := ctx
	if p.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}

	page, err := p.provider.FetchPage(reqCtx, p.query, p.token)
	if err != nil {
		if ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) && !providers.IsRetryable(err) {
			err = &providers.ProviderError{Provider: p.provider.Kind(), Timeout: true, Err: err}
		}
		return nil, err
	}
	if page == nil {
		page = &providers.PlacesPage{}
	}
	return page, nil
}

// fail ends the sequence. Pages already collected are kept and the sequence is Done.
func (p *Pager) fail(err error) {
	p.lastErr = err
	if p.pages > 0 {
		p.transition(PageDone)
		return
	}
	p.transition(PageFailed)
}

func (p *Pager) transition(to PageState) {
	p.state = to
	p.history = append(p.history, to)
}
