package inventory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"dealership/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// PrefetchConfig configures a Prefetcher.
type PrefetchConfig struct {
	// BaseURL resolves relative image paths.
	BaseURL           string
	RequestsPerSecond float64
	Concurrency       int
	// TTL skips URLs warmed more recently than this.
	TTL        time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Prefetcher warms image URLs of newly revealed cars in the background. Failures are logged only.
type Prefetcher struct {
	base        *url.URL
	client      *http.Client
	limiter     *rate.Limiter
	concurrency int
	ttl         time.Duration
	log         zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewPrefetcher creates a Prefetcher. Call Close to stop pending work.
func NewPrefetcher(cfg PrefetchConfig) (*Prefetcher, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("prefetch: parse base url: %w", err)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Prefetcher{
		base:        base,
		client:      client,
		limiter:     rate.NewLimiter(limit, 1),
		concurrency: concurrency,
		ttl:         ttl,
		log:         cfg.Logger,
		ctx:         ctx,
		cancel:      cancel,
		seen:        make(map[string]time.Time),
	}, nil
}

// Prefetch schedules the images of cars and returns how many URLs were queued.
// It does not block on the downloads.
func (p *Prefetcher) Prefetch(cars []model.Car) int {
	if p == nil || len(cars) == 0 {
		return 0
	}
	urls := p.claim(cars)
	if len(urls) == 0 {
		return 0
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		var g errgroup.Group
		g.SetLimit(p.concurrency)
		for _, u := range urls {
			g.Go(func() error {
				if err := p.fetch(u); err != nil {
					p.log.Warn().Err(err).Str("url", u).Msg("image prefetch failed")
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
	return len(urls)
}

// Wait blocks until every scheduled batch finished.
func (p *Prefetcher) Wait() {
	p.wg.Wait()
}

// Close cancels pending downloads and waits for them to stop.
func (p *Prefetcher) Close() {
	p.cancel()
	p.wg.Wait()
}

// claim resolves image URLs and marks them as warmed.
func (p *Prefetcher) claim(cars []model.Car) []string {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	var urls []string
	for _, car := range cars {
		for _, img := range car.Images {
			u, ok := p.resolve(img)
			if !ok {
				continue
			}
			if at, ok := p.seen[u]; ok && now.Sub(at) < p.ttl {
				continue
			}
			p.seen[u] = now
			urls = append(urls, u)
		}
	}
	return urls
}

func (p *Prefetcher) resolve(img string) (string, bool) {
	img = strings.TrimSpace(img)
	if img == "" {
		return "", false
	}
	ref, err := url.Parse(img)
	if err != nil {
		return "", false
	}
	u := p.base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

func (p *Prefetcher) fetch(u string) error {
	if err := p.limiter.Wait(p.ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(p.ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	p.log.Debug().Str("url", u).Msg("image prefetched")
	return nil
}
