package dork

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"domainscout/internal/extract"
	"domainscout/internal/policy/ratelimit"
)

const defaultSearchBaseURL = "https://www.google.com/search"

// userAgents are rotated across queries to look less like a bot.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0",
}

// Renderer loads a page in a real browser and returns its rendered HTML.
// Used as a fallback when the plain HTTP path returns no results.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
}

// Config controls the search channel.
type Config struct {
	SearchBaseURL   string
	ResultsPerQuery int
	MaxQueries      int
	RequestTimeout  time.Duration
	SearchRPS       float64
}

// Searcher executes dork queries and emits one observation per result link.
// It implements extract.Source.
type Searcher struct {
	cfg           Config
	dorks         []string
	baseCollector *colly.Collector
	limiter       *ratelimit.Limiter
	renderer      Renderer
	logger        *zap.Logger
}

// NewSearcher builds the dork channel. renderer may be nil, in which case the
// headless fallback is disabled.
func NewSearcher(cfg Config, dorks []string, renderer Renderer, logger *zap.Logger) *Searcher {
	if cfg.SearchBaseURL == "" {
		cfg.SearchBaseURL = defaultSearchBaseURL
	}
	if cfg.ResultsPerQuery <= 0 {
		cfg.ResultsPerQuery = 10
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	base := colly.NewCollector(colly.UserAgent(userAgents[0]))
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	return &Searcher{
		cfg:           cfg,
		dorks:         dorks,
		baseCollector: base,
		limiter:       ratelimit.New(ratelimit.Config{DefaultRPS: cfg.SearchRPS, DefaultBurst: 1}),
		renderer:      renderer,
		logger:        logger,
	}
}

// Name implements extract.Source.
func (s *Searcher) Name() string { return "dork" }

// Produce implements extract.Source. Each result link becomes one
// observation whose text is the link title plus URL, so keyword matching
// runs over both.
func (s *Searcher) Produce(ctx context.Context, emit func(extract.Observation)) error {
	queries := s.dorks
	if s.cfg.MaxQueries > 0 && len(queries) > s.cfg.MaxQueries {
		queries = queries[:s.cfg.MaxQueries]
	}

	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return err
		}
		searchURL := s.buildSearchURL(query)
		if err := s.limiter.Wait(ctx, searchURL); err != nil {
			return err
		}

		results, err := s.search(ctx, searchURL)
		if err != nil {
			s.logger.Warn("search query failed",
				zap.String("query", query), zap.Error(err))
			continue
		}
		extract.SearchQueries.Inc()

		if len(results) == 0 && s.renderer != nil {
			results, err = s.searchHeadless(ctx, searchURL)
			if err != nil {
				s.logger.Warn("headless search failed",
					zap.String("query", query), zap.Error(err))
				continue
			}
		}

		tag := "dork:" + query
		for _, res := range results {
			domain, _ := extract.ExtractDomain(res.url)
			emit(extract.Observation{
				Domain:    domain,
				Text:      extract.JoinFragments([]string{res.title, res.url}),
				URL:       res.url,
				SourceTag: tag,
			})
		}
		s.logger.Info("search query done",
			zap.String("query", query), zap.Int("results", len(results)))
	}
	return nil
}

func (s *Searcher) buildSearchURL(query string) string {
	num := s.cfg.ResultsPerQuery
	if num > 100 {
		num = 100
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	params.Set("hl", "en")
	return s.cfg.SearchBaseURL + "?" + params.Encode()
}

func (s *Searcher) search(ctx context.Context, searchURL string) ([]searchResult, error) {
	collector := s.baseCollector.Clone()
	collector.UserAgent = userAgents[rand.Intn(len(userAgents))]

	var (
		body    []byte
		fetchMu sync.Mutex
		fetched bool
		errOut  error
	)
	collector.OnResponse(func(r *colly.Response) {
		fetchMu.Lock()
		body = append([]byte{}, r.Body...)
		fetched = true
		fetchMu.Unlock()
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchMu.Lock()
		if errOut == nil {
			errOut = err
		}
		fetchMu.Unlock()
	})

	if err := collector.Visit(searchURL); err != nil {
		return nil, err
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errOut != nil {
		return nil, errOut
	}
	if !fetched {
		return nil, errors.New("search fetch produced no response")
	}
	return s.parseResults(body)
}

func (s *Searcher) searchHeadless(ctx context.Context, searchURL string) ([]searchResult, error) {
	html, err := s.renderer.Render(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	return s.parseResults([]byte(html))
}

type searchResult struct {
	url   string
	title string
}

// parseResults pulls outbound links from a result page. Result blocks are
// tried first; raw redirect links ("/url?q=") are the fallback for stripped
// markup. Search-engine self links are dropped.
func (s *Searcher) parseResults(body []byte) ([]searchResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var results []searchResult
	seen := make(map[string]struct{})
	add := func(rawURL, title string) bool {
		if !usableResultURL(rawURL) {
			return false
		}
		if _, dup := seen[rawURL]; dup {
			return false
		}
		seen[rawURL] = struct{}{}
		results = append(results, searchResult{url: rawURL, title: strings.TrimSpace(title)})
		return len(results) >= s.cfg.ResultsPerQuery
	}

	doc.Find("div.g").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a[href]").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		title := sel.Find("h3").First().Text()
		return !add(cleanRedirect(href), title)
	})

	if len(results) == 0 {
		doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Attr("href")
			if !strings.HasPrefix(href, "/url?q=") {
				return true
			}
			return !add(cleanRedirect(href), sel.Text())
		})
	}
	return results, nil
}

// cleanRedirect unwraps "/url?q=<target>" redirect links.
func cleanRedirect(href string) string {
	if !strings.Contains(href, "/url?q=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("q"); target != "" {
		return target
	}
	return href
}

func usableResultURL(rawURL string) bool {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return !strings.Contains(u.Hostname(), "google.")
}
