// Package pdf locates full-text PDFs for records that do not carry one, by
// reading the citation metadata of their landing page.
package pdf

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/httpclient"
	"github.com/helixir/oa-metasearch/internal/observability"
)

// Defaults for Config.
const (
	DefaultTimeout      = 8 * time.Second
	DefaultMaxPageBytes = 2 << 20
)

// Config holds resolver settings.
type Config struct {
	// Enabled turns landing page fetching on. When false only the stored
	// bestPdfUrl is reported.
	Enabled bool

	Timeout      time.Duration
	MaxPageBytes int64

	// AllowPrivateHosts disables the private network guard. Tests only.
	AllowPrivateHosts bool
}

// Resolver reports the PDF status of a record.
type Resolver struct {
	config     Config
	httpClient *httpclient.Client
	logger     zerolog.Logger
}

// NewResolver creates a resolver. Extra options are applied after the
// private network transport, so WithTransport in tests replaces it.
func NewResolver(cfg Config, logger zerolog.Logger, opts ...httpclient.Option) *Resolver {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxPageBytes == 0 {
		cfg.MaxPageBytes = DefaultMaxPageBytes
	}

	var all []httpclient.Option
	if !cfg.AllowPrivateHosts {
		all = append(all, httpclient.WithTransport(guardedTransport(cfg.Timeout)))
	}
	all = append(all, opts...)

	return &Resolver{
		config: cfg,
		httpClient: httpclient.New(httpclient.Config{
			Name:         "landing_page",
			Timeout:      cfg.Timeout,
			RateLimit:    5,
			MaxBodyBytes: cfg.MaxPageBytes,
		}, all...),
		logger: observability.WithComponent(logger, "pdf_resolver"),
	}
}

// Resolve returns available when rec has a bestPdfUrl, resolved when its
// landing page names a PDF, and unavailable otherwise. Fetch failures are
// logged and reported as unavailable.
func (r *Resolver) Resolve(ctx context.Context, rec domain.OARecord) domain.PDFInfo {
	if rec.BestPDFURL != "" {
		return domain.PDFInfo{URL: rec.BestPDFURL, Status: domain.PDFStatusAvailable}
	}
	unavailable := domain.PDFInfo{Status: domain.PDFStatusUnavailable}
	if !r.config.Enabled || rec.LandingPage == "" {
		return unavailable
	}

	link, err := r.FindOnPage(ctx, rec.LandingPage)
	if err != nil {
		logger := observability.LoggerFromContext(ctx, r.logger)
		logger.Debug().
			Err(err).
			Str("record_id", rec.ID).
			Str("landing_page", rec.LandingPage).
			Msg("landing page lookup failed")
		return unavailable
	}
	if link == "" {
		return unavailable
	}
	return domain.PDFInfo{URL: link, Status: domain.PDFStatusResolved}
}

// FindOnPage fetches pageURL and returns the absolute PDF link it declares,
// or "" when it declares none. A page that is itself a PDF resolves to pageURL.
func (r *Resolver) FindOnPage(ctx context.Context, pageURL string) (string, error) {
	base, err := checkScheme(pageURL)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	body, err := r.httpClient.Send(ctx, http.MethodGet, "landing_page", pageURL, "text/html", nil)
	if err != nil {
		return "", err
	}
	if bytes.HasPrefix(body, []byte("%PDF-")) {
		return pageURL, nil
	}
	return ExtractPDFLink(body, base)
}

// pdfSelectors are tried in order; the first non-empty match wins.
var pdfSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[name="citation_pdf_url"]`, "content"},
	{`meta[name="eprints.document_url"]`, "content"},
	{`link[rel="alternate"][type="application/pdf"]`, "href"},
}

// ExtractPDFLink parses an HTML page and returns the first declared PDF link
// made absolute against base.
func ExtractPDFLink(page []byte, base *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", err
	}

	for _, s := range pdfSelectors {
		var found string
		doc.Find(s.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if v, ok := sel.Attr(s.attr); ok && strings.TrimSpace(v) != "" {
				found = strings.TrimSpace(v)
				return false
			}
			return true
		})
		if found == "" {
			continue
		}
		abs, err := absolute(base, found)
		if err != nil {
			continue
		}
		return abs, nil
	}
	return "", nil
}

func absolute(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if _, err := checkScheme(u.String()); err != nil {
		return "", err
	}
	return u.String(), nil
}
