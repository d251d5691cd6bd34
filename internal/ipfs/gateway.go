package ipfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"record-storefront/internal/domain"
	"record-storefront/internal/logging"
	"record-storefront/internal/observability"
)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultMaxRedirects = 5
	defaultMaxBodySize  = 4 << 20
	userAgent           = "record-storefront/1.0"
)

// ErrBadStatus is returned when the gateway answers with a non-200 status.
var ErrBadStatus = errors.New("gateway returned non-200 status")

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithFetchTimeout sets the per-fetch timeout used when the context has no deadline.
func WithFetchTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// WithMaxRedirects sets how many redirects a fetch follows.
func WithMaxRedirects(n int) GatewayOption {
	return func(g *Gateway) {
		g.maxRedirects = n
	}
}

// WithGatewayLogger sets the logger for CID warnings and fetch failures.
func WithGatewayLogger(log *logrus.Entry) GatewayOption {
	return func(g *Gateway) {
		g.log = log
	}
}

// Gateway fetches JSON metadata documents over HTTP.
type Gateway struct {
	client       *fasthttp.Client
	timeout      time.Duration
	maxRedirects int
	log          *logrus.Entry
}

// NewGateway creates a gateway client.
func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{
		timeout:      defaultFetchTimeout,
		maxRedirects: defaultMaxRedirects,
		log:          logging.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.client = &fasthttp.Client{
		Name:                userAgent,
		MaxConnWaitTimeout:  10 * time.Second,
		MaxResponseBodySize: defaultMaxBodySize,
	}
	return g
}

// FetchMetadata downloads url and decodes it as record metadata.
func (g *Gateway) FetchMetadata(ctx context.Context, url string) (*domain.RecordMetadata, error) {
	body, err := g.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var doc metadataDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		observability.RecordGatewayFetch(0, "decode")
		return nil, fmt.Errorf("decode metadata from %s: %w", url, err)
	}
	return doc.toDomain(), nil
}

// Fetch downloads url, following redirects, and returns the body of a 200 response.
func (g *Gateway) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.warnIfNotCID(url)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(g.timeout)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	req.SetRequestURI(url)

	start := time.Now()
	for redirects := 0; ; redirects++ {
		if err := g.client.DoDeadline(req, resp, deadline); err != nil {
			observability.RecordGatewayFetch(time.Since(start).Seconds(), "transport")
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		if !fasthttp.StatusCodeIsRedirect(resp.StatusCode()) {
			break
		}
		location := resp.Header.Peek(fasthttp.HeaderLocation)
		if len(location) == 0 || redirects >= g.maxRedirects {
			observability.RecordGatewayFetch(time.Since(start).Seconds(), "redirect")
			return nil, fmt.Errorf("fetch %s: too many redirects", url)
		}
		req.URI().UpdateBytes(location)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		observability.RecordGatewayFetch(time.Since(start).Seconds(), "status")
		return nil, fmt.Errorf("fetch %s: %w: %d", url, ErrBadStatus, resp.StatusCode())
	}

	observability.RecordGatewayFetch(time.Since(start).Seconds(), "")
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

func (g *Gateway) warnIfNotCID(url string) {
	_, rest, found := strings.Cut(url, "/ipfs/")
	if !found {
		return
	}
	if _, err := ParseCID(rest); err != nil {
		g.log.WithError(err).WithField("url", url).Warn("metadata url does not carry a valid cid")
	}
}

type metadataDocument struct {
	Name         string         `json:"name"`
	Artist       string         `json:"artist"`
	Description  string         `json:"description"`
	Image        string         `json:"image"`
	AnimationURL string         `json:"animation_url"`
	Songs        []songDocument `json:"songs"`
}

type songDocument struct {
	TrackNumber flexInt    `json:"trackNumber"`
	Title       string     `json:"title"`
	Artist      string     `json:"artist"`
	Duration    flexString `json:"duration"`
	Audio       string     `json:"audio"`
}

func (d metadataDocument) toDomain() *domain.RecordMetadata {
	md := &domain.RecordMetadata{
		Name:         d.Name,
		Artist:       d.Artist,
		Description:  d.Description,
		Image:        d.Image,
		AnimationURL: d.AnimationURL,
	}
	for _, s := range d.Songs {
		md.Songs = append(md.Songs, domain.Song{
			TrackNumber: int(s.TrackNumber),
			Title:       s.Title,
			Artist:      s.Artist,
			Duration:    string(s.Duration),
			Audio:       s.Audio,
		})
	}
	return md
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	raw := strings.Trim(string(b), `"`)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("track number %s: %w", b, err)
	}
	*f = flexInt(n)
	return nil
}
