package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/metrics"
)

const (
	// DefaultRequestsPerMinute bounds catalog traffic.
	DefaultRequestsPerMinute = 60
	defaultMaxRetries        = 3
	defaultRetryBackoff      = 500 * time.Millisecond
	defaultRequestTimeout    = 30 * time.Second
)

type FirebaseConfig struct {
	DatabaseURL       string
	AuthToken         string
	RequestsPerMinute int
	MaxRetries        int
	RetryBackoff      time.Duration
	Timeout           time.Duration
}

// FirebaseClient reads the catalog through the Realtime Database REST API.
type FirebaseClient struct {
	baseURL    string
	authToken  string
	http       *http.Client
	limiter    *rate.Limiter
	resolver   Resolver
	maxRetries int
	backoff    time.Duration
	log        logrus.FieldLogger
}

func NewFirebaseClient(cfg FirebaseConfig, resolver Resolver, log logrus.FieldLogger) *FirebaseClient {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = DefaultRequestsPerMinute
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if resolver == nil {
		resolver = DirectResolver{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &FirebaseClient{
		baseURL:    strings.TrimRight(cfg.DatabaseURL, "/"),
		authToken:  cfg.AuthToken,
		http:       &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		resolver:   resolver,
		maxRetries: maxRetries,
		backoff:    backoff,
		log:        log.WithField("component", "catalog"),
	}
}

func (c *FirebaseClient) FetchAll(ctx context.Context) ([]Record, error) {
	return c.fetch(ctx, "fetch_all", nil)
}

func (c *FirebaseClient) FetchByCategory(ctx context.Context, category entities.CourseCategory) ([]Record, error) {
	return c.fetch(ctx, "fetch_category", orderedQuery("category", string(category)))
}

func (c *FirebaseClient) FetchByLevel(ctx context.Context, level entities.CourseLevel) ([]Record, error) {
	return c.fetch(ctx, "fetch_level", orderedQuery("level", string(level)))
}

func (c *FirebaseClient) ResolveDownloadLocator(ctx context.Context, firebasePath string) (string, error) {
	if strings.TrimSpace(firebasePath) == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnresolvable)
	}
	return c.resolver.Resolve(ctx, firebasePath)
}

// CheckReachable issues a shallow read of the course node. Any HTTP response
// below 500 counts as reachable.
func (c *FirebaseClient) CheckReachable(ctx context.Context) error {
	q := url.Values{}
	q.Set("shallow", "true")
	req, err := c.newRequest(ctx, q)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues("ping", "error").Inc()
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	metrics.CatalogRequestsTotal.WithLabelValues("ping", strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}
	return nil
}

// orderedQuery builds a Firebase equality filter. Both parameters are JSON
// string literals, so they carry their own quotes.
func orderedQuery(field, value string) url.Values {
	q := url.Values{}
	q.Set("orderBy", strconv.Quote(field))
	q.Set("equalTo", strconv.Quote(value))
	return q
}

func (c *FirebaseClient) newRequest(ctx context.Context, q url.Values) (*http.Request, error) {
	if q == nil {
		q = url.Values{}
	}
	if c.authToken != "" {
		q.Set("auth", c.authToken)
	}
	u := c.baseURL + "/courses.json"
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *FirebaseClient) fetch(ctx context.Context, op string, q url.Values) ([]Record, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff << (attempt - 1)
			c.log.WithFields(logrus.Fields{"operation": op, "attempt": attempt + 1, "wait": wait}).
				WithError(lastErr).Warn("Retrying catalog request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		body, retry, err := c.do(ctx, op, q)
		if err == nil {
			return decodeRecords(body)
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}
	return nil, lastErr
}

// do performs one request. The bool reports whether a failure is worth
// retrying.
func (c *FirebaseClient) do(ctx context.Context, op string, q url.Values) ([]byte, bool, error) {
	req, err := c.newRequest(ctx, cloneValues(q))
	if err != nil {
		return nil, false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues(op, "error").Inc()
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	metrics.CatalogRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read catalog response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, firebaseError(body))
	}
}

func cloneValues(q url.Values) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func firebaseError(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

// decodeRecords accepts the shapes the Realtime Database returns for a node:
// null, an object keyed by record ID, or an array when keys are sequential
// integers. Array holes come back as null and are skipped; array records get
// no ID since their index is not a stable key.
func decodeRecords(body []byte) ([]Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []Record{}, nil
	}

	switch body[0] {
	case '{':
		var keyed map[string]*Record
		if err := json.Unmarshal(body, &keyed); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		records := make([]Record, 0, len(keyed))
		for _, k := range keys {
			if rec := keyed[k]; rec != nil {
				rec.ID = k
				records = append(records, *rec)
			}
		}
		return records, nil
	case '[':
		var list []*Record
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		records := make([]Record, 0, len(list))
		for _, rec := range list {
			if rec != nil {
				records = append(records, *rec)
			}
		}
		return records, nil
	default:
		return nil, fmt.Errorf("decode catalog: unexpected payload %q", truncate(body, 64))
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
