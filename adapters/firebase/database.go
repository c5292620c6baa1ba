package firebase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"catchkit/core"
)

// maxConditionalAttempts bounds the ETag retry loop of WriteIfGreater.
const maxConditionalAttempts = 5

// ErrContention is returned when WriteIfGreater keeps losing the ETag race.
var ErrContention = errors.New("conditional write kept conflicting")

// Database is a REST client for a realtime database: GET/PUT/DELETE on
// {base}/{path}.json.
type Database struct {
	base    string
	t       *transport
	session *Session
}

// NewDatabase builds a client for baseURL. session may be nil for
// unauthenticated access.
func NewDatabase(baseURL string, session *Session, cfg Config, opts ...Option) (*Database, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("database URL is required")
	}
	return &Database{
		base:    strings.TrimSuffix(baseURL, "/"),
		t:       newTransport(cfg.Timeout, opts),
		session: session,
	}, nil
}

func (d *Database) url(path core.Path, query url.Values) string {
	segs := path.Segments()
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	u := d.base + "/" + strings.Join(segs, "/") + ".json"
	if tok := d.session.IDToken(); tok != "" {
		if query == nil {
			query = url.Values{}
		}
		query.Set("auth", tok)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// get returns the decoded value at path and, when asked, its ETag.
func (d *Database) get(ctx context.Context, path core.Path, query url.Values, etag bool) (any, string, error) {
	var hdr http.Header
	if etag {
		hdr = http.Header{"X-Firebase-ETag": []string{"true"}}
	}
	resp, err := d.t.do(ctx, http.MethodGet, d.url(path, query), nil, hdr)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", statusError(resp)
	}
	v, err := decodeBody(resp)
	return v, resp.Header.Get("ETag"), err
}

func decodeBody(resp *http.Response) (any, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	v, err := core.DecodeValue(raw)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

func (d *Database) Read(ctx context.Context, path core.Path) (any, bool, error) {
	if err := path.Validate(); err != nil {
		return nil, false, err
	}
	v, _, err := d.get(ctx, path, nil, false)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return v, v != nil, nil
}

func (d *Database) Write(ctx context.Context, path core.Path, value any) error {
	if err := path.Validate(); err != nil {
		return err
	}
	v, err := core.NormalizeValue(value)
	if err != nil {
		return err
	}
	method := http.MethodPut
	if v == nil {
		method = http.MethodDelete
	}
	resp, err := d.t.do(ctx, method, d.url(path, nil), v, nil)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("write %s: %w", path, statusError(resp))
	}
	return nil
}

// ReadOrderedCollection asks the server to order by orderKey. The JSON
// response is an object, so the order is reapplied locally.
func (d *Database) ReadOrderedCollection(ctx context.Context, path core.Path, orderKey string) ([]core.Child, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	q := url.Values{}
	if orderKey == "" {
		q.Set("orderBy", strconv.Quote("$key"))
	} else {
		q.Set("orderBy", strconv.Quote(orderKey))
	}
	v, _, err := d.get(ctx, path, q, false)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", path, err)
	}
	children := core.ChildrenOf(v)
	core.SortChildren(children, orderKey)
	return children, nil
}

// WriteIfGreater uses ETag conditional requests: read with an ETag, PUT with
// if-match, and retry when another client wrote in between.
func (d *Database) WriteIfGreater(ctx context.Context, path core.Path, value int64) (int64, bool, error) {
	if err := path.Validate(); err != nil {
		return 0, false, err
	}
	cur, etag, err := d.get(ctx, path, nil, true)
	if err != nil {
		return 0, false, fmt.Errorf("read %s: %w", path, err)
	}
	for attempt := 0; attempt < maxConditionalAttempts; attempt++ {
		if cur != nil {
			if n := core.ScoreOrZero(cur); value <= n {
				return n, false, nil
			}
		}
		resp, err := d.t.do(ctx, http.MethodPut, d.url(path, nil), value, http.Header{"if-match": []string{etag}})
		if err != nil {
			return 0, false, fmt.Errorf("write %s: %w", path, err)
		}
		switch resp.StatusCode {
		case http.StatusOK:
			resp.Body.Close()
			return value, true, nil
		case http.StatusPreconditionFailed:
			etag = resp.Header.Get("ETag")
			cur, err = decodeBody(resp)
			resp.Body.Close()
			if err != nil {
				return 0, false, err
			}
		default:
			err := statusError(resp)
			resp.Body.Close()
			return 0, false, fmt.Errorf("write %s: %w", path, err)
		}
	}
	return 0, false, fmt.Errorf("write %s: %w", path, ErrContention)
}

// Watch streams change events from a catchkit emulator's /ws endpoint. The
// channel closes when ctx is done or the connection drops.
func (d *Database) Watch(ctx context.Context, emulatorURL string, path core.Path) (<-chan core.Change, error) {
	wsURL := deriveWSURL(emulatorURL)
	if wsURL == "" {
		return nil, errors.New("emulator URL must be http or https")
	}
	if !path.IsRoot() {
		wsURL += "?path=" + url.QueryEscape(string(path))
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, d.t.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Change, 32)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer close(out)
		defer close(done)
		defer conn.Close()
		for {
			var c core.Change
			if err := conn.ReadJSON(&c); err != nil {
				return
			}
			select {
			case out <- c:
			default:
				// drop if consumer is slow
			}
		}
	}()
	return out, nil
}
