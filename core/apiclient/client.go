// Package apiclient is the single HTTP client shared by every LMS service.
// It attaches the bearer token, bounds each call with a timeout and folds every
// possible failure (timeout, network, HTTP, malformed payload) into a Result.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kohkiet/swp-lms/core"
)

const (
	DefaultTimeout = 8 * time.Second

	maxBodySize    = 10 << 20
	maxRawTextSize = 500
)

// TokenSource provides the current bearer token, "" when there is none.
type TokenSource interface {
	Token() string
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration // DefaultTimeout if zero
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     core.Logger
	// OnUnauthorized is called when the backend rejects a token with 401.
	OnUnauthorized func()
}

type Client struct {
	baseURL        string
	timeout        time.Duration
	http           *http.Client
	tokens         TokenSource
	logger         core.Logger
	onUnauthorized func()
}

func New(opts Options) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		timeout:        opts.Timeout,
		http:           opts.HTTPClient,
		tokens:         opts.Tokens,
		logger:         opts.Logger,
		onUnauthorized: opts.OnUnauthorized,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = core.NopLogger{}
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Request describes one call.
type Request struct {
	Method    string
	Path      string // relative to the base URL
	Query     url.Values
	Body      interface{} // JSON-serializable value, json.RawMessage or *Form
	Header    http.Header
	Protected bool // fail without a network attempt if there is no token
}

type RequestOption func(*Request)

// Protected marks the call as requiring a bearer token.
func Protected() RequestOption {
	return func(r *Request) { r.Protected = true }
}

func Query(q url.Values) RequestOption {
	return func(r *Request) { r.Query = q }
}

func Header(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		r.Header.Set(key, value)
	}
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) Result {
	return c.Do(ctx, newRequest(http.MethodGet, path, nil, opts))
}

func (c *Client) Post(ctx context.Context, path string, body interface{}, opts ...RequestOption) Result {
	return c.Do(ctx, newRequest(http.MethodPost, path, body, opts))
}

func (c *Client) Put(ctx context.Context, path string, body interface{}, opts ...RequestOption) Result {
	return c.Do(ctx, newRequest(http.MethodPut, path, body, opts))
}

func (c *Client) Patch(ctx context.Context, path string, body interface{}, opts ...RequestOption) Result {
	return c.Do(ctx, newRequest(http.MethodPatch, path, body, opts))
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) Result {
	return c.Do(ctx, newRequest(http.MethodDelete, path, nil, opts))
}

func newRequest(method, path string, body interface{}, opts []RequestOption) Request {
	req := Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// Do performs exactly one network attempt and never fails with a Go error.
func (c *Client) Do(ctx context.Context, req Request) Result {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	var token string
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if req.Protected && token == "" {
		return Result{
			Error:  "authentication required: please log in",
			Status: http.StatusUnauthorized,
			Kind:   KindAuth,
		}
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return Result{Error: fmt.Sprintf("encoding request body: %v", err), Kind: KindEncoding}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, c.url(req.Path, req.Query), body)
	if err != nil {
		return Result{Error: fmt.Sprintf("building request: %v", err), Kind: KindEncoding}
	}
	for key, vals := range req.Header {
		for _, val := range vals {
			httpReq.Header.Add(key, val)
		}
	}
	reqID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("X-Request-ID", reqID)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res := c.send(ctx, httpReq)
	c.log(req, res, reqID, time.Since(start))

	if res.Status == http.StatusUnauthorized && token != "" && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	return res
}

func (c *Client) send(ctx context.Context, httpReq *http.Request) Result {
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return c.transportFailure(ctx, httpReq, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return c.transportFailure(ctx, httpReq, errors.Wrap(err, "reading response body"))
	}
	return buildResult(resp, raw)
}

// transportFailure sorts a failed round trip into the timeout or network category.
// ctx is the caller's context; httpReq carries the one bounded by the client timeout.
func (c *Client) transportFailure(ctx context.Context, httpReq *http.Request, err error) Result {
	target := httpReq.Method + " " + httpReq.URL.Path
	switch ctxErr := httpReq.Context().Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		msg := fmt.Sprintf("request timed out after %s: %s", c.timeout, target)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("request timed out: %s", target)
		}
		return Result{
			Error:  msg,
			Status: http.StatusRequestTimeout,
			Kind:   KindTimeout,
		}
	case errors.Is(ctxErr, context.Canceled):
		return Result{
			Error: fmt.Sprintf("request aborted: %s", target),
			Kind:  KindTimeout,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return Result{
		Error: fmt.Sprintf("network error: could not reach %s (%v); check your connection and that the server is running",
			httpReq.URL.Host, err),
		Kind: KindNetwork,
	}
}

func buildResult(resp *http.Response, raw []byte) Result {
	payload, text := parsePayload(resp.Header.Get("Content-Type"), raw)
	code := resp.StatusCode

	if code >= 200 && code < 300 {
		if env, ok := asEnvelope(payload); ok {
			res := Result{Success: env.Success, Data: env.Data, Message: env.Message, Status: code}
			if !env.Success {
				res.Kind = KindHTTP
				res.Error = env.Message.String
				if res.Error == "" {
					res.Error = extractMessage(payload)
				}
				if res.Error == "" {
					res.Error = "request failed"
				}
			}
			return res
		}
		res := Result{Success: true, Data: payload, Status: code}
		if text != "" {
			res.Message = null.StringFrom(text)
		}
		return res
	}

	msg := extractMessage(payload)
	if msg == "" {
		msg = text
	}
	if msg == "" {
		msg = fmt.Sprintf("%d %s", code, http.StatusText(code))
	}
	return Result{Error: msg, Status: code, Kind: KindHTTP}
}

// parsePayload returns the JSON payload (nil if absent or malformed) or,
// for non-JSON bodies, the raw text kept for diagnostics.
func parsePayload(contentType string, raw []byte) (json.RawMessage, string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ""
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	isJSON := mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
	if !isJSON && mediaType == "" {
		isJSON = json.Valid(trimmed)
	}
	if isJSON {
		if !json.Valid(trimmed) {
			return nil, ""
		}
		return nullToEmpty(trimmed), ""
	}
	return nil, core.Truncate(string(trimmed), maxRawTextSize)
}

func encodeBody(body interface{}) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "application/json", nil
	case *Form:
		buf, ct, err := b.encode()
		if err != nil {
			return nil, "", err
		}
		return buf, ct, nil
	case json.RawMessage:
		return bytes.NewReader(b), "application/json", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func (c *Client) url(path string, query url.Values) string {
	var u string
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u = path
	} else {
		u = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return u
}

func (c *Client) log(req Request, res Result, reqID string, elapsed time.Duration) {
	fields := map[string]interface{}{
		"requestId": reqID,
		"status":    res.Status,
		"elapsed":   elapsed.String(),
	}
	if res.Success {
		c.logger.Debug(fmt.Sprintf("%s %s", req.Method, req.Path), fields)
		return
	}
	fields["kind"] = res.Kind.String()
	c.logger.Warn(fmt.Sprintf("%s %s failed: %s", req.Method, req.Path, res.Error), fields)
}
