package httpclient

import (
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/Albert24GG/pcom-assignments/internal/metrics"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 5 * time.Second

	defaultAttempts   = 3
	defaultRetryPause = 100 * time.Millisecond

	readBufferSize = 4096
)

// Logger observes each successfully processed request/response pair.
type Logger func(*Request, *Response)

// Option configures a Client.
type Option func(*Client)

func WithConnectTimeout(d time.Duration) Option { return func(c *Client) { c.connectTimeout = d } }
func WithReadTimeout(d time.Duration) Option    { return func(c *Client) { c.readTimeout = d } }
func WithWriteTimeout(d time.Duration) Option   { return func(c *Client) { c.writeTimeout = d } }
func WithLogger(l Logger) Option                { return func(c *Client) { c.logger = l } }

// WithRetry sets how many times a request is attempted in total and the
// pause between attempts.
func WithRetry(attempts int, pause time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.attempts = attempts
		c.retryPause = pause
	}
}

// Client issues HTTP/1.1 requests to a single host, reusing one cached
// connection across requests until the server closes it. It is not safe
// for concurrent use.
type Client struct {
	host string
	port int

	conn net.Conn

	connectTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration

	attempts   int
	retryPause time.Duration

	logger Logger
}

func New(host string, port int, opts ...Option) *Client {
	c := &Client{
		host:           host,
		port:           port,
		connectTimeout: defaultConnectTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		attempts:       defaultAttempts,
		retryPause:     defaultRetryPause,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Get(path string, headers ...Header) (*Response, error) {
	return c.Do(&Request{Method: "GET", Path: path, Headers: headers})
}

func (c *Client) Head(path string, headers ...Header) (*Response, error) {
	return c.Do(&Request{Method: "HEAD", Path: path, Headers: headers})
}

func (c *Client) Post(path, body string, headers ...Header) (*Response, error) {
	return c.Do(&Request{Method: "POST", Path: path, Headers: headers, Body: body})
}

func (c *Client) Put(path, body string, headers ...Header) (*Response, error) {
	return c.Do(&Request{Method: "PUT", Path: path, Headers: headers, Body: body})
}

func (c *Client) Delete(path string, headers ...Header) (*Response, error) {
	return c.Do(&Request{Method: "DELETE", Path: path, Headers: headers})
}

// Do processes the request, retrying on any error with a constant pause
// between attempts.
func (c *Client) Do(req *Request) (*Response, error) {
	var resp *Response

	first := true
	op := func() error {
		if !first {
			metrics.HTTPRetriesTotal.Inc()
		}
		first = false

		r, err := c.processRequest(req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(c.retryPause),
		uint64(c.attempts-1),
	)
	if err := backoff.Retry(op, policy); err != nil {
		metrics.HTTPRequestsTotal.WithLabelValues(req.Method, "error").Inc()
		return nil, err
	}

	metrics.HTTPRequestsTotal.WithLabelValues(req.Method, "success").Inc()
	if c.logger != nil {
		c.logger(req, resp)
	}
	return resp, nil
}

// Close drops the cached connection, if any.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// processRequest performs one request/response exchange on the cached
// connection, opening it lazily. Any failure tears the connection down so
// the next attempt starts clean.
func (c *Client) processRequest(req *Request) (*Response, error) {
	if c.conn == nil {
		dialer := net.Dialer{Timeout: c.connectTimeout}
		conn, err := dialer.Dial("tcp", net.JoinHostPort(c.host, strconv.Itoa(c.port)))
		if err != nil {
			return nil, errors.Wrap(err, "httpclient: connect failed")
		}
		c.conn = conn
	}

	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	if len(req.Body) > 0 {
		req.SetHeader("Content-Length", req.contentLength())
	}
	req.SetHeader("Host", c.host)

	if err := c.writeAll(req.encode()); err != nil {
		return nil, err
	}

	raw, headerLen, err := c.receiveResponseData()
	if err != nil {
		return nil, err
	}

	resp, err := parseResponseHead(raw[:headerLen-len(headerTerminator)])
	if err != nil {
		return nil, err
	}
	resp.Body = raw[headerLen:]
	ok = true

	// The server decides whether the connection survives this exchange.
	if v, found := resp.Header("Connection"); found && strings.EqualFold(v, "close") {
		c.Close()
	}

	return resp, nil
}

func (c *Client) writeAll(data []byte) error {
	for len(data) > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return errors.Wrap(err, "httpclient: write failed")
		}
		n, err := c.conn.Write(data)
		if err != nil {
			return errors.Wrap(err, "httpclient: write failed")
		}
		data = data[n:]
	}
	return nil
}

// receiveResponseData reads until the header terminator is seen, then
// until the body reaches Content-Length. Without a Content-Length the
// body is whatever arrived alongside the header block.
func (c *Client) receiveResponseData() (string, int, error) {
	buf := make([]byte, readBufferSize)
	var data strings.Builder

	headerLen := -1
	for headerLen < 0 {
		n, err := c.read(buf)
		if err != nil {
			return "", 0, err
		}
		if n == 0 {
			return "", 0, errors.Wrap(ErrMalformedResponse, "connection closed before header terminator")
		}

		// Search only the tail so earlier chunks are not rescanned.
		searchFrom := data.Len() - len(headerTerminator) + 1
		if searchFrom < 0 {
			searchFrom = 0
		}
		data.Write(buf[:n])
		if idx := strings.Index(data.String()[searchFrom:], headerTerminator); idx >= 0 {
			headerLen = searchFrom + idx + len(headerTerminator)
		}
	}

	// Without a Content-Length the body is exactly what is already
	// buffered past the terminator; nothing more is read or trimmed.
	m := contentLengthRe.FindStringSubmatch(data.String()[:headerLen])
	if m == nil {
		return data.String(), headerLen, nil
	}
	contentLength, _ := strconv.Atoi(m[1])

	total := headerLen + contentLength
	for data.Len() < total {
		n, err := c.read(buf)
		if err != nil {
			return "", 0, err
		}
		if n == 0 {
			return "", 0, errors.Wrap(ErrMalformedResponse, "connection closed before body completed")
		}
		data.Write(buf[:n])
	}

	raw := data.String()
	if len(raw) > total {
		raw = raw[:total]
	}
	return raw, headerLen, nil
}

func (c *Client) read(buf []byte) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return 0, errors.Wrap(err, "httpclient: read failed")
	}
	n, err := c.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		return n, errors.Wrap(err, "httpclient: read failed")
	}
	return n, nil
}
