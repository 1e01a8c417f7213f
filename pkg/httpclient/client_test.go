package httpclient

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubServer accepts connections and answers each received request by
// running the same scripted action.
type stubServer struct {
	t        *testing.T
	listener net.Listener

	mu       sync.Mutex
	requests []string
	accepts  int
}

type serverAction func(conn net.Conn, request string)

func respondWith(response string, closeAfter bool) serverAction {
	return func(conn net.Conn, _ string) {
		io.WriteString(conn, response)
		if closeAfter {
			conn.Close()
		}
	}
}

// newStubServer starts a listener whose connections are handled by
// action. action receives each full request (headers + body); a
// connection serves at most perConnRequests requests (0 means no limit).
func newStubServer(t *testing.T, perConnRequests int, action serverAction) *stubServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &stubServer{t: t, listener: listener}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.accepts++
			s.mu.Unlock()

			go func(conn net.Conn) {
				defer conn.Close()
				reader := bufio.NewReader(conn)
				for i := 0; perConnRequests == 0 || i < perConnRequests; i++ {
					request, err := readRequest(reader)
					if err != nil {
						return
					}
					s.mu.Lock()
					s.requests = append(s.requests, request)
					s.mu.Unlock()
					action(conn, request)
				}
			}(conn)
		}
	}()

	return s
}

// readRequest consumes one request: header block plus Content-Length
// bytes of body.
func readRequest(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
		if line == "\r\n" {
			break
		}
	}

	head := sb.String()
	contentLength := 0
	if m := contentLengthRe.FindStringSubmatch(head); m != nil {
		contentLength, _ = strconv.Atoi(m[1])
	}
	if contentLength > 0 {
		body := make([]byte, contentLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return "", err
		}
		sb.Write(body)
	}
	return sb.String(), nil
}

func (s *stubServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *stubServer) acceptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepts
}

func (s *stubServer) request(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

func TestGetRoundTrip(t *testing.T) {
	s := newStubServer(t, 1, respondWith(
		"HTTP/1.1 200 OK\r\nContent-Length: 5\r\nConnection: close\r\n\r\nhello", true))

	c := New("127.0.0.1", s.port())
	resp, err := c.Get("/x")
	require.NoError(t, err)

	assert.Equal(t, "HTTP/1.1", resp.Version)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "OK", resp.StatusMessage)
	assert.Equal(t, "hello", resp.Body)

	v, ok := resp.Header("content-length")
	require.True(t, ok, "header lookup is case-insensitive")
	assert.Equal(t, "5", v)
	v, ok = resp.Header("Connection")
	require.True(t, ok)
	assert.Equal(t, "close", v)

	// Connection: close must drop the cached socket.
	assert.Nil(t, c.conn)
}

func TestKeepAliveReusesConnection(t *testing.T) {
	s := newStubServer(t, 0, respondWith(
		"HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok", false))

	c := New("127.0.0.1", s.port())
	defer c.Close()

	for i := 0; i < 3; i++ {
		resp, err := c.Get("/again")
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body)
	}

	assert.NotNil(t, c.conn)
	assert.Equal(t, 1, s.acceptCount(), "keep-alive must reuse one connection")
}

func TestRequestSerialization(t *testing.T) {
	s := newStubServer(t, 1, respondWith(
		"HTTP/1.1 201 Created\r\nContent-Length: 0\r\n\r\n", false))

	c := New("127.0.0.1", s.port())
	defer c.Close()

	resp, err := c.Post("/submit", "data!", Header{Key: "X-Token", Value: "abc"})
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "", resp.Body)

	sent := s.request(0)
	assert.True(t, strings.HasPrefix(sent, "POST /submit HTTP/1.1\r\n"), "request line: %q", sent)
	assert.Contains(t, sent, "X-Token: abc\r\n")
	assert.Contains(t, sent, "Content-Length: 5\r\n")
	assert.Contains(t, sent, "Host: 127.0.0.1\r\n")
	assert.True(t, strings.HasSuffix(sent, "\r\n\r\ndata!"))
}

func TestMissingContentLengthKeepsBufferedBodyOnly(t *testing.T) {
	s := newStubServer(t, 1, func(conn net.Conn, _ string) {
		io.WriteString(conn, "HTTP/1.1 200 OK\r\n\r\n")
		// A late body must not be waited for: without Content-Length the
		// client stops at the header terminator.
		time.Sleep(300 * time.Millisecond)
		io.WriteString(conn, "late body")
	})

	c := New("127.0.0.1", s.port())
	defer c.Close()

	start := time.Now()
	resp, err := c.Get("/nolength")
	require.NoError(t, err)
	assert.Equal(t, "", resp.Body)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestMissingContentLengthKeepsBodyBufferedWithHeader(t *testing.T) {
	// Header and body arrive in one write: the bytes buffered alongside
	// the terminator are the body, even without a Content-Length.
	s := newStubServer(t, 1, respondWith("HTTP/1.1 200 OK\r\n\r\nbundled", false))

	c := New("127.0.0.1", s.port())
	defer c.Close()

	resp, err := c.Get("/buffered")
	require.NoError(t, err)
	assert.Equal(t, "bundled", resp.Body)
}

func TestRetryEventuallySucceeds(t *testing.T) {
	var mu sync.Mutex
	failures := 2

	s := newStubServer(t, 1, func(conn net.Conn, _ string) {
		mu.Lock()
		fail := failures > 0
		if fail {
			failures--
		}
		mu.Unlock()

		if fail {
			conn.Close()
			return
		}
		io.WriteString(conn, "HTTP/1.1 200 OK\r\nContent-Length: 3\r\n\r\nyes")
	})

	c := New("127.0.0.1", s.port(), WithRetry(3, 10*time.Millisecond))
	defer c.Close()

	resp, err := c.Get("/flaky")
	require.NoError(t, err)
	assert.Equal(t, "yes", resp.Body)
	assert.Equal(t, 3, s.acceptCount())
}

func TestRetryExhaustionFails(t *testing.T) {
	s := newStubServer(t, 1, func(conn net.Conn, _ string) {
		conn.Close()
	})

	c := New("127.0.0.1", s.port(), WithRetry(2, 10*time.Millisecond))
	_, err := c.Get("/dead")
	assert.Error(t, err)
	assert.Equal(t, 2, s.acceptCount())
}

func TestMalformedStatusLine(t *testing.T) {
	s := newStubServer(t, 1, respondWith("NOT-HTTP nonsense\r\n\r\n", false))

	c := New("127.0.0.1", s.port(), WithRetry(1, 0))
	_, err := c.Get("/junk")
	assert.ErrorIs(t, err, ErrMalformedResponse)
	// A parse failure must not leave a cached connection behind.
	assert.Nil(t, c.conn)
}

func TestBodyLongerThanFirstRead(t *testing.T) {
	body := strings.Repeat("z", 3*readBufferSize)
	s := newStubServer(t, 1, func(conn net.Conn, _ string) {
		io.WriteString(conn, "HTTP/1.1 200 OK\r\nContent-Length: "+strconv.Itoa(len(body))+"\r\n\r\n")
		io.WriteString(conn, body)
	})

	c := New("127.0.0.1", s.port())
	defer c.Close()

	resp, err := c.Get("/big")
	require.NoError(t, err)
	assert.Equal(t, body, resp.Body)
}

func TestSetHeaderReplacesCaseInsensitively(t *testing.T) {
	req := &Request{Method: "GET", Path: "/"}
	req.SetHeader("Content-Type", "text/plain")
	req.SetHeader("content-type", "application/json")

	require.Len(t, req.Headers, 1)
	assert.Equal(t, "application/json", req.Headers[0].Value)
}
