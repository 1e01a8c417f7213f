// Package httpclient is a minimal HTTP/1.1 client with keep-alive, bounded
// timeouts and retry-on-failure. It speaks plain TCP only: no TLS, no
// chunked transfer encoding, no HTTP/2.
package httpclient

import (
	"strconv"
	"strings"
)

const protocol = "HTTP/1.1"

// Header is one header line. Requests keep headers as an ordered slice so
// they are written in insertion order.
type Header struct {
	Key   string
	Value string
}

// Request is one HTTP request to be processed by a Client.
type Request struct {
	Method  string
	Path    string
	Headers []Header
	Body    string
}

// SetHeader replaces the value of an existing header (case-insensitive
// key match) or appends a new one.
func (r *Request) SetHeader(key, value string) {
	for i := range r.Headers {
		if strings.EqualFold(r.Headers[i].Key, key) {
			r.Headers[i].Value = value
			return
		}
	}
	r.Headers = append(r.Headers, Header{Key: key, Value: value})
}

// encode renders the request on the wire: request line, header lines, a
// blank line, then the body.
func (r *Request) encode() []byte {
	var sb strings.Builder

	sb.WriteString(r.Method)
	sb.WriteByte(' ')
	sb.WriteString(r.Path)
	sb.WriteByte(' ')
	sb.WriteString(protocol)
	sb.WriteString("\r\n")

	for _, h := range r.Headers {
		sb.WriteString(h.Key)
		sb.WriteString(": ")
		sb.WriteString(h.Value)
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
	sb.WriteString(r.Body)

	return []byte(sb.String())
}

func (r *Request) contentLength() string {
	return strconv.Itoa(len(r.Body))
}
