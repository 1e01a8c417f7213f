package broker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/Albert24GG/pcom-assignments/internal/broker/wire"
	"github.com/Albert24GG/pcom-assignments/internal/log"
	"github.com/Albert24GG/pcom-assignments/internal/topic"
)

// SubscriberOptions tunes the subscriber client. The zero value is
// usable.
type SubscriberOptions struct {
	Stdin  io.Reader
	Stdout io.Writer
}

func (o SubscriberOptions) withDefaults() SubscriberOptions {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	return o
}

// Subscriber is the interactive broker client: it connects with its
// identity, forwards subscribe/unsubscribe commands from stdin and
// prints every publication the server fans out to it.
type Subscriber struct {
	id   string
	addr string
	opts SubscriberOptions
	log  log.Logger
}

func NewSubscriber(id, serverAddr string, opts SubscriberOptions) (*Subscriber, error) {
	if len(id) == 0 || len(id) > wire.MaxClientIDLen {
		return nil, errors.Errorf("broker: client id must be 1..%d characters", wire.MaxClientIDLen)
	}
	return &Subscriber{
		id:   id,
		addr: serverAddr,
		opts: opts.withDefaults(),
		log:  log.GetLogger().WithField("component", "subscriber"),
	}, nil
}

// Run connects, registers the identity and drives the command/response
// loop until "exit", server close or context cancellation.
func (c *Subscriber) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return errors.Wrap(err, "broker: failed to connect to server")
	}
	defer conn.Close()

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			return errors.Wrap(err, "broker: failed to disable Nagle")
		}
	}

	frame, err := wire.Request{Type: wire.RequestConnect, Value: c.id}.EncodeRequestFrame()
	if err != nil {
		return err
	}
	if _, err := conn.Write(frame); err != nil {
		return errors.Wrap(err, "broker: failed to send connect request")
	}

	lines := make(chan string)
	responses := make(chan wire.Response)
	readErrs := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.opts.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		for {
			resp, err := readResponse(conn)
			if err != nil {
				readErrs <- err
				return
			}
			select {
			case responses <- resp:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				// Stdin closed; keep printing publications.
				lines = nil
				continue
			}
			if done, err := c.handleCommand(conn, line); done || err != nil {
				return err
			}

		case resp := <-responses:
			fmt.Fprintf(c.opts.Stdout, "%s:%d - %s - %s - %s\n",
				resp.ClientAddr(), resp.ClientPort, resp.Topic,
				resp.Payload.Type(), resp.Payload.Value())

		case err := <-readErrs:
			if isDisconnect(err) {
				c.log.Info("connection closed by server")
				return nil
			}
			return errors.Wrap(err, "broker: failed to read server frame")
		}
	}
}

// handleCommand executes one stdin command. It returns done=true for
// "exit" and a non-nil error only for unrecoverable transport failures.
func (c *Subscriber) handleCommand(conn net.Conn, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "exit":
		return true, nil

	case "subscribe", "unsubscribe":
		if len(fields) != 2 {
			c.log.Errorf("usage: %s <topic>", fields[0])
			return false, nil
		}
		topicStr := fields[1]
		if len(topicStr) > wire.MaxTopicLen {
			c.log.Error("topic exceeds maximum allowed size")
			return false, nil
		}
		// Validate locally so invalid patterns never reach the server.
		if _, err := topic.Parse(topicStr); err != nil {
			c.log.WithError(err).Errorf("invalid topic pattern %q", topicStr)
			return false, nil
		}

		reqType := wire.RequestSubscribe
		if fields[0] == "unsubscribe" {
			reqType = wire.RequestUnsubscribe
		}
		frame, err := wire.Request{Type: reqType, Value: topicStr}.EncodeRequestFrame()
		if err != nil {
			c.log.WithError(err).Error("failed to serialize request")
			return false, nil
		}
		if _, err := conn.Write(frame); err != nil {
			return false, errors.Wrap(err, "broker: failed to send request")
		}

		if reqType == wire.RequestSubscribe {
			fmt.Fprintf(c.opts.Stdout, "Subscribed to topic: %s\n", topicStr)
		} else {
			fmt.Fprintf(c.opts.Stdout, "Unsubscribed from topic: %s\n", topicStr)
		}
		return false, nil

	default:
		c.log.Errorf("unknown command %q", fields[0])
		return false, nil
	}
}

// readResponse reads and decodes one server frame.
func readResponse(conn net.Conn) (wire.Response, error) {
	msgType, payload, err := wire.ReadFrame(conn)
	if err != nil {
		return wire.Response{}, err
	}
	if msgType != wire.MessageResponse {
		return wire.Response{}, errors.Wrap(wire.ErrUnknownMessageType, "expected a response frame")
	}
	return wire.DecodeResponse(payload)
}
