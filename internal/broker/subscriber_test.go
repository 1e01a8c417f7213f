package broker

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Albert24GG/pcom-assignments/internal/broker/wire"
)

func TestSubscriberRejectsBadID(t *testing.T) {
	_, err := NewSubscriber("", "127.0.0.1:1", SubscriberOptions{})
	assert.Error(t, err)
	_, err = NewSubscriber("elevencharss", "127.0.0.1:1", SubscriberOptions{})
	assert.Error(t, err)
	_, err = NewSubscriber("exactly10c", "127.0.0.1:1", SubscriberOptions{})
	assert.NoError(t, err)
}

func TestSubscriberSessionFlow(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	type serverSeen struct {
		connect wire.Request
		sub     wire.Request
		unsub   wire.Request
	}
	seen := make(chan serverSeen, 1)

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var got serverSeen
		readReq := func() wire.Request {
			_, payload, err := wire.ReadFrame(conn)
			if err != nil {
				return wire.Request{}
			}
			req, _ := wire.DecodeRequest(payload)
			return req
		}

		got.connect = readReq()
		got.sub = readReq()

		// Push one publication at the subscriber.
		frame, _ := wire.Response{
			ClientIP:   0x7F000001,
			ClientPort: 4242,
			Topic:      "sensor/room1/temp",
			Payload:    wire.FloatPayload{Sign: 1, Mantissa: 1234, Exponent: 2},
		}.EncodeResponseFrame()
		conn.Write(frame)

		got.unsub = readReq()
		seen <- got

		// Server-side close terminates the client loop.
		time.Sleep(100 * time.Millisecond)
	}()

	stdinR, stdinW := io.Pipe()
	var out syncBuffer

	sub, err := NewSubscriber("S1", listener.Addr().String(), SubscriberOptions{
		Stdin:  stdinR,
		Stdout: &out,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- sub.Run(context.Background())
	}()

	io.WriteString(stdinW, "subscribe sensor/+/temp\n")
	time.Sleep(300 * time.Millisecond)
	io.WriteString(stdinW, "unsubscribe sensor/+/temp\n")
	time.Sleep(300 * time.Millisecond)
	io.WriteString(stdinW, "exit\n")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("subscriber did not exit")
	}

	got := <-seen
	assert.Equal(t, wire.Request{Type: wire.RequestConnect, Value: "S1"}, got.connect)
	assert.Equal(t, wire.Request{Type: wire.RequestSubscribe, Value: "sensor/+/temp"}, got.sub)
	assert.Equal(t, wire.Request{Type: wire.RequestUnsubscribe, Value: "sensor/+/temp"}, got.unsub)

	output := out.String()
	assert.Contains(t, output, "Subscribed to topic: sensor/+/temp")
	assert.Contains(t, output, "Unsubscribed from topic: sensor/+/temp")
	assert.Contains(t, output, "127.0.0.1:4242 - sensor/room1/temp - FLOAT - -12.34")
}

func TestSubscriberStopsOnServerClose(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		// Read the CONNECT frame, then hang up.
		wire.ReadFrame(conn)
		conn.Close()
	}()

	sub, err := NewSubscriber("S1", listener.Addr().String(), SubscriberOptions{
		Stdin:  strings.NewReader(""),
		Stdout: io.Discard,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- sub.Run(context.Background())
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("subscriber did not stop on server close")
	}
}
