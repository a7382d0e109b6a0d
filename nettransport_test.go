package oatmeal

import (
	"context"
	"net"
	"testing"
	"time"
)

func dialedTCPPair(t *testing.T) (client, server *net.TCPConn) {
	t.Helper()
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer ln.Close()

	acceptCh := make(chan *net.TCPConn, 1)
	go func() {
		c, err := ln.AcceptTCP()
		if err != nil {
			acceptCh <- nil
			return
		}
		acceptCh <- c
	}()

	c, err := net.DialTCP("tcp", nil, ln.Addr().(*net.TCPAddr))
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}

	s := <-acceptCh
	if s == nil {
		t.Fatal("accept failed")
	}
	return c, s
}

func TestTCPTransportRoundTrip(t *testing.T) {
	client, server := dialedTCPPair(t)
	defer client.Close()
	defer server.Close()

	serverTransport := NewTCPTransport(server, WithTCPIdleTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go serverTransport.Run(ctx)

	if _, err := client.Write([]byte("<ABCR01{1,2,3}>i!")); err != nil {
		t.Fatalf("client write: %v", err)
	}

	deadline := time.After(2 * time.Second)
	var got []byte
	for len(got) < len("<ABCR01{1,2,3}>i!") {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for bytes, got %q so far", got)
		case <-time.After(5 * time.Millisecond):
		}
		buf := make([]byte, 64)
		n := serverTransport.Read(buf)
		got = append(got, buf[:n]...)
	}
	if string(got) != "<ABCR01{1,2,3}>i!" {
		t.Fatalf("got %q, want %q", got, "<ABCR01{1,2,3}>i!")
	}
}

func TestTCPTransportWriteReachesPeer(t *testing.T) {
	client, server := dialedTCPPair(t)
	defer client.Close()
	defer server.Close()

	serverTransport := NewTCPTransport(server)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go serverTransport.Run(ctx)

	if err := serverTransport.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 5)
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("got %q, want hello", buf[:n])
	}
}

func TestTCPTransportWriteAfterCloseFails(t *testing.T) {
	client, server := dialedTCPPair(t)
	defer client.Close()

	serverTransport := NewTCPTransport(server)
	if err := serverTransport.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := serverTransport.Write([]byte("x")); err == nil {
		t.Fatal("expected an error writing to a closed transport")
	}
}

func TestTCPTransportDrivesAPort(t *testing.T) {
	client, server := dialedTCPPair(t)
	defer client.Close()
	defer server.Close()

	serverTransport := NewTCPTransport(server)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go serverTransport.Run(ctx)

	p := NewPort(serverTransport)

	frame := []byte("<DISRXY>i_")
	if _, err := client.Write(frame); err != nil {
		t.Fatalf("client write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := p.Recv(); ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Port never received the frame written over TCP")
}
