package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/MrSnakeDoc/marksync/internal/logger"
)

func testOptions(addr string) ConnectOptions {
	return ConnectOptions{
		Addr:           addr,
		DialTimeout:    50 * time.Millisecond,
		ReadTimeout:    50 * time.Millisecond,
		WriteTimeout:   50 * time.Millisecond,
		PoolSize:       2,
		ConnectTimeout: 300 * time.Millisecond,
		RetryInterval:  20 * time.Millisecond,
		MaxWait:        50 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), testOptions(mr.Addr()), logger.New("error", false))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
}

func TestConnectGivesUp(t *testing.T) {
	// reserve a port, then free it so nothing listens there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	start := time.Now()
	_, err = Connect(context.Background(), testOptions(addr), logger.New("error", false))
	if err == nil {
		t.Fatal("Connect() should fail when nothing listens")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("Connect() took %v, should stop at ConnectTimeout", time.Since(start))
	}
}

func TestConnectRejectsInvalidOptions(t *testing.T) {
	opts := testOptions("127.0.0.1:6379")
	opts.PingTimeout = 0
	if _, err := Connect(context.Background(), opts, logger.New("error", false)); err == nil {
		t.Fatal("Connect() should reject a zero PingTimeout")
	}
}

func TestBackoff(t *testing.T) {
	b := &backoff{wait: time.Second, max: 3 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		if got := b.next(); got != w {
			t.Errorf("next() #%d = %v, want %v", i, got, w)
		}
	}
}
