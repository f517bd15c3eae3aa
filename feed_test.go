package tally

import (
	"context"
	"testing"
	"time"
)

func TestNoFeed_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := NoFeed().Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	select {
	case <-ch:
		t.Fatal("expected no emission before cancel")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel, got a change")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected channel closed after cancel")
	}
}

func TestChannelFeed_ForwardsChanges(t *testing.T) {
	src := make(chan Change, 2)
	feed := NewChannelFeed(src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	src <- Change{Table: "clientes", Kind: "INSERT"}

	select {
	case ev := <-ch:
		if ev.Table != "clientes" || ev.Kind != "INSERT" {
			t.Errorf("unexpected change: %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected forwarded change")
	}
}

func TestChannelFeed_ClosesWhenSourceCloses(t *testing.T) {
	src := make(chan Change)
	feed := NewChannelFeed(src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	close(src)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected channel closed after source close")
	}
}

func TestChannelFeed_ClosesOnContextCancel(t *testing.T) {
	src := make(chan Change)
	feed := NewChannelFeed(src)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := feed.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected channel closed after cancel")
	}
}

func TestSyncChannelFeed_ReturnsSourceDirectly(t *testing.T) {
	src := make(chan Change, 1)
	feed := NewSyncChannelFeed(src)

	ch, err := feed.Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	src <- Change{Table: "transacoes"}

	select {
	case ev := <-ch:
		if ev.Table != "transacoes" {
			t.Errorf("unexpected change: %+v", ev)
		}
	default:
		t.Fatal("expected buffered change available synchronously")
	}
}
