//go:build integration

package tests

import (
	"context"
	"os"
	"testing"
	"time"

	"channel-tracker/internal/channels"
	"channel-tracker/internal/clients_api/youtube"
	"channel-tracker/internal/infra/fs"
)

// Live API tests; each costs a couple of quota units.
func newLiveClient(t *testing.T) *youtube.Client {
	key := os.Getenv("YOUTUBE_API_KEY")
	if key == "" {
		t.Skip("YOUTUBE_API_KEY not set")
	}
	return youtube.NewClient(youtube.Options{APIKey: key, Timeout: 30 * time.Second, MaxRetries: 1})
}

func TestIntegration_YouTube_ResolveHandle(t *testing.T) {
	c := newLiveClient(t)
	id, err := c.ResolveHandle(context.Background(), "@YouTube")
	if err != nil {
		t.Fatalf("ResolveHandle failed: %v", err)
	}
	if len(id) < 2 || id[:2] != "UC" {
		t.Fatalf("expected a UC... channel id, got %q", id)
	}
}

func TestIntegration_YouTube_Fetch(t *testing.T) {
	c := newLiveClient(t)
	f := youtube.NewFetcher(c, fs.NewHandleCache(t.TempDir()), nil)

	rec, err := f.Fetch(context.Background(), channels.Channel{Ref: channels.Handle("@YouTube"), Name: "YouTube"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec.Views == 0 || rec.Videos == 0 {
		t.Fatalf("expected non-zero views and videos, got %+v", rec)
	}
}

func TestIntegration_YouTube_UnknownHandle(t *testing.T) {
	c := newLiveClient(t)
	_, err := c.ResolveHandle(context.Background(), "@this-handle-should-not-exist-7f3a9c1e")
	if !youtube.IsKind(err, youtube.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}
