package cache

import (
	"context"
	"testing"
	"time"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var got entry
	if found, err := c.Get(ctx, "missing", &got); err != nil || found {
		t.Fatalf("Get(missing) = %v, %v", found, err)
	}

	if err := c.Set(ctx, "k", entry{Name: "bhk", Count: 3}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	found, err := c.Get(ctx, "k", &got)
	if err != nil || !found {
		t.Fatalf("Get(k) = %v, %v", found, err)
	}
	if got.Name != "bhk" || got.Count != 3 {
		t.Errorf("got %+v", got)
	}

	if err := c.Delete(ctx, "k", "other"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if found, _ := c.Get(ctx, "k", &got); found {
		t.Error("key survived Delete")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	if err := c.Set(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var v string
	if found, _ := c.Get(ctx, "k", &v); found {
		t.Error("expired key still returned")
	}
}

func TestNoopNeverHits(t *testing.T) {
	ctx := context.Background()
	var c Cache = Noop{}
	if err := c.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var n int
	if found, _ := c.Get(ctx, "k", &n); found {
		t.Error("Noop returned a value")
	}
}

func TestQueryKeyIgnoresOrder(t *testing.T) {
	a := QueryKey("geo", map[string]string{"ip": "1.2.3.4", "lang": "en"})
	b := QueryKey("geo", map[string]string{"lang": "en", "ip": "1.2.3.4"})
	if a != b {
		t.Errorf("keys differ: %s vs %s", a, b)
	}
	if c := QueryKey("geo", map[string]string{"ip": "5.6.7.8"}); c == a {
		t.Error("different params share a key")
	}
}
