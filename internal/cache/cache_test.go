package cache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c, err := New[string](4, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get = (%q, %v), want (\"v\", true)", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get returned a hit for a missing key")
	}
}

func TestCache_Expiry(t *testing.T) {
	c, err := New[int](4, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set("k", 7)
	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestCache_EvictsLeastRecent(t *testing.T) {
	c, err := New[int](2, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected oldest entry to be evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected newest entry to survive")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestCache_StructValues(t *testing.T) {
	type payload struct {
		Status int
		Body   string
	}
	c, err := New[payload](4, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set("k", payload{Status: 200, Body: "ok"})
	got, ok := c.Get("k")
	if !ok || got.Status != 200 || got.Body != "ok" {
		t.Fatalf("Get = (%+v, %v)", got, ok)
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c, err := New[string](4, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Close()
	c.Close()
}
