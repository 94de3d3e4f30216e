package ratelimit

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestTokenBucket_StartsFullAndDrains(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := NewTokenBucket(clock, 3, 1)

	for i := 0; i < 3; i++ {
		if !b.Allow(1) {
			t.Fatalf("token %d unexpectedly rejected", i)
		}
	}
	if b.Allow(1) {
		t.Fatalf("bucket should be empty")
	}
}

func TestTokenBucket_RefillsAtRate(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := NewTokenBucket(clock, 2, 2)

	if !b.Allow(2) {
		t.Fatalf("initial burst rejected")
	}
	if b.Allow(1) {
		t.Fatalf("empty bucket allowed a token")
	}

	clock.advance(500 * time.Millisecond) // 1 token at 2/sec
	if !b.Allow(1) {
		t.Fatalf("refilled token rejected")
	}
	if b.Allow(1) {
		t.Fatalf("only one token should have refilled")
	}
}

func TestTokenBucket_ClampsToCapacity(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := NewTokenBucket(clock, 2, 10)

	if !b.Allow(2) {
		t.Fatalf("initial burst rejected")
	}
	clock.advance(time.Hour)
	if !b.Allow(2) {
		t.Fatalf("refilled burst rejected")
	}
	if b.Allow(1) {
		t.Fatalf("bucket exceeded capacity after long idle")
	}
}

func TestTokenBucket_TimeGoingBackwards(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := NewTokenBucket(clock, 1, 1)

	if !b.Allow(1) {
		t.Fatalf("initial token rejected")
	}
	clock.advance(-time.Minute)
	if b.Allow(1) {
		t.Fatalf("backwards clock must not refill")
	}
	clock.advance(time.Minute + time.Second)
	if !b.Allow(1) {
		t.Fatalf("token after clock recovery rejected")
	}
}

func TestTokenBucket_NonPositiveCost(t *testing.T) {
	b := NewTokenBucket(&fakeClock{now: time.Unix(1000, 0)}, 0, 0)
	if !b.Allow(0) {
		t.Fatalf("zero cost must always be allowed")
	}
	if b.Allow(1) {
		t.Fatalf("zero-capacity bucket allowed a token")
	}
}
