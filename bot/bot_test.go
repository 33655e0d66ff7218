package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nstehr/trackside/trackside-core/device/devicetest"
	"github.com/nstehr/trackside/trackside-core/model"
)

type recordingObserver struct {
	attempts int
	hit      bool
	calls    int
}

func (r *recordingObserver) ObserveFindAndAct(_ string, attempts int, hit bool) {
	r.calls++
	r.attempts = attempts
	r.hit = hit
}

func newTestBot(dev *devicetest.Fake) *Bot {
	return New(dev, Options{WaitBetween: time.Second, TapSettle: -1})
}

func TestFindAndActBoundedCalls(t *testing.T) {
	for tries := 1; tries <= 5; tries++ {
		dev := devicetest.New()
		b := newTestBot(dev)

		ok, err := b.FindAndAct(context.Background(), "button", tries)
		if err != nil {
			t.Fatalf("tries=%d: unexpected error: %v", tries, err)
		}
		if ok {
			t.Errorf("tries=%d: expected miss", tries)
		}
		if got := dev.FindCalls["button"]; got != tries {
			t.Errorf("tries=%d: perception calls = %d, want %d", tries, got, tries)
		}
		if len(dev.Taps) != 0 {
			t.Errorf("tries=%d: taps = %d, want 0", tries, len(dev.Taps))
		}
		if len(dev.Waits) != tries-1 {
			t.Errorf("tries=%d: waits = %d, want %d", tries, len(dev.Waits), tries-1)
		}
	}
}

func TestFindAndActStopsOnFirstHit(t *testing.T) {
	dev := devicetest.New()
	dev.Queue("button", devicetest.Miss(), devicetest.Found(10, 20), devicetest.Found(30, 40))
	obs := &recordingObserver{}
	b := New(dev, Options{TapSettle: -1, Observer: obs})

	ok, err := b.FindAndAct(context.Background(), "button", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected hit on second attempt")
	}
	if got := dev.FindCalls["button"]; got != 2 {
		t.Errorf("perception calls = %d, want 2", got)
	}
	if len(dev.Taps) != 1 || dev.Taps[0] != (model.Location{X: 10, Y: 20}) {
		t.Errorf("taps = %+v, want one tap at (10,20)", dev.Taps)
	}
	if obs.calls != 1 || obs.attempts != 2 || !obs.hit {
		t.Errorf("observer = %+v, want one hit after 2 attempts", obs)
	}
}

func TestFindAndActZeroTriesIsOne(t *testing.T) {
	dev := devicetest.New()
	b := newTestBot(dev)
	if _, err := b.FindAndAct(context.Background(), "button", 0); err != nil {
		t.Fatal(err)
	}
	if got := dev.FindCalls["button"]; got != 1 {
		t.Errorf("perception calls = %d, want 1", got)
	}
}

func TestFindAndActPropagatesPerceptionError(t *testing.T) {
	dev := devicetest.New()
	boom := errors.New("socket closed")
	dev.Fail("button", boom)
	b := newTestBot(dev)

	_, err := b.FindAndAct(context.Background(), "button", 3)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if got := dev.FindCalls["button"]; got != 1 {
		t.Errorf("perception calls = %d, want 1 (no retry on transport error)", got)
	}
}

func TestFindAndActSettlesAfterTap(t *testing.T) {
	dev := devicetest.New()
	dev.Show("button", model.Location{X: 1, Y: 1})
	b := New(dev, Options{TapSettle: 300 * time.Millisecond})

	if _, err := b.FindAndAct(context.Background(), "button", 3); err != nil {
		t.Fatal(err)
	}
	if len(dev.Waits) != 1 || dev.Waits[0] != 300*time.Millisecond {
		t.Errorf("waits = %v, want [300ms]", dev.Waits)
	}
}

func TestPickOutOfRange(t *testing.T) {
	locs := devicetest.Locs(1, 1)
	if _, err := Pick(locs, 1, "option"); !errors.Is(err, ErrCandidateOutOfRange) {
		t.Errorf("Pick(len=1, 1) err = %v, want ErrCandidateOutOfRange", err)
	}
	if _, err := Pick(locs, -1, "option"); !errors.Is(err, ErrCandidateOutOfRange) {
		t.Errorf("Pick(len=1, -1) err = %v, want ErrCandidateOutOfRange", err)
	}
	got, err := Pick(locs, 0, "option")
	if err != nil || got != locs[0] {
		t.Errorf("Pick(len=1, 0) = %v, %v", got, err)
	}
}

func TestRegions(t *testing.T) {
	b := New(devicetest.New(), Options{ScreenWidth: 1000, ScreenHeight: 2001})
	top, bottom := b.TopHalf(), b.BottomHalf()
	if top.Height+bottom.Height != 2001 {
		t.Errorf("halves cover %d rows, want 2001", top.Height+bottom.Height)
	}
	if bottom.Y != top.Height {
		t.Errorf("bottom half starts at %d, want %d", bottom.Y, top.Height)
	}
	mid := b.Middle()
	if mid.Y != 667 || mid.Height != 667 {
		t.Errorf("Middle() = %+v", mid)
	}
}
