package worker

import (
	"context"
	"testing"
	"time"

	"github.com/friendsincode/audioengine/pkg/chain"
	"github.com/friendsincode/audioengine/pkg/passage"
	"github.com/friendsincode/audioengine/pkg/pcmring"
	"github.com/friendsincode/audioengine/pkg/playout"
	"github.com/friendsincode/audioengine/pkg/testsupport"
	"github.com/friendsincode/audioengine/pkg/ticks"
)

func shortPassage() passage.Passage {
	sec := func(s float64) int64 { return ticks.FromSeconds(s) }
	return passage.Passage{
		AudioRef: "sine.wav",
		Start:    sec(0), FadeIn: sec(0.01), FadeOut: sec(0.09), LeadIn: sec(0.01), LeadOut: sec(0.09), End: sec(0.1),
	}
}

func TestWorkerDrivesRegisteredChainToFinished(t *testing.T) {
	const rate = 8000
	dec := testsupport.NewSineDecoder(rate, 2, rate/10, 440) // 0.1s
	buf := playout.New("e1", shortPassage(), 1<<14, 1)
	c, err := chain.New("e1", shortPassage(), dec, buf, rate, 0)
	if err != nil {
		t.Fatalf("chain.New: %v", err)
	}

	w := New(4410, 44100, 0, func(passage.EntryID) Priority { return Immediate })
	w.Register("e1", c, buf)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	out := make([]pcmring.Frame, 256)
	deadline := time.After(2 * time.Second)
	for {
		buf.PopFrames(out)
		if buf.State() == playout.Finished && buf.Available() == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("worker did not finish the chain in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPriorityConstantsIncreaseWithUrgency(t *testing.T) {
	prio := map[passage.EntryID]Priority{"a": Prefetch, "b": Immediate, "c": Next}
	w := New(4410, 44100, 0, func(id passage.EntryID) Priority { return prio[id] })

	jobs := []*job{
		{priority: Prefetch},
		{priority: Immediate},
		{priority: Next},
	}
	_ = w
	if Immediate <= Next || Next <= Prefetch {
		t.Fatal("priority ordering constants are not strictly increasing")
	}
	_ = jobs
}
