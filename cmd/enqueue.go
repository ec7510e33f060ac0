package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"

	"github.com/friendsincode/audioengine/pkg/boundary"
	"github.com/friendsincode/audioengine/pkg/config"
	"github.com/friendsincode/audioengine/pkg/engine"
	"github.com/friendsincode/audioengine/pkg/events"
	"github.com/friendsincode/audioengine/pkg/output"
	"github.com/friendsincode/audioengine/pkg/passage"
	"github.com/friendsincode/audioengine/pkg/ticks"
)

var (
	enqueueDeviceIdx  int
	enqueueFrameChunk int
	enqueueVerbose    bool
)

// wholeFileTicks stands in for "play to the decoder's natural end": passages
// normally carry a real End point resolved from a catalog, but a single
// ad-hoc file here has no such metadata, so End is set far beyond any real
// recording and the chain finishes on decoder EOF instead of truncation
// (pkg/chain.Chain.enqueueFrames only truncates early if framesSeen actually
// reaches End).
var wholeFileTicks = ticks.FromSeconds(6 * 3600)

// enqueueCmd plays a single local file standalone, without a persisted
// queue, useful for exercising the engine pipeline end to end.
var enqueueCmd = &cobra.Command{
	Use:   "enqueue <audio_file>",
	Short: "Play a single audio file through the engine, once",
	Args:  cobra.ExactArgs(1),
	Run:   runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().IntVarP(&enqueueDeviceIdx, "device", "d", 1, "Audio output device index")
	enqueueCmd.Flags().IntVarP(&enqueueFrameChunk, "frames", "f", 512, "Output frames per PortAudio callback")
	enqueueCmd.Flags().BoolVarP(&enqueueVerbose, "verbose", "v", false, "Verbose (debug) logging")
}

// nullQueue is an ephemeral boundary.Queue: nothing persists across runs,
// matching the command's one-shot nature.
type nullQueue struct{}

func (nullQueue) Load(ctx context.Context) ([]passage.QueueEntry, error) { return nil, nil }
func (nullQueue) Save(ctx context.Context, entries []passage.QueueEntry) error { return nil }

func runEnqueue(cmd *cobra.Command, args []string) {
	log := newLogger(enqueueVerbose)

	abs, err := filepath.Abs(args[0])
	if err != nil {
		log.Error("invalid file path", "error", err)
		os.Exit(engine.ExitConfigError)
	}
	if _, err := os.Stat(abs); err != nil {
		log.Error("file not found", "path", abs, "error", err)
		os.Exit(engine.ExitConfigError)
	}

	log.Info("initializing PortAudio")
	if err := portaudio.Initialize(); err != nil {
		log.Error("failed to initialize PortAudio", "error", err)
		os.Exit(engine.ExitDeviceError)
	}
	defer portaudio.Terminate()

	engCfg := config.LoadEngine(config.New())
	blobs := boundary.NewFileBlobStore(filepath.Dir(abs))
	bus := events.NewBus()
	eng := engine.New(engCfg, nullQueue{}, blobs, bus, log)

	frameChunk := enqueueFrameChunk
	if !cmd.Flags().Changed("frames") {
		frameChunk = engCfg.AudioBufferFrames
	}
	outDriver := output.New(eng.OutputRing(), engCfg.WorkingSampleRate, enqueueDeviceIdx)
	if err := outDriver.Open(frameChunk); err != nil {
		log.Error("failed to open output device", "error", err)
		os.Exit(engine.ExitDeviceError)
	}
	defer outDriver.Close()
	eng.AttachOutput(outDriver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("signal received, stopping")
		cancel()
	}()

	sub := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-sub:
				if !ok {
					return
				}
				log.Debug("event", "kind", evt.Kind, "entry_id", evt.EntryID, "detail", evt.Detail)
				if evt.Kind == "PassageCompleted" {
					cancel()
					return
				}
			}
		}
	}()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- eng.Run(ctx) }()

	pass := passage.Passage{
		AudioRef: filepath.Base(abs),
		Start:    0,
		FadeIn:   0,
		FadeOut:  wholeFileTicks,
		LeadIn:   0,
		LeadOut:  wholeFileTicks,
		End:      wholeFileTicks,
	}
	if _, err := eng.Enqueue(pass, nil); err != nil {
		log.Error("enqueue rejected", "error", err)
		cancel()
		<-runErrCh
		os.Exit(engine.ExitConfigError)
	}
	if err := eng.Play(); err != nil {
		log.Error("play failed", "error", err)
	}

	runErr := <-runErrCh
	bus.Unsubscribe(sub)
	<-done

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("engine stopped with error", "error", runErr)
		os.Exit(engine.ExitRecoverableEscalated)
	}
	log.Info("playback finished")
}
