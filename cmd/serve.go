package cmd

import (
	"context"
	"errors"
	"log/slog"
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

	"github.com/friendsincode/audioengine/internal/queuestore"
)

var (
	serveQueueFile   string
	serveBlobRoot    string
	serveDeviceIdx   int
	serveFrameChunk  int
	serveVerbose     bool
	serveNoAutoplay  bool
)

// serveCmd runs the engine as a long-lived service: it loads whatever queue
// snapshot is on disk, opens the output device, and plays it start to end.
// There is no command transport wired up here (spec.md §1 places HTTP/REST
// out of scope) — mutate the queue by editing the snapshot file, or embed
// pkg/engine directly in a service that does have one.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the playback engine against a persisted queue",
	Args:  cobra.NoArgs,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveQueueFile, "queue-file", "queue.json", "Queue snapshot path")
	serveCmd.Flags().StringVar(&serveBlobRoot, "blob-root", ".", "Root directory audio refs resolve against")
	serveCmd.Flags().IntVarP(&serveDeviceIdx, "device", "d", 1, "Audio output device index")
	serveCmd.Flags().IntVarP(&serveFrameChunk, "frames", "f", 512, "Output frames per PortAudio callback")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Verbose (debug) logging")
	serveCmd.Flags().BoolVar(&serveNoAutoplay, "no-autoplay", false, "Load the queue but wait for an external Play before producing output")
}

func runServe(cmd *cobra.Command, args []string) {
	log := newLogger(serveVerbose)
	slog.SetDefault(log)

	log.Info("initializing PortAudio")
	if err := portaudio.Initialize(); err != nil {
		log.Error("failed to initialize PortAudio", "error", err)
		os.Exit(engine.ExitDeviceError)
	}
	defer portaudio.Terminate()

	queueFile, err := filepath.Abs(serveQueueFile)
	if err != nil {
		log.Error("invalid queue file path", "error", err)
		os.Exit(engine.ExitConfigError)
	}
	blobRoot, err := filepath.Abs(serveBlobRoot)
	if err != nil {
		log.Error("invalid blob root", "error", err)
		os.Exit(engine.ExitConfigError)
	}

	engCfg := config.LoadEngine(config.New())
	queue := queuestore.NewFileStore(queueFile)
	blobs := boundary.NewFileBlobStore(blobRoot)
	bus := events.NewBus()

	eng := engine.New(engCfg, queue, blobs, bus, log)

	frameChunk := serveFrameChunk
	if !cmd.Flags().Changed("frames") {
		frameChunk = engCfg.AudioBufferFrames
	}
	outDriver := output.New(eng.OutputRing(), engCfg.WorkingSampleRate, serveDeviceIdx)
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
		sig := <-sigChan
		log.Info("signal received, shutting down", "signal", sig)
		cancel()
	}()

	logDone := make(chan struct{})
	go logEvents(ctx, log, bus, logDone)

	if !serveNoAutoplay {
		go func() {
			if err := eng.Play(); err != nil {
				log.Warn("initial play request failed", "error", err)
			}
		}()
	}

	runErr := eng.Run(ctx)
	<-logDone

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("engine stopped with error", "error", runErr)
		switch engine.BandOf(runErr) {
		case engine.Fatal:
			os.Exit(engine.ExitConfigError)
		default:
			os.Exit(engine.ExitRecoverableEscalated)
		}
	}
	log.Info("exiting")
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// logEvents subscribes to bus and logs every published event until ctx is
// canceled, then unsubscribes and closes done.
func logEvents(ctx context.Context, log *slog.Logger, bus *events.Bus, done chan struct{}) {
	sub := bus.Subscribe()
	defer close(done)
	defer bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub:
			if !ok {
				return
			}
			log.Debug("event", "kind", evt.Kind, "entry_id", evt.EntryID, "detail", evt.Detail)
		}
	}
}
