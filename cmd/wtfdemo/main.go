// Command wtfdemo emits a handful of sample events and saves a trace file,
// as a smoke test for the wtf package and a template for wiring it into a
// real program.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/tracing-framework"
	"github.com/google/tracing-framework/internal/logging"
)

var (
	frameEvent *wtf.EventDescriptor
	tickEvent  *wtf.EventDescriptor
)

func main() {
	var (
		outPath = flag.String("out", "trace.wtf-trace", "output trace file path")
		frames  = flag.Int("frames", 10, "number of frames to simulate")
		verbose = flag.Bool("v", false, "verbose logging")
		appendf = flag.Bool("append", false, "append to an existing trace instead of truncating it")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, cfgPath, err := wtf.LoadConfig(".", "")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfgPath != "" {
		logger.Info("loaded config", "path", cfgPath)
	}
	cfg.OutputPath = *outPath

	rt := wtf.NewRuntime(cfg)
	frameEvent = rt.NewEvent(wtf.ClassScoped, 0, "wtfdemo#frame:number", wtf.ArgUint32)
	tickEvent = rt.NewEvent(wtf.ClassInstant, 0, "wtfdemo#tick:label", wtf.ArgString)

	ctx, producer := rt.EnableCurrentThread(ctx, "main", "THREAD", "wtfdemo/main.go")

	logger.Info("simulating frames", "count", *frames)
frameLoop:
	for i := 0; i < *frames; i++ {
		select {
		case <-ctx.Done():
			logger.Warn("interrupted", "frames_completed", i)
			break frameLoop
		default:
		}
		rt.FrameStart(ctx)
		simulateFrame(ctx, i)
		rt.FrameEnd(ctx)
	}
	producer.Flush()

	if err := rt.SaveToFile(cfg.OutputPath, wtf.SaveOptions{Append: *appendf}); err != nil {
		logger.Error("failed to save trace", "error", err)
		os.Exit(1)
	}

	snap := rt.Metrics().Snapshot()
	logger.Info("trace saved",
		"path", cfg.OutputPath,
		"events", snap.EventsEmitted,
		"bytes", snap.BytesWritten)
}

func simulateFrame(ctx context.Context, frame int) {
	leave := wtf.EnterScope(ctx, frameEvent, wtf.Uint32Arg(uint32(frame)))
	defer leave()

	time.Sleep(time.Duration(rand.Intn(2)) * time.Millisecond)
	wtf.EmitInstant(ctx, tickEvent, wtf.StringArg(fmt.Sprintf("frame-%d", frame)))
}
