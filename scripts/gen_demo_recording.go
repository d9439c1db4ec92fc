//go:build ignore

// Command gen_demo_recording writes every demo scenario to a stream
// recording that `apiflow replay` can play back.
//
// Usage:
//
//	go run ./scripts/gen_demo_recording.go -out demo-runs.log
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/pablasso/apiflow/internal/consumer"
	"github.com/pablasso/apiflow/internal/demo"
	"github.com/pablasso/apiflow/internal/session"
	"github.com/pablasso/apiflow/internal/workflow"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "demo-runs.log", "Recording file to append to")
	flag.Parse()

	capture, err := consumer.OpenCapture(outPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open recording: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	cfg, err := demo.NewConfig(demo.PresetQuick)
	if err != nil {
		fmt.Fprintf(os.Stderr, "demo config: %v\n", err)
		os.Exit(1)
	}
	cfg = cfg.WithSpeed(1000)
	for _, scenario := range demo.Scenarios {
		sess := session.New(demo.NewPlayback(scenario, cfg), workflow.NewStore(""), session.WithCapture(capture))
		if _, err := sess.Start(context.Background(), scenario.Prompt()); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", scenario, err)
			os.Exit(1)
		}
		err := sess.Wait()
		if err != nil && !errors.Is(err, consumer.ErrRunFailed) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", scenario, err)
			os.Exit(1)
		}
		fmt.Printf("recorded %s\n", scenario)
	}
	fmt.Printf("wrote %s\n", outPath)
}
