package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ncecere/feedback_assistant/internal/config"
	"github.com/ncecere/feedback_assistant/internal/providers"
)

func main() {
	configFile := flag.String("config", "", "path to feedback.yaml")
	probe := flag.Bool("probe", false, "run each configured backend's health check")
	timeout := flag.Duration("timeout", 10*time.Second, "per-probe timeout")
	flag.Parse()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CAPABILITY\tPROVIDER\tDESCRIPTION")
	for _, def := range providers.DefaultDefinitions() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", def.Capability, def.Name, def.Description)
	}
	_ = w.Flush()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	capabilities := []providers.Capability{providers.CapabilitySentiment, providers.CapabilityGeneration}
	if cfg.SpeechActive() {
		capabilities = append(capabilities, providers.CapabilitySpeech)
	}

	ctx := context.Background()
	factory := providers.NewFactory(cfg)
	fmt.Println()
	for _, capability := range capabilities {
		backend, err := factory.Build(ctx, capability)
		if err != nil {
			log.Printf("%s: build failed: %v", capability, err)
			continue
		}
		status := "configured"
		if *probe && backend.Health != nil {
			probeCtx, cancel := context.WithTimeout(ctx, *timeout)
			if err := backend.Health(probeCtx); err != nil {
				status = "unhealthy: " + err.Error()
			} else {
				status = "healthy"
			}
			cancel()
		}
		fmt.Printf("%-28s model=%q voice=%q %s\n", backend.Name(), backend.Model, backend.Voice, status)
	}
}
