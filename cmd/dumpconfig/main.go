package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/ncecere/feedback_assistant/internal/config"
)

func main() {
	configFile := flag.String("config", "", "path to feedback.yaml (defaults to ./feedback.yaml or FEEDBACK_CONFIG_FILE)")
	envFile := flag.String("env", "", "path to a .env file")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg.Redacted()); err != nil {
		log.Fatalf("encode config: %v", err)
	}
}
