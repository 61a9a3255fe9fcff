package relay

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/tinyland-inc/kakehashi/cmd/kakehashi/internal"
	"github.com/tinyland-inc/kakehashi/pkg/bus"
	"github.com/tinyland-inc/kakehashi/pkg/channels"
	"github.com/tinyland-inc/kakehashi/pkg/compare"
	"github.com/tinyland-inc/kakehashi/pkg/config"
	"github.com/tinyland-inc/kakehashi/pkg/logger"
	"github.com/tinyland-inc/kakehashi/pkg/memory"
	"github.com/tinyland-inc/kakehashi/pkg/relay"
	"github.com/tinyland-inc/kakehashi/pkg/translate"
)

func relayCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	// Local .env is a convenience for development setups.
	_ = godotenv.Load()

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return err
	}
	if len(cfg.Relay.Pairings) == 0 {
		return fmt.Errorf("no channel pairings configured (run: kakehashi onboard)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := buildTranslator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error creating translator: %w", err)
	}
	fmt.Printf("✓ Translator: %s (%s)\n", cfg.Translator.Provider, cfg.Translator.Model)

	pipeline := translate.NewPipeline(provider,
		translate.WithMaxRetries(cfg.Translator.MaxRetries),
		translate.WithTimeout(time.Duration(cfg.Translator.TimeoutSeconds)*time.Second),
	)

	router, err := relay.NewRouter(cfg.Relay.Pairings)
	if err != nil {
		return fmt.Errorf("error building routing table: %w", err)
	}

	events := bus.NewEventBus()
	adapter, err := channels.NewDiscord(cfg.Discord.Token, events)
	if err != nil {
		return err
	}

	buffers := memory.NewBuffers(cfg.Relay.ContextWindow)

	var opts []relay.OrchestratorOption
	if cfg.Suggest.Enabled {
		suggester := relay.NewSuggester(adapter, pipeline, buffers,
			time.Duration(cfg.Suggest.ExpirySeconds)*time.Second)
		adapter.AttachSuggester(suggester)
		opts = append(opts, relay.WithSuggester(suggester))
		fmt.Println("✓ Reply suggestions enabled")
	}

	var harness *compare.Harness
	var tally *compare.Tally
	if cfg.Comparison.Enabled {
		tally = compare.NewTally()
		harness = compare.NewHarness(
			compare.NewLMStudioClient(cfg.Comparison.BaseURL),
			cfg.Comparison.Models,
			adapter,
			compare.NewVoteLog(cfg.Comparison.LogFile),
			tally,
		)
		adapter.AttachHarness(harness)
		opts = append(opts, relay.WithComparator(harness))
		harness.Start(ctx)
		fmt.Printf("✓ Comparison harness: %s vs %s\n",
			cfg.Comparison.Models[0].ID, cfg.Comparison.Models[1].ID)
	}

	orchestrator := relay.NewOrchestrator(router, pipeline, adapter, buffers, opts...)

	if err := adapter.Open(); err != nil {
		return err
	}
	fmt.Println("✓ Discord gateway connected")

	adapter.SeedHistory(router.Channels(), buffers)

	go orchestrator.Run(ctx, events)
	fmt.Printf("✓ Relaying %d channel pairing(s)\n", len(cfg.Relay.Pairings))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")
	events.Close()
	if harness != nil {
		harness.Stop()
		fmt.Println(tally.Summary())
	}
	cancel()
	if err := adapter.Close(); err != nil {
		logger.WarnCF("relay", "Error closing discord session", map[string]any{
			"error": err.Error(),
		})
	}
	fmt.Println("✓ Relay stopped")

	return nil
}

func buildTranslator(ctx context.Context, cfg *config.Config) (translate.Translator, error) {
	switch cfg.Translator.Provider {
	case "anthropic":
		return translate.NewClaudeTranslator(cfg.Translator.APIKey, cfg.Translator.Model)
	default:
		return translate.NewGeminiTranslator(ctx, cfg.Translator.APIKey, cfg.Translator.Model)
	}
}
