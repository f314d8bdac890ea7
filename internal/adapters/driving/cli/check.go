package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/ai"
	redisqueue "github.com/custodia-labs/bookchat/internal/adapters/driven/queue/redis"
	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/normalisers/pdf"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration and provider connectivity",
	Long: `Loads the configuration, then pings the embedding provider, the language
model provider and, when configured, the Redis queue.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// checkFn lets tests replace network checks.
var checkFn = defaultChecks

type check struct {
	name string
	run  func(ctx context.Context) error
}

func defaultChecks(settings domain.Settings) []check {
	checks := []check{
		{"embedding (" + settings.Embedding.Provider.Description() + ")", func(ctx context.Context) error {
			return ai.ValidateEmbeddingConfig(ctx, &settings.Embedding)
		}},
		{"llm (" + settings.LLM.Provider.Description() + ")", func(ctx context.Context) error {
			return ai.ValidateLLMConfig(ctx, &settings.LLM)
		}},
		{"pdftotext", func(context.Context) error {
			if err := pdf.CheckAvailable(); err != nil {
				return fmt.Errorf("%w\n    %s", err, pdf.InstallInstructions())
			}
			return nil
		}},
	}
	if settings.Queue.Backend == domain.QueueBackendRedis {
		checks = append(checks, check{"redis (" + settings.Queue.RedisAddr + ")", func(ctx context.Context) error {
			q := redisqueue.New(redisqueue.Config{Addr: settings.Queue.RedisAddr})
			defer q.Close()
			return q.Ping(ctx)
		}})
	}
	return checks
}

func runCheck(cmd *cobra.Command, _ []string) error {
	settings, err := settingsOnly()
	if err != nil {
		return err
	}
	cmd.Println("Configuration: ok")

	failed := 0
	for _, c := range checkFn(settings) {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		err := c.run(ctx)
		cancel()
		if err != nil {
			failed++
			cmd.Printf("%s: FAILED\n    %v\n", c.name, err)
			continue
		}
		cmd.Printf("%s: ok\n", c.name)
	}
	if failed > 0 {
		return errors.New("some checks failed")
	}
	return nil
}
