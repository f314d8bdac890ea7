package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var askShowPrompt bool

var askCmd = &cobra.Command{
	Use:   "ask <slug> <question...>",
	Short: "Ask a question about an indexed book",
	Long: `Retrieves passages from the book's index and streams an answer grounded
in them. Nothing is recorded; use the HTTP API for chat sessions.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowPrompt, "show-prompt", false, "print the prompt instead of asking the model")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	slug := args[0]
	question := strings.Join(args[1:], " ")

	if askShowPrompt {
		messages, err := app.Answerer.Prompt(ctx, question, slug)
		if err != nil {
			return err
		}
		for _, m := range messages {
			cmd.Printf("--- %s ---\n%s\n", m.Role, m.Content)
		}
		return nil
	}

	stream, err := app.Answerer.Answer(ctx, question, slug)
	if err != nil {
		return err
	}
	defer stream.Close()

	out := cmd.OutOrStdout()
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintln(out)
			return err
		}
		if _, err := io.WriteString(out, frag); err != nil {
			return err
		}
	}
	fmt.Fprintln(out)
	return nil
}
