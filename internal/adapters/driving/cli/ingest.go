package cli

import (
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <content-url> <slug>",
	Short: "Build a book's vector index now",
	Long: `Loads, chunks and embeds the document at content-url into the index for
slug, in the foreground. An index that already has passages is left alone.`,
	Args: cobra.ExactArgs(2),
	RunE: runIngest,
}

var removeCmd = &cobra.Command{
	Use:   "remove <slug>",
	Short: "Delete a book's vector index",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(removeCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Ingestion.Ingest(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if result.Skipped {
		cmd.Printf("Index %s already exists, nothing to do.\n", result.Slug)
		return nil
	}
	cmd.Printf("Indexed %s: %d passages in %d batches.\n", result.Slug, result.Passages, result.Batches)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Ingestion.Remove(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Removed index %s.\n", args[0])
	return nil
}
