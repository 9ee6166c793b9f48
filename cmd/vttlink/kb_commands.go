package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vttlink/internal/config"
	"vttlink/internal/kb"
)

func newKBCommand(ctx *commandContext) *cobra.Command {
	kbCmd := &cobra.Command{
		Use:   "kb",
		Short: "Offline knowledge-base utilities",
	}

	kbCmd.AddCommand(newKBImportCommand(ctx))

	return kbCmd
}

func newKBImportCommand(ctx *commandContext) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import <entities.jsonl>",
		Short: "Import a JSONL entity dump into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			target := cfg.Paths.KnowledgeBase
			if cmd.Flags().Changed("db") {
				expanded, err := config.ExpandPath(dbPath)
				if err != nil {
					return fmt.Errorf("resolve database path: %w", err)
				}
				target = expanded
			}

			store, err := kb.Open(target)
			if err != nil {
				return fmt.Errorf("open knowledge base: %w", err)
			}
			defer store.Close()

			imported, err := store.ImportJSONL(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("import entities: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entities into %s\n", imported, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Database path (defaults to paths.knowledge_base)")
	return cmd
}
