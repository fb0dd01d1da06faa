package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkellner/shopctl/internal/admin"
)

func newSyncCmd(c *cli) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "sync [operations-json]",
		Short: "Apply a transactional batch of upserts and deletes",
		Long: `Send a batch of operations to POST /api/_action/sync as one
transactional request. The batch is applied atomically by the store;
operation order is preserved.

Operations are given as a JSON array, inline or via --file ("-" for stdin):

  [{"entity": "category", "action": "upsert", "payload": [{"name": "Sale"}]},
   {"entity": "product",  "action": "delete", "payload": [{"id": "..."}]}]`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readOperations(args, file)
			if err != nil {
				return err
			}

			var ops []admin.Operation
			if err := json.Unmarshal(raw, &ops); err != nil {
				return fmt.Errorf("invalid operations JSON: %w", err)
			}

			res, err := c.svc.Sync(cmd.Context(), ops)
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "read operations from a file, '-' for stdin")
	return cmd
}

func readOperations(args []string, file string) ([]byte, error) {
	switch {
	case file == "-":
		return io.ReadAll(os.Stdin)
	case file != "":
		return os.ReadFile(file)
	case len(args) == 1:
		return []byte(args[0]), nil
	default:
		return nil, fmt.Errorf("operations required, inline or via --file")
	}
}
