package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkellner/shopctl/internal/admin"
)

func newGetCmd(c *cli) *cobra.Command {
	var associationsJSON string

	cmd := &cobra.Command{
		Use:   "get <entity> <id>",
		Short: "Fetch a single entity by ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var associations map[string]admin.Criteria
			if associationsJSON != "" {
				if err := json.Unmarshal([]byte(associationsJSON), &associations); err != nil {
					return fmt.Errorf("invalid associations JSON: %w", err)
				}
			}
			res, err := c.svc.GetByID(cmd.Context(), args[0], args[1], associations)
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}

	cmd.Flags().StringVar(&associationsJSON, "associations", "", "associations to load, as a JSON object")
	return cmd
}
