package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkellner/shopctl/internal/admin"
)

func newSearchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "search <entity> [criteria-json]",
		Short: "Search entities with full records",
		Long: `Search any entity via POST /api/search/{entity}.

Product searches without an explicit filter return parent products only;
supply any filter of your own to include variants.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(args)
			if err != nil {
				return err
			}
			res, err := c.svc.Search(cmd.Context(), args[0], criteria)
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}
}

func newSearchIDsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "search-ids <entity> [criteria-json]",
		Short: "Search entities, returning matching IDs only",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(args)
			if err != nil {
				return err
			}
			res, err := c.svc.SearchIDs(cmd.Context(), args[0], criteria)
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}
}

func parseCriteria(args []string) (admin.Criteria, error) {
	var criteria admin.Criteria
	if len(args) < 2 || args[1] == "" {
		return criteria, nil
	}
	if err := json.Unmarshal([]byte(args[1]), &criteria); err != nil {
		return criteria, fmt.Errorf("invalid criteria JSON: %w", err)
	}
	return criteria, nil
}
