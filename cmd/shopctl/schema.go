package main

import (
	"github.com/spf13/cobra"
)

func newEntitiesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List all entity names known to the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := c.svc.Entities(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(names)
		},
	}
}

func newDefinitionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "definition <entity>",
		Short: "Show an entity's structure and relationships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := c.svc.EntityDefinition(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(def)
		},
	}
}

func newSchemaCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <entity>",
		Short: "Show the OpenAPI paths and schemas for an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slice, err := c.svc.EntitySchema(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(slice)
		},
	}
}
