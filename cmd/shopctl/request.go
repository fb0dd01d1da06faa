package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func newRequestCmd(c *cli) *cobra.Command {
	var (
		data      string
		rawParams []string
	)

	cmd := &cobra.Command{
		Use:   "request <method> <endpoint>",
		Short: "Send a raw request to any Admin API endpoint",
		Long: `Send an authenticated request to any endpoint under /api.

The endpoint is given without the /api prefix, e.g. "/product" or
"/_info/openapi3.json".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])

			var body any
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("invalid request body JSON")
				}
				body = json.RawMessage(data)
			}

			params := url.Values{}
			for _, pair := range rawParams {
				key, value, found := strings.Cut(pair, "=")
				if !found {
					return fmt.Errorf("invalid query parameter %q, expected key=value", pair)
				}
				params.Add(key, value)
			}

			res, err := c.api.Dispatch(cmd.Context(), method, args[1], body, params)
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "request body as JSON (POST/PATCH)")
	cmd.Flags().StringArrayVar(&rawParams, "param", nil, "query parameter as key=value, repeatable")
	return cmd
}
