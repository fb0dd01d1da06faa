package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/mkellner/shopctl/internal/admin"
	"github.com/mkellner/shopctl/internal/auth"
	"github.com/mkellner/shopctl/internal/client"
	"github.com/mkellner/shopctl/internal/config"
	"github.com/mkellner/shopctl/internal/logger"
)

// cli carries the wired-up core shared by all subcommands. Populated in the
// root command's PersistentPreRunE.
type cli struct {
	logger zerolog.Logger
	api    *client.Client
	svc    *admin.Service
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	v := viper.New()

	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "Shopware 6 Admin API client",
		Long:          "shopctl talks to a Shopware 6 store's Admin API: entity search, by-ID fetch, raw requests, bulk sync and schema discovery.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(v)
		},
	}

	flags := root.PersistentFlags()
	flags.String("store-url", "", "store base URL (env STORE_URL)")
	flags.String("api-key", "", "integration client id (env API_KEY)")
	flags.String("api-secret", "", "integration client secret (env API_SECRET)")
	flags.Float64("rps", 0, "client-side request rate limit, 0 means unlimited")

	_ = v.BindPFlag("STORE_URL", flags.Lookup("store-url"))
	_ = v.BindPFlag("API_KEY", flags.Lookup("api-key"))
	_ = v.BindPFlag("API_SECRET", flags.Lookup("api-secret"))
	_ = v.BindPFlag("RPS", flags.Lookup("rps"))
	v.AutomaticEnv()

	root.AddCommand(
		newSearchCmd(c),
		newSearchIDsCmd(c),
		newGetCmd(c),
		newRequestCmd(c),
		newSyncCmd(c),
		newEntitiesCmd(c),
		newDefinitionCmd(c),
		newSchemaCmd(c),
	)
	return root
}

func (c *cli) setup(v *viper.Viper) error {
	_ = godotenv.Load()

	creds, err := config.FromValues(
		v.GetString("STORE_URL"),
		v.GetString("API_KEY"),
		v.GetString("API_SECRET"),
	)
	if err != nil {
		return err
	}

	c.logger = logger.New()

	tokens := auth.NewManager(creds, client.NewHTTPClient(), c.logger)

	var opts []client.Option
	if rps := v.GetFloat64("RPS"); rps > 0 {
		opts = append(opts, client.WithRateLimit(rate.Limit(rps), 1))
	}
	c.api = client.New(creds.BaseURL, tokens, c.logger, opts...)
	c.svc = admin.NewService(c.api, c.logger)

	c.logger.Debug().Str("store_url", creds.BaseURL).Msg("configured")
	return nil
}

// printResult writes the call outcome as JSON to stdout. Logs stay on
// stderr.
func printResult(res *client.Result) error {
	if res.Body != nil {
		return printJSON(res.Body)
	}
	_, err := fmt.Fprintln(os.Stdout, string(res.Raw))
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
