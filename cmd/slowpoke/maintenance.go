package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tbourn/slowpoke-bot/internal/repo"
	"github.com/tbourn/slowpoke-bot/internal/services"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "List chats that have storage on disk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		factory, err := openFactory()
		if err != nil {
			return err
		}
		defer factory.Close()

		ids, err := factory.ListKnownTenants(cmd.Context())
		if err != nil {
			return err
		}
		slices.Sort(ids)
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Purge expired records of every chat once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		factory, err := openFactory()
		if err != nil {
			return err
		}
		defer factory.Close()

		sw := services.NewSweeper(services.FactoryProvider{Factory: factory}, cfg.CleanPeriod, services.DefaultTenantTimeout)
		rep, runErr := sw.RunOnce(cmd.Context())

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{
			"tenants":     rep.Tenants,
			"purged":      rep.Purged,
			"failed":      rep.Failed,
			"duration_ms": rep.Duration.Milliseconds(),
		}); err != nil {
			return err
		}
		return runErr
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or write global settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := repo.OpenSettings(cfg.SettingsPath)
		if err != nil {
			return err
		}
		defer st.Close()

		v, err := st.Get(cmd.Context(), args[0])
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("setting %q is not set", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Store a setting",
	Example: "  slowpoke settings set " + repo.SettingImageFileID + " AgACAgIAAxkBAAI...",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := repo.OpenSettings(cfg.SettingsPath)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.Set(cmd.Context(), args[0], args[1])
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
}
