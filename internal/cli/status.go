package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/paygate/pkg/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "status",
		Short:       "Show server health and the current session",
		Annotations: map[string]string{clientAnnotation: clientPublic},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			summary := map[string]interface{}{}

			health, herr := apiClient.Health(ctx)
			if herr == nil {
				summary["server"] = health.Status
				summary["version"] = health.Version
			}

			email := viper.GetString("auth.email")
			loggedIn := viper.GetString("auth.refresh_token") != ""
			var ent *client.Entitlement
			var eerr error
			if loggedIn {
				apiClient.SetToken(viper.GetString("auth.token"))
				apiClient.SetRefreshToken(viper.GetString("auth.refresh_token"))
				eerr = withSession(ctx, func(ctx context.Context) error {
					var err error
					ent, err = apiClient.Entitlements().Get(ctx)
					return err
				})
				summary["account"] = email
				if eerr == nil {
					summary["entitlement"] = ent
				}
			}

			if getOutputFormat() != "table" {
				return printOutput(summary)
			}

			fmt.Println("Paygate")
			fmt.Println(strings.Repeat("=", 40))

			if herr != nil {
				fmt.Printf("  Server:       (error: %v)\n", herr)
			} else {
				fmt.Printf("  Server:       %s (%s)\n", formatStatus(health.Status), health.Version)
			}

			switch {
			case !loggedIn:
				fmt.Println("  Account:      not logged in")
			case eerr != nil:
				fmt.Printf("  Account:      %s\n", email)
				fmt.Printf("  Entitlement:  (error: %v)\n", eerr)
			default:
				fmt.Printf("  Account:      %s\n", email)
				fmt.Printf("  Entitlement:  %s", formatStatus(ent.Status))
				if ent.Plan != "" {
					fmt.Printf(" (%s)", ent.Plan)
				}
				fmt.Println()
				if ent.RemainingTimeSeconds != nil {
					fmt.Printf("  Remaining:    %s\n", formatRemaining(ent.RemainingTimeSeconds))
				} else if ent.EndDate != nil {
					fmt.Printf("  Ends:         %s\n", formatTime(ent.EndDate))
				}
			}
			return nil
		},
	}
}
