package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/paygate/pkg/client"
)

func newEntitlementCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entitlement",
		Aliases: []string{"ent"},
		Short:   "Inspect premium access",
	}

	cmd.AddCommand(newEntitlementStatusCmd())
	cmd.AddCommand(newEntitlementPremiumCmd())

	return cmd
}

func newEntitlementStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current entitlement",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ent *client.Entitlement
			err := withSession(cmd.Context(), func(ctx context.Context) error {
				var err error
				ent, err = apiClient.Entitlements().Get(ctx)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to get entitlement: %w", err)
			}
			return renderEntitlement(ent)
		},
	}
}

func newEntitlementPremiumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "premium",
		Short: "Request the premium resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ent *client.Entitlement
			err := withSession(cmd.Context(), func(ctx context.Context) error {
				var err error
				ent, err = apiClient.Entitlements().Premium(ctx)
				return err
			})
			if apiErr, ok := client.AsAPIError(err); ok {
				switch {
				case apiErr.IsForbidden():
					return fmt.Errorf("access denied: no active plan")
				case apiErr.IsUnauthorized():
					return fmt.Errorf("access denied: plan has lapsed")
				}
			}
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(ent)
			}
			fmt.Println("Access granted")
			return renderEntitlement(ent)
		},
	}
}

func renderEntitlement(ent *client.Entitlement) error {
	if getOutputFormat() != "table" {
		return printOutput(ent)
	}

	table := NewTable("STATUS", "PLAN", "ENDS", "REMAINING")
	plan := ent.Plan
	if plan == "" {
		plan = "-"
	}
	table.AddRow(formatStatus(ent.Status), plan, formatTime(ent.EndDate), formatRemaining(ent.RemainingTimeSeconds))
	table.Render()
	return nil
}
