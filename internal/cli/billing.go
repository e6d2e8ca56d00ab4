package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/paygate/pkg/client"
)

func newBillingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Buy passes and manage subscriptions",
	}

	cmd.AddCommand(newBillingIntentCmd())
	cmd.AddCommand(newBillingVerifyCmd())
	cmd.AddCommand(newBillingSubscribeCmd())
	cmd.AddCommand(newBillingConsumeCmd())
	cmd.AddCommand(newBillingCancelCmd())
	cmd.AddCommand(newBillingSyncCustomerCmd())

	return cmd
}

func newBillingIntentCmd() *cobra.Command {
	var req client.CreatePaymentIntentRequest

	cmd := &cobra.Command{
		Use:   "intent",
		Short: "Start a one-off pass purchase",
		RunE: func(cmd *cobra.Command, args []string) error {
			var pi *client.PaymentIntent
			err := withSession(cmd.Context(), func(ctx context.Context) error {
				var err error
				pi, err = apiClient.Billing().CreatePaymentIntent(ctx, req)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to create payment intent: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(pi)
			}
			fmt.Printf("Payment intent: %s\n", pi.PaymentIntentID)
			fmt.Printf("Client secret:  %s\n", truncate(pi.ClientSecret, 24))
			fmt.Printf("Confirm the payment, then run 'paygate billing verify --intent %s --plan %s'\n", pi.PaymentIntentID, req.Plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Plan, "plan", "", "pass plan: oneday, onemonth or hourly")
	cmd.Flags().StringVar(&req.Method, "method", "card", "payment method: card or paypal")
	cmd.Flags().Int64Var(&req.Amount, "amount", 0, "amount in the smallest currency unit")
	cmd.Flags().StringVar(&req.Currency, "currency", "", "currency code (server default when empty)")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newBillingVerifyCmd() *cobra.Command {
	var req client.VerifyPaymentRequest

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Claim the pass for a completed payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			var pass *client.Pass
			err := withSession(cmd.Context(), func(ctx context.Context) error {
				var err error
				pass, err = apiClient.Billing().VerifyPayment(ctx, req)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to verify payment: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(pass)
			}
			table := NewTable("ID", "PLAN", "STATUS", "ENDS", "REMAINING")
			table.AddRow(fmt.Sprintf("%d", pass.ID), pass.Plan, formatStatus(pass.Status), formatTime(pass.EndDate), formatRemaining(pass.RemainingTimeSeconds))
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&req.PaymentIntentID, "intent", "", "payment intent id")
	cmd.Flags().StringVar(&req.Plan, "plan", "", "pass plan: oneday, onemonth or hourly")
	cmd.Flags().Int64Var(&req.Hours, "hours", 0, "hours bought (hourly plan)")
	_ = cmd.MarkFlagRequired("intent")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func newBillingSubscribeCmd() *cobra.Command {
	var price, paymentMethod string

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Start a recurring subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sub *client.Subscription
			err := withSession(cmd.Context(), func(ctx context.Context) error {
				var err error
				sub, err = apiClient.Billing().Subscribe(ctx, price, paymentMethod)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to subscribe: %w", err)
			}
			return renderSubscription(sub)
		},
	}

	cmd.Flags().StringVar(&price, "price", "", "billing price id")
	cmd.Flags().StringVar(&paymentMethod, "payment-method", "", "payment method id")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("payment-method")

	return cmd
}

func newBillingConsumeCmd() *cobra.Command {
	var seconds int64

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Report seconds used from an hourly pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ent *client.Entitlement
			err := withSession(cmd.Context(), func(ctx context.Context) error {
				var err error
				ent, err = apiClient.Billing().UpdateRemaining(ctx, seconds)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to update remaining time: %w", err)
			}
			return renderEntitlement(ent)
		},
	}

	cmd.Flags().Int64Var(&seconds, "seconds", 0, "seconds consumed")
	_ = cmd.MarkFlagRequired("seconds")

	return cmd
}

func newBillingCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <subscription-id>",
		Short: "Cancel a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sub *client.Subscription
			err := withSession(cmd.Context(), func(ctx context.Context) error {
				var err error
				sub, err = apiClient.Billing().Cancel(ctx, args[0])
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to cancel subscription: %w", err)
			}
			return renderSubscription(sub)
		},
	}
}

func newBillingSyncCustomerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-customer",
		Short: "Ensure this account has a billing customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			var customerID string
			err := withSession(cmd.Context(), func(ctx context.Context) error {
				var err error
				customerID, err = apiClient.Billing().SyncCustomer(ctx)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to sync customer: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(map[string]string{"customerId": customerID})
			}
			fmt.Printf("Customer: %s\n", customerID)
			return nil
		},
	}
}

func renderSubscription(sub *client.Subscription) error {
	if getOutputFormat() != "table" {
		return printOutput(sub)
	}
	table := NewTable("ID", "PLAN", "STATUS", "PERIOD END")
	table.AddRow(sub.ID, sub.Plan, formatStatus(sub.Status), formatTime(sub.CurrentPeriodEnd))
	table.Render()
	return nil
}
