// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/kefu-tui/internal/api"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
)

func newOrderCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Look up orders and send order e-mails",
	}

	lookup := &cobra.Command{
		Use:     "lookup ORDER_ID",
		Aliases: []string{"show", "get"},
		Short:   "Show one order",
		Example: "  kefu order lookup ORD-1001",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, g, runtimeOptions{noHistory: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			if _, err := rt.login(cmd.Context(), g, cmd); err != nil {
				return err
			}
			order, err := rt.orders.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "order lookup", order)
			}
			printOrder(cmd.OutOrStdout(), order)
			return nil
		},
	}

	var yes bool
	email := &cobra.Command{
		Use:   "email ORDER_ID",
		Short: "E-mail the order summary to the customer",
		Long: `Email looks the order up, asks for confirmation and asks the backend to
mail the order summary to the customer's address.`,
		Example: "  kefu order email ORD-1001\n  kefu order email ORD-1001 --yes",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, g, runtimeOptions{noHistory: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			if _, err := rt.login(cmd.Context(), g, cmd); err != nil {
				return err
			}
			order, err := rt.orders.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !order.CanSendEmail || order.CustomerEmail == "" {
				return fmt.Errorf("order %s: %w", order.OrderID, orchestrator.ErrNoCustomerEmail)
			}
			if !g.jsonOut {
				printOrder(cmd.OutOrStdout(), order)
			}
			if err := confirm(cmd, orchestrator.EmailConfirmPrompt(order), yes); err != nil {
				return err
			}
			if err := rt.orders.SendEmail(cmd.Context(), order); err != nil {
				return err
			}
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "order email", map[string]string{
					"order_id": order.OrderID,
					"to":       order.CustomerEmail,
				})
			}
			return nil
		},
	}
	email.Flags().BoolVarP(&yes, "yes", "y", false, "send without asking")

	cmd.AddCommand(lookup, email)
	return cmd
}

func printOrder(w io.Writer, o api.Order) {
	rows := [][2]string{
		{"订单号", o.OrderID},
		{"客户", o.CustomerName},
		{"邮箱", o.CustomerEmail},
		{"商品", o.Product},
		{"状态", o.Status},
		{"金额", string(o.Amount)},
		{"创建", o.CreatedAt},
		{"更新", o.UpdatedAt},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s%s\n", labelStyle.Render(r[0]), r[1])
	}
}
