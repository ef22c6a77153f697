// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/kefu-tui/internal/ui/app"
	"github.com/jeranaias/kefu-tui/internal/ui/components"
	"github.com/jeranaias/kefu-tui/internal/ui/styles"
)

// runTUI starts the full-screen interface. Preset credentials log in before
// the first frame; otherwise the login screen is shown.
func runTUI(cmd *cobra.Command, g *globalFlags) error {
	toasts := components.NewToastManager()
	rt, err := newRuntime(cmd, g, runtimeOptions{tui: true, notifier: toasts})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if creds, ok := presetCredentials(g); ok {
		// A failure is already queued as a toast for the login screen.
		if _, err := rt.auth.Login(ctx, creds.email, creds.password); err != nil {
			rt.log.Info("preset login failed", zap.Error(err))
		}
	}

	return app.Run(ctx, app.Deps{
		Theme:     styles.NewTheme(rt.cfg.UI.Theme),
		Session:   rt.session,
		Auth:      rt.auth,
		Orders:    rt.orders,
		Documents: rt.docs,
		Toasts:    toasts,
		NewChat:   rt.newChat,
		Markdown:  rt.cfg.UI.Markdown,
		Logger:    rt.log,
	})
}
