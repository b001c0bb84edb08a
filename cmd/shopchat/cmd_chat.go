package main

import (
	"fmt"

	"shopchat/cmd/shopchat/chat"
	"shopchat/cmd/shopchat/ui"
	"shopchat/internal/logging"
	"shopchat/internal/session"
	"shopchat/internal/storage"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runInteractiveChat opens the full-screen chat.
func runInteractiveChat(cmd *cobra.Command, opts *cliOptions) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := logging.Get(logging.CategoryUI)

	// Pick up writes from another shopchat process sharing the same directory
	if fs, ok := a.backend.(*storage.FileStorage); ok && a.cfg.Storage.Watch {
		watcher, err := storage.NewFileWatcher(fs, a.store.Key(), 0, func() {
			a.store.Load(ctx)
		}, logging.Get(logging.CategoryStorage))
		if err != nil {
			logger.Warn("storage watcher unavailable", zap.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			logger.Warn("storage watcher failed to start", zap.Error(err))
		} else {
			defer func() {
				watcher.Stop()
				logger.Debug("storage watcher stopped", zap.Int("events", watcher.Events()))
			}()
		}
	}

	sender := session.NewSender(a.client, a.store, nil)
	controller := session.NewController(a.store, sender, a.cfg.Chat.CustomerID)

	model := chat.NewModel(ctx, chat.Options{
		Store:      a.store,
		Sender:     sender,
		Controller: controller,
		Styles:     ui.NewStyles(ui.ThemeByName(a.cfg.UI.Theme)),
		Markdown:   a.cfg.UI.Markdown,
		BaseURL:    a.cfg.Chat.BaseURL,
	})
	defer model.Close()

	logger.Info("starting interactive chat", zap.Int("messages", len(a.store.Messages())))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI failed: %w", err)
	}
	return nil
}
