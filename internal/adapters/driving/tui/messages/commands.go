package messages

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driving"
)

// AwaitSaved returns a command that reports when pending is reconciled.
func AwaitSaved(ctx context.Context, pending driving.PendingUpdate) tea.Cmd {
	return func() tea.Msg {
		err := pending.Wait(ctx)
		return SettingSaved{Key: pending.Key(), Err: err, RolledBack: pending.RolledBack()}
	}
}

// TickTestRun schedules the next elapsed time refresh for token.
func TickTestRun(token domain.Token, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return TestRunTick{Token: token}
	})
}
