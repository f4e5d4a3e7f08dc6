package main

import (
	"context"
	"fmt"
	"time"
)

type HistoryCmd struct {
	Limit int `short:"n" default:"10" help:"Number of recent hands to show"`
}

func (c *HistoryCmd) Run(ctx context.Context, rt *runtime) error {
	client, err := rt.historyClient()
	if err != nil {
		return err
	}
	entries, err := client.History(ctx, c.Limit)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	styles := newTableStyles()
	if len(entries) == 0 {
		fmt.Fprintln(rt.out, styles.Muted.Render("No hands played yet."))
		return nil
	}
	for _, entry := range entries {
		fmt.Fprintln(rt.out, styles.Header.Render(fmt.Sprintf("Hand #%s", entry.HandID))+"  "+
			styles.Muted.Render(entry.CreatedAt.Local().Format(time.DateTime)))
		for _, line := range entry.DisplayLines {
			fmt.Fprintln(rt.out, line)
		}
		fmt.Fprintln(rt.out)
	}
	return nil
}
