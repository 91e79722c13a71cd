package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"podcast-app/internal/importer"
	"podcast-app/internal/rss"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newFeedCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "feed <url>",
		Short: "Fetch a feed and show what an import would create",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			feed, err := rss.NewFetcher(timeout).Fetch(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", feed.Title)
			if feed.Author != "" {
				fmt.Fprintf(out, "by %s\n", feed.Author)
			}
			fmt.Fprintf(out, "language: %s  category: %s\n\n", feed.Language, feed.Category)
			fmt.Fprintln(out, renderEpisodes(feed))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 20*time.Second, "Fetch timeout")
	return cmd
}

func renderEpisodes(feed *rss.Feed) string {
	merged := importer.MergeEpisodes("", feed.Items, importer.NewExistingEpisodes())

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Season", "Title", "Duration"})
	for _, ep := range merged.Staged {
		duration := "-"
		if ep.Duration != nil {
			duration = (time.Duration(*ep.Duration) * time.Second).String()
		}
		tw.AppendRow(table.Row{strconv.Itoa(ep.EpisodeNumber), strconv.Itoa(ep.SeasonNumber), ep.Title, duration})
	}
	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d importable, %d skipped", merged.Imported, merged.Skipped), ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return tw.Render()
}
