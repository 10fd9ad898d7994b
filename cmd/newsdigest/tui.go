package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"newsdigest/tui"
)

var (
	serviceURL  string
	tuiFeeds    []string
	tuiKeywords []string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Terminal dashboard for a running `newsdigest serve`",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := tea.NewProgram(tui.NewModel(serviceURL).WithOverrides(tuiFeeds, tuiKeywords)).Run()
		return err
	},
}

func init() {
	tuiCmd.Flags().StringVar(&serviceURL, "url", "http://localhost:8080", "digest service base URL")
	tuiCmd.Flags().StringSliceVar(&tuiFeeds, "feeds", nil, "feed URLs or preset names to use for runs started here")
	tuiCmd.Flags().StringSliceVar(&tuiKeywords, "keywords", nil, "keywords to use for runs started here")
}
