package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/story-shorts/internal/config"
	"github.com/codebuildervaibhav/story-shorts/internal/storage"
	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

var videosLimit int

var videosCmd = &cobra.Command{
	Use:   "videos",
	Short: "List rendered videos, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		db, err := storage.NewMetadataDB(cfg.Storage.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		videos, err := db.ListVideos(videosLimit)
		if err != nil {
			return err
		}
		if len(videos) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No videos yet.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderVideos(videos))
		return nil
	},
}

func init() {
	videosCmd.Flags().IntVarP(&videosLimit, "limit", "n", 20, "number of videos to show")
}

func renderVideos(videos []types.VideoRecord) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Created", "Title", "Part", "Voice", "Title (s)", "Length (s)", "File"})
	for _, v := range videos {
		tw.AppendRow(table.Row{
			v.CreatedAt.Local().Format("2006-01-02 15:04"),
			v.PostTitle,
			fmt.Sprintf("%d/%d", v.Part, v.TotalParts),
			v.Voice,
			fmt.Sprintf("%.2f", v.TitleDuration),
			fmt.Sprintf("%.1f", v.Duration),
			v.Path,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}
