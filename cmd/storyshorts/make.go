package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/story-shorts/internal/config"
	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

var (
	makeTitle string
	makeText  string
	makeFile  string
)

var makeCmd = &cobra.Command{
	Use:   "make",
	Short: "Create videos for one story right away",
	Example: `  storyshorts make --title "My Story" --file story.txt
  cat story.txt | storyshorts make --title "My Story" --file -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		text, err := readStoryText(cmd.InOrStdin())
		if err != nil {
			return err
		}
		post := types.Post{Title: strings.TrimSpace(makeTitle), Text: text}
		if post.Title == "" && strings.TrimSpace(post.Text) == "" {
			return errors.New("a --title or story text is required")
		}

		svc, err := newServices(cmd.Context(), cfg, log.Logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		return runNow(cmd, svc, types.SourceCLI, post)
	},
}

func init() {
	makeCmd.Flags().StringVar(&makeTitle, "title", "", "story title")
	makeCmd.Flags().StringVar(&makeText, "text", "", "story text")
	makeCmd.Flags().StringVar(&makeFile, "file", "", "read story text from a file, - for stdin")
	makeCmd.MarkFlagsMutuallyExclusive("text", "file")
}

func readStoryText(stdin io.Reader) (string, error) {
	switch makeFile {
	case "":
		return makeText, nil
	case "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	default:
		b, err := os.ReadFile(makeFile)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// runNow runs the pipeline in-process, tracking the run as a task.
func runNow(cmd *cobra.Command, svc *services, sourceType string, post types.Post) error {
	taskID := uuid.New().String()
	if err := svc.db.CreateTask(types.TaskRecord{
		ID:         taskID,
		Title:      post.Title,
		SourceType: sourceType,
		Status:     types.StatusProcessing,
	}); err != nil {
		return err
	}

	res, err := svc.pipeline.Run(cmd.Context(), taskID, post)
	if err != nil {
		if uerr := svc.db.UpdateTaskStatus(taskID, types.StatusFailed, "", err.Error()); uerr != nil {
			log.Warn().Err(uerr).Msg("failed to record task failure")
		}
		return err
	}
	if err := svc.db.UpdateTaskStatus(taskID, types.StatusCompleted, res.Summary, ""); err != nil {
		log.Warn().Err(err).Msg("failed to record task result")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Summary)
	for _, v := range res.Videos {
		fmt.Fprintf(out, "  %s\n", v.Path)
	}
	return nil
}
