package cli

import (
	"log"

	"github.com/spf13/cobra"

	"quizgram-bot/internal/config"
	"quizgram-bot/internal/infra/file"
)

// NewCheckCmd validates the question bank file without starting the bot.
func NewCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the question bank file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			questions, err := file.LoadQuestionBank(cfg.Questions.Path)
			if err != nil {
				return err
			}
			log.Printf("%s: %d questions ok", cfg.Questions.Path, len(questions))
			return nil
		},
	}
}
