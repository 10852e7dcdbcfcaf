package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-service/internal/assistant"
)

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	var showScores bool
	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Show which topic a message is classified as",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, err := opts.knowledgeBase()
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			classifier := assistant.NewClassifier(kb)
			ctx := assistant.Extract(text)
			class := classifier.Classify(text, ctx)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "topic: %s\nconfidence: %.2f\nconfident: %t\n", class.Topic, class.Confidence, class.Confident())
			if showScores {
				for _, s := range rankedScores(classifier.Scores(text, ctx)) {
					fmt.Fprintf(out, "  %-12s %d\n", s.topic, s.score)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showScores, "scores", false, "print the raw score of every topic")
	return cmd
}

type topicScore struct {
	topic assistant.TopicKey
	score int
}

func rankedScores(scores map[assistant.TopicKey]int) []topicScore {
	out := make([]topicScore, 0, len(scores))
	for topic, score := range scores {
		out = append(out, topicScore{topic: topic, score: score})
	}
	slices.SortFunc(out, func(a, b topicScore) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.topic, b.topic)
	})
	return out
}
