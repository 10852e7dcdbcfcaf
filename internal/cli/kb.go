package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-service/internal/assistant"
)

func newKBCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Inspect knowledge base files",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List topics with their matching rules",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				kb, err := opts.knowledgeBase()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "KEY\tLABEL\tKEYWORDS\tPHRASES\tERROR PATTERNS\tSTEPS")
				for _, t := range kb.Topics() {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
						t.Key, t.Label, len(t.Keywords), len(t.Phrases), len(t.ErrorPatterns), stepCount(t))
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "check <file>",
			Short: "Validate a knowledge base file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				kb, err := assistant.LoadKnowledgeBaseFile(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok: %d topics\n", len(kb.Topics()))
				return nil
			},
		},
	)
	return cmd
}

func stepCount(t *assistant.Topic) int {
	n := 0
	for _, tier := range []assistant.Tier{assistant.TierBasic, assistant.TierIntermediate, assistant.TierAdvanced} {
		n += len(t.Solutions.Steps(tier))
	}
	return n
}
