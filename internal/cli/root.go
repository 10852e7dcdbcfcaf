// Package cli implements helpdeskctl, a local console for the helpdesk assistant.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-service/internal/assistant"
)

var (
	appVersion = "dev"
	appCommit  = "none"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit string) {
	appVersion = version
	appCommit = commit
}

type rootOptions struct {
	kbPath string
}

func (o *rootOptions) knowledgeBase() (*assistant.KnowledgeBase, error) {
	return assistant.LoadKnowledgeBaseOrDefault(o.kbPath)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "helpdeskctl",
		Short: "Local console for the helpdesk assistant",
		Long: `helpdeskctl runs the helpdesk triage assistant without the HTTP service.

Use it to chat with the assistant in a terminal, inspect or validate a
knowledge base file, and see how a message is classified.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.kbPath, "kb", "", "knowledge base YAML file (defaults to the built-in catalogue)")

	root.AddCommand(
		newChatCmd(opts),
		newKBCmd(opts),
		newClassifyCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "helpdeskctl %s\ncommit: %s\n", appVersion, appCommit)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
