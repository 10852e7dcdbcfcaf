package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-service/internal/assistant"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

const localUser = "local"

func newChatCmd(opts *rootOptions) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long: `Start an interactive conversation. Type /reset to start over and
/quit (or end the input) to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kb, err := opts.knowledgeBase()
			if err != nil {
				return err
			}
			chat := service.NewChatService(service.ChatDependencies{
				Assistant: assistant.New(kb),
				Store:     repository.NewMemoryConversationStore(repository.StoreOptions{}),
			})
			return runChat(cmd.Context(), chat, cmd.InOrStdin(), cmd.OutOrStdout(), verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show topic, tier and reply kind after each answer")
	return cmd
}

func runChat(ctx context.Context, chat *service.ChatService, in io.Reader, out io.Writer, verbose bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintln(out, assistant.PromptMessage)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "/quit", "/exit":
			return nil
		case "/reset":
			msg, err := chat.Reset(ctx, localUser)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, msg)
			continue
		}

		turn, err := chat.Send(ctx, localUser, line)
		if err != nil {
			fmt.Fprintln(out, assistant.ApologyMessage)
			continue
		}
		fmt.Fprintln(out, turn.Reply.Text)
		if verbose {
			fmt.Fprintf(out, "[topic=%s kind=%s tier=%s score=%.2f messages=%d escalated=%t]\n",
				turn.Topic, turn.Reply.Kind, tierLabel(turn.Reply.Tier), turn.Reply.Confidence,
				turn.MessageCount, turn.Escalated)
		}
	}
}

func tierLabel(t assistant.Tier) string {
	if t == assistant.TierNone {
		return "-"
	}
	return string(t)
}
