package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <counterpart-id>",
		Short: "Write messages to another student (kept on this device for the session)",
		Long: "Opens a local conversation. Each line typed is sent; /list shows the thread, " +
			"/inbox lists conversations and /quit exits. Messages are not delivered to the " +
			"other person and are discarded on exit.",
		Args: cobra.ExactArgs(1),
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			counterpart := args[0]
			out := cmd.OutOrStdout()
			in := bufio.NewScanner(cmd.InOrStdin())

			fmt.Fprintf(out, "Chatting with %s. /quit to exit.\n", counterpart)
			for {
				fmt.Fprint(out, "> ")
				if !in.Scan() {
					return in.Err()
				}
				line := strings.TrimSpace(in.Text())

				switch line {
				case "":
					continue
				case "/quit":
					return nil
				case "/list":
					for _, m := range a.chat.GetMessages(counterpart) {
						fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Local().Format("15:04"), m.SenderID, m.Text)
					}
					continue
				case "/inbox":
					for _, c := range a.chat.Conversations() {
						fmt.Fprintf(out, "%s  %s  (%d unread)\n", c.User.ID, c.LastMessage.Text, c.UnreadCount)
						a.chat.MarkAsRead(c.ID)
					}
					continue
				}

				if _, err := a.chat.SendMessage(counterpart, line); err != nil {
					return err
				}
			}
		}),
	}
}
