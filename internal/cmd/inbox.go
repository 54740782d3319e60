package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanpelt/monorail/internal/inbox"
)

var noteCmd = &cobra.Command{
	Use:   "note <message>",
	Short: "📥 Add a note to the inbox",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNote,
}

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "📬 List pending inbox notes",
	RunE:  runInbox,
}

func init() {
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(inboxCmd)

	inboxCmd.Flags().Bool("clear", false, "Remove every pending note")
}

func runNote(cmd *cobra.Command, args []string) error {
	_, paths, err := setupCLI(cmd)
	if err != nil {
		return err
	}
	if err := paths.EnsureHome(); err != nil {
		return err
	}
	message := strings.Join(args, " ")
	if err := inbox.New(paths.InboxFile).Add(message); err != nil {
		return err
	}
	fmt.Printf("Added: %s\n", message)
	return nil
}

func runInbox(cmd *cobra.Command, args []string) error {
	_, paths, err := setupCLI(cmd)
	if err != nil {
		return err
	}
	box := inbox.New(paths.InboxFile)

	if clear, _ := cmd.Flags().GetBool("clear"); clear {
		if err := box.Clear(); err != nil {
			return err
		}
		fmt.Println("Inbox cleared")
		return nil
	}

	pending, err := box.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No pending notes")
		return nil
	}
	for _, n := range pending {
		fmt.Printf("[%s] %s\n", n.Timestamp, n.Message)
	}
	return nil
}
