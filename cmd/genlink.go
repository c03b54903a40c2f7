package cmd

import (
	"context"

	"github.com/PolarWolf314/syncany/internal/ui"
	"github.com/PolarWolf314/syncany/internal/workflows"

	"github.com/spf13/cobra"
)

var genlinkShort bool

func init() {
	genlinkCmd.Flags().BoolVarP(&genlinkShort, "short", "s", false, "print only the link")
}

var genlinkCmd = &cobra.Command{
	Use:   "genlink",
	Short: "Print a link others can connect with",
	Long: `Prints a link for the repository of the local folder. Others can use it
with 'syncany connect <link>'.

Links of encrypted repositories are encrypted with the repository's
encrypt password.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting genlink command")
		out := cmd.OutOrStdout()

		spinner, cleanup := startSpinner("Generating link...", out)
		defer cleanup()

		result, err := workflows.GenLink(context.Background(), workflows.GenLinkOptions{
			Environment: newEnvironment(spinner),
			LocalDir:    localDir,
		})
		if err != nil {
			return fail(spinner, err)
		}

		if genlinkShort {
			spinner.FinalMSG = result.Link
			return nil
		}

		spinner.FinalMSG = linkMessage(result.Link, result.Encrypted)
		return nil
	},
}

// resetGenlinkCommandState resets the genlink command's global state for testing.
func resetGenlinkCommandState() {
	genlinkShort = false
}

// linkMessage presents a link, warning if it is not encrypted.
func linkMessage(link string, encrypted bool) string {
	msg := "To share the same repository with others, you can share this link:\n\n" +
		"   " + ui.Link.Sprint(link) + "\n\n"
	if encrypted {
		return msg + "This link is encrypted with the given password, so you can safely share it\n" +
			"using unsecure communication (chat, e-mail, etc.)\n"
	}
	return msg + ui.Warning.Sprint("WARNING:") + " This link is NOT ENCRYPTED and might contain connection\n" +
		"credentials. Do NOT share this link unless you know what you are doing!\n"
}
