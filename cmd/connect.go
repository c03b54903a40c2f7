package cmd

import (
	"bufio"
	"context"
	"fmt"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"github.com/PolarWolf314/syncany/internal/ui"
	"github.com/PolarWolf314/syncany/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	connectPlugin        string
	connectPluginOptions []string
	connectPassword      string
	connectSignPassword  string
)

func init() {
	connectCmd.Flags().StringVarP(&connectPlugin, "plugin", "p", "", "storage plugin to use")
	connectCmd.Flags().StringArrayVarP(&connectPluginOptions, "plugin-option", "P", nil, "plugin setting as key=value (repeatable)")
	addPasswordFlags(connectCmd.Flags(), &connectPassword, &connectSignPassword)
}

// resetConnectCommandState resets the connect command's global state for testing.
func resetConnectCommandState() {
	connectPlugin = ""
	connectPluginOptions = nil
	connectPassword = ""
	connectSignPassword = ""
}

var connectCmd = &cobra.Command{
	Use:   "connect [link]",
	Short: "Connect the local folder to an existing repository",
	Long: `Connects the local folder to an existing repository.

The repository is given either as a link (as printed by init or genlink),
or as a plugin with its settings. With neither, you are asked for the
plugin and its settings.

If the repository is encrypted, you are asked for the encrypt password and,
if you have write access, the sign password. Without a matching sign
password the folder is connected read-only.

Examples:
  # Connect with a link
  syncany connect syncany://storage/1/...

  # Connect with plugin settings
  syncany connect -p local -P path=/mnt/backup/repo

  # Ask for the plugin and its settings
  syncany connect`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting connect command")
		out := cmd.OutOrStdout()

		in := bufio.NewReader(cmd.InOrStdin())
		opts, err := connectOptions(cmd, in, args)
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Connecting to repository...", out)
		defer cleanup()
		opts.Environment = newEnvironment(spinner)
		opts.Passwords = &passwordPrompt{spinner: spinner, in: in, encrypt: connectPassword, sign: connectSignPassword}

		result, err := workflows.Connect(context.Background(), opts)
		if err != nil {
			return fail(spinner, err)
		}

		finalMessage := ui.Success.Sprint("✓") + " Repository connected, and local folder initialized.\n" +
			ui.Info.Sprint("→") + " Repository " + ui.Highlight.Sprint(result.RepoID) + " on " + ui.Code.Sprint(result.Plugin) + "\n"
		if result.Encrypted && !result.WriteAccess {
			finalMessage += ui.Warning.Sprint("Warning:") + " Connected read-only, files cannot be uploaded from this folder.\n"
		}
		spinner.FinalMSG = finalMessage
		return nil
	},
}

// connectOptions selects exactly one of the three input modes: a link,
// plugin flags, or interactive prompts.
func connectOptions(cmd *cobra.Command, in *bufio.Reader, args []string) (workflows.ConnectOptions, error) {
	opts := workflows.ConnectOptions{LocalDir: localDir}
	hasLink := len(args) == 1
	hasFlags := connectPlugin != "" || len(connectPluginOptions) > 0

	switch {
	case hasLink && hasFlags:
		return opts, fmt.Errorf("%w: give either a link or -p/-P, not both", kerrors.ErrConflictingInput)
	case hasLink:
		opts.Link = args[0]
	case connectPlugin == "" && hasFlags:
		return opts, fmt.Errorf("%w: -P needs -p", kerrors.ErrInvalidArgument)
	case hasFlags:
		conn, err := connectionFromFlags(connectPlugin, connectPluginOptions)
		if err != nil {
			return opts, err
		}
		opts.Connection = &conn
	default:
		registry := newEnvironment(nil).Plugins
		conn, err := askConnection(in, cmd.OutOrStdout(), registry)
		if err != nil {
			return opts, err
		}
		Logger.Infof("Using connection %s", formatSettings(registry, conn))
		opts.Connection = &conn
	}
	return opts, nil
}
