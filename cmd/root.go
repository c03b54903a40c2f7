package cmd

import (
	"fmt"
	"os"

	"github.com/PolarWolf314/syncany/internal/crypto"
	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	logger "github.com/PolarWolf314/syncany/internal/logging"
	"github.com/PolarWolf314/syncany/internal/ui"

	"github.com/spf13/cobra"
)

var (
	verbose  bool
	debug    bool
	localDir string
	Logger   logger.Logger

	// kdfParams are the key derivation parameters used by all commands.
	kdfParams = crypto.DefaultKDFParams()

	RootCmd = &cobra.Command{
		Use:   "syncany",
		Short: "Syncany - secure file synchronization with any storage",
		Long: `Syncany synchronizes a local folder with a repository on any storage.

Everything written to the storage is compressed, encrypted and signed on
the client, so the storage never sees your data or your passwords.

Usage:
  syncany <command> [flags]

Available Commands:
  init      Create a new repository and initialize the local folder
  connect   Connect the local folder to an existing repository
  genlink   Print a link others can connect with
  encode    Run a file through the repository's transformers
  decode    Reverse encode and verify the result
  plugins   List the available storage plugins

Run 'syncany help <command>' for more details on a specific command.
`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     cmd.OutOrStdout(),
				Err:     cmd.ErrOrStderr(),
			}
			Logger.Debugf("Initializing %s command with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringVarP(&localDir, "localdir", "l", "", "use the given folder instead of the working directory")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(connectCmd)
	RootCmd.AddCommand(genlinkCmd)
	RootCmd.AddCommand(encodeCmd)
	RootCmd.AddCommand(decodeCmd)
	RootCmd.AddCommand(pluginsCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := RootCmd.Execute()
	if err != nil && !errorReported {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	return kerrors.ExitCode(err)
}

// errorReported is set once a command has shown its error to the user.
var errorReported bool

// formatError renders an error with its class, so integrity failures,
// storage errors and wrong input read differently.
func formatError(err error) string {
	if class := kerrors.Class(err); class != "" {
		return ui.Error.Sprint("✗") + " " + ui.Error.Sprint(class+":") + " " + err.Error()
	}
	return ui.Error.Sprint("✗") + " " + err.Error()
}

// Helper functions for testing

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	localDir = ""
	errorReported = false
	resetInitCommandState()
	resetConnectCommandState()
	resetStreamCommandState()
	resetGenlinkCommandState()
}

// SetKDFParams sets the key derivation parameters for testing.
func SetKDFParams(params crypto.KDFParams) {
	kdfParams = params
}
