package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/PolarWolf314/syncany/internal/configs"
	"github.com/PolarWolf314/syncany/internal/crypto"
	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"github.com/PolarWolf314/syncany/internal/storage"
	"github.com/PolarWolf314/syncany/internal/transform"
	"github.com/PolarWolf314/syncany/internal/ui"
	"github.com/PolarWolf314/syncany/internal/utils"
	"github.com/PolarWolf314/syncany/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	initPlugin        string
	initPluginOptions []string
	initNoEncryption  bool
	initCipher        string
	initNoCompression bool
	initCompression   string
	initCreateTarget  bool
	initPassword      string
	initSignPassword  string
)

func init() {
	initCmd.Flags().StringVarP(&initPlugin, "plugin", "p", "", "storage plugin to use (asks if not set)")
	initCmd.Flags().StringArrayVarP(&initPluginOptions, "plugin-option", "P", nil, "plugin setting as key=value (repeatable)")
	initCmd.Flags().BoolVar(&initNoEncryption, "no-encryption", false, "do not encrypt or sign the repository")
	initCmd.Flags().StringVar(&initCipher, "cipher", "", "comma-separated cipher spec ids (default "+mustDefaultSuite().String()+")")
	initCmd.Flags().BoolVar(&initNoCompression, "no-compression", false, "do not compress repository files")
	initCmd.Flags().StringVar(&initCompression, "compression", transform.TypeGzip, "compression stage: gzip or zstd")
	initCmd.Flags().BoolVarP(&initCreateTarget, "create-target", "t", false, "create the target location on the storage if it does not exist")
	addPasswordFlags(initCmd.Flags(), &initPassword, &initSignPassword)
}

// resetInitCommandState resets the init command's global state for testing.
func resetInitCommandState() {
	initPlugin = ""
	initPluginOptions = nil
	initNoEncryption = false
	initCipher = ""
	initNoCompression = false
	initCompression = transform.TypeGzip
	initCreateTarget = false
	initPassword = ""
	initSignPassword = ""
}

func mustDefaultSuite() crypto.CipherSuite {
	suite, err := crypto.NewCipherSuite(crypto.DefaultCipherSuiteIDs...)
	if err != nil {
		panic(err)
	}
	return suite
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new repository and initialize the local folder",
	Long: `Creates a new repository on the given storage and initializes the local
folder for it.

By default the repository is compressed, encrypted and signed. You are asked
for two passwords: the encrypt password protects the data, the sign
password proves write access. Others need the encrypt password to read the
repository, and the sign password to write to it.

Examples:
  # Ask for the plugin, its settings and the passwords
  syncany init

  # Use a local folder as storage, creating it if needed
  syncany init -p local -P path=/mnt/backup/repo -t

  # Use a specific cipher cascade and zstd compression
  syncany init -p local -P path=/mnt/backup/repo --cipher 3,4 --compression zstd

  # Unencrypted repository, for testing
  syncany init -p local -P path=/tmp/repo --no-encryption`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")
		out := cmd.OutOrStdout()
		env := newEnvironment(nil)

		conn, err := initConnection(cmd, env.Plugins)
		if err != nil {
			return err
		}
		Logger.Debugf("Using connection %s", formatSettings(env.Plugins, conn))

		opts := workflows.InitOptions{
			LocalDir:     localDir,
			Connection:   conn,
			CreateTarget: initCreateTarget,
			Encryption:   !initNoEncryption,
			Compression:  initCompression,
		}
		if initNoCompression {
			opts.Compression = workflows.CompressionNone
		}
		if initCipher != "" {
			if initNoEncryption {
				return fmt.Errorf("%w: --cipher cannot be used with --no-encryption", kerrors.ErrConflictingInput)
			}
			if opts.CipherSuite, err = crypto.ParseCipherSuite(initCipher); err != nil {
				return err
			}
		}
		if opts.Encryption {
			if opts.EncryptPassword, opts.SignPassword, err = initPasswords(); err != nil {
				return err
			}
		}

		spinner, cleanup := startSpinner("Creating repository...", out)
		defer cleanup()
		opts.Environment = newEnvironment(spinner)

		result, err := workflows.Init(context.Background(), opts)
		if err != nil {
			return fail(spinner, err)
		}

		if len(result.CreatedDirs) > 0 {
			Logger.Infof("Created local directories:%s", utils.FormatPaths(result.CreatedDirs))
		}

		var b strings.Builder
		b.WriteString(ui.Success.Sprint("✓") + " Repository created, and local folder initialized.\n")
		b.WriteString(ui.Info.Sprint("→") + " Transformers: " + ui.Highlight.Sprint(result.Transformer) + "\n\n")
		b.WriteString(linkMessage(result.Link, result.Encrypted))
		spinner.FinalMSG = b.String()
		return nil
	},
}

// initConnection resolves the connection from -p/-P, or asks for it.
func initConnection(cmd *cobra.Command, registry *storage.Registry) (configs.ConnectionTO, error) {
	if initPlugin != "" {
		return connectionFromFlags(initPlugin, initPluginOptions)
	}
	if len(initPluginOptions) > 0 {
		return configs.ConnectionTO{}, fmt.Errorf("%w: -P needs -p", kerrors.ErrInvalidArgument)
	}
	return askConnection(bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout(), registry)
}

// initPasswords returns the passwords from the flags, or asks for new ones.
func initPasswords() (string, string, error) {
	if initPassword != "" || initSignPassword != "" {
		if initPassword == "" || initSignPassword == "" {
			return "", "", fmt.Errorf("%w: --password and --sign-password must be given together", kerrors.ErrInvalidArgument)
		}
		return initPassword, initSignPassword, nil
	}
	if !utils.IsTerminal() {
		return "", "", fmt.Errorf("%w: use --password and --sign-password", kerrors.ErrNoPasswordProvider)
	}

	encrypt, err := utils.ReadNewPassphrase("Encrypt password: ", "Confirm: ", false)
	if err != nil {
		return "", "", err
	}
	sign, err := utils.ReadNewPassphrase("Sign password: ", "Confirm: ", false)
	if err != nil {
		return "", "", err
	}
	return string(encrypt), string(sign), nil
}
