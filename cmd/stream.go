package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/syncany/internal/ui"
	"github.com/PolarWolf314/syncany/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	streamIn  string
	streamOut string
)

func init() {
	for _, c := range []*cobra.Command{encodeCmd, decodeCmd} {
		c.Flags().StringVarP(&streamIn, "in", "i", "-", "input file, - for stdin")
		c.Flags().StringVarP(&streamOut, "out", "o", "-", "output file, - for stdout")
	}
}

// resetStreamCommandState resets the encode and decode commands' global state for testing.
func resetStreamCommandState() {
	streamIn = "-"
	streamOut = "-"
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Run a file through the repository's transformers",
	Long: `Compresses, encrypts and signs a file the way the repository stores its
files, using the transformers configured at init.

Examples:
  syncany encode --in notes.txt --out notes.enc
  tar c photos | syncany encode > photos.tar.enc`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStream(cmd, "Encoding", workflows.Encode)
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Reverse encode and verify the result",
	Long: `Verifies, decrypts and decompresses a file produced by encode.

When writing to a file, the file is only created if the input verifies.

Examples:
  syncany decode --in notes.enc --out notes.txt`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStream(cmd, "Decoding", workflows.Decode)
	},
}

type streamWorkflow func(context.Context, workflows.StreamOptions) (*workflows.StreamResult, error)

func runStream(cmd *cobra.Command, verb string, run streamWorkflow) error {
	Logger.Infof("Starting %s command", cmd.Name())

	// Data may go to stdout, so messages go to stderr.
	spinner, cleanup := startSpinner(verb+"...", cmd.ErrOrStderr())
	defer cleanup()

	opts := workflows.StreamOptions{
		Environment: newEnvironment(spinner),
		LocalDir:    localDir,
		Name:        "-",
		In:          cmd.InOrStdin(),
		Out:         cmd.OutOrStdout(),
	}

	if streamIn != "-" && streamIn != "" {
		f, err := os.Open(streamIn)
		if err != nil {
			return fail(spinner, err)
		}
		defer f.Close()
		opts.In = f
		opts.Name = filepath.Base(streamIn)
	}

	var out *atomicFile
	if streamOut != "-" && streamOut != "" {
		var err error
		if out, err = createAtomicFile(streamOut); err != nil {
			return fail(spinner, err)
		}
		defer out.Abort()
		opts.Out = out
	}

	result, err := run(context.Background(), opts)
	if err != nil {
		return fail(spinner, err)
	}
	if out != nil {
		if err := out.Commit(); err != nil {
			return fail(spinner, err)
		}
	}

	Logger.Debugf("%s: %d bytes in, %d bytes out", verb, result.BytesIn, result.BytesOut)
	spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" %s done: %d bytes in, %d bytes out ", verb, result.BytesIn, result.BytesOut) +
		ui.Muted.Sprint(result.Transformer)
	return nil
}

// atomicFile is written to a temporary file and only renamed into place on
// Commit.
type atomicFile struct {
	*os.File
	path      string
	committed bool
}

func createAtomicFile(path string) (*atomicFile, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &atomicFile{File: tmp, path: path}, nil
}

func (f *atomicFile) Commit() error {
	if err := f.File.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.File.Name(), f.path); err != nil {
		return err
	}
	f.committed = true
	return nil
}

// Abort removes the temporary file unless Commit succeeded.
func (f *atomicFile) Abort() {
	if f.committed {
		return
	}
	f.File.Close()
	os.Remove(f.File.Name())
}

var _ io.Writer = (*atomicFile)(nil)
