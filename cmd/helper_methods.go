package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/PolarWolf314/syncany/internal/configs"
	"github.com/PolarWolf314/syncany/internal/crypto"
	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"github.com/PolarWolf314/syncany/internal/link"
	"github.com/PolarWolf314/syncany/internal/storage"
	"github.com/PolarWolf314/syncany/internal/ui"
	"github.com/PolarWolf314/syncany/internal/utils"
	"github.com/PolarWolf314/syncany/internal/workflows"

	"github.com/briandowns/spinner"
	"github.com/spf13/pflag"
)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// spinner.FinalMSG values do not need trailing newlines. The cleanup function
// prints the final message to out with ui.EnsureNewline().
func startSpinner(message string, out io.Writer) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message

	// Ignore color errors - continue without colored spinner if it fails.
	_ = s.Color("cyan")

	if !verbose && !debug {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if !verbose && !debug {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if !verbose && !debug {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Fprint(out, finalMsg)
		}
	}

	return s, cleanup
}

// fail shows err as the spinner's final message and returns it, so the
// process exits with the error's exit code.
func fail(s *spinner.Spinner, err error) error {
	s.FinalMSG = formatError(err)
	errorReported = true
	return err
}

// pauseSpinner stops the spinner for a prompt. The returned function
// restarts it.
func pauseSpinner(s *spinner.Spinner) func() {
	if verbose || debug || s == nil {
		return func() {}
	}
	s.Stop()
	return s.Restart
}

// newEnvironment returns the workflow collaborators. The spinner shows the
// key derivation notice while keys are derived.
func newEnvironment(s *spinner.Spinner) workflows.Environment {
	notify := func(msg string) {
		Logger.Infof("%s", msg)
		if s != nil {
			s.Lock()
			s.Suffix = " " + msg
			s.Unlock()
		}
	}
	return workflows.Environment{
		Keys:    &crypto.KeyService{Params: kdfParams, Notify: notify},
		Plugins: storage.DefaultRegistry(),
		Logger:  &Logger,
	}
}

// addPasswordFlags registers the flags that pass passwords non-interactively.
func addPasswordFlags(fs *pflag.FlagSet, encrypt, sign *string) {
	fs.StringVar(encrypt, "password", "", "encrypt password (for scripting, prompts if not set)")
	fs.StringVar(sign, "sign-password", "", "sign password (for scripting, prompts if not set)")
}

// passwordPrompt asks for the repository passwords, unless they were given
// as flags.
type passwordPrompt struct {
	spinner *spinner.Spinner
	in      *bufio.Reader
	encrypt string
	sign    string
}

func (p *passwordPrompt) Passwords(ctx context.Context) (link.Passwords, error) {
	if p.encrypt != "" {
		return link.Passwords{Encrypt: p.encrypt, Sign: p.sign}, nil
	}
	if !utils.IsTerminal() {
		return link.Passwords{}, fmt.Errorf("%w: use --password and --sign-password", kerrors.ErrNoPasswordProvider)
	}

	resume := pauseSpinner(p.spinner)
	defer resume()

	encrypt, err := utils.ReadPassphrase("Encrypt password: ")
	if err != nil {
		return link.Passwords{}, err
	}

	writeAccess, err := askYesNo(p.in, "Do you have write access on this repository? (y/n) ")
	if err != nil {
		return link.Passwords{}, err
	}

	var sign []byte
	if writeAccess {
		if sign, err = utils.ReadPassphrase("Sign password (can be empty): "); err != nil {
			return link.Passwords{}, err
		}
	}
	return link.Passwords{Encrypt: string(encrypt), Sign: string(sign)}, nil
}

func askYesNo(r *bufio.Reader, prompt string) (bool, error) {
	for {
		fmt.Fprint(os.Stderr, prompt)
		answer, err := r.ReadString('\n')
		if err != nil {
			return false, err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		switch {
		case strings.HasPrefix(answer, "y"):
			return true, nil
		case strings.HasPrefix(answer, "n"):
			return false, nil
		}
	}
}

// connectionFromFlags builds a connection from -p and -P flags.
func connectionFromFlags(plugin string, options []string) (configs.ConnectionTO, error) {
	settings, err := utils.ParseKeyValues(options)
	if err != nil {
		return configs.ConnectionTO{}, fmt.Errorf("%w: %v", kerrors.ErrInvalidArgument, err)
	}
	return configs.ConnectionTO{Type: plugin, Settings: settings}, nil
}

// askConnection interactively asks for a plugin and its settings.
func askConnection(r *bufio.Reader, out io.Writer, registry *storage.Registry) (configs.ConnectionTO, error) {
	plugins := registry.Plugins()
	ids := make([]string, 0, len(plugins))
	for _, p := range plugins {
		ids = append(ids, p.ID)
	}

	fmt.Fprintf(out, "Choose a storage plugin. Available plugins are: %s\n", strings.Join(ids, ", "))
	var plugin storage.Plugin
	for {
		id, err := readLine(r, out, "Plugin: ")
		if err != nil {
			return configs.ConnectionTO{}, err
		}
		if plugin, err = registry.Get(id); err == nil {
			break
		}
		fmt.Fprintf(out, "%s Plugin %s does not exist.\n", ui.Error.Sprint("✗"), ui.Highlight.Sprint(id))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Connection details for %s:\n", plugin.Name)

	settings := make(map[string]string, len(plugin.Options))
	for _, opt := range plugin.Options {
		value, err := askOption(r, out, opt)
		if err != nil {
			return configs.ConnectionTO{}, err
		}
		if value != "" {
			settings[opt.Name] = value
		}
	}

	return configs.ConnectionTO{Type: plugin.ID, Settings: settings}, nil
}

func askOption(r *bufio.Reader, out io.Writer, opt storage.Option) (string, error) {
	prompt := "- " + opt.Description
	if opt.Default != "" {
		prompt += " (" + opt.Default + ")"
	}
	prompt += ": "

	for {
		var value string
		if opt.Sensitive && utils.IsTerminal() {
			secret, err := utils.ReadPassphrase(prompt)
			if err != nil {
				return "", err
			}
			value = string(secret)
		} else {
			line, err := readLine(r, out, prompt)
			if err != nil {
				return "", err
			}
			value = line
		}

		if value == "" {
			value = opt.Default
		}
		if value != "" || !opt.Required {
			return value, nil
		}
		fmt.Fprintf(out, "%s %s is required.\n", ui.Error.Sprint("✗"), opt.Description)
	}
}

func readLine(r *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// formatSettings renders settings for display, masking sensitive values.
func formatSettings(registry *storage.Registry, conn configs.ConnectionTO) string {
	sensitive := map[string]bool{}
	if plugin, err := registry.Get(conn.Type); err == nil {
		for _, opt := range plugin.Options {
			sensitive[opt.Name] = opt.Sensitive
		}
	}

	keys := make([]string, 0, len(conn.Settings))
	for k := range conn.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := conn.Settings[k]
		if sensitive[k] {
			v = utils.MaskSecret(v)
		}
		parts = append(parts, k+"="+v)
	}
	return conn.Type + " (" + strings.Join(parts, ", ") + ")"
}
