package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/infra/config"
)

// Config returns the config command group. get and set work on the
// gateway's own config file; init and encrypt work on the local
// openclaw-setup configuration.
func Config(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit configuration",
		Long: `View or edit configuration.

  get, set      the gateway's config file (openclaw.json)
  init          write a local openclaw-setup.yaml with defaults
  encrypt       encrypt a secret for use in openclaw-setup.yaml`,
	}

	cmd.AddCommand(configGet(opts))
	cmd.AddCommand(configSet(opts))
	cmd.AddCommand(configInit(opts))
	cmd.AddCommand(configEncrypt())

	return cmd
}

func configGet(opts *globalOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the gateway config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts, modeCLI)
			if err != nil {
				return err
			}
			defer a.Close()

			sess := a.plainSession()
			defer sess.Close()
			raw, err := sess.Admin.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(raw.Content), 0o600); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", raw.Path, outPath)
				return nil
			}
			content := raw.Content
			if !strings.HasSuffix(content, "\n") {
				content += "\n"
			}
			_, err = io.WriteString(cmd.OutOrStdout(), content)
			return err
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "Write the config to a file instead of stdout")
	return cmd
}

func configSet(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <file|->",
		Short: "Replace the gateway config file and restart the gateway",
		Long: `Replace the gateway's config file with the content of file, or
stdin when file is "-". The gateway backs up the previous file and
restarts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(content) == "" {
				return domain.NewDomainError("config.set", domain.ErrValidation, "refusing to save an empty config")
			}

			a, err := newApp(cmd.Context(), opts, modeCLI)
			if err != nil {
				return err
			}
			defer a.Close()

			sess := a.plainSession()
			defer sess.Close()
			res, err := sess.Admin.SaveConfig(cmd.Context(), content)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, theme.TextSuccess.Render(theme.SymbolSuccess)+" Config saved")
			if s := strings.TrimSpace(res.RestartOutput); s != "" {
				fmt.Fprintln(out, theme.LogBox.Render(s))
			}
			return nil
		},
	}
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func configInit(opts *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default openclaw-setup.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if _, err := os.Stat(path); err == nil && !force {
				return domain.NewDomainError("config.init", domain.ErrValidation,
					path+" already exists (use --force to overwrite)")
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			cfg := config.Defaults()
			if opts.baseURL != "" {
				cfg.Gateway.BaseURL = opts.baseURL
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func configEncrypt() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <value>",
		Short: "Encrypt a secret for openclaw-setup.yaml",
		Long: `Encrypt a secret with the passphrase in ` + config.EnvPrefix + `CONFIG_KEY.

Paste the printed enc:... value into openclaw-setup.yaml in place of the
plaintext. It is decrypted at load time when the same passphrase is set.
Pass "-" to read the value from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase := os.Getenv(config.EnvPrefix + "CONFIG_KEY")
			if passphrase == "" {
				return domain.NewDomainError("config.encrypt", domain.ErrEncryption,
					config.EnvPrefix+"CONFIG_KEY is not set")
			}
			value := args[0]
			if value == "-" {
				in, err := readInput(cmd, "-")
				if err != nil {
					return err
				}
				value = strings.TrimRight(in, "\r\n")
			}
			enc, err := config.EncryptValue(value, passphrase)
			if err != nil {
				return domain.NewDomainError("config.encrypt", domain.ErrEncryption, err.Error())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "enc:"+enc)
			return nil
		},
	}
}
