package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/usecase/admin"
)

// Import returns the command that uploads a backup archive to the gateway.
func Import(opts *globalOptions) *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore a gateway backup archive",
		Long: `Upload a backup archive to the gateway. The gateway snapshots its
current state before overwriting it.

The content type is derived from the file extension unless --content-type
is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open backup: %w", err)
			}
			defer f.Close()

			if contentType == "" {
				contentType = archiveContentType(path)
			}

			a, err := newApp(cmd.Context(), opts, modeCLI)
			if err != nil {
				return err
			}
			defer a.Close()

			sess := a.plainSession()
			defer sess.Close()
			res, err := sess.Admin.Import(cmd.Context(), contentType, f)
			printAction(cmd, res)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme.TextSuccess.Render(theme.SymbolSuccess)+" Imported "+filepath.Base(path))
			return nil
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "", "Archive content type (default: from extension)")
	return cmd
}

// archiveContentType maps a backup file name to its MIME type.
func archiveContentType(path string) string {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"), strings.HasSuffix(name, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(name, ".tar"):
		return "application/x-tar"
	case strings.HasSuffix(name, ".zip"):
		return "application/zip"
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	}
	return admin.DefaultImportContentType
}
