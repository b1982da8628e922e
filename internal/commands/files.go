package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/presenter"
	"github.com/studysync/studysync-cli/internal/richtext"
	"github.com/studysync/studysync-cli/internal/services"
)

// NewFilesCmd creates the files command group.
func NewFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"file"},
		Short:   "Share study materials",
		Long:    "List, upload, download, and delete files shared in a group.",
	}

	list, upload := newFilesListCmd(), newFilesUploadCmd()
	completeGroupArgs(list, upload)

	cmd.AddCommand(
		list,
		upload,
		newFilesDownloadCmd(),
		newFilesDeleteCmd(),
	)

	return cmd
}

func newFilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <group-id>",
		Short: "List files in a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			files, err := app.Services.Files.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return app.Present(files, app.Presenter.Files(files),
				output.WithSummary(pluralize(len(files), "file", "files")),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "download",
					Cmd:         "studysync files download <id>",
					Description: "Download a file",
				}),
			)
		},
	}
}

func newFilesUploadCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "upload <group-id> <path>",
		Short: "Upload a file to a group",
		Long: `Upload a local file to a group. Files up to 25 MB are accepted.

Examples:
  studysync files upload 64f0c2 notes.pdf
  studysync files upload 64f0c2 ./draft.docx --name "Chapter 3.docx"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			groupID, path := args[0], args[1]
			if err := richtext.ValidateFile(path, services.MaxUploadSize); err != nil {
				return output.ErrUsage(err.Error())
			}
			if name == "" {
				name = filepath.Base(path)
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer f.Close()

			uploaded, err := app.Services.Files.UploadAs(cmd.Context(), groupID, name, richtext.DetectMIME(path), f)
			if err != nil {
				return err
			}

			return app.Present(uploaded, app.Presenter.Files([]models.File{*uploaded})[0],
				output.WithSummary(fmt.Sprintf("Uploaded %s (%s)", uploaded.Name, presenter.FormatBytes(uploaded.Size))),
			)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "File name shown in the group (defaults to the local name)")
	return cmd
}

func newFilesDownloadCmd() *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "download <file-id>",
		Short: "Download a file",
		Long: `Download a file. Use -o - to write to stdout.

Examples:
  studysync files download 650a1f -o notes.pdf
  studysync files download 650a1f -o - | less`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			if dest == "" {
				dest = args[0]
			}

			if dest == "-" {
				_, err := app.Services.Files.Download(cmd.Context(), args[0], app.Stdout)
				return err
			}

			n, err := downloadTo(cmd, app.Services.Files, args[0], dest)
			if err != nil {
				return err
			}

			return app.OK(map[string]any{
				"id":    args[0],
				"path":  dest,
				"bytes": n,
			}, output.WithSummary(fmt.Sprintf("Saved %s (%s)", dest, presenter.FormatBytes(n))))
		},
	}

	cmd.Flags().StringVarP(&dest, "output", "o", "", "Destination path, or - for stdout (defaults to the file ID)")
	return cmd
}

// downloadTo writes into a temp file beside dest and renames it into place
// so a failed transfer never leaves a truncated file.
func downloadTo(cmd *cobra.Command, files *services.Files, id, dest string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".studysync-download-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer os.Remove(tmp.Name())

	n, err := files.Download(cmd.Context(), id, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", dest, err)
	}
	return n, nil
}

func newFilesDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			if err := confirmDestructive(app, yes, "file "+args[0]); err != nil {
				return err
			}
			if err := app.Services.Files.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			return app.OK(map[string]string{"id": args[0], "status": "deleted"},
				output.WithSummary("Deleted file "+args[0]))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}
