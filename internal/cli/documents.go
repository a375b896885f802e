package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/me/docvault/internal/route"
	"github.com/me/docvault/pkg/model"
	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var query, tag string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search documents by title and tag",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			docs, err := a.client.SearchDocuments(cmd.Context(), query, tag)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents found.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tTAGS\tVERSIONS")
			for _, d := range docs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", d.ID, d.Title, strings.Join(d.TagNames(), ","), len(d.Versions))
			}
			return tw.Flush()
		}),
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Title text to match")
	cmd.Flags().StringVar(&tag, "tag", "", "Tag to match")
	return forRoute(cmd, route.Search)
}

func newUploadCmd(a *app) *cobra.Command {
	var title, tags string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document or a new version of one",
		Long: "Upload a file with a title and comma-separated tags. Uploading under an\n" +
			"existing title adds a new version.",
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open upload: %w", err)
			}
			defer f.Close()

			res, err := a.client.UploadDocument(cmd.Context(), model.Upload{
				Title:    title,
				Tags:     tags,
				Filename: filepath.Base(args[0]),
				Content:  f,
			})
			if err != nil {
				return fmt.Errorf("upload: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as document %d (%s)\n", res.Filename, res.DocumentID, res.Title)
			return nil
		}),
	}

	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags, e.g. Finance,Report")
	return forRoute(cmd, route.Upload)
}

func newVersionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions <document-id>",
		Short: "Show a document's version history",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			versions, err := a.client.ListVersions(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("list versions: %w", err)
			}
			if len(versions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No versions found.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tCREATED\tUPLOADER\tFILENAME")
			for _, v := range versions {
				created := "-"
				if !v.CreatedAt.IsZero() {
					created = v.CreatedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(tw, "v%d\t%s\t%s\t%s\n", v.VersionNumber, created, v.UploaderName(), model.SuggestedFilename(id, v))
			}
			return tw.Flush()
		}),
	}
	return forRoute(cmd, route.Document)
}

func newDownloadCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <document-id>",
		Short: "Download the latest version of a document",
		Long: "Download the latest version of a document. Without -o the file is named\n" +
			"<name>_v<N>.<ext> after the stored file. \"-o -\" writes to stdout.",
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := a.client.DownloadVersion(cmd.Context(), id, cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("download: %w", err)
				}
				return nil
			}

			if output == "" {
				output = fmt.Sprintf("document_%d.bin", id)
				versions, err := a.client.ListVersions(cmd.Context(), id)
				if err != nil {
					a.logger.Warn("version history unavailable, using fallback name", "document_id", id, "error", err)
				} else if len(versions) > 0 {
					output = model.SuggestedFilename(id, versions[0])
				}
			}

			n, err := downloadToFile(cmd, a, id, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", output, n)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (\"-\" for stdout)")
	return forRoute(cmd, route.Download)
}

// downloadToFile writes to a temporary file next to path and renames it
// into place, so a failed download leaves nothing behind.
func downloadToFile(cmd *cobra.Command, a *app, id int, path string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	n, err := a.client.DownloadVersion(cmd.Context(), id, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("download: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		a.logger.Debug("chmod download", "path", tmp.Name(), "error", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("save download: %w", err)
	}
	return n, nil
}

func parseDocumentID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", s)
	}
	return id, nil
}
