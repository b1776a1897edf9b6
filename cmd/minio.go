package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"Vedit/logger"
	"Vedit/storage"
)

var (
	minioPrefix string
	minioStats  bool
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the published-export mirror bucket",
	Long:  `List, summarize or delete objects in the MinIO bucket that mirrors published exports.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.MinioEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is not configured")
		}
		p, err := newMinioPublisher(cmd.Context(), cfg, logger.L())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if minioDelete {
			if minioPrefix == "" {
				return fmt.Errorf("--delete requires --prefix")
			}
			n, err := p.RemovePrefix(cmd.Context(), minioPrefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "deleted %d objects under %s\n", n, minioPrefix)
			return nil
		}

		objects, stats, err := p.List(cmd.Context(), minioPrefix)
		if err != nil {
			return err
		}
		if minioStats {
			fmt.Fprintf(out, "bucket:   %s\n", p.Bucket())
			fmt.Fprintf(out, "objects:  %d\n", stats.TotalObjects)
			fmt.Fprintf(out, "size:     %s\n", storage.FormatSize(stats.TotalSize))
			if !stats.LastModified.IsZero() {
				fmt.Fprintf(out, "modified: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
			}
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
		for _, o := range objects {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Key, storage.FormatSize(o.Size), o.LastModified.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "only objects under this prefix")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print totals instead of listing")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "delete every object under --prefix")

	minioCmd.Example = `  # list every mirrored export
  vedit minio

  # totals for one project
  vedit minio -s -p "published/<uuid>/"

  # delete one project's mirror
  vedit minio -d -p "published/<uuid>/"`
}
