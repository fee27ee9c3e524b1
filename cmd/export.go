package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/freightdash/internal/archive"
	"github.com/theirongolddev/freightdash/internal/export"

	"github.com/spf13/cobra"
)

var (
	flagExportFormats []string
	flagExportOut     string
	flagExportS3      bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the report as csv, json, yaml, pdf, xlsx or html",
	Example: "  freightdash export -f xlsx -f pdf --out reports/\n" +
		"  freightdash export -m 2025-05 -p 1000 --s3",
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringSliceVarP(&flagExportFormats, "format", "f", []string{"csv"}, "Output format(s): csv, json, yaml, pdf, xlsx, html")
	exportCmd.Flags().StringVarP(&flagExportOut, "out", "o", ".", "Output directory")
	exportCmd.Flags().BoolVar(&flagExportS3, "s3", false, "Also upload the files to the configured archive bucket")
	exportCmd.Flags().StringVarP(&flagGroup, "group", "g", "", "Only export material groups containing this text")
	rootCmd.AddCommand(exportCmd)
}

func runExport(_ *cobra.Command, _ []string) error {
	formats := make([]export.Format, 0, len(flagExportFormats))
	for _, f := range flagExportFormats {
		format, err := export.ParseFormat(f)
		if err != nil {
			return err
		}
		formats = append(formats, format)
	}

	s, err := loadSettings()
	if err != nil {
		return err
	}
	if err := s.requirePlant(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	var arch *archive.Archiver
	if flagExportS3 {
		arch, err = archive.New(ctx, archive.Options{
			Bucket:  s.cfg.Archive.Bucket,
			Prefix:  s.cfg.Archive.Prefix,
			Region:  s.cfg.Archive.Region,
			Profile: s.cfg.Archive.Profile,
		})
		if err != nil {
			return err
		}
	}

	con := newConsole()
	cache := openCache(con)
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	res, err := loadReport(ctx, s, cache, con)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(flagExportOut, 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	doc := export.NewDocument(flagFiltered(res.Report), res.FetchedAt, res.FromCache)

	for _, f := range formats {
		path, err := export.Write(doc, f, flagExportOut)
		if err != nil {
			return fmt.Errorf("writing %s: %w", f, err)
		}
		con.LogSuccess("Wrote %s", path)

		if arch != nil {
			uri, err := arch.Upload(ctx, path, f.ContentType())
			if err != nil {
				return err
			}
			con.LogSuccess("Uploaded %s", uri)
		}
	}
	return nil
}
