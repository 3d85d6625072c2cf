package main

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"typstkit/pkg/bundle"
	"typstkit/pkg/fileid"
	"typstkit/pkg/registry"
)

func newBundleCommand() *cobra.Command {
	var templates string
	var out string
	var registryURL string
	var lockPath string
	var retries int
	var retryBackoff time.Duration

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Download every package the templates transitively import",
		Long: "Scans the template directory for package imports, expands their " +
			"dependency graphs and materializes each package under the output " +
			"directory, ready for go:embed or for use as a warm package cache.",
		RunE: func(c *cobra.Command, args []string) error {
			if templates == "" {
				templates = os.Getenv("TYPSTKIT_TEMPLATE_DIR")
			}

			var backoff registry.Backoff
			if retryBackoff > 0 {
				backoff = func(attempt int) time.Duration { return retryBackoff }
			}

			bar := progressbar.Default(-1, "downloading packages")
			defer func() { _ = bar.Finish() }()

			return bundle.Run(c.Context(), bundle.Config{
				TemplateRoot: templates,
				OutputDir:    out,
				RegistryURL:  registryURL,
				RetryCount:   retries,
				Backoff:      backoff,
				LockPath:     lockPath,
				OnDownload: func(spec fileid.PackageSpec) {
					bar.Describe("downloading " + spec.String())
					_ = bar.Add(1)
				},
			})
		},
	}

	cmd.Flags().StringVarP(&templates, "templates", "t", "", "Template directory to scan (or set TYPSTKIT_TEMPLATE_DIR)")
	cmd.Flags().StringVarP(&out, "out", "o", "typst_packages", "Output directory for materialized packages")
	cmd.Flags().StringVar(&registryURL, "registry", registry.DefaultBaseURL, "Package registry base URL")
	cmd.Flags().StringVar(&lockPath, "lock", "", "Lockfile pinning archive hashes (optional)")
	cmd.Flags().IntVar(&retries, "retries", registry.DefaultRetryCount, "Download attempts per archive")
	cmd.Flags().DurationVar(&retryBackoff, "retry-backoff", 0, "Fixed delay between retries (default: retry immediately)")
	return cmd
}
