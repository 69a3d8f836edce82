package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/pdok/atom-generator/pkg/atomfeed"
	"github.com/pdok/atom-generator/pkg/atomfeed/check"
	"github.com/pdok/atom-generator/pkg/atomfeed/config"
	"github.com/pdok/atom-generator/pkg/atomfeed/reconcile"
	"github.com/pdok/atom-generator/pkg/atomfeed/source"
	"github.com/pdok/atom-generator/pkg/atomfeed/storage/fs"
)

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	var force bool
	var path string
	var servicePath string

	cmd := &cobra.Command{
		Use:   "generate <source_bucket> <source_path> [<destination_bucket> <destination_path>] <config-path> <base-url>",
		Short: "Generate the atom service feed",
		Long: `Generate the atom service feed and its dataset feeds.

source_bucket       bucket that contains the download files
source_path         path to the files inside the source bucket
destination_bucket  optional (deprecated) bucket the feed and downloads are copied to
destination_path    path inside the destination bucket

Without a destination bucket the feed is written to --path.

example: atom-generator generate source_bucket /source_path conf.json http://example.com --path out --service-path /top10`,
		Aliases: []string{"gen-atom-service"},
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 4 && len(args) != 6 {
				return fmt.Errorf("locations takes only 2 or 4 arguments, followed by config-path and base-url; got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			n := len(args)
			cfg, err := config.Load(
				config.WithEnv(),
				config.WithLocations(args[:n-2]...),
				config.WithGeneration(args[n-2], args[n-1]),
				config.WithOutputPath(path),
				config.WithServicePath(servicePath),
				config.WithForce(force),
			)
			if err != nil {
				return fmt.Errorf("atom generator config failed: %w", err)
			}

			logger := slog.Default()
			logger.Info("generating atom with configuration", "config", cfg)

			accessor, err := cfg.BuildAccessor(logger)
			if err != nil {
				return err
			}
			return generate(cmd.Context(), cfg, accessor, logger)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing atom feed in the destination bucket")
	cmd.Flags().StringVar(&path, "path", "", "directory where the atom xml is stored locally")
	cmd.Flags().StringVar(&servicePath, "service-path", "", "path of the feed below the base url")
	cmd.Flags().StringVar(&servicePath, "service_path", "", "path of the feed below the base url")
	_ = cmd.Flags().MarkHidden("service_path")

	return cmd
}

// generate runs one feed generation with an accessor on the configured
// locations.
func generate(ctx context.Context, cfg *config.Config, accessor *source.Accessor, logger *slog.Logger) error {
	feed, err := atomfeed.Load(cfg.ConfigPath, cfg.Environment(accessor))
	if err != nil {
		return err
	}

	generator := atomfeed.NewGenerator(atomfeed.WithLogger(logger))
	if cfg.CopyMode() {
		return generator.GenerateToBucket(ctx, feed, accessor, cfg.Force)
	}

	dst, err := fs.New(cfg.OutputPath)
	if err != nil {
		return err
	}
	return generator.Generate(ctx, feed, dst)
}

// NewValidateModelsCommand creates the validate-models command
func NewValidateModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "validate-models",
		Aliases: []string{"validate_models"},
		Short:   "Check that the feed models and the templates use the same names",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := reconcile.Templates(); err != nil {
				return err
			}
			slog.Info("models are in sync")
			return nil
		},
	}
}

// inputSchema returns the JSON Schema of a feed description. Literals
// accept strings and numbers.
func inputSchema() *jsonschema.Schema {
	literal := reflect.TypeOf(atomfeed.Literal(""))
	r := &jsonschema.Reflector{
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == literal {
				return &jsonschema.Schema{OneOf: []*jsonschema.Schema{{Type: "string"}, {Type: "number"}}}
			}
			return nil
		},
	}
	schema := r.Reflect(&atomfeed.ServiceFeed{})
	schema.Title = "Atom feed description"
	return schema
}

// NewSchemaCommand creates the schema command
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the feed description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(inputSchema())
		},
	}
}

// NewStatCommand creates the stat command
func NewStatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stat <source_bucket> <source_path> <filename>",
		Short: "Show the metadata the feed would publish for a source file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.WithEnv(), config.WithLocations(args[0], args[1]))
			if err != nil {
				return err
			}
			accessor, err := cfg.BuildAccessor(slog.Default())
			if err != nil {
				return err
			}
			return stat(cmd.Context(), cmd, accessor, args[2])
		},
	}
	return cmd
}

func stat(ctx context.Context, cmd *cobra.Command, accessor *source.Accessor, filename string) error {
	size, err := accessor.Size(ctx, filename)
	if err != nil {
		return err
	}
	mediaType, err := accessor.MediaType(ctx, filename)
	if err != nil {
		return err
	}
	modified, err := accessor.LastModified(ctx, filename)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Key: %s/%s\n", accessor.SourceBucket(), accessor.Key(filename))
	fmt.Fprintf(out, "Size: %d\n", size)
	fmt.Fprintf(out, "Media type: %s\n", mediaType)
	fmt.Fprintf(out, "Last modified: %s\n", modified)
	return nil
}

// NewCheckCommand creates the check command
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file-or-url>...",
		Short: "Parse published feed documents and list their entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 30 * time.Second}
			var failed int
			for _, target := range args {
				ok, err := checkFeed(cmd, client, target)
				if err != nil {
					return err
				}
				if !ok {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d feeds have problems", failed, len(args))
			}
			return nil
		},
	}
	return cmd
}

func checkFeed(cmd *cobra.Command, client *http.Client, target string) (bool, error) {
	report, err := check.Check(cmd.Context(), client, target)
	if err != nil {
		return false, err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s (updated %s)\n", target, report.Title, report.Updated)
	for _, entry := range report.Entries {
		fmt.Fprintf(out, "  %s\n", entry.Title)
		for _, l := range entry.Links {
			if l.Length != "" {
				fmt.Fprintf(out, "    %s %s [%s, %s bytes]\n", l.Rel, l.Href, l.Type, l.Length)
			} else {
				fmt.Fprintf(out, "    %s %s [%s]\n", l.Rel, l.Href, l.Type)
			}
		}
	}
	for _, problem := range report.Problems {
		fmt.Fprintf(out, "  problem: %s\n", problem)
	}
	return report.OK(), nil
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve <dir>",
		Short: "Preview a generated feed directory over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", args[0])
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           previewRouter(args[0]),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			slog.Info("serving atom feed", "dir", args[0], "url", "http://"+addr+"/index.xml")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	return cmd
}

func previewRouter(dir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/"+atomfeed.IndexFilename, http.StatusFound)
	})
	r.Handle("/*", http.FileServer(http.Dir(dir)))
	return r
}
