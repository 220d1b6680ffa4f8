package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/carniceria-aranda/backend/config"
	"github.com/carniceria-aranda/backend/internal/infrastructure/catalog"
	"github.com/carniceria-aranda/backend/internal/infrastructure/logging"
	"github.com/carniceria-aranda/backend/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions holds the global flags. Empty values fall back to the
// configuration file and ARANDA_* environment variables.
type rootOptions struct {
	catalogPath  string
	synonymsPath string
	archivePath  string
	logLevel     string
	asJSON       bool
}

// cliContext carries what the subcommands share.
type cliContext struct {
	opts   *rootOptions
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cc := &cliContext{opts: opts}

	root := &cobra.Command{
		Use:           "pedidosctl",
		Short:         "Herramientas de línea de comandos para los pedidos de la carnicería",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cc.logger != nil {
				_ = cc.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.catalogPath, "catalog", "", "catalog file (.xlsx, .csv or .yaml)")
	flags.StringVar(&opts.synonymsPath, "synonyms", "", "YAML file with colloquial synonyms")
	flags.StringVar(&opts.archivePath, "archive", "", "SQLite database of confirmed orders")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.asJSON, "json", false, "print JSON instead of text")

	root.AddCommand(
		newExtractCommand(cc),
		newResolveCommand(cc),
		newTimeCommand(cc),
		newCatalogCommand(cc),
		newOrdersCommand(cc),
	)
	return root
}

func (cc *cliContext) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cc.opts.catalogPath != "" {
		cfg.Catalog.Path = cc.opts.catalogPath
	}
	if cc.opts.synonymsPath != "" {
		cfg.Catalog.SynonymsPath = cc.opts.synonymsPath
	}
	if cc.opts.archivePath != "" {
		cfg.Archive.Path = cc.opts.archivePath
	}

	logger, err := logging.New(logging.Config{
		Level:       cc.opts.logLevel,
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return err
	}

	cc.cfg = cfg
	cc.logger = logger
	return nil
}

// snapshot loads the catalog and builds the matching engine. The semantic
// stage is left out: the CLI never calls the embedding server.
func (cc *cliContext) snapshot(cmd *cobra.Command) (*usecase.CatalogSnapshot, error) {
	source := catalog.FileSource{
		CatalogPath:  cc.cfg.Catalog.Path,
		SynonymsPath: cc.cfg.Catalog.SynonymsPath,
		Logger:       cc.logger,
	}
	catalogs := usecase.NewCatalogService(source, nil, engineConfig(cc.cfg), cc.logger, nil)
	snapshot, err := catalogs.Reload(cmd.Context())
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// print writes v as indented JSON when --json is set, otherwise calls text.
func (cc *cliContext) print(w io.Writer, v any, text func(io.Writer)) error {
	if cc.opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func engineConfig(cfg *config.Config) usecase.EngineConfig {
	return usecase.EngineConfig{
		Resolver: usecase.ResolverConfig{
			AcceptThreshold:     cfg.Matching.AcceptThreshold,
			SuggestThreshold:    cfg.Matching.SuggestThreshold,
			MaxSuggestions:      cfg.Matching.MaxSuggestions,
			ExtraWordPenalty:    cfg.Matching.ExtraWordPenalty,
			FirstTokenBonus:     cfg.Matching.FirstTokenBonus,
			SupersetMatching:    cfg.Matching.SupersetMatching,
			EnableFuzzyMatching: cfg.Matching.EnableFuzzyMatching,
		},
		StripPlural:        cfg.Matching.StripPlural,
		SeparatorWords:     cfg.Matching.SeparatorWords,
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
