package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/shopsense/engine"
	"github.com/hrygo/shopsense/engine/configloader"
	"github.com/hrygo/shopsense/engine/core/match"
	"github.com/hrygo/shopsense/engine/embedding"
	"github.com/hrygo/shopsense/engine/core/prototype"
	"github.com/hrygo/shopsense/engine/core/rerank"
	"github.com/hrygo/shopsense/engine/metrics"
	"github.com/hrygo/shopsense/engine/phrase"
	"github.com/hrygo/shopsense/engine/pipeline"
	"github.com/hrygo/shopsense/engine/search"
	"github.com/hrygo/shopsense/internal/profile"
	"github.com/hrygo/shopsense/internal/version"
	"github.com/hrygo/shopsense/store"
	"github.com/hrygo/shopsense/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "shopsense",
	Short: `A budget-aware product matching engine. Ask it for a product and it finds the best match, checks your budget, and hunts for cheaper equivalents across markets.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Try to load .env from the current directory (ignore error if the
		// file doesn't exist).
		_ = godotenv.Load()
		return nil
	},
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

func openStore(instanceProfile *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, err
	}

	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(context.Background()); err != nil {
		_ = storeInstance.Close()
		return nil, err
	}
	return storeInstance, nil
}

// newPipeline assembles the decision pipeline from the profile: store-backed
// search, YAML vocabulary and thresholds, persisted prototypes, and the prose
// service when an LLM key is configured.
func newPipeline(ctx context.Context, instanceProfile *profile.Profile, storeInstance *store.Store) (*pipeline.Pipeline, error) {
	loader := configloader.NewLoader(instanceProfile.ConfigDir)

	vocab, err := loader.LoadVocabulary()
	if err != nil {
		return nil, err
	}
	matchCfg, err := loader.LoadMatchConfig()
	if err != nil {
		return nil, err
	}

	exporter := metrics.NewExporter(metrics.DefaultConfig())

	prototypes := prototype.NewStore()
	blob, err := storeInstance.GetPrototypeBlob(ctx, &store.FindPrototypeBlob{Model: instanceProfile.EmbeddingModel})
	if err != nil {
		return nil, err
	}
	if blob != nil {
		decoded, err := prototype.DecodeSnapshot(blob.Payload)
		if err != nil {
			slog.Warn("Ignoring malformed prototype snapshot", "error", err)
		} else {
			prototypes.Restore(decoded)
		}
	}
	exporter.SetPrototypeCount(prototypes.Len())

	var phraseService engine.PhraseService
	if instanceProfile.IsAIEnabled() {
		svc, err := phrase.NewService(&phrase.Config{
			Provider:          instanceProfile.LLMProvider,
			Model:             instanceProfile.LLMModel,
			APIKey:            instanceProfile.LLMAPIKey,
			BaseURL:           instanceProfile.LLMBaseURL,
			Timeout:           instanceProfile.LLMTimeout,
			RequestsPerMinute: instanceProfile.LLMRequestsPerMinute,
		})
		if err != nil {
			return nil, err
		}
		phraseService = svc
	}

	cfg := pipeline.DefaultConfig()
	if instanceProfile.MaxAlternatives > 0 {
		cfg.MaxAlternatives = instanceProfile.MaxAlternatives
	}

	return pipeline.New(pipeline.Deps{
		Search:     search.NewStoreService(storeInstance, instanceProfile.EmbeddingModel),
		Phrase:     phraseService,
		Reranker:   rerank.NewService(vocab),
		Prototypes: prototypes,
		Matcher:    match.NewMatcher(matchCfg),
		Metrics:    exporter,
		Logger:     slog.Default(),
	}, cfg)
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Run one product query through the decision pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		text, _ := cmd.Flags().GetString("text")
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("--text is required")
		}
		market, _ := cmd.Flags().GetString("market")
		budget, _ := cmd.Flags().GetFloat64("budget")
		limit, _ := cmd.Flags().GetInt("limit")
		brands, _ := cmd.Flags().GetStringSlice("brand")

		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}
		if market == "" {
			market = instanceProfile.DefaultMarket
		}

		storeInstance, err := openStore(instanceProfile)
		if err != nil {
			return err
		}
		defer storeInstance.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), terminationSignals...)
		defer stop()

		p, err := newPipeline(ctx, instanceProfile, storeInstance)
		if err != nil {
			return err
		}

		query := &engine.QueryContext{
			RecognizedText:  text,
			Market:          market,
			Budget:          budget,
			Limit:           limit,
			PreferredBrands: brands,
		}

		// Embed the query text when an embedding API is configured so the
		// vector search fires alongside the text search. A failed embedding
		// degrades to text-only, it never blocks the decision.
		if instanceProfile.EmbeddingAPIKey != "" {
			embedder, err := embedding.NewService(&embedding.Config{
				Provider: instanceProfile.EmbeddingProvider,
				Model:    instanceProfile.EmbeddingModel,
				APIKey:   instanceProfile.EmbeddingAPIKey,
				BaseURL:  instanceProfile.EmbeddingBaseURL,
			})
			if err != nil {
				return err
			}
			vector, err := embedder.Embed(ctx, text)
			if err != nil {
				slog.Warn("Query embedding failed; continuing with text-only search", "error", err)
			} else {
				query.Embedding = vector
			}
		}

		decision, err := p.Run(ctx, query)
		if err != nil {
			return err
		}

		return printDecision(decision)
	},
}

func printDecision(decision *pipeline.Decision) error {
	out, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// importProduct is the JSON shape accepted by the import command.
type importProduct struct {
	UID         string    `json:"uid"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Brand       string    `json:"brand"`
	Category    string    `json:"category"`
	Market      string    `json:"market"`
	Price       float64   `json:"price"`
	Embedding   []float32 `json:"embedding"`
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import catalog products from a JSON file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return fmt.Errorf("--file is required")
		}

		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}

		var products []importProduct
		if err := json.Unmarshal(data, &products); err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}

		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}
		storeInstance, err := openStore(instanceProfile)
		if err != nil {
			return err
		}
		defer storeInstance.Close()

		ctx := cmd.Context()
		for _, p := range products {
			uid := p.UID
			if uid == "" {
				uid = uuid.New().String()
			}
			_, err := storeInstance.UpsertProduct(ctx, &store.UpsertProduct{
				UID:            uid,
				Name:           p.Name,
				NormalizedName: match.NormalizeName(p.Name),
				Description:    p.Description,
				Brand:          p.Brand,
				Category:       p.Category,
				Market:         p.Market,
				Price:          p.Price,
				Embedding:      p.Embedding,
				EmbeddingModel: instanceProfile.EmbeddingModel,
			})
			if err != nil {
				return fmt.Errorf("import %s: %w", p.Name, err)
			}
		}

		fmt.Printf("Imported %d product(s)\n", len(products))
		return nil
	},
}

var rebuildPrototypesCmd = &cobra.Command{
	Use:   "rebuild-prototypes",
	Short: "Rebuild the (category, brand) prototype table from stored embeddings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}
		storeInstance, err := openStore(instanceProfile)
		if err != nil {
			return err
		}
		defer storeInstance.Close()

		ctx := cmd.Context()
		embeddings, err := storeInstance.ListProductEmbeddings(ctx, &store.FindProductEmbedding{
			Model: instanceProfile.EmbeddingModel,
		})
		if err != nil {
			return err
		}
		if len(embeddings) == 0 {
			fmt.Println("No embeddings stored; nothing to build")
			return nil
		}

		samples := make([]prototype.Sample, 0, len(embeddings))
		for _, e := range embeddings {
			samples = append(samples, prototype.Sample{
				Embedding: e.Embedding,
				Category:  e.Category,
				Brand:     e.Brand,
			})
		}

		prototypes := prototype.NewStore()
		if err := prototypes.Build(samples); err != nil {
			return err
		}

		payload, err := prototype.EncodeSnapshot(prototypes.Snapshot())
		if err != nil {
			return err
		}
		if err := storeInstance.UpsertPrototypeBlob(ctx, &store.PrototypeBlob{
			Model:   instanceProfile.EmbeddingModel,
			Payload: payload,
		}); err != nil {
			return err
		}

		fmt.Printf("Built %d prototype(s) from %d embedding(s)\n", prototypes.Len(), len(samples))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(version.StringFull())
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, flag := range []string{"mode", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("shopsense")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	askCmd.Flags().String("text", "", "recognized product text to search for")
	askCmd.Flags().String("market", "", "market to search in (defaults to the profile's default market)")
	askCmd.Flags().Float64("budget", 0, "budget for this purchase")
	askCmd.Flags().Int("limit", 10, "maximum candidates to retrieve")
	askCmd.Flags().StringSlice("brand", nil, "preferred brand (repeatable)")

	importCmd.Flags().String("file", "", "JSON file with products to import")

	rootCmd.AddCommand(askCmd, importCmd, rebuildPrototypesCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
