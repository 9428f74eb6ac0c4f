package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"supportrag/internal/domain"
	"supportrag/internal/usecase"
)

var (
	ingestTenant string
	ingestDir    string
	ingestFile   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index knowledge-base documents",
	Long: `Index knowledge-base documents. Every run replaces the target index.

Examples:
  supportrag ingest global ./kb
  supportrag ingest tenant -t acme --dir ./acme-kb
  supportrag ingest tenant -t acme --file articles.yaml`,
}

var ingestGlobalCmd = &cobra.Command{
	Use:   "global [path]",
	Short: "Index the shared hosting knowledge base from a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngestGlobal,
}

var ingestTenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Index a tenant's knowledge-base articles",
	Long: `Index a tenant's articles from a directory of markdown files or from a
YAML or JSON file holding a list of {id, title, content, category, tags}.`,
	RunE: runIngestTenant,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestGlobalCmd, ingestTenantCmd)
	ingestTenantCmd.Flags().StringVarP(&ingestTenant, "tenant", "t", "", "tenant id (required)")
	ingestTenantCmd.Flags().StringVar(&ingestDir, "dir", "", "directory of markdown articles")
	ingestTenantCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "YAML or JSON article list")
	ingestTenantCmd.MarkFlagRequired("tenant")
	ingestTenantCmd.MarkFlagsOneRequired("dir", "file")
	ingestTenantCmd.MarkFlagsMutuallyExclusive("dir", "file")
}

func runIngestGlobal(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		path = args[0]
	}
	if err := requireDir(path); err != nil {
		return err
	}

	engine, st, err := openEngine(true)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Printf("Scanning %s...\n", path)
	result, err := engine.Ingest.IngestGlobalKB(cmd.Context(), path, newProgress("Ingesting"))
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngestResult(result)
	return nil
}

func runIngestTenant(cmd *cobra.Command, args []string) error {
	engine, st, err := openEngine(true)
	if err != nil {
		return err
	}
	defer st.Close()

	var articles []domain.KBArticle
	if ingestDir != "" {
		if err := requireDir(ingestDir); err != nil {
			return err
		}
		articles, err = engine.Ingest.ArticlesFromDir(ingestDir)
	} else {
		articles, err = readArticles(ingestFile)
	}
	if err != nil {
		return err
	}

	result, err := engine.Ingest.IngestTenantKB(cmd.Context(), ingestTenant, articles, newProgress("Ingesting"))
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngestResult(result)
	return nil
}

// readArticles decodes a JSON file by extension and anything else as YAML.
func readArticles(path string) ([]domain.KBArticle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read articles: %w", err)
	}
	var articles []domain.KBArticle
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &articles)
	} else {
		err = yaml.Unmarshal(data, &articles)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i, a := range articles {
		if a.ID == "" {
			return nil, fmt.Errorf("article %d in %s has no id", i+1, path)
		}
	}
	return articles, nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	return nil
}

func printIngestResult(result *usecase.IngestResult) {
	fmt.Printf("\nIngest complete:\n")
	fmt.Printf("  Documents: %d\n", result.Documents)
	fmt.Printf("  Chunks:    %d\n", result.Chunks)
	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
}
