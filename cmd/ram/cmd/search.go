package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
	"github.com/Aman-CERP/ram/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	source string
	format string // "text", "json"
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var sopts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored memories by meaning",
		Long: `Embed the query and list the nearest stored chunks.

Examples:
  ram search "how do we rotate logs"
  ram search "retry policy" -k 3 --source ./docs/design.md
  ram search --global "reading list" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, opts, strings.Join(args, " "), sopts)
		},
	}

	cmd.Flags().IntVarP(&sopts.limit, "limit", "k", 5, "Maximum number of results")
	cmd.Flags().StringVar(&sopts.source, "source", "", "Only search chunks of this source file")
	cmd.Flags().StringVar(&sopts.format, "format", "text", "Output format: text, json")

	return cmd
}

// searchHit is the JSON form of a search result.
type searchHit struct {
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
	Distance   float32 `json:"distance"`
	SourcePath string  `json:"source_path"`
	ChunkIndex int     `json:"chunk_index"`
	IndexedAt  string  `json:"indexed_at"`
	Text       string  `json:"text"`
}

func runSearch(ctx context.Context, cmd *cobra.Command, opts *rootOptions, query string, sopts searchOptions) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return ramerrors.New(ramerrors.ErrCodeQueryEmpty, "search query is empty", nil).
			WithSuggestion(`pass the text to search for, e.g. ram search "release checklist"`)
	}
	if sopts.format != "text" && sopts.format != "json" {
		return ramerrors.New(ramerrors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown format %q", sopts.format), nil).
			WithSuggestion("use --format text or --format json")
	}

	s, err := opts.newSession(cmd)
	if err != nil {
		return err
	}
	if sopts.format == "text" {
		s.announce()
	}

	embedder, err := s.embedder()
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	st, err := s.openStore(embedder.ModelName())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	s.logger.Info("search_started", "query_len", len(query), "limit", sopts.limit)

	var hits []store.SearchHit
	if st.Exists() {
		vec, err := embedder.Embed(ctx, query)
		if err != nil {
			return ramerrors.New(ramerrors.ErrCodeEmbeddingFailed, "failed to embed query", err)
		}
		var filter *store.Filter
		if sopts.source != "" {
			abs, err := filepath.Abs(sopts.source)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", sopts.source, err)
			}
			filter = &store.Filter{SourcePath: abs}
		}
		hits, err = st.Search(ctx, vec, sopts.limit, filter)
		if err != nil {
			return err
		}
	}
	s.logger.Info("search_complete", "results", len(hits))

	if sopts.format == "json" {
		return writeSearchJSON(cmd, s, hits)
	}

	if len(hits) == 0 {
		s.out.Info("No results")
		return nil
	}
	w := s.out.Out()
	for i, h := range hits {
		_, _ = fmt.Fprintf(w, "\n%d. %s (chunk %d)  score %.3f\n", i+1, h.Record.SourcePath, h.Record.ChunkIndex, h.Score())
		_, _ = fmt.Fprintf(w, "   %s\n", preview(h.Record.Text, 200))
	}
	return nil
}

// searchResponse is the JSON document printed by --format json.
type searchResponse struct {
	Scope    string      `json:"scope"`
	StoreDir string      `json:"store_dir"`
	Results  []searchHit `json:"results"`
}

func writeSearchJSON(cmd *cobra.Command, s *session, hits []store.SearchHit) error {
	results := make([]searchHit, len(hits))
	for i, h := range hits {
		results[i] = searchHit{
			Rank:       i + 1,
			Score:      h.Score(),
			Distance:   h.Distance,
			SourcePath: h.Record.SourcePath,
			ChunkIndex: h.Record.ChunkIndex,
			IndexedAt:  h.Record.IndexedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Text:       h.Record.Text,
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(searchResponse{Scope: s.loc.Label(), StoreDir: s.loc.Dir, Results: results})
}

// preview collapses whitespace and shortens text to maxRunes.
func preview(text string, maxRunes int) string {
	flat := strings.Join(strings.Fields(text), " ")
	r := []rune(flat)
	if len(r) <= maxRunes {
		return flat
	}
	return string(r[:maxRunes]) + "..."
}
