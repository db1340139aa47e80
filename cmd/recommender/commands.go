package main

import (
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/recommender"
	"github.com/tailored-agentic-units/recommender/agent/classification"
	"github.com/tailored-agentic-units/recommender/agent/popularity"
	"github.com/tailored-agentic-units/recommender/agent/suggestion"
	"github.com/tailored-agentic-units/recommender/orchestrate/hub"
)

type requestFlags struct {
	topK      int
	category  string
	minRating float64
	tone      string
}

func (r *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&r.topK, "top-k", "k", 0, "number of recommendations (default from config)")
	cmd.Flags().StringVar(&r.category, "category", "", "only recommend books in this category")
	cmd.Flags().Float64Var(&r.minRating, "min-rating", 0, "minimum average rating")
	cmd.Flags().StringVar(&r.tone, "tone", "", "emotional tone (Happy, Sad, Angry, Suspenseful, Surprising)")
}

func (r *requestFlags) request(args []string) suggestion.Request {
	return suggestion.Request{
		Query: query(args),
		TopK:  r.topK,
		Filters: suggestion.Filters{
			Category:    r.category,
			MinRating:   r.minRating,
			EmotionTone: r.tone,
		},
	}
}

// run opens a System, hands it to fn and prints fn's result.
func run[T any](cmd *cobra.Command, flags *rootFlags, fn func(sys *recommender.System) (T, error)) error {
	sys, err := flags.open(cmd)
	if err != nil {
		return err
	}
	defer sys.Close()

	result, err := fn(sys)
	if err != nil {
		return err
	}
	return writeJSON(cmd, result)
}

func newRecommendCmd(flags *rootFlags) *cobra.Command {
	req := &requestFlags{}

	cmd := &cobra.Command{
		Use:   "recommend [query...]",
		Short: "Recommend books for a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, func(sys *recommender.System) (suggestion.Result, error) {
				return sys.Recommend(cmd.Context(), req.request(args))
			})
		},
	}
	req.bind(cmd)
	return cmd
}

func newPersonalizedCmd(flags *rootFlags) *cobra.Command {
	var (
		req        = &requestFlags{}
		categories []string
		authors    []string
		prefRating float64
	)

	cmd := &cobra.Command{
		Use:   "personalized [query...]",
		Short: "Recommend books boosted by reader preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := req.request(args)
			r.UserPreferences = &suggestion.Preferences{
				PreferredCategories: categories,
				PreferredAuthors:    authors,
				MinRating:           prefRating,
			}
			return run(cmd, flags, func(sys *recommender.System) (suggestion.Result, error) {
				return sys.Personalized(cmd.Context(), r)
			})
		},
	}
	req.bind(cmd)
	cmd.Flags().StringSliceVar(&categories, "prefer-category", nil, "preferred categories")
	cmd.Flags().StringSliceVar(&authors, "prefer-author", nil, "preferred authors")
	cmd.Flags().Float64Var(&prefRating, "prefer-min-rating", 0, "preferred minimum rating")
	return cmd
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search the catalog without scoring",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, func(sys *recommender.System) (suggestion.SearchResult, error) {
				return sys.SemanticSearch(cmd.Context(), suggestion.SearchRequest{Query: query(args), TopK: topK})
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of results")
	return cmd
}

func newBatchCmd(flags *rootFlags) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "batch <query> [query...]",
		Short: "Recommend books for several queries concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs := make([]suggestion.Request, len(args))
			for i, q := range args {
				reqs[i] = suggestion.Request{Query: q, TopK: topK}
			}
			return run(cmd, flags, func(sys *recommender.System) ([]suggestion.Result, error) {
				result, err := sys.RecommendBatch(cmd.Context(), reqs)
				return result.Results, err
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of recommendations per query")
	return cmd
}

func newTrendsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "trends",
		Short: "Detect category, author and book trends in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, func(sys *recommender.System) (popularity.TrendResult, error) {
				return sys.Trends(cmd.Context(), nil)
			})
		},
	}
}

func newPopularCmd(flags *rootFlags) *cobra.Command {
	var criteria popularity.Criteria

	cmd := &cobra.Command{
		Use:   "popular",
		Short: "List the most popular books in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, func(sys *recommender.System) (popularity.PopularResult, error) {
				return sys.PopularBooks(cmd.Context(), popularity.PopularRequest{Criteria: criteria})
			})
		},
	}
	cmd.Flags().Float64Var(&criteria.MinRating, "min-rating", 0, "minimum average rating")
	cmd.Flags().IntVar(&criteria.MinRatingsCount, "min-ratings-count", 0, "minimum number of ratings")
	cmd.Flags().StringVar(&criteria.Category, "category", "", "only list books in this category")
	cmd.Flags().IntVarP(&criteria.TopN, "top-n", "n", 0, "number of books (default 10)")
	return cmd
}

func newClassifyCmd(flags *rootFlags) *cobra.Command {
	var labels []string

	cmd := &cobra.Command{
		Use:   "classify <text...>",
		Short: "Classify text into a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, func(sys *recommender.System) (classification.ClassificationResult, error) {
				return sys.Classify(cmd.Context(), classification.ClassifyRequest{Text: query(args), Categories: labels})
			})
		},
	}
	cmd.Flags().StringSliceVar(&labels, "labels", nil, "candidate categories (default: built-in labels)")
	return cmd
}

func newEmotionCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "emotion <text...>",
		Short: "Detect the dominant emotion of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, func(sys *recommender.System) (classification.EmotionResult, error) {
				return sys.DetectEmotion(cmd.Context(), query(args))
			})
		},
	}
}

type statusOutput struct {
	System    hub.SystemStatus `json:"system"`
	Retriever string           `json:"retriever_breaker,omitempty"`
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show registered agents and the retriever breaker state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, func(sys *recommender.System) (statusOutput, error) {
				return statusOutput{System: sys.Status(), Retriever: sys.RetrieverState()}, nil
			})
		},
	}
}
