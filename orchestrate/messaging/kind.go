package messaging

// Kind tags the intent of a message. The set is closed: agents bind a
// handler per Kind at construction and Valid rejects anything else.
type Kind string

const (
	KindGetRecommendations             Kind = "get_recommendations"
	KindGetPersonalizedRecommendations Kind = "get_personalized_recommendations"
	KindSemanticSearch                 Kind = "semantic_search"
	KindAnalyzeUserPreferences         Kind = "analyze_user_preferences"
	KindAnalyzePopularity              Kind = "analyze_popularity"
	KindDetectTrends                   Kind = "detect_trends"
	KindScoreRecommendations           Kind = "score_recommendations"
	KindGetPopularBooks                Kind = "get_popular_books"
	KindClassifyText                   Kind = "classify_text"
	KindDetectEmotion                  Kind = "detect_emotion"
	KindCategorizeBook                 Kind = "categorize_book"
	KindGetStatus                      Kind = "get_status"
	KindAnnouncement                   Kind = "announcement"
)

const (
	KindRecommendationResult             Kind = "recommendation_result"
	KindPersonalizedRecommendationResult Kind = "personalized_recommendation_result"
	KindSemanticSearchResult             Kind = "semantic_search_result"
	KindPreferenceAnalysisResult         Kind = "preference_analysis_result"
	KindPopularityAnalysisResult         Kind = "popularity_analysis_result"
	KindTrendAnalysisResult              Kind = "trend_analysis_result"
	KindRecommendationScoringResult      Kind = "recommendation_scoring_result"
	KindPopularBooksResult               Kind = "popular_books_result"
	KindClassificationResult             Kind = "classification_result"
	KindEmotionResult                    Kind = "emotion_result"
	KindCategorizationResult             Kind = "categorization_result"
	KindStatusResult                     Kind = "status_result"
	KindErrorResponse                    Kind = "error_response"
)

var requestKinds = map[Kind]Kind{
	KindGetRecommendations:             KindRecommendationResult,
	KindGetPersonalizedRecommendations: KindPersonalizedRecommendationResult,
	KindSemanticSearch:                 KindSemanticSearchResult,
	KindAnalyzeUserPreferences:         KindPreferenceAnalysisResult,
	KindAnalyzePopularity:              KindPopularityAnalysisResult,
	KindDetectTrends:                   KindTrendAnalysisResult,
	KindScoreRecommendations:           KindRecommendationScoringResult,
	KindGetPopularBooks:                KindPopularBooksResult,
	KindClassifyText:                   KindClassificationResult,
	KindDetectEmotion:                  KindEmotionResult,
	KindCategorizeBook:                 KindCategorizationResult,
	KindGetStatus:                      KindStatusResult,
	KindAnnouncement:                   "",
}

var resultKinds = map[Kind]bool{
	KindRecommendationResult:             true,
	KindPersonalizedRecommendationResult: true,
	KindSemanticSearchResult:             true,
	KindPreferenceAnalysisResult:         true,
	KindPopularityAnalysisResult:         true,
	KindTrendAnalysisResult:              true,
	KindRecommendationScoringResult:      true,
	KindPopularBooksResult:               true,
	KindClassificationResult:             true,
	KindEmotionResult:                    true,
	KindCategorizationResult:             true,
	KindStatusResult:                     true,
	KindErrorResponse:                    true,
}

func (k Kind) Valid() bool {
	_, request := requestKinds[k]
	return request || resultKinds[k]
}

func (k Kind) IsRequest() bool {
	_, ok := requestKinds[k]
	return ok
}

func (k Kind) IsResult() bool {
	return resultKinds[k]
}

// ResultKind returns the kind a successful reply to k carries. It returns
// false for kinds that never produce a reply.
func (k Kind) ResultKind() (Kind, bool) {
	result, ok := requestKinds[k]
	if !ok || result == "" {
		return "", false
	}
	return result, true
}
