package emotion

import (
	"context"
	"strings"
	"unicode"

	"github.com/satriahrh/voicebridge/domain/entities"
	"github.com/satriahrh/voicebridge/domain/repositories"
)

var keywordBuckets = map[string][]string{
	entities.EmotionHappy: {
		"happy", "glad", "great", "awesome", "amazing", "love", "thanks", "thank you",
		"wonderful", "delighted", "pleased", "nice", "haha", "lol",
	},
	entities.EmotionSad: {
		"sad", "unhappy", "depressed", "cry", "crying", "lonely", "miss", "hurt",
		"upset", "heartbroken", "sorry", "lost", "grief",
	},
	entities.EmotionAngry: {
		"angry", "furious", "mad", "rage", "hate", "pissed", "outraged", "livid",
	},
	entities.EmotionExcited: {
		"excited", "can't wait", "cannot wait", "thrilled", "wow", "incredible",
		"unbelievable", "pumped", "stoked", "finally",
	},
	entities.EmotionFrustrated: {
		"frustrated", "annoying", "annoyed", "doesn't work", "not working", "yet again",
		"still not", "still broken", "stuck", "useless", "ridiculous", "fed up", "sick of",
	},
}

var intensifiers = []string{"so", "very", "really", "extremely", "totally", "super"}

// keywordPhrases holds keywordBuckets split into words
var keywordPhrases = func() map[string][][]string {
	phrases := make(map[string][][]string, len(keywordBuckets))
	for label, keywords := range keywordBuckets {
		for _, keyword := range keywords {
			phrases[label] = append(phrases[label], tokenize(keyword))
		}
	}
	return phrases
}()

// tie-break order when two labels score the same
var labelPriority = []string{
	entities.EmotionExcited,
	entities.EmotionAngry,
	entities.EmotionFrustrated,
	entities.EmotionSad,
	entities.EmotionHappy,
}

// LexiconClassifier scores keyword hits locally without calling a provider
type LexiconClassifier struct{}

var _ repositories.EmotionClassifier = LexiconClassifier{}

func NewLexiconClassifier() LexiconClassifier {
	return LexiconClassifier{}
}

func (LexiconClassifier) ClassifyEmotion(ctx context.Context, text string) (entities.Emotion, error) {
	if err := ctx.Err(); err != nil {
		return entities.Emotion{}, err
	}
	return Analyze(text), nil
}

// Analyze infers an emotion from keyword hits, exclamation marks and intensifiers.
func Analyze(text string) entities.Emotion {
	words := tokenize(text)
	if len(words) == 0 {
		return entities.NeutralEmotion()
	}

	scores := make(map[string]int)
	for label, phrases := range keywordPhrases {
		for _, phrase := range phrases {
			if containsPhrase(words, phrase) {
				scores[label] += 3
			}
		}
	}

	if exclamations := strings.Count(text, "!"); exclamations > 0 {
		scores[entities.EmotionExcited] += exclamations * 2
		if exclamations == 1 {
			scores[entities.EmotionHappy]++
		}
	}

	best, bestScore := entities.EmotionNeutral, 0
	for _, label := range labelPriority {
		if scores[label] > bestScore {
			best, bestScore = label, scores[label]
		}
	}
	if bestScore == 0 {
		return entities.NeutralEmotion()
	}

	for _, word := range intensifiers {
		if containsPhrase(words, []string{word}) {
			bestScore += 2
		}
	}

	return entities.Emotion{Label: best, Intensity: 0.3 + float64(bestScore)/10}.Clamp()
}

// tokenize lowercases text and splits it into words. Apostrophes stay inside
// contractions so "can't" is one word.
func tokenize(text string) []string {
	text = strings.ReplaceAll(strings.ToLower(text), "’", "'")
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	words := fields[:0]
	for _, field := range fields {
		if word := strings.Trim(field, "'"); word != "" {
			words = append(words, word)
		}
	}
	return words
}

// containsPhrase reports whether phrase occurs as consecutive whole words
func containsPhrase(words, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, w := range phrase {
			if words[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
