package sentiment

import "strings"

// Score places a text on the 2D valence/arousal plane: valence in [-1, 1],
// arousal in [0, 1].
type Score struct {
	Valence float64
	Arousal float64
}

type bucket struct {
	valence  float64
	arousal  float64
	keywords []string
}

var buckets = []bucket{
	{
		valence: 0.7, arousal: 0.5,
		keywords: []string{
			"happy", "glad", "great", "wonderful", "lovely", "thanks", "thank you",
			"love", "enjoy", "haha", "lol", "awesome", "amazing", "delighted", "pleased",
		},
	},
	{
		valence: 0.6, arousal: 0.85,
		keywords: []string{
			"excited", "can't wait", "cant wait", "incredible", "unbelievable", "wow",
			"thrilled", "hyped", "let's go", "finally",
		},
	},
	{
		valence: 0.3, arousal: 0.55,
		keywords: []string{
			"curious", "interesting", "wonder", "what if", "tell me more", "how does",
			"why does", "fascinating",
		},
	},
	{
		valence: -0.6, arousal: 0.2,
		keywords: []string{
			"sad", "unhappy", "lonely", "miss", "cry", "depressed", "hopeless",
			"heartbroken", "grief", "disappointed", "tired of",
		},
	},
	{
		valence: -0.7, arousal: 0.8,
		keywords: []string{
			"angry", "furious", "hate", "rage", "mad", "annoyed", "fed up", "pissed",
			"outraged", "infuriating",
		},
	},
	{
		valence: -0.5, arousal: 0.7,
		keywords: []string{
			"afraid", "scared", "worried", "anxious", "terrified", "nervous", "panic",
			"dread",
		},
	},
	{
		valence: 0.2, arousal: 0.15,
		keywords: []string{
			"calm", "relaxed", "peaceful", "gentle", "quiet", "settled", "at ease",
			"slow down", "breathe",
		},
	},
}

// Neutral is the score assigned to text with no emotional signal.
var Neutral = Score{Valence: 0, Arousal: 0.25}

// Analyze estimates the emotional tone of a text from keyword evidence.
// Each keyword hit pulls the result toward its bucket's anchor; exclamation
// marks raise arousal.
func Analyze(text string) Score {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Neutral
	}

	var weight float64
	var valence, arousal float64
	for _, b := range buckets {
		for _, word := range b.keywords {
			if strings.Contains(normalized, word) {
				weight++
				valence += b.valence
				arousal += b.arousal
			}
		}
	}

	if weight == 0 {
		score := Neutral
		score.Arousal += exclamationBoost(text)
		return clamp(score)
	}

	score := Score{
		Valence: valence / weight,
		Arousal: arousal/weight + exclamationBoost(text),
	}
	return clamp(score)
}

func exclamationBoost(text string) float64 {
	boost := 0.08 * float64(strings.Count(text, "!"))
	if boost > 0.25 {
		boost = 0.25
	}
	return boost
}

func clamp(s Score) Score {
	if s.Valence > 1 {
		s.Valence = 1
	}
	if s.Valence < -1 {
		s.Valence = -1
	}
	if s.Arousal > 1 {
		s.Arousal = 1
	}
	if s.Arousal < 0 {
		s.Arousal = 0
	}
	return s
}
