package store

import (
	"math/rand/v2"

	"github.com/verte-zerg/typetrack/internal/model"
)

// DefaultCategory is the category of the built-in sentence catalog.
const DefaultCategory = "general"

// catalog seeds the prompts table and backs RandomPrompt when no stored prompt matches.
var catalog = map[model.Difficulty][]string{
	model.Easy: {
		"The quick brown fox jumps over the lazy dog.",
		"Python is a powerful programming language.",
		"Web development is fun and exciting.",
		"Coffee helps programmers stay awake.",
		"Simple sentences are easy to type.",
	},
	model.Medium: {
		"Machine learning algorithms enable computers to learn patterns from data.",
		"Full-stack development requires knowledge of both frontend and backend technologies.",
		"Database optimization techniques improve application performance significantly.",
		"Version control systems like Git help developers collaborate effectively.",
		"Responsive design ensures websites work well on all device sizes.",
	},
	model.Hard: {
		"Asynchronous programming paradigms facilitate concurrent execution without blocking the main thread.",
		"Microservices architecture enables scalable distributed system design.",
		"Advanced algorithms optimize computational complexity through dynamic programming.",
		"Cloud-native applications leverage containerization and autoscaling.",
		"Real-time data processing pipelines enable low-latency analytics.",
	},
}

// CatalogPrompt picks a random built-in sentence of the given difficulty.
func CatalogPrompt(difficulty model.Difficulty, category string) model.Prompt {
	d := model.ParseDifficulty(string(difficulty))
	texts := catalog[d]
	return model.NewPrompt(texts[rand.IntN(len(texts))], d, category)
}
