package app

import (
	"math/rand"

	"quizgen-service/internal/domain"
)

// shuffleDraft permutes a draft's option texts so the correct answer's
// position is unpredictable, then recomputes which label is correct. The
// option-text multiset is unchanged and exactly one label ends up correct.
// If two options carry identical text the first matching label in canonical
// order wins; that degenerate input is accepted, not rejected.
func shuffleDraft(rnd *rand.Rand, d domain.QuestionDraft) domain.QuestionDraft {
	correctText := d.Options[d.Answer]

	texts := make([]string, 0, len(domain.OptionLabels))
	for _, label := range domain.OptionLabels {
		texts = append(texts, d.Options[label])
	}
	rnd.Shuffle(len(texts), func(i, j int) {
		texts[i], texts[j] = texts[j], texts[i]
	})

	options := make(map[string]string, len(texts))
	for i, label := range domain.OptionLabels {
		options[label] = texts[i]
	}

	answer := d.Answer
	for _, label := range domain.OptionLabels {
		if options[label] == correctText {
			answer = label
			break
		}
	}

	return domain.QuestionDraft{Text: d.Text, Options: options, Answer: answer}
}
