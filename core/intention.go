package core

// CategoryConversational is the reserved intention category for utterances
// that matched no registered capability with enough confidence. It is always
// a valid classification result and never has a plugin handler.
const CategoryConversational = "conversational"

// Intention is the classified purpose of an utterance.
//
// Categories are plain strings, extensible at registration time: a new
// capability registers its category together with exemplar phrases, no code
// change in the router required.
type Intention struct {
	// Category is the intention category, e.g. "set_reminder".
	Category string

	// Confidence is the classifier's confidence in [0, 1]. For the
	// conversational fallback it carries the best (failed) match score.
	Confidence float64

	// Args maps extracted argument names to string values, e.g.
	// {"time": "5pm"}. Empty (non-nil) when the category has no
	// extractable arguments.
	Args map[string]string
}

// Conversational returns the fallback intention with the given confidence.
func Conversational(confidence float64) Intention {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Intention{
		Category:   CategoryConversational,
		Confidence: confidence,
		Args:       map[string]string{},
	}
}

// IsConversational reports whether the intention is the reserved fallback.
func (i Intention) IsConversational() bool {
	return i.Category == CategoryConversational
}
