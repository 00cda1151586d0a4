package usecases

import (
	"sort"
	"strings"
	"unicode"

	"supportdesk/internal/entities"
)

// Confidence scores produced by the canned responder.
const (
	ConfidenceGreeting  = 0.95
	ConfidenceHandoff   = 0.0
	ConfidenceKnowledge = 0.85
	ConfidenceIntent    = 0.6
	ConfidenceFallback  = 0.2
)

// Rule names the responder branch that produced a reply.
type Rule string

const (
	RuleGreeting  Rule = "greeting"
	RuleHandoff   Rule = "handoff"
	RuleKnowledge Rule = "knowledge"
	RuleIntent    Rule = "intent"
	RuleFallback  Rule = "fallback"
)

type Reply struct {
	Text       string
	Confidence float64
	Rule       Rule
}

const (
	handoffReply  = "I'm connecting you with a member of our team. Someone will reply here shortly."
	questionReply = "Good question. Could you share a few more details so we can point you in the right direction?"
	maxSnippet    = 280
)

var greetingWords = map[string]bool{
	"hi": true, "hello": true, "hey": true, "hiya": true, "howdy": true,
	"hola": true, "greetings": true, "yo": true, "start": true,
}

var greetingPhrases = []string{"good morning", "good afternoon", "good evening"}

var handoffWords = map[string]bool{"human": true, "agent": true, "operator": true, "person": true, "representative": true}

// intents are checked in order; the first keyword found wins.
var intents = []struct {
	keywords []string
	reply    string
}{
	{[]string{"refund", "refunds", "return", "money back"},
		"Refunds are available within 30 days of purchase. Share your order number and we'll get it started."},
	{[]string{"price", "prices", "pricing", "cost", "plan", "plans"},
		"Our pricing depends on the plan you choose. Tell us what you need and we'll send over the details."},
	{[]string{"shipping", "delivery", "ship", "shipped"},
		"Orders usually ship within 2 business days. You'll get a tracking link by email as soon as it leaves our warehouse."},
	{[]string{"order", "orders", "tracking"},
		"We can help with your order. Please share the order number so we can look it up."},
	{[]string{"hours", "open", "opening", "closing"},
		"Our support team is available Monday to Friday, 9:00 to 18:00."},
}

// tokenize lowercases s and splits it into words.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func containsPhrase(text string, words []string, phrase string) bool {
	if !strings.Contains(phrase, " ") {
		for _, w := range words {
			if w == phrase {
				return true
			}
		}
		return false
	}
	return strings.Contains(text, phrase)
}

// isGreeting matches short messages that open with a greeting.
func isGreeting(text string, words []string) bool {
	if len(words) == 0 || len(words) > 4 {
		return false
	}
	if greetingWords[words[0]] {
		return true
	}
	for _, p := range greetingPhrases {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

func wantsHandoff(words []string) bool {
	for _, w := range words {
		if handoffWords[w] {
			return true
		}
	}
	return false
}

func matchIntent(text string, words []string) (string, bool) {
	for _, in := range intents {
		for _, kw := range in.keywords {
			if containsPhrase(text, words, kw) {
				return in.reply, true
			}
		}
	}
	return "", false
}

// Respond picks a canned reply by priority: greeting, handoff request,
// knowledge base hit, question or known intent, fallback. doc is the best
// knowledge base match or nil.
func Respond(agent entities.Agent, message string, doc *entities.Document, keyword string) Reply {
	text := strings.ToLower(strings.TrimSpace(message))
	words := tokenize(text)

	if isGreeting(text, words) {
		greeting := agent.Greeting
		if greeting == "" {
			greeting = entities.DefaultAgent().Greeting
		}
		return Reply{Text: greeting, Confidence: ConfidenceGreeting, Rule: RuleGreeting}
	}
	if wantsHandoff(words) {
		return Reply{Text: handoffReply, Confidence: ConfidenceHandoff, Rule: RuleHandoff}
	}
	if doc != nil {
		return Reply{
			Text:       "Here's what I found in \"" + doc.Title + "\": " + Snippet(doc.Content, keyword, maxSnippet),
			Confidence: ConfidenceKnowledge,
			Rule:       RuleKnowledge,
		}
	}
	if reply, ok := matchIntent(text, words); ok {
		return Reply{Text: reply, Confidence: ConfidenceIntent, Rule: RuleIntent}
	}
	if strings.Contains(text, "?") {
		return Reply{Text: questionReply, Confidence: ConfidenceIntent, Rule: RuleIntent}
	}

	fallback := agent.FallbackReply
	if fallback == "" {
		fallback = entities.DefaultAgent().FallbackReply
	}
	return Reply{Text: fallback, Confidence: ConfidenceFallback, Rule: RuleFallback}
}

// SearchTerms returns the distinct words of a message worth looking up,
// longest first.
func SearchTerms(message string, max int) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range tokenize(message) {
		if len([]rune(w)) < 4 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	sort.SliceStable(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
	if len(terms) > max {
		terms = terms[:max]
	}
	return terms
}

var stopWords = map[string]bool{
	"about": true, "after": true, "again": true, "also": true, "been": true, "could": true,
	"does": true, "from": true, "have": true, "hello": true, "just": true, "know": true,
	"like": true, "need": true, "please": true, "should": true, "some": true, "tell": true,
	"thank": true, "thanks": true, "that": true, "their": true, "them": true, "then": true,
	"there": true, "they": true, "this": true, "want": true, "what": true, "when": true,
	"where": true, "which": true, "while": true, "will": true, "with": true, "would": true,
	"your": true,
}

// Snippet returns up to max characters of content around the first match of
// keyword, or its beginning when there is no match.
func Snippet(content, keyword string, max int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}

	start := 0
	lower := strings.ToLower(content)
	if keyword != "" && len(lower) == len(content) {
		if idx := strings.Index(lower, strings.ToLower(keyword)); idx >= 0 {
			start = len([]rune(content[:idx])) - max/4
			if start < 0 {
				start = 0
			}
		}
	}
	end := start + max
	if end > len(runes) {
		end = len(runes)
		start = end - max
	}

	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}
