// Package knowledge implements keyword retrieval over stored document text.
package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const defaultMaxResults = 5

// Index answers free-text questions with a synopsis of matching document
// passages. It scans all indexed documents and scores them by term
// overlap; at the current corpus sizes (hundreds of internal documents)
// a full scan is cheaper than maintaining a separate inverted index.
type Index struct {
	db         *sql.DB
	maxResults int
}

// NewIndex creates an Index over the given database. The documents table
// must already exist (created via storage migrations).
func NewIndex(db *sql.DB, maxResults int) *Index {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Index{db: db, maxResults: maxResults}
}

// Match is a scored document hit.
type Match struct {
	ID      string
	Title   string
	Excerpt string
	Score   int
}

// NoMatches is returned as the synopsis when nothing relevant is stored.
// An empty result set is an answer, not an error.
const NoMatches = "No matching documents were found."

// Search scores every indexed document against the question's terms and
// returns a plain-text synopsis of the best matches. It returns an error
// only for underlying read failures.
func (ix *Index) Search(ctx context.Context, question string) (string, error) {
	matches, err := ix.Match(ctx, question)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return NoMatches, nil
	}

	var sb strings.Builder
	for i, m := range matches {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		title := m.Title
		if title == "" {
			title = m.ID
		}
		fmt.Fprintf(&sb, "%s:\n%s", title, m.Excerpt)
	}
	return sb.String(), nil
}

// Match returns the top-scoring documents for the question.
func (ix *Index) Match(ctx context.Context, question string) ([]Match, error) {
	terms := queryTerms(question)
	if len(terms) == 0 {
		return nil, nil
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT id, title, content FROM documents
		WHERE status = 'indexed' AND content != ''`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var scored []Match
	for rows.Next() {
		var id, title, content string
		if err := rows.Scan(&id, &title, &content); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}

		score, firstTerm := scoreDocument(title, content, terms)
		if score == 0 {
			continue
		}
		scored = append(scored, Match{
			ID:      id,
			Title:   title,
			Excerpt: excerpt(content, firstTerm),
			Score:   score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > ix.maxResults {
		scored = scored[:ix.maxResults]
	}
	return scored, nil
}

// Count returns the number of searchable documents (health reporting).
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE status = 'indexed'`).Scan(&n)
	return n, err
}

// scoreDocument counts term occurrences; title hits weigh more than body
// hits. Returns the score and the first term found in the body, used to
// anchor the excerpt.
func scoreDocument(title, content string, terms []string) (int, string) {
	lowerTitle := strings.ToLower(title)
	lowerContent := strings.ToLower(content)

	score := 0
	firstTerm := ""
	for _, term := range terms {
		score += 3 * strings.Count(lowerTitle, term)
		if n := strings.Count(lowerContent, term); n > 0 {
			score += n
			if firstTerm == "" {
				firstTerm = term
			}
		}
	}
	return score, firstTerm
}

// excerptWidth is the number of bytes of context shown around a hit.
const excerptWidth = 240

// excerpt returns a window of content around the first occurrence of term,
// trimmed to rune and whitespace boundaries.
func excerpt(content, term string) string {
	content = strings.TrimSpace(content)
	if term == "" || len(content) <= excerptWidth {
		return truncate(content, excerptWidth)
	}

	// The hit offset must be computed on the original bytes: lowercasing
	// can change a rune's byte length ('İ' is 2 bytes, 'i' is 1), so an
	// offset into the lowered string would misalign the slice.
	idx := indexFold(content, term)
	if idx < 0 {
		return truncate(content, excerptWidth)
	}

	start := idx - excerptWidth/2
	if start < 0 {
		start = 0
	}
	end := start + excerptWidth
	if end > len(content) {
		end = len(content)
		start = end - excerptWidth
		if start < 0 {
			start = 0
		}
	}
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}

	window := content[start:end]
	if start > 0 {
		if sp := strings.IndexAny(window, " \t\n"); sp >= 0 && sp < len(window)-1 {
			window = window[sp+1:]
		}
		window = "…" + window
	}
	if end < len(content) {
		if sp := strings.LastIndexAny(window, " \t\n"); sp > 0 {
			window = window[:sp]
		}
		window = window + "…"
	}
	return window
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	cut := s[:n]
	if sp := strings.LastIndexAny(cut, " \t\n"); sp > 0 {
		cut = cut[:sp]
	}
	return cut + "…"
}

// indexFold returns the byte offset in s of the first case-insensitive
// occurrence of term, comparing rune by rune so differing byte lengths
// between cases cannot skew the offset. Returns -1 when absent.
func indexFold(s, term string) int {
	termRunes := []rune(strings.ToLower(term))
	if len(termRunes) == 0 {
		return 0
	}

	runes := []rune(s)
	if len(runes) < len(termRunes) {
		return -1
	}

	// Byte offset of each rune in s.
	offsets := make([]int, len(runes))
	off := 0
	for i, r := range runes {
		offsets[i] = off
		off += utf8.RuneLen(r)
	}

	for i := 0; i+len(termRunes) <= len(runes); i++ {
		match := true
		for j, tr := range termRunes {
			if unicode.ToLower(runes[i+j]) != tr {
				match = false
				break
			}
		}
		if match {
			return offsets[i]
		}
	}
	return -1
}

// stopwords are question scaffolding that carries no retrieval signal.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"how": true, "why": true, "does": true, "can": true, "has": true,
	"have": true, "with": true, "this": true, "that": true, "you": true,
	"your": true, "our": true, "get": true, "not": true,
}

// queryTerms lowercases the question and keeps distinct alphanumeric
// terms of two or more runes, minus stopwords.
func queryTerms(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	var terms []string
	for _, f := range fields {
		if len([]rune(f)) < 2 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}
