package search

import (
	"sort"
	"strings"

	"github.com/sessionvault/sessionvault/internal/session"
)

// fuse merges two ranked session lists into one by weighted position score.
// Position i in a list of n contributes (1 - i/n) scaled by that list's
// weight; a session present in both lists accumulates both contributions.
// Ties keep first-seen order, lexical before semantic.
func fuse(lexical, semantic []session.Session, semanticWeight float64, limit int) []session.Session {
	scores := make(map[string]float64)
	byID := make(map[string]session.Session)
	var order []string

	accumulate := func(list []session.Session, weight float64) {
		n := float64(len(list))
		for i, sess := range list {
			if _, ok := byID[sess.ID]; !ok {
				byID[sess.ID] = sess
				order = append(order, sess.ID)
			}
			scores[sess.ID] += weight * (1 - float64(i)/n)
		}
	}
	accumulate(lexical, 1-semanticWeight)
	accumulate(semantic, semanticWeight)

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	fused := make([]session.Session, len(order))
	for i, id := range order {
		fused[i] = byID[id]
	}
	return fused
}

// sanitizeQuery wraps each term in double quotes so user input cannot invoke
// FTS5 query syntax (NEAR, column filters, unbalanced quotes).
func sanitizeQuery(query string) string {
	terms := strings.Fields(query)
	for i, term := range terms {
		terms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
