package library

import (
	"sort"
)

const (
	DefaultTopBooks = 5
	DefaultTopUsers = 10
)

// MostBorrowedBooks counts loans per book title, most borrowed first. Loans of
// deleted books are not counted. A limit <= 0 returns every title.
func (lm *LibraryManager) MostBorrowedBooks(limit int) []CountEntry {
	counts := make(map[string]int)
	for _, l := range lm.loans.List() {
		if b, ok := lm.books.FindByID(l.BookID); ok {
			counts[b.Title]++
		}
	}
	return topCounts(counts, limit)
}

// MostActiveUsers counts loans per user name, most active first.
func (lm *LibraryManager) MostActiveUsers(limit int) []CountEntry {
	counts := make(map[string]int)
	for _, l := range lm.loans.List() {
		if u, ok := lm.users.FindByID(l.UserID); ok {
			counts[u.Name]++
		}
	}
	return topCounts(counts, limit)
}

func topCounts(counts map[string]int, limit int) []CountEntry {
	entries := make([]CountEntry, 0, len(counts))
	for name, n := range counts {
		entries = append(entries, CountEntry{Name: name, Count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
