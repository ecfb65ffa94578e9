// Package ranking sorts plain business records for display. The
// comparator is pure and stateless; it shares none of the ledger's
// locking discipline.
package ranking

import (
	"sort"
	"strings"

	"github.com/localperks/backend/internal/models"
)

// Less orders businesses for the directory: open ones first, then by
// rating descending, then by name for a stable display order.
func Less(a, b *models.Business) bool {
	if a.OpenNow != b.OpenNow {
		return a.OpenNow
	}
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	return strings.ToLower(a.Name) < strings.ToLower(b.Name)
}

// Sort orders the slice in place using Less.
func Sort(businesses []models.Business) {
	sort.SliceStable(businesses, func(i, j int) bool {
		return Less(&businesses[i], &businesses[j])
	})
}
