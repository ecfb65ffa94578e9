package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/localperks/backend/internal/models"
)

func TestLess(t *testing.T) {
	open := &models.Business{ID: "a", Name: "Cafe", OpenNow: true, Rating: 3.0}
	closed := &models.Business{ID: "b", Name: "Bar", OpenNow: false, Rating: 5.0}

	t.Run("open businesses sort before closed regardless of rating", func(t *testing.T) {
		assert.True(t, Less(open, closed))
		assert.False(t, Less(closed, open))
	})

	t.Run("higher rating wins among equals", func(t *testing.T) {
		better := &models.Business{Name: "Deli", OpenNow: true, Rating: 4.5}
		assert.True(t, Less(better, open))
		assert.False(t, Less(open, better))
	})

	t.Run("name breaks rating ties case-insensitively", func(t *testing.T) {
		a := &models.Business{Name: "alpha", OpenNow: true, Rating: 4.0}
		b := &models.Business{Name: "Beta", OpenNow: true, Rating: 4.0}
		assert.True(t, Less(a, b))
		assert.False(t, Less(b, a))
	})
}

func TestSort(t *testing.T) {
	businesses := []models.Business{
		{ID: "1", Name: "Zen Garden", OpenNow: false, Rating: 4.9},
		{ID: "2", Name: "Morning Brew", OpenNow: true, Rating: 4.2},
		{ID: "3", Name: "Corner Store", OpenNow: true, Rating: 4.2},
		{ID: "4", Name: "Night Owl", OpenNow: true, Rating: 4.7},
	}

	Sort(businesses)

	ids := make([]string, len(businesses))
	for i, b := range businesses {
		ids[i] = b.ID
	}
	assert.Equal(t, []string{"4", "3", "2", "1"}, ids)
}
