package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusFound, StatusClaimed}:    true,
		{StatusClaimed, StatusFound}:    true,
		{StatusFound, StatusReturned}:   true,
		{StatusClaimed, StatusReturned}: true,
	}
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus(" Claimed ")
	assert.True(t, ok)
	assert.Equal(t, StatusClaimed, st)

	_, ok = ParseStatus("stolen")
	assert.False(t, ok)

	assert.True(t, StatusLost.Open())
	assert.True(t, StatusFound.Open())
	assert.False(t, StatusPending.Open())
	assert.False(t, StatusReturned.Open())
}
