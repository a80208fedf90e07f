// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetRatingOnce(t *testing.T) {
	b := &Business{Name: "Mama Put"}
	assert.Nil(t, b.Stars())

	require.NoError(t, b.SetRating(8.4))
	assert.InDelta(t, 8.4, *b.Rating, 1e-9)
	assert.InDelta(t, 4.2, *b.Stars(), 1e-9)

	assert.ErrorIs(t, b.SetRating(3), ErrRatingAlreadySet)
	assert.InDelta(t, 8.4, *b.Rating, 1e-9)
}

func TestSetRatingZero(t *testing.T) {
	b := &Business{}
	require.NoError(t, b.SetRating(0))
	assert.ErrorIs(t, b.SetRating(0), ErrRatingAlreadySet)
}
