package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		rolls   [3]int
		call    Call
		sum     int
		outcome Call
		won     bool
	}{
		{"sum 11 called high wins", [3]int{4, 4, 3}, CallHigh, 11, CallHigh, true},
		{"sum 10 called high loses", [3]int{4, 4, 2}, CallHigh, 10, CallLow, false},
		{"sum 10 called low wins", [3]int{3, 3, 4}, CallLow, 10, CallLow, true},
		{"sum 3 called low wins", [3]int{1, 1, 1}, CallLow, 3, CallLow, true},
		{"sum 18 called low loses", [3]int{6, 6, 6}, CallLow, 18, CallHigh, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(tt.rolls, tt.call)
			assert.Equal(t, tt.sum, res.Sum)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.won, res.Won)
		})
	}
}

func TestRollDiceBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		rolls := RollDice(rng)
		for _, r := range rolls {
			assert.GreaterOrEqual(t, r, 1)
			assert.LessOrEqual(t, r, 6)
		}
	}
}

func TestPlayDiceRoundDeterministic(t *testing.T) {
	a := PlayDiceRound(rand.New(rand.NewSource(42)), CallHigh)
	b := PlayDiceRound(rand.New(rand.NewSource(42)), CallHigh)
	assert.Equal(t, a, b)
}

func TestPlayJackpotPrivilegedAlwaysWins(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		assert.True(t, PlayJackpot(rng, true))
	}
}

func TestPlayJackpotOdds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	wins := 0
	const draws = 50000
	for i := 0; i < draws; i++ {
		if PlayJackpot(rng, false) {
			wins++
		}
	}
	// Expected draws/50 = 1000 wins; allow a generous band since the
	// sequence is fixed by the seed anyway.
	assert.Greater(t, wins, 800)
	assert.Less(t, wins, 1200)
}

func TestNewSeed(t *testing.T) {
	a, err := NewSeed()
	assert.NoError(t, err)
	b, err := NewSeed()
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}
