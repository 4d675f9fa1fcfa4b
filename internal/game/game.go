// Package game implements the pure payout logic for the chance games.
// All functions are deterministic with respect to the provided rand source;
// callers own balance checks and balance mutation.
package game

import "math/rand"

// Call is the player's call in a dice round.
type Call int

const (
	CallLow Call = iota
	CallHigh
)

func (c Call) String() string {
	if c == CallHigh {
		return "tài"
	}
	return "xỉu"
}

const (
	diceCount = 3
	diceSides = 6

	// lowMax is the highest three-die sum still counted as low.
	lowMax = 10

	// JackpotOdds is the 1-in-N win chance for ordinary players.
	JackpotOdds = 50

	// JackpotMultiplier is applied to the bet on a jackpot win.
	JackpotMultiplier = 100
)

// DiceResult captures one resolved dice round.
type DiceResult struct {
	Rolls   [diceCount]int
	Sum     int
	Outcome Call
	Won     bool
}

// RollDice rolls three six-sided dice.
func RollDice(rng *rand.Rand) [diceCount]int {
	var rolls [diceCount]int
	for i := range rolls {
		rolls[i] = rng.Intn(diceSides) + 1
	}
	return rolls
}

// Evaluate resolves a set of rolls against the player's call. The outcome is
// low when the sum is at most 10, high otherwise; the player wins iff the
// call matches the outcome.
func Evaluate(rolls [diceCount]int, call Call) DiceResult {
	sum := 0
	for _, r := range rolls {
		sum += r
	}
	outcome := CallLow
	if sum > lowMax {
		outcome = CallHigh
	}
	return DiceResult{
		Rolls:   rolls,
		Sum:     sum,
		Outcome: outcome,
		Won:     outcome == call,
	}
}

// PlayDiceRound rolls and resolves one dice round.
func PlayDiceRound(rng *rand.Rand, call Call) DiceResult {
	return Evaluate(RollDice(rng), call)
}

// PlayJackpot draws one jackpot attempt. A privileged player always wins;
// everyone else wins with probability 1/JackpotOdds.
func PlayJackpot(rng *rand.Rand, privileged bool) bool {
	if privileged {
		return true
	}
	return rng.Intn(JackpotOdds) == 0
}
