package simulation

// HTTP status code constants.
const (
	StatusOK      = 200
	StatusCreated = 201
)

// Voter strategy names.
const (
	VoterAlphabetical = "alphabetical"
	VoterRandom       = "random"
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
)
