package parameter

// Difficulty scaling
const (
	DefaultDifficulty = 3
	MinDifficulty     = 1

	// MazeBaseDimension + 2*difficulty gives the maze side length
	MazeBaseDimension = 11
	// MinMazeDimension is the smallest grid with at least one carvable room
	MinMazeDimension = 5
	// MazeMaxAttempts bounds regeneration before falling back to the minimal maze
	MazeMaxAttempts = 3
)
