package gameoflife

// Blinker is the period-2 oscillator: a vertical bar at (x, y) that flips
// between vertical and horizontal every generation.
func Blinker(x, y int) []Cell {
	return []Cell{{x, y}, {x, y + 1}, {x, y + 2}}
}

// Glider is the classic diagonal spaceship with its head at (x, y).
func Glider(x, y int) []Cell {
	return []Cell{{x + 1, y}, {x + 2, y + 1}, {x, y + 2}, {x + 1, y + 2}, {x + 2, y + 2}}
}
