package components

// Global keys
const (
	KeyQuit    = "q"
	KeyQuitAlt = "ctrl+c"
	KeyRefresh = "r"

	KeyEscape    = "esc"
	KeyEnter     = "enter"
	KeyBackspace = "backspace"
)

// Navigation keys
const (
	KeyUp       = "up"
	KeyDown     = "down"
	KeyPageUp   = "pgup"
	KeyPageDown = "pgdown"
	KeyHome     = "home"
	KeyEnd      = "end"
)

// Vim-style navigation
const (
	KeyVimUp     = "k"
	KeyVimDown   = "j"
	KeyVimTop    = "g"
	KeyVimBottom = "G"
)

// IsUpKey reports whether key moves the selection up.
func IsUpKey(key string) bool {
	return key == KeyUp || key == KeyVimUp
}

// IsDownKey reports whether key moves the selection down.
func IsDownKey(key string) bool {
	return key == KeyDown || key == KeyVimDown
}

// IsQuitKey reports whether key exits the program.
func IsQuitKey(key string) bool {
	return key == KeyQuit || key == KeyQuitAlt
}
