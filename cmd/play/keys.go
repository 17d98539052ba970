package play

import "os"

type key int

const (
	keyQuit key = iota
	keyToggle
	keySeekBack
	keySeekFwd
	keyRestart
)

// readKeys reads stdin byte-wise (raw mode) and translates keypresses,
// including the arrow-key escape sequences, into key values.
func readKeys() <-chan key {
	keys := make(chan key)
	go func() {
		buf := make([]byte, 1)
		read := func() (byte, bool) {
			n, err := os.Stdin.Read(buf)
			if err != nil || n == 0 {
				return 0, false
			}
			return buf[0], true
		}
		for {
			b, ok := read()
			if !ok {
				continue
			}
			switch b {
			case 'q', 'Q', 3: // q, Q, Ctrl+C
				keys <- keyQuit
			case ' ':
				keys <- keyToggle
			case 'r', 'R':
				keys <- keyRestart
			case ',', '<':
				keys <- keySeekBack
			case '.', '>':
				keys <- keySeekFwd
			case 0x1b: // ESC [ C / ESC [ D
				b2, ok := read()
				if !ok || b2 != '[' {
					continue
				}
				b3, ok := read()
				if !ok {
					continue
				}
				switch b3 {
				case 'C':
					keys <- keySeekFwd
				case 'D':
					keys <- keySeekBack
				}
			}
		}
	}()
	return keys
}
