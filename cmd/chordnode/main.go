// Command chordnode runs one peer of a Chord DHT ring (spec §6.4): an
// optional single positional TCP port, defaulting to 8008, and nothing
// else — no other flags, no environment variables.
package main

func main() {
	Execute()
}
