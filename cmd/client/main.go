// Command client is the QuoteKeeper terminal client. It keeps a local SQLite
// mirror of the server's notes and works offline, syncing when it can.
package main

var (
	version   string
	buildDate string
)

func main() {
	Execute()
}
