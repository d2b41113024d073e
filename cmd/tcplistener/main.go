package main

import (
	"fmt"
	"maps"
	"net"
	"os"
	"slices"

	"github.com/rs/zerolog"

	"github.com/nhdewitt/ticker-from-tcp/internal/request"
)

const port = ":42069"

// tcplistener prints every request it receives, one per connection. It uses
// the same reader and parser as the server.
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	listener, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatal().Err(err).Msg("error listening")
	}
	defer listener.Close()

	log.Info().Str("addr", listener.Addr().String()).Msg("Listening for TCP traffic")
	for {
		c, err := listener.Accept()
		if err != nil {
			log.Fatal().Err(err).Msg("error accepting connection")
		}
		log.Info().Stringer("remote", c.RemoteAddr()).Msg("Connection accepted")

		printRequest(c, log)
		c.Close()
		log.Info().Stringer("remote", c.RemoteAddr()).Msg("Connection closed")
	}
}

func printRequest(c net.Conn, log zerolog.Logger) {
	raw, err := request.ReadFrom(c, request.DefaultMaxBytes)
	if err != nil {
		log.Error().Err(err).Msg("error reading request")
		return
	}
	req, err := request.Parse(raw)
	if err != nil {
		log.Error().Err(err).Msg("error parsing request")
		return
	}

	fmt.Println("Request line:")
	fmt.Printf("- Method: %s\n", req.Method())
	fmt.Printf("- Target: %s\n", req.Target())
	fmt.Println("Headers:")
	h := req.Headers()
	for _, k := range slices.Sorted(maps.Keys(h)) {
		fmt.Printf("- %s: %s\n", k, h[k])
	}
	fmt.Println("Body:")
	fmt.Println(string(req.Body()))
}
