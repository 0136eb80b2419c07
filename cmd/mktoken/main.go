// This command is only used for local testing: it generates a random proxy
// token suitable for PROXY_TOKEN on the server and REELGATE_TOKEN for
// reelctl.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Bytes int `env:"UTIL_TOKEN_BYTES, default=32"`
}

func main() {
	cfg := Config{}
	err := envconfig.Process(context.Background(), &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Bytes < 16 {
		fmt.Fprintln(os.Stderr, "error: tokens shorter than 16 bytes are too guessable")
		os.Exit(1)
	}

	raw := make([]byte, cfg.Bytes)
	if _, err := rand.Read(raw); err != nil {
		fmt.Fprintf(os.Stderr, "error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s", hex.EncodeToString(raw))
}
