// Package main is the terminal client for the trellix board server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/atinyakov/trellix/internal/client"
	"github.com/spf13/pflag"
)

var (
	version   string
	buildDate string
)

// main parses command-line flags and starts the interactive shell.
func main() {
	var (
		baseURL string
		showVer bool
	)

	pflag.StringVarP(&baseURL, "url", "u", "http://localhost:8080", "server base URL")
	pflag.BoolVar(&showVer, "version", false, "show build version and date")
	pflag.Parse()

	if showVer {
		fmt.Printf("Trellix Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	c, err := client.New(baseURL)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client.REPL(ctx, c, os.Stdin, os.Stdout)
}
