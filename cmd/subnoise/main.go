package main

import (
	"context"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/subnoise/internal/runner"
)

func main() {
	cliOpts := runner.ParseFlags()

	r, err := runner.New(cliOpts)
	if err != nil {
		gologger.Fatal().Msgf("could not create runner: %s", err)
	}

	err = r.Run(context.Background())
	r.Close()
	if err != nil {
		gologger.Fatal().Msgf("subnoise run failed: %s", err)
	}
}
