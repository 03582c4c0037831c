package main

import (
	"fmt"
	"os"

	"github.com/LeventeLantos/tweet-automation/cmd/tweetautomation/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
