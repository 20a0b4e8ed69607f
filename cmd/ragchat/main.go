// Package main provides the entry point for the ragchat CLI.
package main

import (
	"fmt"
	"os"

	"github.com/briany/genai-rag-chatbot/cmd/ragchat/cmd"
	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, ragerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
