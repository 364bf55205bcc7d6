package main

import (
	"context"
	"fmt"
	"os"

	"github.com/harrison/codeview/internal/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; real environment variables always win.
	_ = godotenv.Load()

	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
