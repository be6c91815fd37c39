package main

import (
	"fmt"
	"os"
	_ "time/tzdata"
)

// @title Tutoring Orchestrator API
// @version 1.0.0
// @description Event-driven lifecycle orchestration for peer tutoring sessions and class requests.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
