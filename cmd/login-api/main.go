// Package main is the entry point for the end-user login API Lambda.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/eventsandbox/safe/login"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	handler, err := login.New(context.Background())
	if err != nil {
		log.Fatalf("initializing login API: %v", err)
	}
	lambda.Start(handler.HandleRequest)
}
