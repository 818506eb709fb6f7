// Package main is the entry point for the user administration API Lambda.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/eventsandbox/safe/users"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	handler, err := users.New(context.Background())
	if err != nil {
		log.Fatalf("initializing users API: %v", err)
	}
	lambda.Start(handler.HandleRequest)
}
