// Package main is the entry point for the lease operator API Lambda.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/eventsandbox/safe/operator"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	handler, err := operator.New(context.Background())
	if err != nil {
		log.Fatalf("initializing operator API: %v", err)
	}
	lambda.Start(handler.HandleRequest)
}
