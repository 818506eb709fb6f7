// Package main is the entry point for the account administration API Lambda.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/eventsandbox/safe/admin"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	handler, err := admin.New(context.Background())
	if err != nil {
		log.Fatalf("initializing admin API: %v", err)
	}
	lambda.Start(handler.HandleRequest)
}
