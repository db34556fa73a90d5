// Package main is the entry point for the bankdesk customer service assistant.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/bankdesk/cmd/bankdesk/app"
)

func main() {
	app.NewApp().Run()
}
