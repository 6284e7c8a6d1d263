package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/cangate-io/cangate/cmd/cangate-gateway/app"
)

func main() {
	app.NewApp().Run()
}
