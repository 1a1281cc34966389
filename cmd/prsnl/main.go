package main

import (
	"flag"

	"go.uber.org/fx"

	"github.com/prsnl/prsnl/internal/app"
)

func main() {
	serverFlag := flag.String("server", "", "server websocket URL (overrides config server_url)")
	flag.Parse()

	fx.New(
		app.Module(app.Params{ServerURL: *serverFlag}),
		fx.NopLogger,
	).Run()
}
