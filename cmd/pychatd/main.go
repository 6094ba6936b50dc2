package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/paulologeh/pychat/internal/app"
	"github.com/paulologeh/pychat/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	serverFlag := flag.String("server", "", "server base URL (overrides config)")
	socketFlag := flag.String("socket", "", "websocket URL (overrides derived default)")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fx.New(
		app.Module(app.Params{
			SessionName: sessionName,
			ServerURL:   *serverFlag,
			SocketURL:   *socketFlag,
		}),
	).Run()
}
