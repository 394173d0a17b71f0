package main

import (
	"fmt"
	"os"
)

func main() {
	app := newApp(&runner{out: os.Stdout, readSecret: readTerminalSecret})

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(app.ErrWriter, err)
		os.Exit(1)
	}
}
