package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/bountyboard/internal/ctl"
	"github.com/dmitrijs2005/bountyboard/internal/server/config"
)

func main() {

	ctx := context.Background()
	global, command := ctl.SplitArgs(os.Args[1:])
	cfg := config.LoadConfigFrom(global)

	app, err := ctl.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = app.Run(ctx, command)
	_ = app.Close()

	if err != nil {
		if !errors.Is(err, ctl.ErrUsage) {
			log.Printf("%v", err)
		}
		os.Exit(1)
	}

}
