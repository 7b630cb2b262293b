package main

import (
	"github.com/alecthomas/kong"
	"gorm.io/gorm"
)

type Context struct {
	Debug bool

	gorm.Dialector
	gorm.Config
}

var cli struct {
	Debug bool   `help:"Enable debug mode."`
	DSN   string `required:"" help:"Database connection string."`

	Serve                   ServeCmd                   `cmd:"" help:"Serve the authorization and publishing endpoints."`
	AutoMigrate             AutoMigrateCmd             `cmd:"" help:"Create or update the database schema."`
	HouseKeeping            HouseKeepingCmd            `cmd:"" help:"Delete expired authorization state."`
	CreateSyndicationTarget CreateSyndicationTargetCmd `cmd:"" help:"Register a syndication target."`
	ListSyndicationTargets  ListSyndicationTargetsCmd  `cmd:"" help:"List registered syndication targets."`
	HashPassword            HashPasswordCmd            `cmd:"" help:"Hash the site password for --password-hash."`
}

func main() {
	ctx := kong.Parse(&cli)
	err := ctx.Run(&Context{
		Debug:     cli.Debug,
		Dialector: newDialector(cli.DSN),
	})
	ctx.FatalIfErrorf(err)
}
