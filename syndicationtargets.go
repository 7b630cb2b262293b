package main

import (
	"fmt"

	"github.com/amberfield/press/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateSyndicationTargetCmd struct {
	ID       string `arg:"" help:"target identifier, as sent in mp-syndicate-to"`
	Name     string `required:"" help:"name shown to publishing clients"`
	Disabled bool   `help:"register the target without advertising it"`
}

func (c *CreateSyndicationTargetCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	target := models.SyndicationTarget{
		ID:      c.ID,
		Name:    c.Name,
		Enabled: !c.Disabled,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "enabled"}),
	}).Create(&target).Error
}

type ListSyndicationTargetsCmd struct {
}

func (c *ListSyndicationTargetsCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	var targets []models.SyndicationTarget
	if err := db.Order("created_at").Find(&targets).Error; err != nil {
		return err
	}
	for _, target := range targets {
		state := "enabled"
		if !target.Enabled {
			state = "disabled"
		}
		fmt.Printf("%s\t%s\t%s\n", target.ID, target.Name, state)
	}
	return nil
}
