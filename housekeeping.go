package main

import (
	"context"
	"fmt"
	"time"

	"github.com/amberfield/press/models"
	"github.com/pkg/group"
	"gorm.io/gorm"
)

type HouseKeepingCmd struct {
}

// Run deletes authorization state that can no longer be used: consent
// requests past their expiry, and access tokens past theirs. Confirmed
// requests whose code was never exchanged expire like any other.
func (c *HouseKeepingCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	// the group context is not threaded into the deletes; the first delete
	// to finish would cancel the other one mid query
	now := time.Now()
	g := group.New(context.Background())
	g.Add(func(context.Context) error {
		res := db.Where("expires_at < ?", now).Delete(&models.ConsentRequest{})
		if res.Error != nil {
			return res.Error
		}
		fmt.Println("deleted", res.RowsAffected, "expired consent requests")
		return nil
	})
	g.Add(func(context.Context) error {
		res := db.Where("expires_at < ?", now).Delete(&models.Token{})
		if res.Error != nil {
			return res.Error
		}
		fmt.Println("deleted", res.RowsAffected, "expired tokens")
		return nil
	})
	return g.Wait()
}
