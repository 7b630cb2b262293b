package main

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type HashPasswordCmd struct {
	Password string `arg:"" help:"password to hash"`
}

func (c *HashPasswordCmd) Run(ctx *Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Println(string(hash))
	return nil
}
