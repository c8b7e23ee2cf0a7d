/*
 *  Copyright (C) 2017 gyee authors
 *
 *  This file is part of the gyee library.
 *
 *  The gyee library is free software: you can redistribute it and/or modify
 *  it under the terms of the GNU General Public License as published by
 *  the Free Software Foundation, either version 3 of the License, or
 *  (at your option) any later version.
 *
 *  The gyee library is distributed in the hope that it will be useful,
 *  but WITHOUT ANY WARRANTY; without even the implied warranty of
 *  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *  GNU General Public License for more details.
 *
 *  You should have received a copy of the GNU General Public License
 *  along with the gyee library.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package main

import (
	"fmt"

	"github.com/peterh/liner"
	"github.com/urfave/cli"

	"github.com/slimchain/slimchain/common/address"
	"github.com/slimchain/slimchain/config"
	"github.com/slimchain/slimchain/node"
)

var accountCommand = cli.Command{
	Name:        "account",
	Usage:       "Manage the node operator's keystore",
	Category:    "ACCOUNT COMMANDS",
	Description: "Create, list, or reset the passphrase on keystore entries",

	Subcommands: []cli.Command{
		{
			Name:      "new",
			Usage:     "Create a new account",
			ArgsUsage: " ",
			Action:    config.MergeFlags(accountCreate),
		},
		{
			Name:      "list",
			Usage:     "List every account in the keystore",
			ArgsUsage: " ",
			Action:    config.MergeFlags(accountList),
		},
		{
			Name:      "resetPassword",
			Usage:     "Reset an account's passphrase",
			ArgsUsage: "<address>",
			Action:    config.MergeFlags(accountResetPassword),
		},
	},
}

func makeNode(ctx *cli.Context) (*node.Node, error) {
	cfg, err := config.GetConfig(ctx)
	if err != nil {
		return nil, &configError{err}
	}
	nd, err := node.New(cfg)
	if err != nil {
		return nil, &configError{err}
	}
	return nd, nil
}

func accountCreate(ctx *cli.Context) error {
	nd, err := makeNode(ctx)
	if err != nil {
		return err
	}

	passphrase := getPassphrase("Passphrase for the new account:", true)
	addr, err := nd.AccountManager().CreateNewAccount([]byte(passphrase))
	if err != nil {
		return err
	}
	fmt.Printf("Account address: %s\n", addr.String())
	return nil
}

func accountList(ctx *cli.Context) error {
	nd, err := makeNode(ctx)
	if err != nil {
		return err
	}
	for i, addr := range nd.AccountManager().Accounts() {
		fmt.Printf("Account #%d: %s\n", i, addr.String())
	}
	return nil
}

func accountResetPassword(ctx *cli.Context) error {
	nd, err := makeNode(ctx)
	if err != nil {
		return err
	}
	addrStr := ctx.Args().First()
	if addrStr == "" {
		return fmt.Errorf("slimchain: resetPassword requires <address>")
	}
	var target *address.DisplayAddress
	for _, a := range nd.AccountManager().Accounts() {
		if a.String() == addrStr {
			target = a
			break
		}
	}
	if target == nil {
		return fmt.Errorf("slimchain: unknown account %s", addrStr)
	}
	oldPass := getPassphrase("Current passphrase:", false)
	newPass := getPassphrase("New passphrase:", true)
	return nd.AccountManager().ResetPassword(target, []byte(oldPass), []byte(newPass))
}

// getPassphrase masks passphrase entry with peterh/liner, the same
// line-editing library the teacher's console used.
func getPassphrase(prompt string, confirm bool) string {
	line := liner.NewLiner()
	defer line.Close()

	pass, err := line.PasswordPrompt(prompt + " ")
	if err != nil {
		fmt.Println("failed to read passphrase:", err)
		return ""
	}
	if confirm {
		repeat, err := line.PasswordPrompt("Repeat passphrase: ")
		if err != nil || repeat != pass {
			fmt.Println("passphrases do not match")
			return ""
		}
	}
	return pass
}
