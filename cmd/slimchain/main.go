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

// slimchain is spec §6's CLI: `run --config <path>` starts a node with
// the role named in the config file, exiting 0 on a clean shutdown, 2
// on a config error, 3 on unrecoverable state divergence.
package main

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli"

	"github.com/slimchain/slimchain/config"
	"github.com/slimchain/slimchain/utils/logging"
)

const (
	exitOK             = 0
	exitConfigError    = 2
	exitStateDivergent = 3
)

var app = cli.NewApp()

func init() {
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "the slimchain command line interface"
	app.HideVersion = true
	app.Copyright = "Copyright 2017-2018 The gyee Authors"
	app.Flags = []cli.Flag{
		config.ConfigFileFlag,
		config.DataDirFlag,
	}
	app.Commands = []cli.Command{
		runCommand,
		accountCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))
}

func main() {
	if err := app.Run(os.Args); err != nil {
		logging.Logger.Error(err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a returned error to spec §6's exit codes. Anything
// that isn't a *configError or *divergenceError is an ordinary command
// failure (bad args, account-command error) and exits 1, matching the
// teacher's cli idiom of a non-zero, non-fatal exit.
func exitCodeFor(err error) int {
	switch err.(type) {
	case *configError:
		return exitConfigError
	case *divergenceError:
		return exitStateDivergent
	default:
		return 1
	}
}

type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

type divergenceError struct{ err error }

func (e *divergenceError) Error() string { return e.err.Error() }
func (e *divergenceError) Unwrap() error { return e.err }
