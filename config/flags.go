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

package config

import (
	"github.com/urfave/cli"
)

// ConfigFileFlag and DataDirFlag are the two flags every cmd/slimchain
// subcommand accepts - spec §6's CLI surface is otherwise entirely
// driven by the TOML file they name, not by a flag per config field.
var (
	ConfigFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML config file (spec §6 sections: role, chain, miner, tee, network, pow, raft)",
	}

	DataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "data directory for the node store and keys",
	}
)

// MergeFlags promotes every flag set on a subcommand's local context
// onto the global context, so GetConfig sees `slimchain run
// --config X` and `slimchain --config X run` identically - kept from
// the teacher's own flag-merging idiom.
func MergeFlags(action func(ctx *cli.Context) error) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		for _, name := range ctx.FlagNames() {
			if ctx.IsSet(name) {
				ctx.GlobalSet(name, ctx.String(name))
			}
		}
		return action(ctx)
	}
}
