// Copyright (C) 2019 gyee authors
//
// This file is part of the gyee library.
//
// The gyee library is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gyee library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with the gyee library.  If not, see <http://www.gnu.org/licenses/>.

package log

import (
	"github.com/slimchain/slimchain/utils/logging"
)

//
// logging API for geth code
//

// Trace logs at trace level through logging.Logger
func Trace(msg string, ctx ...interface{}) {
	logging.Logger.Trace(msg, ctx)
}

// Debug logs at debug level through logging.Logger
func Debug(msg string, ctx ...interface{}) {
	logging.Logger.Debug(msg, ctx)
}

// Info logs at info level through logging.Logger
func Info(msg string, ctx ...interface{}) {
	logging.Logger.Info(msg, ctx)
}

// Warn logs at warn level through logging.Logger
func Warn(msg string, ctx ...interface{}) {
	logging.Logger.Warn(msg, ctx)
}

// Error logs at error level through logging.Logger
func Error(msg string, ctx ...interface{}) {
	logging.Logger.Error(msg, ctx)
}

// Crit logs through logging.Logger.Fatal, which exits the process
func Crit(msg string, ctx ...interface{}) {
	logging.Logger.Fatal(msg, ctx)
}

//
// logging API with printf format
//

func Debugf(fmt string, args ...interface{}) {
	logging.Logger.Debugf(fmt, args...)
}

func Infof(fmt string, args ...interface{}) {
	logging.Logger.Infof(fmt, args...)
}

func Warnf(fmt string, args ...interface{}) {
	logging.Logger.Warnf(fmt, args...)
}

func Errorf(fmt string, args ...interface{}) {
	logging.Logger.Errorf(fmt, args...)
}
