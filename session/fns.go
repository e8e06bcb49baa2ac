// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"errors"
	"strings"
)

// unknownReply is sent back for anything ParseCommand rejects.
const unknownReply = "Unknown command"

// ErrUnknownCommand is returned by ParseCommand for anything that is not
// a well formed command.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one parsed command line.
type Command struct {
	Verb string
	Arg  string
}

// SetVerbose sets the debug print function.
func SetVerbose(f func(string, ...interface{})) {
	v = f
}

func verbose(f string, a ...interface{}) {
	v("session:"+f, a...)
}

// ParseCommand parses a command line. The line is trimmed and split on
// the first space: what precedes it is the verb, what follows it, trimmed,
// is the argument. Verbs are case-sensitive.
// ls takes no argument; cd, touch, mkdir and cat require one.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	c := Command{Verb: verb, Arg: arg}
	want, ok := arity[verb]
	if !ok {
		return c, ErrUnknownCommand
	}
	// The argument is a single string, so "touch a b" names the file "a b".
	if (len(arg) > 0) != want {
		return c, ErrUnknownCommand
	}
	return c, nil
}

// arity records whether a verb requires an argument.
var arity = map[string]bool{
	"ls":    false,
	"cd":    true,
	"touch": true,
	"mkdir": true,
	"cat":   true,
}
