// Copyright 2025 BINARY Members
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package oerr carries the engine error taxonomy: every fatal error has a
// stable numeric code, a message and a captured stack trace.
package oerr

import (
	"fmt"

	"github.com/pkg/errors"
)

type Code int

const (
	Internal Code = 1
)

const (
	WrongFileName Code = iota + 100000
	WrongDirName
	CreateDir
	GetFileMetadata
	FileReading
	FileWriting
	FileDeserialization
	FileSerialization
	UnknownConfigField
	MissingConfigField
	WrongConfigFieldType
	NotValidField
	MissingFile
	MissingDir
	ParseError
)

const (
	ChannelSend Code = iota + 200000
	ChannelRecv
	UnknownCharset
	TakeLock
	MemoryAllocation
	ThreadSpawn
	OracleConnection
	OracleQuery
	SchemaReading
)

// Error is the engine-wide fatal error. The wrapped cause is created with
// pkg/errors so %+v renders the capture-site stack trace.
type Error struct {
	Code Code
	err  error
}

func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code: code,
		err:  errors.Errorf(format, args...),
	}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, format string, args ...any) *Error {
	return &Error{
		Code: code,
		err:  errors.Wrapf(err, format, args...),
	}
}

// Parse is shorthand for parse errors of the on-disk redo format.
func Parse(format string, args ...any) *Error {
	return New(ParseError, format, args...)
}

func (e *Error) Error() string {
	return fmt.Sprintf("code %06d: %v", int(e.Code), e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Format renders the stack trace of the wrapped cause with %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "code %06d: %+v", int(e.Code), e.err)
		return
	}
	fmt.Fprint(s, e.Error())
}

// CodeOf reports the code carried by err, or Internal when err is not an
// engine error.
func CodeOf(err error) Code {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code
	}
	return Internal
}

// IsParse reports whether err is a parse error of the redo format.
func IsParse(err error) bool {
	return CodeOf(err) == ParseError
}
