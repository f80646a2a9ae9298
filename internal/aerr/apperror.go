// Package aerr define application error that carry user message, tags,
// metadata and location where error was created.
package aerr

//
// apperror.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"errors"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strconv"
	"strings"
)

type AppError struct {
	err     error
	tags    []string
	msg     string
	userMsg string
	meta    map[string]any
	stack   []string
}

// New create error without stack. Used mostly for prototypes defined in package vars.
func New(msg string, args ...any) AppError {
	return AppError{
		msg: fmt.Sprintf(msg, args...),
	}
}

// Newf create error with stack.
func Newf(msg string, args ...any) AppError {
	return AppError{
		stack: getStack(),
		msg:   fmt.Sprintf(msg, args...),
	}
}

func Wrap(err error) AppError {
	return AppError{
		stack: getStack(),
		err:   err,
	}
}

func Wrapf(err error, msg string, args ...any) AppError {
	return AppError{
		stack: getStack(),
		err:   err,
		msg:   fmt.Sprintf(msg, args...),
	}
}

func (a AppError) WithMsg(msg string, args ...any) AppError {
	n := a.clone()
	n.msg = fmt.Sprintf(msg, args...)

	return n
}

func (a AppError) WithTag(tag string) AppError {
	if slices.Contains(a.tags, tag) {
		return a
	}

	n := a.clone()
	n.tags = append(n.tags, tag)

	return n
}

func (a AppError) WithUserMsg(msg string, args ...any) AppError {
	n := a.clone()
	n.userMsg = fmt.Sprintf(msg, args...)

	return n
}

// WithMeta add key-value pairs to error metadata. Non-string keys are formatted with %v.
func (a AppError) WithMeta(keyval ...any) AppError {
	if len(keyval)%2 != 0 {
		panic("invalid argument number to call WithMeta")
	}

	n := a.clone()
	if n.meta == nil {
		n.meta = make(map[string]any, len(keyval)/2) //nolint:mnd
	}

	for i := 0; i < len(keyval); i += 2 {
		key, ok := keyval[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keyval[i])
		}

		n.meta[key] = keyval[i+1]
	}

	return n
}

func (a AppError) Error() string {
	switch {
	case a.msg != "" && a.err != nil:
		return a.msg + ": " + a.err.Error()
	case a.msg != "":
		return a.msg
	case a.err != nil:
		return a.err.Error()
	default:
		return "unknown error"
	}
}

func (a AppError) Unwrap() error {
	return a.err
}

// String return user message if defined; otherwise error message.
func (a AppError) String() string {
	if a.userMsg != "" {
		return a.userMsg
	}

	return a.Error()
}

func (a AppError) clone() AppError {
	return AppError{
		err:     a.err,
		tags:    slices.Clone(a.tags),
		msg:     a.msg,
		userMsg: a.userMsg,
		meta:    maps.Clone(a.meta),
		stack:   a.stack,
	}
}

//-------------------------------------------------------------

// ApplyFor create copy of `proto` with `err` as cause and current location.
// Optional `msg` set message and user message (when not empty).
func ApplyFor(proto AppError, err error, msg ...string) AppError {
	if err == nil {
		panic("err for apply is nil")
	}

	n := proto.clone()
	n.stack = getStack()
	n.err = err

	if len(msg) > 0 && msg[0] != "" {
		n.msg = msg[0]
	}

	if len(msg) > 1 && msg[1] != "" {
		n.userMsg = msg[1]
	}

	return n
}

//-------------------------------------------------------------

// Flatten return all AppErrors from `err` chain; the deepest first.
func Flatten(err error) []AppError {
	errs := []AppError{}

	for ; err != nil; err = errors.Unwrap(err) {
		if ae, ok := err.(AppError); ok { //nolint:errorlint
			errs = append(errs, ae)
		}
	}

	slices.Reverse(errs)

	return errs
}

func HasTag(err error, tag string) bool {
	for _, ae := range Flatten(err) {
		if slices.Contains(ae.tags, tag) {
			return true
		}
	}

	return false
}

func GetTags(err error) []string {
	tags := []string{}

	for _, ae := range Flatten(err) {
		for _, t := range ae.tags {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}

	return tags
}

// GetUserMessage return the first user message found in error chain (starting from deepest).
func GetUserMessage(err error) string {
	for _, ae := range Flatten(err) {
		if ae.userMsg != "" {
			return ae.userMsg
		}
	}

	return ""
}

func GetUserMessageOr(err error, defaultmsg string) string {
	if msg := GetUserMessage(err); msg != "" {
		return msg
	}

	return defaultmsg
}

func GetStack(err error) []string {
	for _, ae := range Flatten(err) {
		if len(ae.stack) > 0 {
			return ae.stack
		}
	}

	return nil
}

//-------------------------------------------------------------

const maxStack = 10

func getStack() []string {
	pc := make([]uintptr, maxStack)

	n := runtime.Callers(3, pc) //nolint:mnd
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pc[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if frame.Function != "runtime.goexit" {
			funcname := frame.Function[strings.LastIndex(frame.Function, "/")+1:]
			stack = append(stack, frame.File+":"+strconv.Itoa(frame.Line)+":"+funcname)
		}

		if !more {
			break
		}
	}

	return stack
}
