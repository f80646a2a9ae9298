package aerr

//
// mod_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"errors"
	"fmt"
	"testing"

	"gitlab.com/kabes/go-backend/internal/assert"
)

func TestUniqueList(t *testing.T) {
	var ulist uniqueList

	ulist.append("a")
	assert.Equal(t, []string(ulist), []string{"a"})

	ulist.append("b", "c", "a")
	assert.Equal(t, []string(ulist), []string{"a", "b", "c"})

	ulist.append("b", "d")
	assert.Equal(t, []string(ulist), []string{"a", "b", "c", "d"})
}

func TestAppErrorWrap(t *testing.T) {
	err := errors.New("error1")

	aerr1 := Wrap(err)
	assert.True(t, errors.Is(aerr1, err))
	assert.Equal(t, errors.Unwrap(aerr1), err)
	assert.True(t, aerr1.stack != nil)
	assert.Equal(t, aerr1.Error(), "error1")

	aerr2 := Wrapf(err, "open %s failed", "db")
	assert.Equal(t, aerr2.Error(), "open db failed: error1")
	assert.Equal(t, aerr2.String(), "open db failed: error1")
}

func TestAppErrorUserMsg(t *testing.T) {
	aerr0 := Wrapf(errors.New("error1"), "apperror%d", 1)

	assert.Equal(t, GetUserMessage(aerr0), "")
	assert.Equal(t, GetUserMessageOr(aerr0, "--"), "--")

	aerr1 := aerr0.WithUserMsg("user message %d", 123)
	assert.Equal(t, aerr1.msg, "apperror1")
	assert.Equal(t, aerr1.String(), "user message 123")
	assert.Equal(t, aerr1.stack, aerr0.stack)
	assert.Equal(t, GetUserMessage(aerr1), "user message 123")

	// user message from deepest error win
	wrapped := fmt.Errorf("outer: %w", Wrapf(aerr1, "middle").WithUserMsg("other"))
	assert.Equal(t, GetUserMessage(wrapped), "user message 123")
}

func TestAppErrorMeta(t *testing.T) {
	aerr0 := New("error1")
	aerr1 := aerr0.WithMeta("k1", 1, "k2", "v2")
	assert.Equal(t, len(aerr1.meta), 2)
	assert.Equal(t, aerr1.meta["k1"], any(1))

	aerr2 := aerr1.WithMeta("k1", 2, 22, "v22")
	assert.Equal(t, len(aerr2.meta), 3)
	assert.Equal(t, aerr2.meta["k1"], any(2))
	assert.Equal(t, aerr2.meta["22"], any("v22"))
	// no changes in aerr1
	assert.Equal(t, aerr1.meta["k1"], any(1))
	assert.Equal(t, len(aerr0.meta), 0)
}

func TestAppErrorTags(t *testing.T) {
	aerr1 := New("error1").WithTag("k1").WithTag("k2").WithTag("k1")
	assert.Equal(t, GetTags(aerr1), []string{"k1", "k2"})
	assert.True(t, HasTag(aerr1, "k2"))
	assert.True(t, !HasTag(aerr1, "k3"))

	wrapped := Wrapf(aerr1, "wrapped").WithTag("k3")
	assert.Equal(t, GetTags(wrapped), []string{"k1", "k2", "k3"})
	assert.True(t, HasTag(fmt.Errorf("std: %w", wrapped), "k1"))
}

func TestApplyFor(t *testing.T) {
	cause := errors.New("connection refused")

	err := ApplyFor(ErrDatabase, cause, "ping failed")
	assert.True(t, errors.Is(err, cause))
	assert.True(t, HasTag(err, InternalError))
	assert.Equal(t, err.Error(), "ping failed: connection refused")
	assert.Equal(t, GetUserMessage(err), "database error")
	assert.True(t, GetStack(err) != nil)
	// prototype is not modified
	assert.True(t, ErrDatabase.err == nil)
	assert.True(t, ErrDatabase.stack == nil)

	err = ApplyFor(ErrInvalidConf, cause, "", "bad config")
	assert.Equal(t, err.msg, "invalid configuration")
	assert.Equal(t, GetUserMessage(err), "bad config")
}
