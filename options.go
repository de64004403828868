// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package brisk

// Options is the bitfield named in spec §6.
type Options uint32

const (
	ParseURL Options = 1 << iota
	ParseQueryString // implies ParseURL
	ParseFormBody
	ParseJSONBody
	ParseMultiPartBody
	ParseCookies
	Distribute
	ErrorStackTraces
	DisableHTTP2
	EnablePushRequests
)

// DefaultOptions matches the "In default" column of spec §6's table.
const DefaultOptions = ParseURL | ParseQueryString | ParseFormBody | ParseJSONBody | ParseMultiPartBody | ParseCookies | ErrorStackTraces

func (o Options) has(flag Options) bool { return o&flag != 0 }

// SessionOptions is the bitfield named in spec §6 for startSession.
type SessionOptions uint8

const (
	SessionHTTPOnly SessionOptions = 1 << iota
	SessionSecure
	SessionNoSecure
)
