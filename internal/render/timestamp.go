// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	day   = 24 * time.Hour
	month = 30 * day
	year  = 365 * day
)

// relativeMagnitudes are the buckets of the "R" timestamp style.
var relativeMagnitudes = []humanize.RelTimeMagnitude{
	{D: 2 * time.Second, Format: "just now", DivBy: time.Second},
	{D: time.Minute, Format: "%d seconds %s", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "about a minute %s", DivBy: time.Minute},
	{D: time.Hour, Format: "%d minutes %s", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "about an hour %s", DivBy: time.Hour},
	{D: day, Format: "%d hours %s", DivBy: time.Hour},
	{D: 2 * day, Format: "1 day %s", DivBy: day},
	{D: 29 * day, Format: "%d days %s", DivBy: day},
	{D: 60 * day, Format: "about a month %s", DivBy: month},
	{D: 12 * 29 * day, Format: "%d months %s", DivBy: month},
	{D: 2 * year, Format: "a year %s", DivBy: year},
	{D: math.MaxInt64, Format: "%d years %s", DivBy: year},
}

var timestampLayouts = map[rune]string{
	't': "15:04",
	'T': "15:04:05",
	'd': "02/01/2006",
	'D': "02 January 2006",
	'f': "02 January 2006 15:04",
	'F': "Monday, 02 January 2006 15:04",
}

// timestamp formats a <t:unix:style> token. A zero style means 'f'; an
// unknown style reports false.
func (r *Renderer) timestamp(unix int64, style rune) (string, bool) {
	if style == 0 {
		style = 'f'
	}
	at := time.Unix(unix, 0)
	if style == 'R' {
		return humanize.CustomRelTime(at, r.now(), "ago", "from now", relativeMagnitudes), true
	}
	layout, ok := timestampLayouts[style]
	if !ok {
		return "", false
	}
	return at.In(r.loc).Format(layout), true
}
