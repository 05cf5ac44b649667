//
// Licensed to the Apache Software Foundation (ASF) under one or more
// contributor license agreements.  See the NOTICE file distributed with
// this work for additional information regarding copyright ownership.
// The ASF licenses this file to You under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance with
// the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package local

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/mattn/go-runewidth"

	"github.com/apache/spark/go/sparkjob/internal/columnar"
)

const minimumColumnWidth = 3

var metaCharacters = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\f", `\f`,
	"\b", `\b`,
	"\v", `\v`,
	"\a", `\a`,
)

// showString renders up to numRows rows of t as a text table. A table holding
// more than numRows rows gets an "only showing top" footer, so callers pass
// numRows+1 rows when they want it.
func showString(t *columnar.Table, numRows, truncate int) string {
	numRows = max(numRows, 0)
	hasMoreData := len(t.Rows) > numRows
	data := t.Head(numRows).Rows

	rows := make([][]string, 0, len(data)+1)
	header := make([]string, len(t.Schema.Fields()))
	for i, f := range t.Schema.Fields() {
		header[i] = metaCharacters.Replace(f.Name)
	}
	rows = append(rows, header)
	for _, row := range data {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = truncateCell(formatCell(v, t.Schema.Field(i).Type), truncate)
		}
		rows = append(rows, cells)
	}

	widths := make([]int, len(header))
	for i := range widths {
		widths[i] = minimumColumnWidth
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var sb strings.Builder
	sep := separator(widths)
	sb.WriteString(sep)
	writeRow(&sb, rows[0], widths, truncate > 0)
	sb.WriteString(sep)
	for _, row := range rows[1:] {
		writeRow(&sb, row, widths, truncate > 0)
	}
	sb.WriteString(sep)

	if hasMoreData {
		noun := "rows"
		if numRows == 1 {
			noun = "row"
		}
		fmt.Fprintf(&sb, "only showing top %d %s\n", numRows, noun)
	}
	return sb.String()
}

func separator(widths []int) string {
	var sb strings.Builder
	sb.WriteByte('+')
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w))
		sb.WriteByte('+')
	}
	sb.WriteByte('\n')
	return sb.String()
}

func writeRow(sb *strings.Builder, cells []string, widths []int, alignRight bool) {
	sb.WriteByte('|')
	for i, cell := range cells {
		pad := strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell))
		if alignRight {
			sb.WriteString(pad)
			sb.WriteString(cell)
		} else {
			sb.WriteString(cell)
			sb.WriteString(pad)
		}
		sb.WriteByte('|')
	}
	sb.WriteByte('\n')
}

func truncateCell(s string, truncate int) string {
	if truncate <= 0 || utf8.RuneCountInString(s) <= truncate {
		return s
	}
	runes := []rune(s)
	if truncate < 4 {
		return string(runes[:truncate])
	}
	return string(runes[:truncate-3]) + "..."
}

// formatCell renders a value the way a cast to string does.
func formatCell(v any, dt arrow.DataType) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return metaCharacters.Replace(x)
	case []byte:
		return formatBinary(x)
	case bool:
		return strconv.FormatBool(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatDouble(x)
	case time.Time:
		if dt != nil && dt.ID() == arrow.DATE32 {
			return x.UTC().Format("2006-01-02")
		}
		return formatTimestamp(x)
	default:
		return metaCharacters.Replace(fmt.Sprint(x))
	}
}

func formatBinary(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%02X", c)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatTimestamp(t time.Time) string {
	t = t.UTC()
	s := t.Format("2006-01-02 15:04:05")
	if micros := t.Nanosecond() / 1000; micros > 0 {
		s += strings.TrimRight(fmt.Sprintf(".%06d", micros), "0")
	}
	return s
}

// formatDouble follows Java's Double.toString: plain notation in [1e-3, 1e7)
// and computerized scientific notation outside it.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-3 && abs < 1e7) {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	s := strconv.FormatFloat(f, 'E', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	n, _ := strconv.Atoi(exp)
	return mantissa + "E" + strconv.Itoa(n)
}
