package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTable_AlignsByDisplayWidth(t *testing.T) {
	var buf bytes.Buffer
	err := writeTable(&buf, []string{"ID", "TITLE"}, [][]string{
		{"arxiv:1", "Short"},
		{"doaj:abcdef", "論文のタイトル"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		prefix := line[:strings.LastIndex(line, "  ")+2]
		assert.Equal(t, len("doaj:abcdef")+2, runewidth.StringWidth(prefix), line)
	}
	assert.True(t, strings.HasSuffix(lines[2], "論文のタイトル"))
}

func TestWriteTable_TruncatesLongCells(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []string{"TITLE"}, [][]string{{strings.Repeat("x", 200)}}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, maxCellWidth, runewidth.StringWidth(lines[1]))
	assert.True(t, strings.HasSuffix(lines[1], "..."))
}

func TestWriteTable_ShortRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []string{"A", "B"}, [][]string{{"only"}}))
	assert.Equal(t, "A     B\nonly  \n", buf.String())
}
