package cmdutil

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinter_Result(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	require.NoError(t, p.Result(map[string]int{"uploaded": 3}, func(*Printer) {
		t.Fatal("human output in json mode")
	}))
	assert.JSONEq(t, `{"uploaded":3}`, buf.String())

	buf.Reset()
	p = NewPrinter(&buf, false)
	require.NoError(t, p.Result(nil, func(p *Printer) {
		p.Successf("готово: %d", 3)
		p.Field("Устройство", "d1")
	}))
	assert.Equal(t, "✓ готово: 3\nУстройство: d1\n", buf.String())
}

func TestPrinter_Table(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	NewPrinter(&buf, false).Table([]string{"ID", "TYPE"}, [][]string{{"k1", "concurrent_update"}})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "ID")
	assert.Contains(t, string(lines[1]), "concurrent_update")
}

func TestTime(t *testing.T) {
	assert.Equal(t, "никогда", Time(time.Time{}))
	assert.NotEqual(t, "никогда", Time(time.Now()))
}

func TestFromCmd_NotInitialized(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	_, err := FromCmd(cmd)
	assert.ErrorIs(t, err, ErrNotInitialized)
}
