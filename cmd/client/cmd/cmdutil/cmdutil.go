// Package cmdutil общие части команд клиента: доступ к приложению и вывод.
package cmdutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pxocore/internal/app/client"
)

var ErrNotInitialized = errors.New("приложение не инициализировано")

// Env то, что получает каждая команда из контекста
type Env struct {
	App *client.App
	Out *Printer
}

type envKey struct{}

func NewContext(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// FromCmd окружение, подготовленное корневой командой
func FromCmd(cmd *cobra.Command) (*Env, error) {
	env, ok := cmd.Context().Value(envKey{}).(*Env)
	if !ok || env == nil || env.App == nil {
		return nil, ErrNotInitialized
	}
	return env, nil
}

// Printer пишет результат команды либо таблицей, либо JSON
type Printer struct {
	w      io.Writer
	asJSON bool

	ok   *color.Color
	warn *color.Color
	head *color.Color
}

func NewPrinter(w io.Writer, asJSON bool) *Printer {
	return &Printer{
		w:      w,
		asJSON: asJSON,
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		head:   color.New(color.Bold),
	}
}

func (p *Printer) JSONMode() bool {
	return p.asJSON
}

// Result в JSON-режиме печатает v, иначе вызывает human
func (p *Printer) Result(v any, human func(p *Printer)) error {
	if p.asJSON {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(p)
	return nil
}

func (p *Printer) Successf(format string, args ...any) {
	p.ok.Fprintf(p.w, "✓ "+format+"\n", args...)
}

func (p *Printer) Warnf(format string, args ...any) {
	p.warn.Fprintf(p.w, "! "+format+"\n", args...)
}

func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// Field строка вида "Ключ: значение"
func (p *Printer) Field(name string, value any) {
	fmt.Fprintf(p.w, "%s %v\n", p.head.Sprint(name+":"), value)
}

func (p *Printer) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, p.head.Sprint(strings.Join(headers, "\t")))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

// Time время для таблиц; нулевое время печатается как "никогда"
func Time(t time.Time) string {
	if t.IsZero() {
		return "никогда"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
