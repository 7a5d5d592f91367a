package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shaiso/Flowline/internal/domain"
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// LogEntry выводит одну запись потока логов выполнения.
//
// Текстовый режим — одна строка на запись:
//
//	12:04:05.123 [warning] node-2: output "extra" is not declared
//
// JSON-режим — одна JSON-строка на запись (jsonl, удобно для pipe).
func (o *Output) LogEntry(entry *domain.LogEntry) {
	if o.jsonMode {
		data, err := json.Marshal(entry)
		if err != nil {
			o.Error("marshal log entry: " + err.Error())
			return
		}
		fmt.Fprintln(o.w, string(data))
		return
	}

	scope := "flow"
	if entry.NodeID != "" {
		scope = entry.NodeID
	}

	suffix := ""
	if entry.DurationMs > 0 {
		suffix = fmt.Sprintf(" (%dms)", entry.DurationMs)
	}

	fmt.Fprintf(o.w, "%s [%s] %s: %s%s\n",
		entry.Timestamp.Format("15:04:05.000"),
		entry.Level,
		scope,
		entry.Message,
		suffix,
	)
}
