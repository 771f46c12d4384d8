package logger

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
)

var (
	InfoLogger  = log.New(os.Stdout, "", log.LstdFlags|log.LUTC)
	ErrorLogger = log.New(os.Stderr, "", log.LstdFlags|log.LUTC)
)

// Info logs msg followed by fields as sorted key=value pairs.
func Info(msg string, fields map[string]interface{}) {
	InfoLogger.Print(line("INFO", msg, fields))
}

func Warn(msg string, fields map[string]interface{}) {
	ErrorLogger.Print(line("WARN", msg, fields))
}

func Error(msg string, err error) {
	ErrorLogger.Print(line("ERROR", msg, map[string]interface{}{"error": err}))
}

func line(level, msg string, fields map[string]interface{}) string {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}
