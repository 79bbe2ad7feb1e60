// SPDX-License-Identifier: MIT
//
// Leveled log facility.
//
// Messages carry the "file:line:function" origin of the caller.  Components
// get their own prefixed Logger from New().
//

package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case NoticeLevel:
		return "notice"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "(???)"
	}
}

// ParseLevel returns the level named by s, or false if unknown.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(s) {
	case "error":
		return ErrorLevel, true
	case "warn", "warning":
		return WarnLevel, true
	case "notice":
		return NoticeLevel, true
	case "info":
		return InfoLevel, true
	case "debug":
		return DebugLevel, true
	}
	return WarnLevel, false
}

var (
	level     atomic.Int32
	outLogger *log.Logger
	errLogger *log.Logger
)

func init() {
	level.Store(int32(WarnLevel))
	flag := log.Ldate | log.Ltime
	outLogger = log.New(os.Stdout, "", flag)
	errLogger = log.New(os.Stderr, "", flag)
}

func SetLevel(l Level) {
	level.Store(int32(l))
}

func GetLevel() Level {
	return Level(level.Load())
}

func SetLevelString(l string) {
	if l == "" {
		return
	}
	lv, ok := ParseLevel(l)
	if !ok {
		Warnf("unknown log level: %s", l)
		return
	}
	SetLevel(lv)
}

// SetOutput redirects both the standard and the error streams.
func SetOutput(w io.Writer) {
	outLogger.SetOutput(w)
	errLogger.SetOutput(w)
}

// Logger prefixes every message with the component name.
type Logger struct {
	prefix string
}

func New(component string) *Logger {
	return &Logger{prefix: "[" + component + "] "}
}

func (lg *Logger) Debugf(format string, v ...any) {
	output(DebugLevel, lg.prefix, format, v...)
}

func (lg *Logger) Infof(format string, v ...any) {
	output(InfoLevel, lg.prefix, format, v...)
}

func (lg *Logger) Noticef(format string, v ...any) {
	output(NoticeLevel, lg.prefix, format, v...)
}

func (lg *Logger) Warnf(format string, v ...any) {
	output(WarnLevel, lg.prefix, format, v...)
}

func (lg *Logger) Errorf(format string, v ...any) {
	output(ErrorLevel, lg.prefix, format, v...)
}

func Debugf(format string, v ...any) {
	output(DebugLevel, "", format, v...)
}

func Infof(format string, v ...any) {
	output(InfoLevel, "", format, v...)
}

func Noticef(format string, v ...any) {
	output(NoticeLevel, "", format, v...)
}

func Warnf(format string, v ...any) {
	output(WarnLevel, "", format, v...)
}

func Errorf(format string, v ...any) {
	output(ErrorLevel, "", format, v...)
}

func Fatalf(format string, v ...any) {
	format = fmt.Sprintf("[FATAL] %s: %s\n", getOrigin(2), format)
	errLogger.Fatalf(format, v...)
}

func output(l Level, prefix, format string, v ...any) {
	if l < GetLevel() {
		return
	}
	// calldepth is 3: caller -> Logf() -> output() -> getOrigin()
	format = fmt.Sprintf("[%s] %s%s: %s\n",
		strings.ToUpper(l.String()), prefix, getOrigin(3), format)
	switch l {
	case InfoLevel, NoticeLevel:
		outLogger.Printf(format, v...)
	default:
		errLogger.Printf(format, v...)
	}
}

// Get the file and function information of the logger caller.
// Result: "file:line:function"
func getOrigin(calldepth int) string {
	pc, file, line, ok := runtime.Caller(calldepth)
	if !ok {
		return "???:?:???"
	}

	funcname := runtime.FuncForPC(pc).Name()
	fn := funcname[strings.LastIndex(funcname, ".")+1:]
	return file + ":" + strconv.Itoa(line) + ":" + fn
}
