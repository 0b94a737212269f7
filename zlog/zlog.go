// Package zlog is a small severity-leveled logger in the style this
// module's endpoints share: Info lines are buffered and only flushed on
// demand, while Warning and Error lines always reach stderr immediately,
// bounding log volume from a busy worker pool without losing signal.
package zlog

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarning
	sevError
)

func (s severity) String() string {
	switch s {
	case sevWarning:
		return "W"
	case sevError:
		return "E"
	default:
		return "I"
	}
}

var (
	toStderr     bool
	alsoToStderr bool

	mu      sync.Mutex
	pending []string
)

// InitFlags registers -logtostderr and -alsologtostderr on flset, the
// way a cmd/ binary's flag.FlagSet is normally built.
func InitFlags(flset *flag.FlagSet) {
	flset.BoolVar(&toStderr, "logtostderr", false, "log to standard error instead of buffering Info lines")
	flset.BoolVar(&alsoToStderr, "alsologtostderr", false, "log to standard error in addition to buffering")
}

func Infof(format string, args ...any)    { output(sevInfo, 1, fmt.Sprintf(format, args...)) }
func Infoln(args ...any)                  { output(sevInfo, 1, fmt.Sprintln(args...)) }
func Warningf(format string, args ...any) { output(sevWarning, 1, fmt.Sprintf(format, args...)) }
func Warningln(args ...any)               { output(sevWarning, 1, fmt.Sprintln(args...)) }
func Errorf(format string, args ...any)   { output(sevError, 1, fmt.Sprintf(format, args...)) }
func Errorln(args ...any)                 { output(sevError, 1, fmt.Sprintln(args...)) }

// InfoDepth and ErrorDepth let a thin wrapper log with the caller's
// file:line rather than its own.
func InfoDepth(depth int, args ...any)  { output(sevInfo, depth+1, fmt.Sprintln(args...)) }
func ErrorDepth(depth int, args ...any) { output(sevError, depth+1, fmt.Sprintln(args...)) }

func output(sev severity, depth int, msg string) {
	line := formatLine(sev, depth+1, msg)
	switch {
	case toStderr:
		fmt.Fprint(os.Stderr, line)
	case alsoToStderr || sev >= sevWarning:
		fmt.Fprint(os.Stderr, line)
		buffer(line)
	default:
		buffer(line)
	}
}

func buffer(line string) {
	mu.Lock()
	pending = append(pending, line)
	mu.Unlock()
}

func formatLine(sev severity, depth int, msg string) string {
	_, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		file, line = "???", 0
	} else if i := strings.LastIndexByte(file, '/'); i >= 0 {
		file = file[i+1:]
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return fmt.Sprintf("%s%s %s:%d] %s", sev, time.Now().Format("0102 15:04:05.000000"), file, line, msg)
}

// Flush writes every buffered Info line to stderr and clears the buffer.
// A cmd/ binary typically calls this on a periodic tick and on shutdown.
func Flush() {
	mu.Lock()
	lines := pending
	pending = nil
	mu.Unlock()
	for _, l := range lines {
		fmt.Fprint(os.Stderr, l)
	}
}
