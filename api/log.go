package m64p

import "log"

// MsgLevel is the severity passed to debug callbacks.
type MsgLevel int32

const (
	MsgError MsgLevel = iota + 1
	MsgWarning
	MsgInfo
	MsgStatus
	MsgVerbose
)

// LogMessage writes a debug callback message the way the console front-end
// formats them. Verbose messages are dropped unless verbose is set.
func LogMessage(l *log.Logger, context string, level MsgLevel, msg string, verbose bool) {
	if l == nil {
		l = log.Default()
	}
	switch level {
	case MsgError:
		l.Printf("%s Error: %s", context, msg)
	case MsgWarning:
		l.Printf("%s Warning: %s", context, msg)
	case MsgInfo:
		l.Printf("%s: %s", context, msg)
	case MsgStatus:
		l.Printf("%s Status: %s", context, msg)
	case MsgVerbose:
		if verbose {
			l.Printf("%s: %s", context, msg)
		}
	default:
		l.Printf("%s Unknown: %s", context, msg)
	}
}
