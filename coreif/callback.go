package coreif

import (
	"log"
	"sync"

	"github.com/ebitengine/purego"
	m64p "github.com/user-none/m64ui/api"
)

// MessageFunc receives debug messages after they have been logged.
type MessageFunc func(context string, level m64p.MsgLevel, msg string)

// StateFunc receives core state change notifications.
type StateFunc func(param m64p.CoreParam, value int)

// sink is the Go side of one C callback context.
type sink struct {
	name      string
	logger    *log.Logger
	verbose   bool
	onMessage MessageFunc
	onState   StateFunc
}

// C callbacks cannot be freed, so the two trampolines are created once and
// dispatch on the context value the core hands back. Windows callbacks must
// take and return uintptr-sized values; the C int arguments are truncated
// on the Go side.
var (
	trampolineOnce sync.Once
	debugCallback  uintptr
	stateCallback  uintptr

	sinksMu sync.RWMutex
	sinks   = map[uintptr]*sink{}
	nextID  uintptr
)

func trampolines() (debug, state uintptr) {
	trampolineOnce.Do(func() {
		debugCallback = purego.NewCallback(debugTrampoline)
		stateCallback = purego.NewCallback(stateTrampoline)
	})
	return debugCallback, stateCallback
}

func registerSink(s *sink) uintptr {
	sinksMu.Lock()
	defer sinksMu.Unlock()
	nextID++
	sinks[nextID] = s
	return nextID
}

func unregisterSink(id uintptr) {
	sinksMu.Lock()
	delete(sinks, id)
	sinksMu.Unlock()
}

func lookupSink(id uintptr) *sink {
	sinksMu.RLock()
	defer sinksMu.RUnlock()
	return sinks[id]
}

func debugTrampoline(ctx, level, msg uintptr) uintptr {
	s := lookupSink(ctx)
	if s == nil {
		return 0
	}
	s.message(m64p.MsgLevel(cInt(level)), goString(msg))
	return 0
}

func stateTrampoline(ctx, param, value uintptr) uintptr {
	s := lookupSink(ctx)
	if s == nil || s.onState == nil {
		return 0
	}
	s.onState(m64p.CoreParam(cInt(param)), int(cInt(value)))
	return 0
}

// cInt keeps the low 32 bits of a register holding a C int.
func cInt(v uintptr) int32 {
	return int32(uint32(v))
}

func (s *sink) message(level m64p.MsgLevel, msg string) {
	m64p.LogMessage(s.logger, s.name, level, msg, s.verbose)
	if s.onMessage != nil {
		s.onMessage(s.name, level, msg)
	}
}
