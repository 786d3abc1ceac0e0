package task

import (
	"fmt"

	"github.com/mwantia/xila/data"
)

// Signal is delivered cooperatively: the target task examines its queue when
// it next checks.
type Signal uint8

const (
	SignalHangup Signal = iota + 1
	SignalInterrupt
	SignalQuit
	SignalIllegal
	SignalTrap
	SignalAbort
	SignalBusError
	SignalFpException
	SignalKill
	SignalUser1
	SignalSegmentationFault
	SignalUser2
	SignalBrokenPipe
	SignalAlarm
	SignalTerminate
	SignalStackFault
	SignalChildExited
	SignalContinue
	SignalStop
	SignalTerminalStop
	SignalTerminalInput
	SignalTerminalOutput
	SignalUrgent
	SignalCpuLimit
	SignalFileSizeLimit
	SignalVirtualAlarm
	SignalProfiling
	SignalWindowChanged
	SignalIo
	SignalPower
	SignalSystemCall
)

var signalNames = map[Signal]string{
	SignalHangup:            "hangup",
	SignalInterrupt:         "interrupt",
	SignalQuit:              "quit",
	SignalIllegal:           "illegal",
	SignalTrap:              "trap",
	SignalAbort:             "abort",
	SignalBusError:          "bus-error",
	SignalFpException:       "fp-exception",
	SignalKill:              "kill",
	SignalUser1:             "user1",
	SignalSegmentationFault: "segmentation-fault",
	SignalUser2:             "user2",
	SignalBrokenPipe:        "broken-pipe",
	SignalAlarm:             "alarm",
	SignalTerminate:         "terminate",
	SignalStackFault:        "stack-fault",
	SignalChildExited:       "child-exited",
	SignalContinue:          "continue",
	SignalStop:              "stop",
	SignalTerminalStop:      "terminal-stop",
	SignalTerminalInput:     "terminal-input",
	SignalTerminalOutput:    "terminal-output",
	SignalUrgent:            "urgent",
	SignalCpuLimit:          "cpu-limit",
	SignalFileSizeLimit:     "file-size-limit",
	SignalVirtualAlarm:      "virtual-alarm",
	SignalProfiling:         "profiling",
	SignalWindowChanged:     "window-changed",
	SignalIo:                "io",
	SignalPower:             "power",
	SignalSystemCall:        "system-call",
}

func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}
	return fmt.Sprintf("signal(%d)", uint8(s))
}

func (s Signal) IsValid() bool {
	_, ok := signalNames[s]
	return ok
}

// ParseSignal accepts the names returned by String.
func ParseSignal(name string) (Signal, bool) {
	for signal, candidate := range signalNames {
		if candidate == name {
			return signal, true
		}
	}
	return 0, false
}

// SendSignal appends signal to the queue of the target task. A kill also
// cancels the context the task body runs with.
func (m *Manager) SendSignal(identifier data.TaskIdentifier, signal Signal) error {
	if !signal.IsValid() {
		return data.ErrInvalidParameter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return err
	}

	t.signals = append(t.signals, signal)
	if signal == SignalKill && t.cancel != nil {
		t.cancel()
	}

	m.log.Debug("sent signal %s to task %d", signal, identifier)
	return nil
}

// PeekSignal returns the oldest pending signal without removing it.
func (m *Manager) PeekSignal(identifier data.TaskIdentifier) (Signal, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return 0, false, err
	}
	if len(t.signals) == 0 {
		return 0, false, nil
	}
	return t.signals[0], true, nil
}

// PopSignal removes and returns the oldest pending signal.
func (m *Manager) PopSignal(identifier data.TaskIdentifier) (Signal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return 0, false, err
	}
	if len(t.signals) == 0 {
		return 0, false, nil
	}

	signal := t.signals[0]
	t.signals = t.signals[1:]
	return signal, true, nil
}
