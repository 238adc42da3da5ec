package gpu

import (
	"strings"
	"sync"
)

// Markers in driver log output that the device turns into errors.
const (
	glErrorPrefix     = "GL: Error detected"
	compileFailVertex = "Failed to compile vertex shader"
	compileFailFrag   = "Failed to compile fragment shader"
	linkFail          = "Failed to link shader program"
	compileErrorLog   = "Compile error:"
	linkErrorLog      = "Link error:"
)

// DriverLog records driver log lines. While a capture is open every line
// is kept so a shader failure can be reported with its diagnostic; GL
// error lines are always queued for the next poll. Safe for concurrent use.
type DriverLog struct {
	mu        sync.Mutex
	capturing bool
	captured  []string
	faults    []string
}

// Record stores one log line.
func (l *DriverLog) Record(msg string) {
	msg = strings.TrimSpace(msg)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.capturing {
		l.captured = append(l.captured, msg)
	}
	if strings.HasPrefix(msg, glErrorPrefix) {
		l.faults = append(l.faults, msg)
	}
}

// BeginCapture starts collecting lines, dropping any earlier capture.
func (l *DriverLog) BeginCapture() {
	l.mu.Lock()
	l.capturing = true
	l.captured = nil
	l.mu.Unlock()
}

// EndCapture stops collecting and returns the captured lines.
func (l *DriverLog) EndCapture() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.capturing = false
	out := l.captured
	l.captured = nil
	return out
}

// DrainFaults returns and clears the queued GL error lines.
func (l *DriverLog) DrainFaults() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.faults
	l.faults = nil
	return out
}

// ShaderLoadError classifies captured shader load output into a
// ShaderCompileError or ProgramLinkError. It returns nil if the lines
// carry no failure marker.
func ShaderLoadError(program string, lines []string) error {
	var (
		failed  bool
		linking bool
		stage   Stage
		detail  []string
	)
	for _, line := range lines {
		switch {
		case strings.Contains(line, compileFailVertex):
			failed, stage = true, StageVertex
		case strings.Contains(line, compileFailFrag):
			if !failed {
				failed, stage = true, StageFragment
			}
		case strings.Contains(line, linkFail):
			if !failed {
				failed, linking = true, true
			}
		}
		if i := strings.Index(line, compileErrorLog); i >= 0 {
			detail = append(detail, strings.TrimSpace(line[i+len(compileErrorLog):]))
		}
		if i := strings.Index(line, linkErrorLog); i >= 0 {
			detail = append(detail, strings.TrimSpace(line[i+len(linkErrorLog):]))
		}
	}
	if !failed {
		return nil
	}
	log := strings.Join(detail, "\n")
	if log == "" {
		log = "no driver diagnostic"
	}
	if linking {
		return &ProgramLinkError{Program: program, Log: log}
	}
	return &ShaderCompileError{Program: program, Stage: stage, Log: log}
}
