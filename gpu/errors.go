package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrFeedbackLoop is returned when a pass would sample the texture it renders into.
	ErrFeedbackLoop = errors.New("gpu: texture bound as both input and render target")
	// ErrSizeMismatch is returned when a pass mixes textures of different sizes.
	ErrSizeMismatch = errors.New("gpu: texture size does not match pass domain")
)

// Stage identifies one shader stage of a kernel program.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ShaderCompileError carries the driver diagnostic for a stage that failed to compile.
type ShaderCompileError struct {
	Program string
	Stage   Stage
	Log     string
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("gpu: compiling %s shader of %q: %s", e.Stage, e.Program, e.Log)
}

// ProgramLinkError carries the driver diagnostic for a program that failed to link.
type ProgramLinkError struct {
	Program string
	Log     string
}

func (e *ProgramLinkError) Error() string {
	return fmt.Sprintf("gpu: linking %q: %s", e.Program, e.Log)
}

// ResourceCreationError reports a texture, framebuffer or buffer the device could not create.
type ResourceCreationError struct {
	Resource string
	Size     int
	Reason   string
}

func (e *ResourceCreationError) Error() string {
	if e.Size > 0 {
		return fmt.Sprintf("gpu: creating %s (%dx%d): %s", e.Resource, e.Size, e.Size, e.Reason)
	}
	return fmt.Sprintf("gpu: creating %s: %s", e.Resource, e.Reason)
}

// RuntimeDeviceError reports a device fault detected while polling during steady state.
type RuntimeDeviceError struct {
	Detail string
}

func (e *RuntimeDeviceError) Error() string {
	return "gpu: device error: " + e.Detail
}
