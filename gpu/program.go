package gpu

import (
	"fmt"
	"log/slog"
	"slices"
)

// Samples gives a texel kernel read access to the inputs bound for the current pass.
type Samples interface {
	// Fetch returns the texel at (x, y) of the texture bound to slot.
	// Unbound slots read as zero.
	Fetch(slot string, x, y int) Texel
}

// TexelFunc is a host-side rendition of a per-texel state kernel, used by
// devices that cannot execute GLSL.
type TexelFunc func(in Samples, x, y int) Texel

// Source is an injected kernel. The engine never inspects its contents;
// devices pick the representation they can execute.
type Source struct {
	Name     string
	Vertex   string
	Fragment string

	Texel TexelFunc
	// Reads lists the slots Texel samples. Declared inputs missing from
	// Reads resolve to -1, as a linker drops unused uniforms. Nil means
	// every declared input is live.
	Reads []string
}

// Program is a compiled and linked kernel with its named slots resolved.
type Program struct {
	Name   string
	ID     uint32
	Source Source

	inputs  map[string]int32
	outputs map[string]int32
	warned  map[string]bool
}

// Build compiles src on dev and resolves every declared input and output.
// Outputs are colour attachments and resolve in declaration order.
func Build(dev Compiler, src Source, inputs, outputs []string) (*Program, error) {
	id, err := dev.Compile(src)
	if err != nil {
		return nil, err
	}

	p := &Program{
		Name:    src.Name,
		ID:      id,
		Source:  src,
		inputs:  make(map[string]int32, len(inputs)),
		outputs: make(map[string]int32, len(outputs)),
		warned:  make(map[string]bool),
	}
	for _, name := range inputs {
		if _, dup := p.inputs[name]; dup {
			dev.ReleaseProgram(id)
			return nil, fmt.Errorf("program %q: input %q declared twice", src.Name, name)
		}
		p.inputs[name] = dev.Location(id, name)
	}
	for i, name := range outputs {
		if _, dup := p.outputs[name]; dup {
			dev.ReleaseProgram(id)
			return nil, fmt.Errorf("program %q: output %q declared twice", src.Name, name)
		}
		p.outputs[name] = int32(i)
	}
	return p, nil
}

// Input returns the location of a declared input slot, -1 if the linker
// removed it. An undeclared name is a programming error and panics.
func (p *Program) Input(name string) int32 {
	loc, ok := p.inputs[name]
	if !ok {
		panic(fmt.Sprintf("gpu: program %q has no declared input %q", p.Name, name))
	}
	return loc
}

// Output returns the location of a declared output slot. Panics on an undeclared name.
func (p *Program) Output(name string) int32 {
	loc, ok := p.outputs[name]
	if !ok {
		panic(fmt.Sprintf("gpu: program %q has no declared output %q", p.Name, name))
	}
	return loc
}

// Inputs returns the declared input names in sorted order.
func (p *Program) Inputs() []string {
	names := make([]string, 0, len(p.inputs))
	for name := range p.inputs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve maps bindings to device inputs. Bindings to slots the linker
// removed are dropped with a one-time warning.
func (p *Program) Resolve(bindings []Binding) []Input {
	out := make([]Input, 0, len(bindings))
	for _, b := range bindings {
		loc := p.Input(b.Slot)
		if loc < 0 {
			if !p.warned[b.Slot] {
				p.warned[b.Slot] = true
				slog.Warn("kernel input unused by linked program", "program", p.Name, "slot", b.Slot)
			}
			continue
		}
		out = append(out, Input{Location: loc, Texture: b.Texture})
	}
	return out
}

// Release frees the device program.
func (p *Program) Release(dev Compiler) {
	dev.ReleaseProgram(p.ID)
}
