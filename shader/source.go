// Package shader describes GLSL programs as structured sources instead of raw
// text, so variants can be derived by rules rather than string surgery.
package shader

import (
	"fmt"
	"slices"
	"strings"
)

// Stage is the pipeline stage a Source compiles for.
type Stage int

const (
	Vertex Stage = iota
	Fragment
)

func (s Stage) String() string {
	if s == Vertex {
		return "vertex"
	}
	return "fragment"
}

// Semantic tags a varying with a meaning rules can look for.
type Semantic int

const (
	SemanticNone Semantic = iota
	// SemanticPositionEC marks a vec3 eye-space position.
	SemanticPositionEC
)

// Built-in uniforms a backend resolves from the pass camera and the command's
// model matrix.
const (
	UniformModelView           = "u_modelView"
	UniformModelViewProjection = "u_modelViewProjection"
	UniformProjection          = "u_projection"
	UniformInverseProjection   = "u_inverseProjection"
	UniformView                = "u_view"
)

const (
	// DefaultVersion is emitted when Source.Version is empty.
	DefaultVersion = "410 core"
	// DefaultOutput is the fragment color output used when Source.Output is empty.
	DefaultOutput = "fragColor"
)

type Attribute struct {
	Name     string
	Type     string
	Location int
}

type Uniform struct {
	Name string
	Type string
}

type Varying struct {
	Name     string
	Type     string
	Semantic Semantic
}

// Function is a helper emitted before main. Params is the raw parameter list.
type Function struct {
	Returns string
	Name    string
	Params  string
	Body    string
}

// Source is one stage of a program.
type Source struct {
	Stage        Stage
	Version      string
	Defines      []string
	Attributes   []Attribute
	Uniforms     []Uniform
	Varyings     []Varying
	Declarations []string // constants and structs, emitted verbatim
	Output       string   // fragment color output; DefaultOutput when empty
	Functions    []Function
	Main         string // body of the entry point

	// Rules lists the composition rules that produced this source, in order.
	Rules []Rule
}

// Clone returns a deep copy of s.
func (s *Source) Clone() *Source {
	c := *s
	c.Defines = slices.Clone(s.Defines)
	c.Attributes = slices.Clone(s.Attributes)
	c.Uniforms = slices.Clone(s.Uniforms)
	c.Varyings = slices.Clone(s.Varyings)
	c.Declarations = slices.Clone(s.Declarations)
	c.Functions = slices.Clone(s.Functions)
	c.Rules = slices.Clone(s.Rules)
	return &c
}

// PositionVarying returns the name of the varying tagged SemanticPositionEC.
func (s *Source) PositionVarying() (string, bool) {
	for _, v := range s.Varyings {
		if v.Semantic == SemanticPositionEC {
			return v.Name, true
		}
	}
	return "", false
}

// OutputName returns the fragment color output.
func (s *Source) OutputName() string {
	if s.Output == "" {
		return DefaultOutput
	}
	return s.Output
}

func (s *Source) HasDefine(name string) bool {
	return slices.Contains(s.Defines, name)
}

func (s *Source) HasFunction(name string) bool {
	return slices.ContainsFunc(s.Functions, func(f Function) bool { return f.Name == name })
}

func (s *Source) HasUniform(name string) bool {
	return slices.ContainsFunc(s.Uniforms, func(u Uniform) bool { return u.Name == name })
}

func (s *Source) addDefine(name string) {
	if !s.HasDefine(name) {
		s.Defines = append(s.Defines, name)
	}
}

func (s *Source) addUniform(name, typ string) {
	if !s.HasUniform(name) {
		s.Uniforms = append(s.Uniforms, Uniform{Name: name, Type: typ})
	}
}

func (s *Source) addFunction(f Function) {
	if !s.HasFunction(f.Name) {
		s.Functions = append(s.Functions, f)
	}
}

// GLSL renders the source as GLSL text.
func (s *Source) GLSL() string {
	var b strings.Builder

	version := s.Version
	if version == "" {
		version = DefaultVersion
	}
	fmt.Fprintf(&b, "#version %s\n", version)
	for _, d := range s.Defines {
		fmt.Fprintf(&b, "#define %s\n", d)
	}
	if s.Stage == Vertex {
		for _, a := range s.Attributes {
			fmt.Fprintf(&b, "layout(location = %d) in %s %s;\n", a.Location, a.Type, a.Name)
		}
	}
	for _, u := range s.Uniforms {
		fmt.Fprintf(&b, "uniform %s %s;\n", u.Type, u.Name)
	}
	qualifier := "out"
	if s.Stage == Fragment {
		qualifier = "in"
	}
	for _, v := range s.Varyings {
		fmt.Fprintf(&b, "%s %s %s;\n", qualifier, v.Type, v.Name)
	}
	if s.Stage == Fragment {
		fmt.Fprintf(&b, "out vec4 %s;\n", s.OutputName())
	}
	for _, d := range s.Declarations {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	for _, f := range s.Functions {
		fmt.Fprintf(&b, "%s %s(%s) {\n%s}\n", f.Returns, f.Name, f.Params, indent(f.Body))
	}
	fmt.Fprintf(&b, "void main() {\n%s}\n", indent(s.Main))
	return b.String()
}

func indent(body string) string {
	body = strings.TrimRight(body, "\n")
	if body == "" {
		return ""
	}
	var b strings.Builder
	for _, line := range strings.Split(body, "\n") {
		if line != "" {
			b.WriteString("    ")
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
