package shader

import (
	"errors"
	"fmt"
)

const (
	// PositionVaryingName is the eye-space position varying added when a
	// source does not already expose one.
	PositionVaryingName = "v_positionEC"
	// WrappedMainName is the function the original entry point body moves into
	// when a rule needs to run code after it.
	WrappedMainName = "projection_cast_main"
	// FarUniform holds the capture camera far distance.
	FarUniform = "u_far"

	DefineDepthCapture     = "DEPTH_CAPTURE"
	DefineGeneratePosition = "GENERATE_POSITION"
)

var (
	// ErrStage is returned when a rule is applied to a stage it does not support.
	ErrStage = errors.New("rule does not apply to this stage")
	// ErrAlreadyWrapped is returned when the entry point was already moved into
	// WrappedMainName by an earlier derivation.
	ErrAlreadyWrapped = errors.New("entry point already wrapped")
)

// Rule is one composition step of a variant. The set of rules is closed.
type Rule interface {
	Name() string
	apply(s *Source) error
}

// RequirePositionVarying guarantees an eye-space position varying. A vertex
// stage without one gets its entry point wrapped and the position recovered
// from gl_Position through the inverse projection. That recovery is exact only
// when nothing after the projection displaces the vertex.
type RequirePositionVarying struct{}

// GeneratePosition asks the stage to generate positions it would otherwise
// not expose (terrain pipelines).
type GeneratePosition struct{}

// DepthCapture turns a stage into a packed linear depth writer. On the
// fragment stage an opaque source loses its original logic; a translucent one
// runs it first and discards fully transparent fragments.
type DepthCapture struct {
	Translucent bool
}

func (RequirePositionVarying) Name() string { return "require-position-varying" }
func (GeneratePosition) Name() string       { return "generate-position" }

func (r DepthCapture) Name() string {
	if r.Translucent {
		return "depth-capture-translucent"
	}
	return "depth-capture-opaque"
}

func (RequirePositionVarying) apply(s *Source) error {
	if _, ok := s.PositionVarying(); ok {
		return nil
	}
	s.Varyings = append(s.Varyings, Varying{Name: PositionVaryingName, Type: "vec3", Semantic: SemanticPositionEC})
	if s.Stage != Vertex {
		return nil
	}
	if err := wrapMain(s); err != nil {
		return err
	}
	s.addUniform(UniformInverseProjection, "mat4")
	s.Main = fmt.Sprintf("%s();\n%s = (%s * gl_Position).xyz;\n",
		WrappedMainName, PositionVaryingName, UniformInverseProjection)
	return nil
}

func (GeneratePosition) apply(s *Source) error {
	s.addDefine(DefineGeneratePosition)
	return nil
}

func (r DepthCapture) apply(s *Source) error {
	s.addDefine(DefineDepthCapture)
	if s.Stage == Vertex {
		if r.Translucent {
			return fmt.Errorf("%w: translucency is a fragment concern", ErrStage)
		}
		return RequirePositionVarying{}.apply(s)
	}

	pos, ok := s.PositionVarying()
	if !ok {
		pos = PositionVaryingName
		s.Varyings = append(s.Varyings, Varying{Name: pos, Type: "vec3", Semantic: SemanticPositionEC})
	}
	s.addUniform(FarUniform, "float")
	s.addFunction(PackDepthFunc)

	out := s.OutputName()
	var body string
	if r.Translucent {
		if err := wrapMain(s); err != nil {
			return err
		}
		body = fmt.Sprintf("%s();\nif (%s.a == 0.0) {\n    discard;\n}\n", WrappedMainName, out)
	}
	body += fmt.Sprintf("float distance = length(%s);\nif (distance >= %s) {\n    discard;\n}\n%s = %s(distance / %s);\n",
		pos, FarUniform, out, PackDepthFunc.Name, FarUniform)
	s.Main = body
	return nil
}

func wrapMain(s *Source) error {
	if s.HasFunction(WrappedMainName) {
		return ErrAlreadyWrapped
	}
	s.Functions = append(s.Functions, Function{Returns: "void", Name: WrappedMainName, Body: s.Main})
	s.Main = ""
	return nil
}

// Derive returns a copy of src with rules applied in order. src is not modified.
func Derive(src *Source, rules ...Rule) (*Source, error) {
	if src == nil {
		return nil, errors.New("shader: nil source")
	}
	out := src.Clone()
	for _, r := range rules {
		if err := r.apply(out); err != nil {
			return nil, fmt.Errorf("shader: %s on %s stage: %w", r.Name(), out.Stage, err)
		}
		out.Rules = append(out.Rules, r)
	}
	return out, nil
}

// Lookup reports whether a rule of type R produced s, returning the first one.
func Lookup[R Rule](s *Source) (R, bool) {
	for _, r := range s.Rules {
		if v, ok := r.(R); ok {
			return v, true
		}
	}
	var zero R
	return zero, false
}
