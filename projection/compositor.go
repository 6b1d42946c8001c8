package projection

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/gpu"
	"projection-engine/postprocess"
	"projection-engine/shader"
)

// Compositor stage uniforms.
const (
	UniformProjectTexture               = "u_projectTexture"
	UniformDepthCameraTexture           = "u_depthCameraTexture"
	UniformToDepthCameraMatrix          = "u_toDepthCameraMatrix"
	UniformDepthCameraProjection        = "u_depthCameraProjectionMatrix"
	UniformDepthCameraProjectionInverse = "u_depthCameraProjectionMatrixInverse"
	UniformMainInverseProjection        = "u_mainInverseProjection"
	UniformXMin                         = "u_x_min"
	UniformXMax                         = "u_x_max"
	UniformYMin                         = "u_y_min"
	UniformYMax                         = "u_y_max"
	UniformXA                           = "u_x_a"
	UniformXB                           = "u_x_b"
	UniformYA                           = "u_y_a"
	UniformYB                           = "u_y_b"
)

const depthBias = 0.0005

// frameUniforms are the camera-derived compositor inputs, fixed once per
// frame after the capture pass.
type frameUniforms struct {
	// toCapture maps main eye space to capture eye space.
	toCapture         mgl64.Mat4
	captureProjection mgl64.Mat4
	captureInverse    mgl64.Mat4
	mainInverseProj   mgl64.Mat4
	far               float64
}

var screenDepthFunc = shader.Function{
	Returns: "vec2",
	Name:    "getScreenDepth",
	Params:  "vec4 packedDepth",
	Body: `float z = unpackDepth(packedDepth);
if (z > 0.0 && z < 1.0) {
    return vec2(2.0 * z - 1.0, 1.0);
}
return vec2(0.0);`,
}

var toEyeFunc = shader.Function{
	Returns: "vec4",
	Name:    "toEye",
	Params:  "vec2 uv, float depth",
	Body: fmt.Sprintf(`vec4 eye = %s * vec4(uv * 2.0 - 1.0, depth, 1.0);
return eye / eye.w;`, UniformMainInverseProjection),
}

const compositorMain = `vec4 color = texture(colorTexture, v_textureCoordinates);
vec2 screen = getScreenDepth(texture(depthTexture, v_textureCoordinates));
fragColor = color;
if (screen.y == 0.0) {
    return;
}
float depth = screen.x;

vec4 eye = toEye(v_textureCoordinates, depth);
float bias = 0.0005 * max(-eye.z * 0.01, 1.0);
vec4 captureEye = u_toDepthCameraMatrix * eye;
captureEye /= captureEye.w;
vec4 captured = u_depthCameraProjectionMatrix * captureEye;
captured /= captured.w;
captured.xyz = captured.xyz * 0.5 + 0.5;

if (captured.x > u_x_min && captured.x < u_x_max &&
    captured.y > u_y_min && captured.y < u_y_max &&
    captured.z > 0.0 && captured.z < 1.0) {
    float stored = unpackDepth(texture(u_depthCameraTexture, captured.xy));
    if (stored > length(captureEye.xyz) / u_far - bias) {
        fragColor = texture(u_projectTexture, vec2(u_x_a * captured.x + u_x_b, u_y_a * captured.y + u_y_b));
    }
}`

// compositorSource is the full-screen fragment program of the stage.
func compositorSource() *shader.Source {
	src := &shader.Source{
		Stage: shader.Fragment,
		Uniforms: []shader.Uniform{
			{Name: postprocess.ColorTexture, Type: "sampler2D"},
			{Name: postprocess.DepthTexture, Type: "sampler2D"},
			{Name: UniformProjectTexture, Type: "sampler2D"},
			{Name: UniformDepthCameraTexture, Type: "sampler2D"},
			{Name: UniformToDepthCameraMatrix, Type: "mat4"},
			{Name: UniformDepthCameraProjection, Type: "mat4"},
			{Name: UniformDepthCameraProjectionInverse, Type: "mat4"},
			{Name: UniformMainInverseProjection, Type: "mat4"},
			{Name: shader.FarUniform, Type: "float"},
		},
		Varyings:  []shader.Varying{{Name: postprocess.TexCoord, Type: "vec2"}},
		Functions: []shader.Function{shader.UnpackDepthFunc, screenDepthFunc, toEyeFunc},
		Main:      compositorMain,
	}
	for _, name := range []string{UniformXMin, UniformXMax, UniformYMin, UniformYMax, UniformXA, UniformXB, UniformYA, UniformYB} {
		src.Uniforms = append(src.Uniforms, shader.Uniform{Name: name, Type: "float"})
	}
	return src
}

// newCompositorStage builds the stage for p. It starts disabled.
func newCompositorStage(p *Projector) *postprocess.Stage {
	return &postprocess.Stage{
		Name:           "projection-" + p.id.String(),
		FragmentShader: compositorSource().GLSL(),
		Uniforms: gpu.UniformMap{
			UniformProjectTexture:               func() any { return p.video.Texture() },
			UniformDepthCameraTexture:           func() any { return p.capture.Texture() },
			UniformToDepthCameraMatrix:          func() any { return p.uniforms.toCapture },
			UniformDepthCameraProjection:        func() any { return p.uniforms.captureProjection },
			UniformDepthCameraProjectionInverse: func() any { return p.uniforms.captureInverse },
			UniformMainInverseProjection:        func() any { return p.uniforms.mainInverseProj },
			shader.FarUniform:                   func() any { return p.uniforms.far },
			UniformXMin:                         func() any { return p.lens.XMin },
			UniformXMax:                         func() any { return p.lens.XMax },
			UniformYMin:                         func() any { return p.lens.YMin },
			UniformYMax:                         func() any { return p.lens.YMax },
			UniformXA:                           func() any { return p.lens.XA },
			UniformXB:                           func() any { return p.lens.XB },
			UniformYA:                           func() any { return p.lens.YA },
			UniformYB:                           func() any { return p.lens.YB },
		},
		Reference: p.composite,
	}
}

// screenDepth unpacks a main depth sample to NDC z. ok is false for the sky,
// where nothing was drawn (depth 0 or 1).
func screenDepth(packed [4]float64) (ndcZ float64, ok bool) {
	z := shader.UnpackDepth(packed)
	if z > 0 && z < 1 {
		return 2*z - 1, true
	}
	return 0, false
}

// reprojection is where a main-view pixel lands in the capture camera.
type reprojection struct {
	eye        mgl64.Vec4 // main eye space
	captureEye mgl64.Vec4 // capture eye space
	uvz        mgl64.Vec3 // capture window coordinates in [0,1]
}

func reproject(u *frameUniforms, uv mgl64.Vec2, depth float64) reprojection {
	ndc := mgl64.Vec4{uv[0]*2 - 1, uv[1]*2 - 1, depth, 1}
	eye := u.mainInverseProj.Mul4x1(ndc)
	eye = eye.Mul(1 / eye[3])
	capEye := u.toCapture.Mul4x1(eye)
	capEye = capEye.Mul(1 / capEye[3])
	clip := u.captureProjection.Mul4x1(capEye)
	ndcCap := clip.Vec3().Mul(1 / clip[3])
	return reprojection{
		eye:        eye,
		captureEye: capEye,
		uvz:        mgl64.Vec3{ndcCap[0]*0.5 + 0.5, ndcCap[1]*0.5 + 0.5, ndcCap[2]*0.5 + 0.5},
	}
}

// composite evaluates the stage on the CPU. Hosts whose textures are not
// readable get the scene color back unchanged.
func (p *Projector) composite(in postprocess.Fragment) [4]float32 {
	depth, ok := screenDepth(toFloat64(in.Depth))
	if !ok {
		return in.Color
	}
	captured, ok1 := p.capture.Texture().(gpu.HostTexture)
	frame, ok2 := p.video.Texture().(gpu.HostTexture)
	if !ok1 || !ok2 {
		return in.Color
	}

	r := reproject(&p.uniforms, in.UV, depth)
	bias := depthBias * max(-r.eye[2]*0.01, 1)
	if !p.lens.Contains(r.uvz[0], r.uvz[1]) || !(r.uvz[2] > 0 && r.uvz[2] < 1) {
		return in.Color
	}
	stored := shader.UnpackDepth(toFloat64(captured.Sample(r.uvz[0], r.uvz[1])))
	if !(stored > r.captureEye.Vec3().Len()/p.uniforms.far-bias) {
		return in.Color
	}
	return frame.Sample(p.lens.Remap(r.uvz[0], r.uvz[1]))
}

func toFloat64(v [4]float32) [4]float64 {
	return [4]float64{float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3])}
}
