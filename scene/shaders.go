package scene

import "projection-engine/shader"

// Material shaders the host scene draws with. The flat pair exposes no
// eye-space position; the terrain pair does, tagged for capture derivation.

func flatVertex() *shader.Source {
	return &shader.Source{
		Stage:      shader.Vertex,
		Attributes: []shader.Attribute{{Name: "a_position", Type: "vec3", Location: 0}},
		Uniforms:   []shader.Uniform{{Name: shader.UniformModelViewProjection, Type: "mat4"}},
		Main:       "gl_Position = u_modelViewProjection * vec4(a_position, 1.0);",
	}
}

func flatFragment() *shader.Source {
	return &shader.Source{
		Stage:    shader.Fragment,
		Uniforms: []shader.Uniform{{Name: "u_color", Type: "vec4"}},
		Main:     "fragColor = u_color;",
	}
}

func terrainVertex() *shader.Source {
	return &shader.Source{
		Stage:      shader.Vertex,
		Attributes: []shader.Attribute{{Name: "a_position", Type: "vec3", Location: 0}},
		Uniforms: []shader.Uniform{
			{Name: shader.UniformModelView, Type: "mat4"},
			{Name: shader.UniformModelViewProjection, Type: "mat4"},
		},
		Varyings: []shader.Varying{
			{Name: "v_positionEC", Type: "vec3", Semantic: shader.SemanticPositionEC},
			{Name: "v_height", Type: "float"},
		},
		Main: `vec4 p = vec4(a_position, 1.0);
v_positionEC = (u_modelView * p).xyz;
v_height = a_position.y;
gl_Position = u_modelViewProjection * p;`,
	}
}

func terrainFragment() *shader.Source {
	return &shader.Source{
		Stage:    shader.Fragment,
		Uniforms: []shader.Uniform{{Name: "u_color", Type: "vec4"}},
		Varyings: []shader.Varying{
			{Name: "v_positionEC", Type: "vec3", Semantic: shader.SemanticPositionEC},
			{Name: "v_height", Type: "float"},
		},
		Main: `float shade = clamp(0.55 + v_height * 0.02, 0.3, 1.0);
float fog = clamp(length(v_positionEC) / 4000.0, 0.0, 0.6);
vec3 c = mix(u_color.rgb * shade, vec3(0.7, 0.75, 0.8), fog);
fragColor = vec4(c, u_color.a);`,
	}
}
