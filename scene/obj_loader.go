package scene

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/core"
	"projection-engine/gpu"
)

// LoadModel loads a .obj, .gltf or .glb file by extension.
func LoadModel(path string) ([]*Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return LoadOBJ(path)
	case ".gltf", ".glb":
		return LoadGLTF(path)
	}
	return nil, fmt.Errorf("scene: unsupported model %q", path)
}

// LoadOBJ parses a Wavefront .obj file. Only positions and faces are read;
// an "mtllib" diffuse color (Kd, d) becomes the mesh color. Each o/g group
// is one mesh, and groups named "terrain*" are drawn in the globe pass.
func LoadOBJ(path string) ([]*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("obj open %q: %w", path, err)
	}
	defer f.Close()

	colors := func(lib string) map[string]core.Color {
		mtlPath := filepath.Join(filepath.Dir(path), lib)
		mtl, err := os.Open(mtlPath)
		if err != nil {
			slog.Warn("obj: material library unavailable", "path", mtlPath, "err", err)
			return nil
		}
		defer mtl.Close()
		out, err := parseMTL(mtl)
		if err != nil {
			slog.Warn("obj: material library unreadable", "path", mtlPath, "err", err)
		}
		return out
	}
	return parseOBJ(f, filepath.Base(path), colors)
}

type objGroup struct {
	name     string
	material string
	indices  []uint32
}

func parseOBJ(r io.Reader, fallbackName string, loadLib func(string) map[string]core.Color) ([]*Mesh, error) {
	var positions []mgl64.Vec3
	materials := make(map[string]core.Color)

	var groups []*objGroup
	cur := &objGroup{name: fallbackName}
	currentMaterial := ""

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Fields(text)

		switch parts[0] {
		case "v":
			if len(parts) < 4 {
				return nil, fmt.Errorf("obj line %d: vertex needs 3 coordinates", line)
			}
			var p mgl64.Vec3
			for i := range 3 {
				v, err := strconv.ParseFloat(parts[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", line, err)
				}
				p[i] = v
			}
			positions = append(positions, p)
		case "f":
			face := make([]uint32, 0, len(parts)-1)
			for _, ref := range parts[1:] {
				idx, err := objIndex(ref, len(positions))
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", line, err)
				}
				face = append(face, idx)
			}
			// Fan triangulation
			for i := 2; i < len(face); i++ {
				cur.indices = append(cur.indices, face[0], face[i-1], face[i])
			}
		case "o", "g":
			if len(cur.indices) > 0 {
				groups = append(groups, cur)
			}
			name := "unnamed"
			if len(parts) > 1 {
				name = parts[1]
			}
			cur = &objGroup{name: name, material: currentMaterial}
		case "usemtl":
			if len(parts) > 1 {
				currentMaterial = parts[1]
				cur.material = currentMaterial
			}
		case "mtllib":
			if len(parts) > 1 && loadLib != nil {
				for k, v := range loadLib(parts[1]) {
					materials[k] = v
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("obj read: %w", err)
	}
	if len(cur.indices) > 0 {
		groups = append(groups, cur)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("obj: no faces")
	}

	out := make([]*Mesh, 0, len(groups))
	for _, g := range groups {
		// Each mesh keeps only the vertices its faces reference.
		remap := make(map[uint32]uint32)
		var pos []mgl64.Vec3
		indices := make([]uint32, len(g.indices))
		for i, idx := range g.indices {
			n, ok := remap[idx]
			if !ok {
				n = uint32(len(pos))
				remap[idx] = n
				pos = append(pos, positions[idx])
			}
			indices[i] = n
		}
		m := CreateMeshFromData(g.name, pos, indices)
		if c, ok := materials[g.material]; ok {
			m.Color = c
			if c.A < 1 {
				m.Pass = gpu.PassTranslucent
			}
		}
		if strings.HasPrefix(g.name, "terrain") {
			m.Pass = gpu.PassGlobe
		}
		out = append(out, m)
	}
	return out, nil
}

// objIndex resolves a face reference ("7", "7/1", "7//3", "-1") to a zero
// based position index.
func objIndex(ref string, count int) (uint32, error) {
	head, _, _ := strings.Cut(ref, "/")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("face reference %q: %w", ref, err)
	}
	if n < 0 {
		n += count
	} else {
		n--
	}
	if n < 0 || n >= count {
		return 0, fmt.Errorf("face reference %q out of range (%d vertices)", ref, count)
	}
	return uint32(n), nil
}

// parseMTL reads the diffuse color and dissolve of each material.
func parseMTL(r io.Reader) (map[string]core.Color, error) {
	out := make(map[string]core.Color)
	current := ""
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 || strings.HasPrefix(parts[0], "#") {
			continue
		}
		switch parts[0] {
		case "newmtl":
			if len(parts) > 1 {
				current = parts[1]
				out[current] = core.ColorWhite
			}
		case "Kd":
			if current != "" && len(parts) >= 4 {
				c := out[current]
				c.R = parseChannel(parts[1])
				c.G = parseChannel(parts[2])
				c.B = parseChannel(parts[3])
				out[current] = c
			}
		case "d":
			if current != "" && len(parts) >= 2 {
				c := out[current]
				c.A = parseChannel(parts[1])
				out[current] = c
			}
		}
	}
	return out, scanner.Err()
}

func parseChannel(s string) float32 {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0
	}
	return float32(mgl64.Clamp(v, 0, 1))
}
