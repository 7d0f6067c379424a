package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/geometry"
	"github.com/df07/go-restir-passes/pkg/loaders"
	"github.com/df07/go-restir-passes/pkg/material"
)

var ErrUnknownScene = errors.New("scene: unknown scene")

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier passed to Load
	DisplayName string `json:"displayName"` // UI display name
	Type        string `json:"type"`        // "builtin" or "ply"
	FilePath    string `json:"filePath"`    // Path to PLY file (ply type only)
}

var builtins = map[string]func() *Scene{
	"cornell":     NewCornellScene,
	"default":     NewDefaultScene,
	"many-lights": NewManyLightsScene,
}

// ListScenes returns the built-in scenes followed by PLY meshes found in dir.
// A missing dir is not an error.
func ListScenes(dir string) ([]SceneInfo, error) {
	var scenes []SceneInfo
	for id := range builtins {
		scenes = append(scenes, SceneInfo{ID: id, DisplayName: titleCase(id), Type: "builtin"})
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].ID < scenes[j].ID })

	if dir == "" {
		return scenes, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return scenes, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.ply"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenes directory: %w", err)
	}
	sort.Strings(files)
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		scenes = append(scenes, SceneInfo{
			ID:          "ply:" + file,
			DisplayName: titleCase(name),
			Type:        "ply",
			FilePath:    file,
		})
	}
	return scenes, nil
}

// Load creates the scene named by id and preprocesses it. Ids are either a
// built-in name or "ply:<path>".
func Load(id string) (*Scene, error) {
	var s *Scene
	if path, ok := strings.CutPrefix(id, "ply:"); ok {
		var err error
		if s, err = NewPLYScene(path); err != nil {
			return nil, err
		}
	} else {
		ctor, ok := builtins[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScene, id)
		}
		s = ctor()
	}
	if err := s.Preprocess(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPLYScene places a PLY mesh on a ground plane under two area lights.
// The mesh is scaled to unit height and centered at the origin.
func NewPLYScene(path string) (*Scene, error) {
	data, err := loaders.LoadPLY(path)
	if err != nil {
		return nil, err
	}

	var mat material.Material = material.NewPlastic(core.NewVec3(0.7, 0.6, 0.5), 0.35)
	hasUV := len(data.TexCoords) == len(data.Vertices)
	if tex := siblingTexture(path); tex != "" && hasUV {
		img, err := loaders.LoadImageTexture(tex)
		if err != nil {
			return nil, err
		}
		mat = material.NewTexturedLambertian(img)
	}

	mesh, err := geometry.NewMesh(filepath.Base(path), data.Vertices, data.Faces, mat)
	if err != nil {
		return nil, err
	}
	if len(data.Normals) == len(data.Vertices) {
		mesh.Normals = data.Normals
	}
	if hasUV {
		mesh.TexCoords = data.TexCoords
	}
	fitToUnitHeight(mesh)

	s := New(titleCase(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))), geometry.NewCamera(geometry.CameraConfig{
		Center: core.NewVec3(0, 1, 3),
		LookAt: core.NewVec3(0, 0.5, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   40,
	}))
	s.AddMesh(geometry.NewQuadMesh("ground", core.NewVec3(-5, 0, -5), core.NewVec3(0, 0, 10), core.NewVec3(10, 0, 0),
		material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))))
	s.AddMesh(mesh)
	s.AddQuadLight("key", core.NewVec3(-1.5, 3, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1), core.NewVec3(10, 9, 8))
	s.AddQuadLight("fill", core.NewVec3(1, 2, 1), core.NewVec3(0.6, 0, 0), core.NewVec3(0, 0, 0.6), core.NewVec3(3, 4, 6))
	return s, nil
}

// siblingTexture returns an image next to the mesh with the same base name, if any
func siblingTexture(meshPath string) string {
	base := strings.TrimSuffix(meshPath, filepath.Ext(meshPath))
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".tif", ".tiff"} {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext
		}
	}
	return ""
}

func fitToUnitHeight(mesh *geometry.Mesh) {
	box := mesh.BoundingBox()
	size := box.Size()
	if size.Y <= 0 {
		return
	}
	scale := 1 / size.Y
	center := box.Center()
	for i, p := range mesh.Positions {
		mesh.Positions[i] = core.NewVec3(
			(p.X-center.X)*scale,
			(p.Y-box.Min.Y)*scale,
			(p.Z-center.Z)*scale,
		)
	}
}

func titleCase(s string) string {
	// Replace hyphens and underscores with spaces
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	// Title case each word
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}
