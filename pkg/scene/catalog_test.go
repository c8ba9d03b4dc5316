package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/df07/lumen/pkg/core"
)

func TestTitleCase(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"cornell-empty", "Cornell Empty"},
		{"dragon_gold", "Dragon Gold"},
		{"veach-mis", "Veach Mis"},
		{"simple", "Simple"},
		{"UPPER-case", "Upper Case"},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if result := titleCase(tc.input); result != tc.expected {
				t.Errorf("titleCase(%q) = %q, want %q", tc.input, result, tc.expected)
			}
		})
	}
}

func TestBuiltinScenes(t *testing.T) {
	for _, info := range ListBuiltinScenes() {
		t.Run(info.ID, func(t *testing.T) {
			s, err := Resolve(info.ID, NewRegistry())
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if s.BVH == nil || s.LightSampler == nil {
				t.Fatal("scene was not preprocessed")
			}
			if len(s.Emitters) == 0 {
				t.Error("scene has no emitters")
			}
			if s.Sensor.SamplesPerPixel <= 0 {
				t.Error("scene has no sample budget")
			}
			if info.Type != "builtin" || info.Group != builtinGroup || info.Description == "" {
				t.Errorf("bad catalog entry %+v", info)
			}
		})
	}
}

func TestCornellCameraSeesLight(t *testing.T) {
	s := NewCornellScene()
	// a ray from the camera straight up through the light's footprint
	c := s.Sensor.Camera
	raster, ok := c.WorldToRaster(core.NewVec3(278, 554, 278))
	if !ok {
		t.Fatal("light center is outside the image")
	}
	ray := c.GenerateRay(raster)
	its, ok := s.Intersect(ray)
	if !ok {
		t.Fatal("ray missed the box")
	}
	if e, _ := s.Emitter(&its); e == nil {
		t.Errorf("expected to hit the ceiling light, hit shape %q", s.Shapes[its.ShapeID].Name)
	}
}

func TestListFileScenes(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"glossy-floor.json": `{"name": "Glossy Floor", "description": "A test", "group": "Tests", "sensor": {"type": "perspective"}}`,
		"plain.json":        `{"sensor": {"type": "perspective"}}`,
		"broken.json":       `{"name": `,
		"notes.txt":         `ignored`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	scenes, err := ListFileScenes(dir)
	if err != nil {
		t.Fatalf("ListFileScenes: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("got %d scenes, want 2: %+v", len(scenes), scenes)
	}
	if scenes[0].Name != "Glossy Floor" || scenes[0].Group != "Tests" || scenes[0].ID != "file:glossy-floor" {
		t.Errorf("scene 0 = %+v", scenes[0])
	}
	if scenes[1].Name != "Plain" || scenes[1].Group != "Scene Files" || scenes[1].Type != "file" {
		t.Errorf("scene 1 = %+v", scenes[1])
	}

	groups, err := ListAllScenes(dir)
	if err != nil {
		t.Fatalf("ListAllScenes: %v", err)
	}
	var names []string
	for _, g := range groups {
		names = append(names, g.Name)
	}
	want := []string{builtinGroup, "Scene Files", "Tests"}
	if len(names) != len(want) {
		t.Fatalf("groups = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("groups = %v, want %v", names, want)
			break
		}
	}

	if missing, err := ListFileScenes(filepath.Join(dir, "nope")); err != nil || missing != nil {
		t.Errorf("missing dir: %v, %v", missing, err)
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.json")
	doc := `{"name": "from-file", "sensor": {"type": "perspective", "width": 16, "height": 16},
		"shapes": [{"type": "sphere"}], "emitters": [{"type": "point", "position": [0, 0, 4], "intensity": 1}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Resolve(path, NewRegistry())
	if err != nil {
		t.Fatalf("Resolve(file): %v", err)
	}
	if s.Name != "from-file" {
		t.Errorf("name = %q", s.Name)
	}

	if _, err := Resolve("no-such-scene", NewRegistry()); !errors.Is(err, ErrUnknownType) {
		t.Errorf("Resolve(unknown) = %v, want ErrUnknownType", err)
	}
}
