package scene

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/df07/lumen/pkg/sensor"
)

// Load decodes a JSON scene description and builds the scene it describes
func Load(r io.Reader, reg *Registry) (*Scene, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	desc, err := ParseDescription(data)
	if err != nil {
		return nil, err
	}
	return Build(desc, reg)
}

// LoadFile loads a scene from a JSON file
func LoadFile(path string, reg *Registry) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Load(f, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Build resolves a description into a preprocessed scene. All configuration
// errors surface here, before any rendering starts.
func Build(desc *Description, reg *Registry) (*Scene, error) {
	name := desc.Name
	if name == "" {
		name = "untitled"
	}
	s := NewScene(name)
	s.Seed = desc.Seed
	if desc.LightSampling != "" {
		s.LightStrategy = desc.LightSampling
	}
	b := &Builder{Registry: reg, Scene: s}

	if desc.Integrator != nil {
		s.Integrator = *desc.Integrator
	} else {
		s.Integrator = *NewPluginDescription("path", nil)
	}

	if desc.Sensor == nil {
		return nil, fmt.Errorf("sensor: %w", ErrMissingProperty)
	}
	if err := b.buildSensor(desc.Sensor); err != nil {
		return nil, err
	}

	for i, d := range desc.Materials {
		if d.ID == "" {
			return nil, fmt.Errorf("%s.id: %w", d.Properties.Path(), ErrMissingProperty)
		}
		if _, dup := s.MaterialIndex(d.ID); dup {
			return nil, fmt.Errorf("%s.id: %w: duplicate material %q", d.Properties.Path(), ErrInvalidProperty, d.ID)
		}
		bsdf, err := b.Material(d)
		if err != nil {
			return nil, err
		}
		s.AddMaterial(d.ID, bsdf)
		warnUnused(desc.Materials[i])
	}

	for i, d := range desc.Shapes {
		if err := b.buildShape(i, d); err != nil {
			return nil, err
		}
	}

	for _, d := range desc.Emitters {
		e, err := reg.CreateEmitter(d, nil)
		if err != nil {
			return nil, err
		}
		s.AddEmitter(e)
		warnUnused(d)
	}

	if err := s.Preprocess(); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *Builder) buildSensor(d *PluginDescription) error {
	if d.Type != "perspective" {
		return unknownType(d.Properties.Path(), "sensor", d.Type)
	}
	props := d.Properties

	center, err := props.Vec3("center", defaultCameraCenter)
	if err != nil {
		return err
	}
	lookAt, err := props.Vec3("lookAt", defaultCameraLookAt)
	if err != nil {
		return err
	}
	up, err := props.Vec3("up", defaultCameraUp)
	if err != nil {
		return err
	}
	if lookAt.Subtract(center).Cross(up).LengthSquared() == 0 {
		return props.invalid("up", "parallel to the view direction")
	}
	fov, err := props.PositiveFloat("fov", 40)
	if err != nil {
		return err
	}
	if fov >= 180 {
		return props.invalid("fov", "must be below 180 degrees, got %g", fov)
	}
	width, err := props.Int("width", 400)
	if err != nil {
		return err
	}
	height, err := props.Int("height", 300)
	if err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return props.invalid("width", "film size must be positive, got %dx%d", width, height)
	}
	spp, err := props.Int("spp", 16)
	if err != nil {
		return err
	}
	if spp <= 0 {
		return props.invalid("spp", "must be positive, got %d", spp)
	}
	filterDesc, err := props.Plugin("filter")
	if err != nil {
		return err
	}
	filter, err := b.Registry.CreateFilter(filterDesc)
	if err != nil {
		return err
	}
	if filterDesc != nil {
		warnUnused(filterDesc)
	}

	b.Scene.Sensor = Sensor{
		Camera: sensor.NewCamera(sensor.CameraConfig{
			Center: center, LookAt: lookAt, Up: up, VFov: fov, Width: width, Height: height,
		}),
		Filter:          filter,
		SamplesPerPixel: spp,
	}
	warnUnused(d)
	return nil
}

func (b *Builder) buildShape(i int, d *PluginDescription) error {
	props := d.Properties
	prims, err := b.Registry.CreateShape(d)
	if err != nil {
		return err
	}
	if len(prims) == 0 {
		return props.invalid("type", "shape has no geometry")
	}

	materialID := -1
	if props.Has("material") {
		bsdf, err := b.MaterialRef(props, "material")
		if err != nil {
			return err
		}
		materialID = b.Scene.indexOf(bsdf)
		if materialID < 0 {
			materialID = b.Scene.AddMaterial(fmt.Sprintf("%s.material", props.Path()), bsdf)
		}
	}

	name := d.ID
	if name == "" {
		name = fmt.Sprintf("%s-%d", d.Type, i)
	}
	shapeID := b.Scene.AddShape(name, prims, materialID)

	emitterDesc, err := props.Plugin("emitter")
	if err != nil {
		return err
	}
	if emitterDesc != nil {
		e, err := b.Registry.CreateEmitter(emitterDesc, prims)
		if err != nil {
			return err
		}
		if _, err := b.Scene.AttachEmitter(shapeID, e); err != nil {
			return fmt.Errorf("%s: %w", props.Path(), err)
		}
		warnUnused(emitterDesc)
	}
	warnUnused(d)
	return nil
}

func (s *Scene) indexOf(bsdf any) int {
	for i, m := range s.Materials {
		if any(m) == bsdf {
			return i
		}
	}
	return -1
}

// warnUnused reports properties that no factory looked at, which usually
// means a typo in the scene file
func warnUnused(d *PluginDescription) {
	if unused := d.Properties.Unused(); len(unused) > 0 {
		logger.Warningf("%s (%s): ignoring unknown properties %s", d.Properties.Path(), d.Type, strings.Join(unused, ", "))
	}
}
