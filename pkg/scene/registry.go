package scene

import (
	"fmt"
	"math"
	"sort"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/geometry"
	"github.com/df07/lumen/pkg/lights"
	"github.com/df07/lumen/pkg/material"
	"github.com/df07/lumen/pkg/sensor"
)

// Factories turn property sets into scene objects
type (
	MaterialFactory func(b *Builder, props *Properties) (material.BSDF, error)
	TextureFactory  func(props *Properties) (material.ColorSource, error)
	ShapeFactory    func(props *Properties) ([]geometry.Primitive, error)
	// EmitterFactory receives the primitives of the owning shape, or nil
	// for emitters declared on their own
	EmitterFactory func(props *Properties, shape []geometry.Primitive) (lights.Emitter, error)
	FilterFactory  func(props *Properties) (sensor.Filter, error)
)

// Registry maps type names to factories. It is built once at start-up and
// passed to the loader.
type Registry struct {
	materials map[string]MaterialFactory
	textures  map[string]TextureFactory
	shapes    map[string]ShapeFactory
	emitters  map[string]EmitterFactory
	filters   map[string]FilterFactory
}

// NewRegistry creates a registry holding all built-in types
func NewRegistry() *Registry {
	r := &Registry{
		materials: map[string]MaterialFactory{},
		textures:  map[string]TextureFactory{},
		shapes:    map[string]ShapeFactory{},
		emitters:  map[string]EmitterFactory{},
		filters:   map[string]FilterFactory{},
	}
	registerMaterials(r)
	registerShapes(r)
	registerEmitters(r)
	registerFilters(r)
	return r
}

func (r *Registry) RegisterMaterial(name string, f MaterialFactory) { r.materials[name] = f }
func (r *Registry) RegisterTexture(name string, f TextureFactory)   { r.textures[name] = f }
func (r *Registry) RegisterShape(name string, f ShapeFactory)       { r.shapes[name] = f }
func (r *Registry) RegisterEmitter(name string, f EmitterFactory)   { r.emitters[name] = f }
func (r *Registry) RegisterFilter(name string, f FilterFactory)     { r.filters[name] = f }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Names lists the registered type names per category
func (r *Registry) Names() map[string][]string {
	return map[string][]string{
		"material": sortedKeys(r.materials),
		"texture":  sortedKeys(r.textures),
		"shape":    sortedKeys(r.shapes),
		"emitter":  sortedKeys(r.emitters),
		"filter":   sortedKeys(r.filters),
	}
}

func unknownType(path, category, name string) error {
	return fmt.Errorf("%s: %w: %s %q", path, ErrUnknownType, category, name)
}

// CreateFilter builds a reconstruction filter; nil selects the default box
func (r *Registry) CreateFilter(d *PluginDescription) (sensor.Filter, error) {
	if d == nil {
		return sensor.NewBoxFilter(0.5), nil
	}
	f, ok := r.filters[d.Type]
	if !ok {
		return nil, unknownType(d.Properties.Path(), "filter", d.Type)
	}
	return f(d.Properties)
}

// CreateShape builds the primitives of a shape description
func (r *Registry) CreateShape(d *PluginDescription) ([]geometry.Primitive, error) {
	f, ok := r.shapes[d.Type]
	if !ok {
		return nil, unknownType(d.Properties.Path(), "shape", d.Type)
	}
	return f(d.Properties)
}

// CreateEmitter builds an emitter, optionally bound to a shape
func (r *Registry) CreateEmitter(d *PluginDescription, shape []geometry.Primitive) (lights.Emitter, error) {
	f, ok := r.emitters[d.Type]
	if !ok {
		return nil, unknownType(d.Properties.Path(), "emitter", d.Type)
	}
	return f(d.Properties, shape)
}

// CreateTexture builds a color source
func (r *Registry) CreateTexture(d *PluginDescription) (material.ColorSource, error) {
	f, ok := r.textures[d.Type]
	if !ok {
		return nil, unknownType(d.Properties.Path(), "texture", d.Type)
	}
	return f(d.Properties)
}

// Builder resolves references between descriptions while a scene is being
// assembled
type Builder struct {
	Registry *Registry
	Scene    *Scene
}

// Material builds a material description
func (b *Builder) Material(d *PluginDescription) (material.BSDF, error) {
	f, ok := b.Registry.materials[d.Type]
	if !ok {
		return nil, unknownType(d.Properties.Path(), "material", d.Type)
	}
	return f(b, d.Properties)
}

// MaterialRef resolves a nested material or the name of a declared one
func (b *Builder) MaterialRef(props *Properties, name string) (material.BSDF, error) {
	nested, ref, err := props.Reference(name)
	if err != nil {
		return nil, err
	}
	if nested != nil {
		return b.Material(nested)
	}
	idx, ok := b.Scene.MaterialIndex(ref)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w: no material named %q", props.Path(), name, ErrInvalidProperty, ref)
	}
	return b.Scene.Materials[idx], nil
}

// Color reads a property that is either a constant color or a nested texture
func (b *Builder) Color(props *Properties, name string, def core.Vec3) (material.ColorSource, error) {
	if v, ok := props.values[name]; ok {
		switch v.(type) {
		case map[string]any, *PluginDescription:
			d, err := props.Plugin(name)
			if err != nil {
				return nil, err
			}
			return b.Registry.CreateTexture(d)
		}
	}
	c, err := props.Vec3(name, def)
	if err != nil {
		return nil, err
	}
	return material.NewSolidColor(c), nil
}

// conductorPresets are approximate RGB complex indices of refraction
var conductorPresets = map[string][2]core.Vec3{
	"Au": {core.NewVec3(0.143, 0.374, 1.442), core.NewVec3(3.983, 2.385, 1.603)},
	"Ag": {core.NewVec3(0.155, 0.117, 0.138), core.NewVec3(4.828, 3.122, 2.147)},
	"Cu": {core.NewVec3(0.200, 0.924, 1.102), core.NewVec3(3.912, 2.452, 2.142)},
	"Al": {core.NewVec3(1.657, 0.880, 0.521), core.NewVec3(9.224, 6.270, 4.837)},
}

func conductorIOR(props *Properties) (core.Vec3, core.Vec3, error) {
	preset, err := props.String("material", "Cu")
	if err != nil {
		return core.Vec3{}, core.Vec3{}, err
	}
	var eta, k core.Vec3
	if preset != "none" {
		ior, ok := conductorPresets[preset]
		if !ok {
			return eta, k, props.invalid("material", "unknown conductor %q", preset)
		}
		eta, k = ior[0], ior[1]
	}
	if eta, err = props.Vec3("eta", eta); err != nil {
		return eta, k, err
	}
	k, err = props.Vec3("k", k)
	return eta, k, err
}

func dielectricEta(props *Properties, defInt float64) (float64, error) {
	intIOR, err := props.PositiveFloat("intIOR", defInt)
	if err != nil {
		return 0, err
	}
	extIOR, err := props.PositiveFloat("extIOR", 1.000277)
	if err != nil {
		return 0, err
	}
	return intIOR / extIOR, nil
}

func microfacet(props *Properties) (material.Microfacet, error) {
	name, err := props.String("distribution", "beckmann")
	if err != nil {
		return material.Microfacet{}, err
	}
	kind, err := material.ParseDistribution(name)
	if err != nil {
		return material.Microfacet{}, props.invalid("distribution", "%v", err)
	}
	alpha, err := props.PositiveFloat("alpha", 0.1)
	if err != nil {
		return material.Microfacet{}, err
	}
	alphaU, err := props.PositiveFloat("alphaU", alpha)
	if err != nil {
		return material.Microfacet{}, err
	}
	alphaV, err := props.PositiveFloat("alphaV", alpha)
	if err != nil {
		return material.Microfacet{}, err
	}
	return material.NewMicrofacet(kind, alphaU, alphaV), nil
}

func registerMaterials(r *Registry) {
	r.RegisterMaterial("diffuse", func(b *Builder, props *Properties) (material.BSDF, error) {
		rho, err := b.Color(props, "reflectance", core.Splat(0.5))
		if err != nil {
			return nil, err
		}
		return material.NewTexturedDiffuse(rho), nil
	})

	r.RegisterMaterial("conductor", func(b *Builder, props *Properties) (material.BSDF, error) {
		eta, k, err := conductorIOR(props)
		if err != nil {
			return nil, err
		}
		spec, err := props.Vec3("specularReflectance", core.Splat(1))
		if err != nil {
			return nil, err
		}
		return material.NewConductor(eta, k, spec), nil
	})

	r.RegisterMaterial("roughconductor", func(b *Builder, props *Properties) (material.BSDF, error) {
		dist, err := microfacet(props)
		if err != nil {
			return nil, err
		}
		eta, k, err := conductorIOR(props)
		if err != nil {
			return nil, err
		}
		spec, err := props.Vec3("specularReflectance", core.Splat(1))
		if err != nil {
			return nil, err
		}
		return material.NewRoughConductor(dist, eta, k, spec), nil
	})

	r.RegisterMaterial("dielectric", func(b *Builder, props *Properties) (material.BSDF, error) {
		eta, err := dielectricEta(props, 1.5046)
		if err != nil {
			return nil, err
		}
		d := material.NewDielectric(eta)
		if d.SpecularReflectance, err = props.Vec3("specularReflectance", core.Splat(1)); err != nil {
			return nil, err
		}
		if d.SpecularTransmittance, err = props.Vec3("specularTransmittance", core.Splat(1)); err != nil {
			return nil, err
		}
		return d, nil
	})

	r.RegisterMaterial("thindielectric", func(b *Builder, props *Properties) (material.BSDF, error) {
		eta, err := dielectricEta(props, 1.5046)
		if err != nil {
			return nil, err
		}
		d := material.NewThinDielectric(eta)
		if d.SpecularReflectance, err = props.Vec3("specularReflectance", core.Splat(1)); err != nil {
			return nil, err
		}
		if d.SpecularTransmittance, err = props.Vec3("specularTransmittance", core.Splat(1)); err != nil {
			return nil, err
		}
		return d, nil
	})

	r.RegisterMaterial("roughdielectric", func(b *Builder, props *Properties) (material.BSDF, error) {
		dist, err := microfacet(props)
		if err != nil {
			return nil, err
		}
		eta, err := dielectricEta(props, 1.5046)
		if err != nil {
			return nil, err
		}
		d := material.NewRoughDielectric(dist, eta)
		if d.SpecularReflectance, err = props.Vec3("specularReflectance", core.Splat(1)); err != nil {
			return nil, err
		}
		if d.SpecularTransmittance, err = props.Vec3("specularTransmittance", core.Splat(1)); err != nil {
			return nil, err
		}
		return d, nil
	})

	r.RegisterMaterial("plastic", func(b *Builder, props *Properties) (material.BSDF, error) {
		eta, err := dielectricEta(props, material.DefaultPlasticIntIOR)
		if err != nil {
			return nil, err
		}
		diffuse, err := b.Color(props, "diffuseReflectance", core.Splat(0.5))
		if err != nil {
			return nil, err
		}
		spec, err := props.Vec3("specularReflectance", core.Splat(1))
		if err != nil {
			return nil, err
		}
		return material.NewPlastic(diffuse, spec, eta), nil
	})

	r.RegisterMaterial("roughplastic", func(b *Builder, props *Properties) (material.BSDF, error) {
		dist, err := microfacet(props)
		if err != nil {
			return nil, err
		}
		eta, err := dielectricEta(props, material.DefaultPlasticIntIOR)
		if err != nil {
			return nil, err
		}
		diffuse, err := b.Color(props, "diffuseReflectance", core.Splat(0.5))
		if err != nil {
			return nil, err
		}
		spec, err := props.Vec3("specularReflectance", core.Splat(1))
		if err != nil {
			return nil, err
		}
		return material.NewRoughPlastic(dist, diffuse, spec, eta), nil
	})

	r.RegisterMaterial("twosided", func(b *Builder, props *Properties) (material.BSDF, error) {
		nested, err := b.MaterialRef(props, "bsdf")
		if err != nil {
			return nil, err
		}
		return material.NewTwoSided(nested), nil
	})

	r.RegisterMaterial("blend", func(b *Builder, props *Properties) (material.BSDF, error) {
		weight, err := props.Float("weight", 0.5)
		if err != nil {
			return nil, err
		}
		if weight < 0 || weight > 1 {
			return nil, props.invalid("weight", "must be in [0,1], got %g", weight)
		}
		first, err := b.MaterialRef(props, "bsdf1")
		if err != nil {
			return nil, err
		}
		second, err := b.MaterialRef(props, "bsdf2")
		if err != nil {
			return nil, err
		}
		return material.NewBlend(first, second, weight), nil
	})

	r.RegisterTexture("checkerboard", func(props *Properties) (material.ColorSource, error) {
		c0, err := props.Vec3("color0", core.Splat(0.4))
		if err != nil {
			return nil, err
		}
		c1, err := props.Vec3("color1", core.Splat(0.2))
		if err != nil {
			return nil, err
		}
		uscale, err := props.PositiveFloat("uscale", 2)
		if err != nil {
			return nil, err
		}
		vscale, err := props.PositiveFloat("vscale", uscale)
		if err != nil {
			return nil, err
		}
		return material.NewCheckerboard(c0, c1, uscale, vscale), nil
	})
}

func registerShapes(r *Registry) {
	r.RegisterShape("sphere", func(props *Properties) ([]geometry.Primitive, error) {
		center, err := props.Vec3("center", core.Vec3{})
		if err != nil {
			return nil, err
		}
		radius, err := props.PositiveFloat("radius", 1)
		if err != nil {
			return nil, err
		}
		return []geometry.Primitive{geometry.NewSphere(center, radius)}, nil
	})

	r.RegisterShape("disc", func(props *Properties) ([]geometry.Primitive, error) {
		center, err := props.Vec3("center", core.Vec3{})
		if err != nil {
			return nil, err
		}
		normal, err := props.Vec3("normal", core.NewVec3(0, 0, 1))
		if err != nil {
			return nil, err
		}
		if normal.LengthSquared() == 0 {
			return nil, props.invalid("normal", "must be non-zero")
		}
		radius, err := props.PositiveFloat("radius", 1)
		if err != nil {
			return nil, err
		}
		return []geometry.Primitive{geometry.NewDisc(center, normal, radius)}, nil
	})

	r.RegisterShape("cylinder", func(props *Properties) ([]geometry.Primitive, error) {
		p0, err := props.Vec3("p0", core.Vec3{})
		if err != nil {
			return nil, err
		}
		p1, err := props.Vec3("p1", core.NewVec3(0, 0, 1))
		if err != nil {
			return nil, err
		}
		if p1.Subtract(p0).LengthSquared() == 0 {
			return nil, props.invalid("p1", "cylinder has no height")
		}
		radius, err := props.PositiveFloat("radius", 1)
		if err != nil {
			return nil, err
		}
		return []geometry.Primitive{geometry.NewCylinder(p0, p1, radius)}, nil
	})

	r.RegisterShape("quad", func(props *Properties) ([]geometry.Primitive, error) {
		corner, err := props.RequiredVec3("corner")
		if err != nil {
			return nil, err
		}
		u, err := props.RequiredVec3("u")
		if err != nil {
			return nil, err
		}
		v, err := props.RequiredVec3("v")
		if err != nil {
			return nil, err
		}
		if u.Cross(v).LengthSquared() == 0 {
			return nil, props.invalid("v", "edges must not be parallel")
		}
		return []geometry.Primitive{geometry.NewQuad(corner, u, v)}, nil
	})

	r.RegisterShape("cube", func(props *Properties) ([]geometry.Primitive, error) {
		center, err := props.Vec3("center", core.Vec3{})
		if err != nil {
			return nil, err
		}
		size, err := props.Vec3("size", core.Splat(1))
		if err != nil {
			return nil, err
		}
		if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
			return nil, props.invalid("size", "must be positive, got %v", size)
		}
		rotation, err := props.Vec3("rotation", core.Vec3{})
		if err != nil {
			return nil, err
		}
		return geometry.NewBox(center, size.Multiply(0.5), rotation.Multiply(degToRad)), nil
	})

	r.RegisterShape("triangle", func(props *Properties) ([]geometry.Primitive, error) {
		var p [3]core.Vec3
		for i, name := range []string{"p0", "p1", "p2"} {
			v, err := props.RequiredVec3(name)
			if err != nil {
				return nil, err
			}
			p[i] = v
		}
		if p[1].Subtract(p[0]).Cross(p[2].Subtract(p[0])).LengthSquared() == 0 {
			return nil, props.invalid("p2", "triangle is degenerate")
		}
		return []geometry.Primitive{geometry.NewTriangle(p[0], p[1], p[2])}, nil
	})

	r.RegisterShape("mesh", func(props *Properties) ([]geometry.Primitive, error) {
		if !props.Has("vertices") {
			return nil, props.missing("vertices")
		}
		vertices, err := props.Vec3s("vertices")
		if err != nil {
			return nil, err
		}
		if !props.Has("indices") {
			return nil, props.missing("indices")
		}
		indices, err := props.Ints("indices")
		if err != nil {
			return nil, err
		}
		uvs, err := props.Vec2s("uvs")
		if err != nil {
			return nil, err
		}
		opts, err := meshTransform(props)
		if err != nil {
			return nil, err
		}

		mesh, err := geometry.NewTriangleMesh(vertices, indices, uvs, opts)
		if err != nil {
			return nil, props.invalid("indices", "%v", err)
		}
		return mesh.Triangles(), nil
	})

	r.RegisterShape("ply", func(props *Properties) ([]geometry.Primitive, error) {
		if !props.Has("filename") {
			return nil, props.missing("filename")
		}
		filename, err := props.String("filename", "")
		if err != nil {
			return nil, err
		}
		opts, err := meshTransform(props)
		if err != nil {
			return nil, err
		}
		ply, err := LoadPLY(filename)
		if err != nil {
			return nil, props.invalid("filename", "%v", err)
		}

		mesh, err := geometry.NewTriangleMesh(ply.Vertices, ply.Indices, ply.UVs, opts)
		if err != nil {
			return nil, props.invalid("filename", "%v", err)
		}
		return mesh.Triangles(), nil
	})
}

// meshTransform reads the optional scale, rotation (degrees) and translate
// of a mesh shape
func meshTransform(props *Properties) (*geometry.TriangleMeshOptions, error) {
	scale, err := props.Vec3("scale", core.Splat(1))
	if err != nil {
		return nil, err
	}
	rotation, err := props.Vec3("rotation", core.Vec3{})
	if err != nil {
		return nil, err
	}
	rotation = rotation.Multiply(degToRad)
	translate, err := props.Vec3("translate", core.Vec3{})
	if err != nil {
		return nil, err
	}
	return &geometry.TriangleMeshOptions{Scale: &scale, Rotation: &rotation, Translate: &translate}, nil
}

const degToRad = math.Pi / 180

func registerEmitters(r *Registry) {
	standalone := func(kind string, shape []geometry.Primitive, props *Properties) error {
		if shape != nil {
			return fmt.Errorf("%s: %w: %s emitters cannot be attached to a shape", props.Path(), ErrInvalidProperty, kind)
		}
		return nil
	}

	r.RegisterEmitter("area", func(props *Properties, shape []geometry.Primitive) (lights.Emitter, error) {
		if shape == nil {
			return nil, fmt.Errorf("%s: %w: area emitters must be attached to a shape", props.Path(), ErrInvalidProperty)
		}
		radiance, err := props.RequiredVec3("radiance")
		if err != nil {
			return nil, err
		}
		return lights.NewAreaLight(radiance, shape), nil
	})

	r.RegisterEmitter("point", func(props *Properties, shape []geometry.Primitive) (lights.Emitter, error) {
		if err := standalone("point", shape, props); err != nil {
			return nil, err
		}
		position, err := props.RequiredVec3("position")
		if err != nil {
			return nil, err
		}
		intensity, err := props.RequiredVec3("intensity")
		if err != nil {
			return nil, err
		}
		return lights.NewPointLight(position, intensity), nil
	})

	r.RegisterEmitter("spot", func(props *Properties, shape []geometry.Primitive) (lights.Emitter, error) {
		if err := standalone("spot", shape, props); err != nil {
			return nil, err
		}
		from, err := props.RequiredVec3("position")
		if err != nil {
			return nil, err
		}
		to, err := props.RequiredVec3("target")
		if err != nil {
			return nil, err
		}
		if to.Subtract(from).LengthSquared() == 0 {
			return nil, props.invalid("target", "must differ from position")
		}
		intensity, err := props.RequiredVec3("intensity")
		if err != nil {
			return nil, err
		}
		cutoff, err := props.PositiveFloat("cutoffAngle", 20)
		if err != nil {
			return nil, err
		}
		falloff, err := props.Float("falloffAngle", cutoff*0.75)
		if err != nil {
			return nil, err
		}
		if cutoff > 90 || falloff < 0 || falloff > cutoff {
			return nil, props.invalid("cutoffAngle", "need 0 <= falloffAngle <= cutoffAngle <= 90")
		}
		return lights.NewSpotLight(from, to, intensity, cutoff, cutoff-falloff), nil
	})

	r.RegisterEmitter("directional", func(props *Properties, shape []geometry.Primitive) (lights.Emitter, error) {
		if err := standalone("directional", shape, props); err != nil {
			return nil, err
		}
		dir, err := props.RequiredVec3("direction")
		if err != nil {
			return nil, err
		}
		if dir.LengthSquared() == 0 {
			return nil, props.invalid("direction", "must be non-zero")
		}
		irradiance, err := props.RequiredVec3("irradiance")
		if err != nil {
			return nil, err
		}
		return lights.NewDirectionalLight(dir, irradiance), nil
	})

	r.RegisterEmitter("constant", func(props *Properties, shape []geometry.Primitive) (lights.Emitter, error) {
		if err := standalone("constant", shape, props); err != nil {
			return nil, err
		}
		radiance, err := props.RequiredVec3("radiance")
		if err != nil {
			return nil, err
		}
		return lights.NewConstantEnvironment(radiance), nil
	})

	r.RegisterEmitter("sky", func(props *Properties, shape []geometry.Primitive) (lights.Emitter, error) {
		if err := standalone("sky", shape, props); err != nil {
			return nil, err
		}
		top, err := props.RequiredVec3("top")
		if err != nil {
			return nil, err
		}
		bottom, err := props.RequiredVec3("bottom")
		if err != nil {
			return nil, err
		}
		return lights.NewGradientEnvironment(top, bottom), nil
	})
}

func registerFilters(r *Registry) {
	r.RegisterFilter("box", func(props *Properties) (sensor.Filter, error) {
		radius, err := props.PositiveFloat("radius", 0.5)
		if err != nil {
			return nil, err
		}
		return sensor.NewBoxFilter(radius), nil
	})
	r.RegisterFilter("tent", func(props *Properties) (sensor.Filter, error) {
		radius, err := props.PositiveFloat("radius", 1)
		if err != nil {
			return nil, err
		}
		return sensor.NewTentFilter(radius), nil
	})
	r.RegisterFilter("gaussian", func(props *Properties) (sensor.Filter, error) {
		radius, err := props.PositiveFloat("radius", 1.5)
		if err != nil {
			return nil, err
		}
		alpha, err := props.PositiveFloat("alpha", 2)
		if err != nil {
			return nil, err
		}
		return sensor.NewGaussianFilter(radius, alpha), nil
	})
	r.RegisterFilter("mitchell", func(props *Properties) (sensor.Filter, error) {
		radius, err := props.PositiveFloat("radius", 2)
		if err != nil {
			return nil, err
		}
		b, err := props.Float("B", 1.0/3)
		if err != nil {
			return nil, err
		}
		c, err := props.Float("C", 1.0/3)
		if err != nil {
			return nil, err
		}
		return sensor.NewMitchellFilter(radius, b, c), nil
	})
}
