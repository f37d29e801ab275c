package scene

import (
	"fmt"

	"github.com/chazu/meadow/pkg/scatter"
)

// Instantiate creates an instance of template under parent at the origin
// with unit scale. parent may be NoHandle or any live body.
func (s *Scene) Instantiate(template scatter.Template, parent scatter.Handle) (scatter.Handle, error) {
	shape, ok := s.templates[template]
	if !ok {
		return scatter.NoHandle, fmt.Errorf("%w: %q", ErrUnknownTemplate, template)
	}
	var p *Body
	if parent != scatter.NoHandle {
		if p, ok = s.bodies[parent]; !ok {
			return scatter.NoHandle, fmt.Errorf("%w: parent %d", ErrUnknownBody, parent)
		}
	}

	b := s.newBody(KindInstance)
	b.Template = template
	b.Parent = parent
	b.shape = shape
	if p != nil {
		p.Children = append(p.Children, b.ID)
	}
	if err := s.Move(b.ID, scatter.Vec3{}, 1); err != nil {
		s.forget(b)
		return scatter.NoHandle, err
	}
	return b.ID, nil
}

// SetTransform implements scatter.ObjectFactory. Unknown handles are
// ignored; use Move to observe the error.
func (s *Scene) SetTransform(h scatter.Handle, position scatter.Vec3, scale float64) {
	_ = s.Move(h, position, scale)
}

// Move places instance h at position with an isotropic scale and
// refreshes its index entry. A non-positive scale leaves the instance
// without geometry.
func (s *Scene) Move(h scatter.Handle, position scatter.Vec3, scale float64) error {
	b, ok := s.bodies[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBody, h)
	}
	if b.Kind != KindInstance {
		return fmt.Errorf("scene: cannot move %s %q", b.Kind, b.Name)
	}

	b.Position = position
	b.Scale = scale
	b.solid = nil
	if scale > 0 {
		solid := b.shape
		if scale != 1 {
			solid = s.kernel.Scale(solid, scale)
		}
		if position != (scatter.Vec3{}) {
			solid = s.kernel.Translate(solid, position.X, position.Y, position.Z)
		}
		b.solid = solid
	}
	return s.reindex(b)
}

// Destroy implements scatter.ObjectFactory. Unknown handles are ignored.
func (s *Scene) Destroy(h scatter.Handle) {
	_ = s.Remove(h)
}

// Remove deletes body h and, recursively, its children.
func (s *Scene) Remove(h scatter.Handle) error {
	b, ok := s.bodies[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBody, h)
	}
	for _, c := range append([]scatter.Handle(nil), b.Children...) {
		if err := s.Remove(c); err != nil {
			return err
		}
	}
	s.forget(b)
	return nil
}
