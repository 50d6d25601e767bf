package game

// Customization is a partial appearance update. Empty Name or Color leave the
// current value in place. When SetImage is true, Image replaces the current
// image and a nil Image clears it.
type Customization struct {
	Name     string
	Color    string
	SetImage bool
	Image    *string
}

// Customize applies c to the entity. An image larger than maxImageBytes is
// dropped and the previous image kept; the returned flag reports the drop.
func (e *Entity) Customize(c Customization, maxImageBytes int) (imageDropped bool) {
	if c.Name != "" {
		e.Name = c.Name
	}
	if c.Color != "" {
		e.Color = c.Color
	}
	if !c.SetImage {
		return false
	}
	if c.Image != nil && len(*c.Image) > maxImageBytes {
		return true
	}
	if c.Image == nil {
		e.CustomImage = nil
		return false
	}
	img := *c.Image
	e.CustomImage = &img
	return false
}
